package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/ThreadQA/internal/adapter/utils"
	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/handlers"
	"github.com/akolanti/ThreadQA/internal/middleware"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server     *http.Server
	_logger    *logger_i.Logger
	loggerOnce sync.Once
)

func logger() *logger_i.Logger {
	loggerOnce.Do(func() { _logger = logger_i.NewLogger("Server") })
	return _logger
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	CloseServices    context.CancelFunc
}

// RegisterRoutes mounts the session API on r.
func RegisterRoutes(r chi.Router) {
	r.Get("/health", middleware.WrapPublic(handlers.HealthHandler))
	r.Get("/threads", middleware.Wrap(handlers.ListThreadsHandler))

	r.Post("/sessions", middleware.Wrap(handlers.StartSessionHandler))
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/ask", middleware.Wrap(handlers.AskHandler))
		r.Post("/reset", middleware.Wrap(handlers.ResetSessionHandler))
		r.Get("/events", middleware.Wrap(handlers.GetEventsHandler))
		r.Delete("/", middleware.Wrap(handlers.EndSessionHandler))
	})
}

func CreateServer(listenAddr string) {
	r := utils.GetRouter()
	RegisterRoutes(r.Router)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	logger().Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger().Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	logger().Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		// in-flight turns finish before Shutdown returns
		if err := server.Shutdown(ctx); err != nil {
			logger().Error("Could not shutdown gracefully", "error", err)
		}

		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		logger().Info("Gracefully shut down")
	case <-ctx.Done():
		logger().Info("Force Shut down")
		os.Exit(1)
	}
}
