package utils

import (
	"net/http"
	"sync"

	_ "github.com/akolanti/ThreadQA/cmd/api/docs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

var once sync.Once
var router *chi.Mux

func GetNewUUID() string {
	return uuid.New().String()
}

type RouterClient struct {
	Router *chi.Mux
}

func GetChiURLParam(request *http.Request, key string) string {
	return chi.URLParam(request, key)
}

// RoutePattern returns the matched chi pattern, e.g. /sessions/{id}/ask, falling back to the raw path.
func RoutePattern(request *http.Request) string {
	if rc := chi.RouteContext(request.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return request.URL.Path
}

// GetRouter returns the process-wide router.
func GetRouter() RouterClient {
	once.Do(func() {
		router = NewRouter()
	})
	return RouterClient{Router: router}
}

// NewRouter builds a router with swagger and prometheus already mounted.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	InitSwagger(r)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
