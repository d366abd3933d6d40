package handlers

import (
	"sync"

	"github.com/akolanti/ThreadQA/internal/session"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

var (
	handlerInstance *SessionHandler //private singleton
	mu              sync.RWMutex
	logSH           *logger_i.Logger
)

type SessionHandler struct {
	service session.Service
}

// InitSessionHandler installs the service every handler talks to. Calling it again swaps the service.
func InitSessionHandler(sessionService session.Service) {
	mu.Lock()
	defer mu.Unlock()

	handlerInstance = &SessionHandler{service: sessionService}
	logSH = logger_i.NewLogger("SessionHandler")
	logRH = logger_i.NewLogger("RequestHandler")
	logSH.Info("Starting session handler")
}

func getService() (session.Service, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if handlerInstance == nil {
		return nil, false
	}
	return handlerInstance.service, true
}
