// Package handlers exposes the focus manager over HTTP.
package handlers

import (
	"context"
	"net/http"

	"github.com/web-padawan/web/internal/config"
	"github.com/web-padawan/web/internal/focus"
)

// SessionManager is the part of focus.Manager the handlers use.
type SessionManager interface {
	StartSession(ctx context.Context, id, url string) error
	StopSession(ctx context.Context, id string) (*focus.SessionResult, error)
	IsActive(id string) bool
	Sessions() map[string]string
	Stats() focus.Stats
}

var _ SessionManager = (*focus.Manager)(nil)

type Handlers struct {
	Sessions SessionManager
	Config   *config.RuntimeConfig
}

func New(m SessionManager, cfg *config.RuntimeConfig) *Handlers {
	return &Handlers{
		Sessions: m,
		Config:   cfg,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux, doShutdown func()) {
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /metrics", h.HandleMetrics)
	mux.HandleFunc("GET /sessions", h.HandleSessions)
	mux.HandleFunc("GET /sessions/{id}", h.HandleSession)
	mux.HandleFunc("POST /sessions/{id}/start", h.HandleStartSession)
	mux.HandleFunc("POST /sessions/{id}/stop", h.HandleStopSession)

	if doShutdown != nil {
		mux.HandleFunc("POST /shutdown", h.HandleShutdown(doShutdown))
	}
}
