package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/web-padawan/web/internal/web"
)

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cdp := ""
	if h.Config != nil {
		cdp = h.Config.CdpURL
	}
	web.JSON(w, 200, map[string]any{"status": "ok", "cdp": cdp, "sessions": h.Sessions.Stats()})
}

func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	web.JSON(w, 200, map[string]any{"metrics": snapshotMetrics(), "sessions": h.Sessions.Stats()})
}

func (h *Handlers) HandleShutdown(shutdownFn func()) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("shutdown requested via API")
		web.JSON(w, 200, map[string]any{"status": "shutting down"})

		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdownFn()
		}()
	}
}
