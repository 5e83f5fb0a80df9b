package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/web-padawan/web/internal/focus"
	"github.com/web-padawan/web/internal/web"
)

// HandleStartSession opens a session on a window and waits until the window
// is focused and navigated.
//
// @Endpoint POST /sessions/{id}/start
func (h *Handlers) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		web.Error(w, 400, fmt.Errorf("session id required"))
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.Error(w, 400, err)
		return
	}
	if req.URL == "" {
		web.Error(w, 400, fmt.Errorf("url required"))
		return
	}

	if err := h.Sessions.StartSession(r.Context(), id, req.URL); err != nil {
		recordSessionFailure()
		writeSessionError(w, id, err)
		return
	}
	recordSessionStarted()
	web.JSON(w, 200, map[string]any{"id": id, "active": true, "url": req.URL})
}

// HandleStopSession tears a session down and returns its result.
//
// @Endpoint POST /sessions/{id}/stop
func (h *Handlers) HandleStopSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		web.Error(w, 400, fmt.Errorf("session id required"))
		return
	}

	res, err := h.Sessions.StopSession(r.Context(), id)
	if err != nil {
		recordSessionFailure()
		writeSessionError(w, id, err)
		return
	}
	recordSessionStopped(len(res.Errors))
	web.JSON(w, 200, res)
}

// @Endpoint GET /sessions/{id}
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.Sessions.IsActive(id) {
		web.JSON(w, 200, map[string]any{"id": id, "active": false})
		return
	}
	web.JSON(w, 200, map[string]any{"id": id, "active": true, "window": h.Sessions.Sessions()[id]})
}

// @Endpoint GET /sessions
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.Sessions.Sessions()
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	list := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		list = append(list, map[string]string{"id": id, "window": sessions[id]})
	}
	web.JSON(w, 200, map[string]any{"sessions": list})
}

func writeSessionError(w http.ResponseWriter, id string, err error) {
	details := map[string]any{"session": id}
	switch {
	case errors.Is(err, focus.ErrUnknownSession):
		web.ErrorCode(w, 404, "unknown_session", err.Error(), false, details)
	case errors.Is(err, focus.ErrSessionActive):
		web.ErrorCode(w, 409, "session_active", err.Error(), false, details)
	case errors.Is(err, focus.ErrWindowTimeout):
		web.ErrorCode(w, 504, "window_timeout", err.Error(), true, details)
	case errors.Is(err, focus.ErrNotInitialized):
		web.ErrorCode(w, 503, "not_initialized", err.Error(), true, details)
	default:
		web.ErrorCode(w, 500, "session_failed", err.Error(), false, details)
	}
}
