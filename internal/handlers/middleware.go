package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/web-padawan/web/internal/config"
	"github.com/web-padawan/web/internal/web"
)

const maxRequestIDLen = 64

// AccessLog tags every request with an ID and logs one line once it is
// served. Lines for session routes carry the session and the gate backlog
// left behind the request.
func AccessLog(sessions SessionManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rid := requestID(r)
		w.Header().Set("X-Request-Id", rid)

		sw := &web.StatusWriter{ResponseWriter: w, Code: 200}
		next.ServeHTTP(sw, r)
		ms := uint64(time.Since(start).Milliseconds())
		recordRequest(ms, sw.Code)

		attrs := []any{
			"requestId", rid,
			"method", r.Method,
			"route", r.Pattern,
			"status", sw.Code,
			"bytes", sw.Bytes,
			"ms", ms,
		}
		// The mux fills in path values on r before dispatching.
		if id := r.PathValue("id"); id != "" && sessions != nil {
			st := sessions.Stats()
			attrs = append(attrs,
				"session", id,
				"active", st.Active,
				"idle", st.Idle,
				"queuedStarts", st.QueuedStarts,
				"queuedStops", st.QueuedStops,
			)
		}
		level := slog.LevelInfo
		if sw.Code >= 500 {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "request", attrs...)
	})
}

// requestID keeps a caller supplied X-Request-Id if it is short and
// printable, and mints a new one otherwise.
func requestID(r *http.Request) string {
	if rid := r.Header.Get("X-Request-Id"); rid != "" && len(rid) <= maxRequestIDLen && printable(rid) {
		return rid
	}
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequireToken rejects requests without the bearer token. /health stays open
// so supervisors can probe the daemon. An empty token disables the check.
func RequireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		switch {
		case !ok || got == "":
			challenge(w, "missing_token")
		case subtle.ConstantTimeCompare([]byte(got), want) != 1:
			challenge(w, "bad_token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func challenge(w http.ResponseWriter, code string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="focusd", error="`+code+`"`)
	web.ErrorCode(w, http.StatusUnauthorized, code, "unauthorized", false, nil)
}

// Chain wraps mux with access logging and token auth.
func Chain(cfg *config.RuntimeConfig, sessions SessionManager, mux http.Handler) http.Handler {
	return AccessLog(sessions, RequireToken(cfg.Token, mux))
}
