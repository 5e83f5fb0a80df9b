package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStatusWriter(t *testing.T) {
	w := httptest.NewRecorder()
	sw := &StatusWriter{ResponseWriter: w, Code: 200}

	sw.WriteHeader(http.StatusNotFound)
	if sw.Code != http.StatusNotFound {
		t.Errorf("expected Code 404, got %d", sw.Code)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("expected recorded code 404, got %d", w.Code)
	}

	w2 := httptest.NewRecorder()
	sw2 := &StatusWriter{ResponseWriter: w2, Code: 200}
	_, _ = sw2.Write([]byte("ok"))
	if sw2.Code != 200 {
		t.Errorf("expected default code 200, got %d", sw2.Code)
	}
	if sw2.Bytes != 2 {
		t.Errorf("expected 2 bytes, got %d", sw2.Bytes)
	}
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, map[string]string{"foo": "bar"})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type application/json, got %q", ct)
	}
	expectedBody := `{"foo":"bar"}` + "\n"
	if w.Body.String() != expectedBody {
		t.Errorf("expected body %q, got %q", expectedBody, w.Body.String())
	}
}

func TestJSONUnencodable(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]any{"ch": make(chan int)})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"internal"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestErrorKeepsAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	err := fmt.Errorf("start: %w", &APIError{Status: http.StatusConflict, Code: "session_active", Message: "busy"})
	Error(w, http.StatusInternalServerError, err)

	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"session_active"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, fmt.Errorf("bad request"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	expectedBody := `{"code":"error","error":"bad request"}` + "\n"
	if w.Body.String() != expectedBody {
		t.Errorf("expected body %q, got %q", expectedBody, w.Body.String())
	}
}

func TestErrorCodeRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorCode(w, http.StatusGatewayTimeout, "window_timeout", "slow", true, map[string]any{"session": "s1"})

	body := w.Body.String()
	for _, want := range []string{`"retryable":true`, `"code":"window_timeout"`, `"session":"s1"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		URL string `json:"url"`
	}
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"url":"http://x/"}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.URL != "http://x/" {
		t.Errorf("url = %q", v.URL)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(""))
	if err := DecodeJSON(httptest.NewRecorder(), r, &v); err != nil {
		t.Errorf("empty body should be accepted, got %v", err)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader("{"))
	if err := DecodeJSON(httptest.NewRecorder(), r, &v); err == nil {
		t.Error("expected error for malformed body")
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"url":"http://x/","uri":"typo"}`))
	err := DecodeJSON(httptest.NewRecorder(), r, &v)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400 APIError for unknown field, got %v", err)
	}
}
