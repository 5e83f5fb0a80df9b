// Package web holds the JSON plumbing shared by the focusd handlers.
package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const MaxBodySize = 1 << 20

// JSON encodes data before touching w, so an unencodable value becomes a 500
// instead of a truncated body.
func JSON(w http.ResponseWriter, code int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("json encode", "err", err)
		code = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"response encoding failed","code":"internal"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Status    int            `json:"-"`
	Code      string         `json:"code"`
	Message   string         `json:"error"`
	Retryable bool           `json:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Write(w http.ResponseWriter) {
	JSON(w, e.Status, e)
}

// Error writes err with the generic "error" code. An *APIError anywhere in
// the chain is written as is.
func Error(w http.ResponseWriter, status int, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		apiErr.Write(w)
		return
	}
	(&APIError{Status: status, Code: "error", Message: err.Error()}).Write(w)
}

func ErrorCode(w http.ResponseWriter, status int, code, message string, retryable bool, details map[string]any) {
	(&APIError{Status: status, Code: code, Message: message, Retryable: retryable, Details: details}).Write(w)
}

// DecodeJSON reads a size-limited JSON body into v. An empty body leaves v
// untouched; unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &APIError{Status: http.StatusBadRequest, Code: "bad_request", Message: fmt.Sprintf("decode: %v", err)}
	}
	return nil
}

// StatusWriter records the status code and body size of a response.
type StatusWriter struct {
	http.ResponseWriter
	Code  int
	Bytes int
}

func (w *StatusWriter) WriteHeader(code int) {
	w.Code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *StatusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.Bytes += n
	return n, err
}

func (w *StatusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
