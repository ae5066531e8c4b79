package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorBody is the JSON shape of every authentication failure.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func NewErrorBody(status int, message string, now time.Time) ErrorBody {
	return ErrorBody{
		Error:     http.StatusText(status),
		Message:   message,
		Timestamp: now.UnixMilli(),
	}
}

// WriteFailure writes f as a JSON error response.
func WriteFailure(w http.ResponseWriter, f *Failure, now time.Time) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tecbook"`)
	w.WriteHeader(f.Status)
	_ = json.NewEncoder(w).Encode(NewErrorBody(f.Status, f.Message, now))
}
