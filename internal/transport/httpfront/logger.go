package httpfront

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPLogger logs one line per request with its status and duration
func HTTPLogger(logger zerolog.Logger, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initialTime := time.Now()
		wr := NewStatusCodeRecorderResponseWriter(w)
		handler.ServeHTTP(wr, r)
		logger.Info().
			Int64("time_ms", time.Since(initialTime).Milliseconds()).
			Int("status", wr.Status).
			Str("method", r.Method).
			Str("path", r.URL.String()).
			Msg("http: served request")
	})
}

type StatusCodeRecorderResponseWriter struct {
	http.ResponseWriter
	Status int
}

func (r *StatusCodeRecorderResponseWriter) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func NewStatusCodeRecorderResponseWriter(w http.ResponseWriter) *StatusCodeRecorderResponseWriter {
	return &StatusCodeRecorderResponseWriter{ResponseWriter: w, Status: http.StatusOK}
}
