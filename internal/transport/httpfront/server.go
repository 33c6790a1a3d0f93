// Package httpfront is the HTTP front door: it turns requests on bound
// paths into messages from the HTTP server process and writes back the
// reply the process sends.
package httpfront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lewtec/imgserver/internal/codec"
	"github.com/lewtec/imgserver/internal/host"
	"github.com/rs/zerolog"
)

// StatusPath serves the status page
const StatusPath = "/_status"

const shutdownTimeout = 5 * time.Second

type Options struct {
	Addr            string
	Bind            []string
	MaxBody         int64
	ResponseTimeout time.Duration
}

type Server struct {
	sender  host.Sender
	source  host.Address
	options Options
	logger  zerolog.Logger

	started   time.Time
	forwarded atomic.Int64
	failed    atomic.Int64
}

// New creates a front door delivering to sender. Messages carry source,
// which should be the HTTP server process on this node.
func New(sender host.Sender, source host.Address, options Options, logger zerolog.Logger) *Server {
	return &Server{
		sender:  sender,
		source:  source,
		options: options,
		logger:  logger,
		started: time.Now(),
	}
}

// Handler returns the front door with access logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(StatusPath, s.handleStatus)
	for _, path := range s.options.Bind {
		if path == StatusPath {
			continue
		}
		mux.Handle(path, s.forward(path))
	}
	return HTTPLogger(s.logger, mux)
}

// ListenAndServe listens on the configured address until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.options.Addr)
	if err != nil {
		return fmt.Errorf("while listening on %s: %w", s.options.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. It takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Strs("bind", s.options.Bind).Msg("http: listening")

	errs := make(chan error, 1)
	go func() {
		errs <- server.Serve(ln)
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("while serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("while shutting down http server: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("http: stopped")
	return nil
}

func (s *Server) forward(boundPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.options.MaxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "while reading request body", http.StatusBadRequest)
			return
		}

		envelope, err := codec.EncodeHTTPRequest(describeRequest(r, boundPath))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		var blob *host.Blob
		if len(body) > 0 {
			blob = &host.Blob{MIME: r.Header.Get("Content-Type"), Bytes: body}
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.options.ResponseTimeout)
		defer cancel()

		responder := host.NewChanResponder()
		s.forwarded.Add(1)
		if err := s.sender.Deliver(ctx, host.NewRequest(s.source, envelope, blob, responder)); err != nil {
			s.fail(w, r, err)
			return
		}
		reply, err := responder.Wait(ctx)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		status, headers, payload, err := codec.ParseHTTPReply(reply)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		for key, value := range headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(status)
		w.Write(payload)
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.failed.Add(1)
	if r.Context().Err() != nil {
		// client went away, nobody to answer
		return
	}
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	s.logger.Warn().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("http: process did not answer")
	http.Error(w, http.StatusText(status), status)
}

func describeRequest(r *http.Request, boundPath string) codec.HTTPRequest {
	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	query := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return codec.HTTPRequest{
		Method:      r.Method,
		URL:         scheme + "://" + r.Host + r.URL.RequestURI(),
		BoundPath:   boundPath,
		Headers:     headers,
		QueryParams: query,
	}
}
