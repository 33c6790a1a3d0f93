// Package socket is the native channel: a Unix socket where local
// clients send one CBOR request frame per connection and read back the
// process reply.
package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/lewtec/imgserver/internal/host"
	"github.com/rs/zerolog"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second

	defaultResponseTimeout = 30 * time.Second
	defaultMaxFrameSize    = 64 << 20
)

// ErrReservedSource is reported for frames claiming the HTTP server process
var ErrReservedSource = errors.New("source is reserved for the http server")

type Server struct {
	socketPath      string
	sender          host.Sender
	defaultSource   host.Address
	httpServer      host.ProcessID
	responseTimeout time.Duration
	maxFrameSize    int64
	logger          zerolog.Logger

	activeConnections sync.WaitGroup
}

type Option func(*Server)

// WithHTTPServer sets the process that socket clients may not claim
func WithHTTPServer(process host.ProcessID) Option {
	return func(s *Server) {
		s.httpServer = process
	}
}

// WithResponseTimeout bounds how long a connection waits for the process
func WithResponseTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.responseTimeout = d
	}
}

// WithMaxFrameSize limits the size of a request frame
func WithMaxFrameSize(n int64) Option {
	return func(s *Server) {
		s.maxFrameSize = n
	}
}

func NewServer(socketPath string, sender host.Sender, defaultSource host.Address, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		socketPath:      socketPath,
		sender:          sender,
		defaultSource:   defaultSource,
		httpServer:      host.HTTPServerProcess,
		responseTimeout: defaultResponseTimeout,
		maxFrameSize:    defaultMaxFrameSize,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve listens on the socket path until ctx is done, then waits for
// open connections and removes the socket file.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("while removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("while listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info().Str("path", s.socketPath).Msg("socket: listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error().Err(err).Msg("socket: accept failed")
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	s.logger.Info().Msg("socket: stopped")
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	var frame Frame
	if err := cbor.NewDecoder(io.LimitReader(conn, s.maxFrameSize)).Decode(&frame); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeReply(conn, ReplyFrame{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	source, err := s.resolveSource(frame.Source)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", frame.Source).Msg("socket: rejected request")
		s.writeReply(conn, ReplyFrame{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.responseTimeout)
	defer cancel()

	responder := host.NewChanResponder()
	if err := s.sender.Deliver(ctx, host.NewRequest(source, frame.Body, frame.Blob.toHost(), responder)); err != nil {
		s.writeReply(conn, ReplyFrame{Error: err.Error()})
		return
	}
	reply, err := responder.Wait(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Str("source", source.String()).Msg("socket: request got no reply")
		s.writeReply(conn, ReplyFrame{Error: err.Error()})
		return
	}
	s.writeReply(conn, ReplyFrame{Body: reply.Body, Blob: blobFrame(reply.Blob)})
}

func (s *Server) resolveSource(raw string) (host.Address, error) {
	if raw == "" {
		return s.defaultSource, nil
	}
	source, err := host.ParseAddress(raw)
	if err != nil {
		return host.Address{}, fmt.Errorf("invalid source: %w", err)
	}
	if source.Process == s.httpServer {
		return host.Address{}, fmt.Errorf("%s: %w", source, ErrReservedSource)
	}
	return source, nil
}

func (s *Server) writeReply(conn net.Conn, reply ReplyFrame) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := cbor.NewEncoder(conn).Encode(reply); err != nil {
		s.logger.Debug().Err(err).Msg("socket: failed to write reply")
	}
}
