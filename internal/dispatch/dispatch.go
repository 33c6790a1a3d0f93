// Package dispatch decides how each inbound message is decoded, runs it
// against the image store and answers on the transport it came from.
package dispatch

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/lewtec/imgserver/internal/codec"
	"github.com/lewtec/imgserver/internal/domain"
	"github.com/lewtec/imgserver/internal/host"
	"github.com/lewtec/imgserver/internal/store"
	"github.com/rs/zerolog"
)

// TransportKind tells which transport delivered a message
type TransportKind int

const (
	TransportNative TransportKind = iota
	TransportHTTP
)

func (k TransportKind) String() string {
	if k == TransportHTTP {
		return "http"
	}
	return "native"
}

// Classify maps a message source to its transport: only the HTTP server
// process speaks HTTP
func Classify(source host.Address, httpServer host.ProcessID) TransportKind {
	if source.Process == httpServer {
		return TransportHTTP
	}
	return TransportNative
}

// Persister commits the store after it changes
type Persister interface {
	Commit(ctx context.Context, s *store.Store) error
}

// Dispatcher owns the store for the lifetime of the process. It is
// driven by a single host.Loop and is not safe for concurrent use.
type Dispatcher struct {
	store      *store.Store
	persister  Persister
	httpServer host.ProcessID
	logger     zerolog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithHTTPServer overrides the process recognised as the HTTP front door
func WithHTTPServer(process host.ProcessID) Option {
	return func(d *Dispatcher) {
		d.httpServer = process
	}
}

// New creates a Dispatcher. persister may be nil.
func New(s *store.Store, persister Persister, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:      s,
		persister:  persister,
		httpServer: host.HTTPServerProcess,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleMessage implements host.Handler
func (d *Dispatcher) HandleMessage(ctx context.Context, msg host.Message) error {
	if !msg.IsRequest() {
		d.logger.Debug().Str("source", msg.Source.String()).Msg("dispatch: ignoring response message")
		return nil
	}
	return d.Handle(ctx, Classify(msg.Source, d.httpServer), msg)
}

// Handle processes a request already classified as kind
func (d *Dispatcher) Handle(ctx context.Context, kind TransportKind, msg host.Message) error {
	if kind == TransportHTTP {
		return d.handleHTTP(ctx, msg)
	}
	return d.handleNative(ctx, msg)
}

func (d *Dispatcher) handleHTTP(ctx context.Context, msg host.Message) error {
	if msg.Blob == nil {
		return fmt.Errorf("http request: %w", domain.ErrNoBlob)
	}
	httpRequest, err := codec.ParseHTTPRequest(msg.Body)
	if err != nil {
		return err
	}

	var result domain.Result[string]
	req := codec.DecodeHTTP(msg.Blob.Bytes)
	switch req.Op {
	case domain.OpGetImage:
		d.logger.Info().Str("image_id", req.ID).Msg("dispatch: received a get image request")
		result = d.getImage(req.ID)
	default:
		d.logger.Info().
			Str("user_agent", httpRequest.UserAgent()).
			Int("bytes", len(msg.Blob.Bytes)).
			Msg("dispatch: uploading image")
		result = d.uploadImage(ctx, msg.Blob.Bytes)
	}

	return msg.Respond(codec.EncodeHTTP(result).Reply())
}

func (d *Dispatcher) handleNative(ctx context.Context, msg host.Message) error {
	req, err := codec.DecodeNative(msg.Body)
	if err != nil {
		return fmt.Errorf("native request from %s: %w", msg.Source, err)
	}

	var resp domain.Response
	switch req.Op {
	case domain.OpUploadImage:
		if msg.Blob == nil {
			resp = domain.UploadImageResponse(domain.Err[string](domain.ErrNoBlob.Error()))
		} else {
			resp = domain.UploadImageResponse(d.uploadImage(ctx, msg.Blob.Bytes))
		}
	case domain.OpGetImage:
		resp = domain.GetImageResponse(d.getImage(req.ID))
	}

	reply, err := codec.NativeReply(resp)
	if err != nil {
		return err
	}
	return msg.Respond(reply)
}

func (d *Dispatcher) uploadImage(ctx context.Context, data []byte) domain.Result[string] {
	id, err := d.store.Upload(data)
	if err != nil {
		d.logger.Error().Err(err).Msg("dispatch: upload failed")
		return domain.Err[string](err.Error())
	}
	d.logger.Info().Str("image_id", id).Int("bytes", len(data)).Msg("dispatch: successfully uploaded image")

	// The upload stands even if the snapshot cannot be written.
	if d.persister != nil {
		if err := d.persister.Commit(ctx, d.store); err != nil {
			d.logger.Error().Err(err).Str("image_id", id).Msg("dispatch: while committing state after upload")
		}
	}
	return domain.Ok(id)
}

func (d *Dispatcher) getImage(id string) domain.Result[string] {
	data, err := d.store.Get(id)
	if err != nil {
		return domain.Err[string](err.Error())
	}
	return domain.Ok(base64.StdEncoding.EncodeToString(data))
}

// Verify that Dispatcher implements host.Handler
var _ host.Handler = (*Dispatcher)(nil)
