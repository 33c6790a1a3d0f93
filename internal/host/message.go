package host

import (
	"context"
	"errors"
)

var (
	// ErrNoReply is reported to a transport when handling finished without a reply
	ErrNoReply = errors.New("process returned no response")

	// ErrAlreadyResponded is returned by a second Respond for the same request
	ErrAlreadyResponded = errors.New("request already answered")

	// ErrNotRequest is returned when responding to a response message
	ErrNotRequest = errors.New("message is not a request")

	// ErrShutdown is reported for messages still queued when the loop stops
	ErrShutdown = errors.New("process is shutting down")
)

// MessageKind tells requests from responses
type MessageKind int

const (
	KindRequest MessageKind = iota + 1
	KindResponse
)

// Blob is an out-of-band payload attached to a message
type Blob struct {
	MIME  string
	Bytes []byte
}

// Reply is what a process sends back for a request
type Reply struct {
	Body []byte
	Blob *Blob
}

// Responder delivers the outcome of a request back to its transport
type Responder interface {
	// Respond sends the reply. Only the first call succeeds.
	Respond(Reply) error

	// Fail tells the transport no reply is coming
	Fail(err error)
}

// Message is one unit of work delivered to the process
type Message struct {
	Kind   MessageKind
	Source Address
	Body   []byte
	Blob   *Blob

	responder Responder
}

// NewRequest builds a request message answered through responder
func NewRequest(source Address, body []byte, blob *Blob, responder Responder) Message {
	return Message{Kind: KindRequest, Source: source, Body: body, Blob: blob, responder: responder}
}

// NewResponse builds a response message; it cannot be answered
func NewResponse(source Address, body []byte, blob *Blob) Message {
	return Message{Kind: KindResponse, Source: source, Body: body, Blob: blob}
}

// IsRequest reports whether the message expects a reply
func (m Message) IsRequest() bool {
	return m.Kind == KindRequest
}

// Respond answers a request message
func (m Message) Respond(reply Reply) error {
	if !m.IsRequest() || m.responder == nil {
		return ErrNotRequest
	}
	return m.responder.Respond(reply)
}

// Outcome is the reply or failure a transport waits for
type Outcome struct {
	Reply Reply
	Err   error
}

// ChanResponder hands the first outcome of a request to a waiting transport
type ChanResponder struct {
	ch chan Outcome
}

// NewChanResponder creates a ChanResponder
func NewChanResponder() *ChanResponder {
	return &ChanResponder{ch: make(chan Outcome, 1)}
}

func (c *ChanResponder) Respond(reply Reply) error {
	select {
	case c.ch <- Outcome{Reply: reply}:
		return nil
	default:
		return ErrAlreadyResponded
	}
}

func (c *ChanResponder) Fail(err error) {
	if err == nil {
		err = ErrNoReply
	}
	select {
	case c.ch <- Outcome{Err: err}:
	default:
	}
}

// Wait blocks until the request is answered, failed or ctx is done
func (c *ChanResponder) Wait(ctx context.Context) (Reply, error) {
	select {
	case outcome := <-c.ch:
		return outcome.Reply, outcome.Err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}
