package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Handler processes one message. A returned error is logged by the loop
// and does not stop it.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Sender accepts messages for a process
type Sender interface {
	Deliver(ctx context.Context, msg Message) error
}

// Inbox is the bounded queue between transports and the loop
type Inbox struct {
	ch chan Message
}

// NewInbox creates an inbox holding up to size pending messages
func NewInbox(size int) *Inbox {
	if size < 1 {
		size = 1
	}
	return &Inbox{ch: make(chan Message, size)}
}

// Deliver queues msg, blocking while the inbox is full
func (i *Inbox) Deliver(ctx context.Context, msg Message) error {
	select {
	case i.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loop receives messages one at a time and hands them to a Handler.
// Each message is handled to completion before the next is received.
type Loop struct {
	inbox  *Inbox
	logger zerolog.Logger
}

// NewLoop creates a Loop draining inbox
func NewLoop(inbox *Inbox, logger zerolog.Logger) *Loop {
	return &Loop{inbox: inbox, logger: logger}
}

// Run handles messages until ctx is cancelled. Messages still queued at
// that point are failed with ErrShutdown.
func (l *Loop) Run(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			l.drain()
			return nil
		case msg := <-l.inbox.ch:
			l.handle(ctx, handler, msg)
		}
	}
}

func (l *Loop) handle(ctx context.Context, handler Handler, msg Message) {
	var tracked *trackingResponder
	if msg.IsRequest() && msg.responder != nil {
		tracked = &trackingResponder{inner: msg.responder}
		msg.responder = tracked
	}

	err := l.invoke(ctx, handler, msg)
	if err != nil {
		l.logger.Error().Err(err).Str("source", msg.Source.String()).Msg("loop: got error while handling message")
	}
	if tracked != nil && !tracked.answered() {
		tracked.inner.Fail(err)
	}
}

func (l *Loop) invoke(ctx context.Context, handler Handler, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling message: %v", r)
		}
	}()
	return handler.HandleMessage(ctx, msg)
}

func (l *Loop) drain() {
	for {
		select {
		case msg := <-l.inbox.ch:
			if msg.IsRequest() && msg.responder != nil {
				msg.responder.Fail(ErrShutdown)
			}
		default:
			return
		}
	}
}

// trackingResponder records whether a reply went out
type trackingResponder struct {
	inner Responder

	mu   sync.Mutex
	done bool
}

func (t *trackingResponder) Respond(reply Reply) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrAlreadyResponded
	}
	if err := t.inner.Respond(reply); err != nil {
		return err
	}
	t.done = true
	return nil
}

func (t *trackingResponder) Fail(err error) {
	t.inner.Fail(err)
}

func (t *trackingResponder) answered() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
