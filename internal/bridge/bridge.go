// Package bridge carries instructions into the rendering surface and
// correlates the one-message-at-a-time stream coming back. Messages carry no
// request IDs; the BOID under check is the only correlation key.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type tags an inbound surface message.
type Type string

const (
	TypeCaptchaImageReady Type = "CAPTCHA_IMAGE_READY"
	TypeBulkCheckResult   Type = "BULK_CHECK_RESULT"
)

// Message is one tagged object posted by an injected script.
type Message struct {
	Type        Type   `json:"type"`
	BOID        string `json:"boid,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	ImageSize   int    `json:"imageSize,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Status      string `json:"status,omitempty"`
	Shares      int    `json:"shares,omitempty"`
	Error       string `json:"error,omitempty"`
	Text        string `json:"message,omitempty"`
}

// Surface is the outbound half of the rendering-surface contract:
// fire-and-forget script injection with no synchronous return value. The
// surface must install the page-side post hook the generated scripts call.
type Surface interface {
	Inject(ctx context.Context, script string) error
}

var (
	// ErrWaitTimeout is returned when no correlated message arrives in time.
	ErrWaitTimeout = errors.New("bridge: wait timed out")

	// ErrWaiterReplaced is delivered to a waiter that was still pending when
	// a new wait for the same BOID was registered. The single-slot design
	// this replaces dropped such waiters silently, which could misroute a
	// slow late message to the next waiter; here the collision surfaces as
	// an internal error instead.
	ErrWaiterReplaced = errors.New("bridge: waiter replaced by a newer registration")
)

// RemoteError is an early rejection: the surface reported a failure for the
// awaited BOID before the expected message could be produced.
type RemoteError struct {
	BOID   string
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge: remote failure for %s: %s", e.BOID, e.Detail)
}

type outcome struct {
	msg Message
	err error
}

type waiter struct {
	expect Type
	boid   string
	ch     chan outcome
}

// Bridge pairs a Surface with inbound message correlation. Waiters are keyed
// by BOID; the sequential-await discipline of the orchestrator means at most
// one is normally pending.
type Bridge struct {
	surface Surface
	logger  *zap.Logger

	mu      sync.Mutex
	waiters map[string]*waiter
}

// New returns a bridge over the given surface.
func New(surface Surface, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		surface: surface,
		logger:  logger,
		waiters: make(map[string]*waiter),
	}
}

// Inject sends one instruction into the surface.
func (b *Bridge) Inject(ctx context.Context, script string) error {
	return b.surface.Inject(ctx, script)
}

// WaitForMessage blocks until a message of the expected type tagged with
// boid arrives, the timeout lapses, or ctx is cancelled.
//
// A BULK_CHECK_RESULT with status "error" for the same BOID resolves the
// wait early as a *RemoteError even when a different type was expected: the
// remote form failed before it could produce the expected message.
func (b *Bridge) WaitForMessage(ctx context.Context, expect Type, boid string, timeout time.Duration) (Message, error) {
	w := &waiter{
		expect: expect,
		boid:   boid,
		ch:     make(chan outcome, 1),
	}

	b.mu.Lock()
	if prev, ok := b.waiters[boid]; ok {
		prev.ch <- outcome{err: ErrWaiterReplaced}
		b.logger.Warn("pending waiter replaced",
			zap.String("boid", boid),
			zap.String("expected", string(prev.expect)))
	}
	b.waiters[boid] = w
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-w.ch:
		return out.msg, out.err
	case <-timer.C:
		b.remove(boid, w)
		return Message{}, ErrWaitTimeout
	case <-ctx.Done():
		b.remove(boid, w)
		return Message{}, ctx.Err()
	}
}

// Dispatch routes one inbound message to its waiter. Messages with no
// pending waiter are dropped; an abandoned wait's result is never observed.
func (b *Bridge) Dispatch(msg Message) {
	b.mu.Lock()
	w, ok := b.waiters[msg.BOID]
	if !ok {
		b.mu.Unlock()
		b.logger.Debug("dropping uncorrelated message",
			zap.String("type", string(msg.Type)),
			zap.String("boid", msg.BOID))
		return
	}

	switch {
	case msg.Type == w.expect:
		delete(b.waiters, msg.BOID)
		b.mu.Unlock()
		w.ch <- outcome{msg: msg}
	case msg.Type == TypeBulkCheckResult && msg.Status == "error":
		delete(b.waiters, msg.BOID)
		b.mu.Unlock()
		w.ch <- outcome{err: &RemoteError{BOID: msg.BOID, Detail: msg.Error}}
	default:
		b.mu.Unlock()
		b.logger.Debug("ignoring message of unexpected type",
			zap.String("got", string(msg.Type)),
			zap.String("want", string(w.expect)),
			zap.String("boid", msg.BOID))
	}
}

// remove deregisters w if it is still the pending waiter for boid. Pointer
// identity guards against removing a newer registration.
func (b *Bridge) remove(boid string, w *waiter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.waiters[boid]; ok && cur == w {
		delete(b.waiters, boid)
	}
}
