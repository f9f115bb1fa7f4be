package multistream

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/p2pcore/multistream/internal/log"
)

var muxerLog = log.New("muxer")

// NegotiationResult is what a successful listener-side negotiation
// yields: the accepted protocol id and the handler registered for it.
type NegotiationResult struct {
	Protocol string
	Handler  Handler
}

// MuxerOption configures a Muxer at construction time.
type MuxerOption func(*Muxer)

// WithMetrics attaches a Metrics collector; Negotiate will report
// outcome counts and durations through it. Without this option, a
// no-op collector is used.
func WithMetrics(m Metrics) MuxerOption {
	return func(mx *Muxer) { mx.metrics = m }
}

// Muxer is the listener (responder) role: it owns a Handler Registry and
// negotiates one stream at a time against it.
type Muxer struct {
	registry *Registry
	metrics  Metrics
}

// NewMuxer returns an empty Muxer.
func NewMuxer(opts ...MuxerOption) *Muxer {
	mx := &Muxer{
		registry: NewRegistry(),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(mx)
	}
	return mx
}

// AddHandler registers h. Registering over an existing protocol id
// replaces the prior handler; future negotiations see only the new one.
func (mx *Muxer) AddHandler(h Handler) {
	mx.registry.Add(h)
}

// AddHandlerFunc registers a plain function handler for protocol.
func (mx *Muxer) AddHandlerFunc(protocol string, fn func(protocol string, rwc io.ReadWriteCloser) bool) {
	mx.registry.AddFunc(protocol, fn)
}

// AddContextHandlerFunc registers a context-aware function handler for protocol.
func (mx *Muxer) AddContextHandlerFunc(protocol string, fn func(ctx context.Context, protocol string, rwc io.ReadWriteCloser) bool) {
	mx.registry.AddContextFunc(protocol, fn)
}

// RemoveHandler deregisters protocol, silently no-op if absent.
func (mx *Muxer) RemoveHandler(protocol string) {
	mx.registry.Remove(protocol)
}

// Protocols returns a sorted snapshot of every registered protocol id.
func (mx *Muxer) Protocols() []string {
	return mx.registry.Protocols()
}

// Negotiate runs the listener side of the handshake, then loops serving
// any number of "ls" probes and rejecting any number of unsupported
// protocols before either accepting one (returning a non-nil result) or
// observing the peer hang up (returning nil, nil — not an error).
func (mx *Muxer) Negotiate(rwc io.ReadWriteCloser) (*NegotiationResult, error) {
	return mx.negotiate(context.Background(), rwc)
}

// NegotiateContext is Negotiate with cancellation: if ctx is done before
// the exchange completes, it returns KindCancelled and leaves rwc in an
// undefined protocol state; it must not be reused for further
// negotiation.
func (mx *Muxer) NegotiateContext(ctx context.Context, rwc io.ReadWriteCloser) (*NegotiationResult, error) {
	return mx.negotiate(ctx, rwc)
}

func (mx *Muxer) negotiate(ctx context.Context, rwc io.ReadWriteCloser) (result *NegotiationResult, err error) {
	traceID := uuid.New().String()
	start := tokenClock.Now()
	defer func() {
		outcome := "accepted"
		switch {
		case err != nil:
			outcome = "error"
		case result == nil:
			outcome = "eof"
		}
		mx.metrics.ObserveNegotiation(outcome, tokenClock.Now().Sub(start))
	}()

	if err := runCancellable(ctx, "negotiate", func() error {
		return handshakeListener(rwc)
	}); err != nil {
		muxerLog.Warn("listener handshake failed", "trace", traceID, "err", err)
		return nil, err
	}

	for {
		var tok string
		var atEOF bool
		loopErr := runCancellable(ctx, "negotiate", func() error {
			var e error
			tok, atEOF, e = ReadToken(rwc)
			return e
		})
		if loopErr != nil {
			return nil, loopErr
		}
		if atEOF {
			muxerLog.Debug("peer disconnected before selecting a protocol", "trace", traceID)
			return nil, nil
		}

		switch {
		case tok == "ls":
			if err := writeLs(rwc, mx.registry); err != nil {
				return nil, err
			}
			// AwaitRequest loops: an ls probe does not end the session.

		default:
			if h, ok := mx.registry.Find(tok); ok {
				if err := WriteTokenString(rwc, tok); err != nil {
					return nil, err
				}
				muxerLog.Debug("negotiated protocol", "trace", traceID, "protocol", tok)
				return &NegotiationResult{Protocol: tok, Handler: h}, nil
			}
			if err := WriteTokenString(rwc, NAToken); err != nil {
				return nil, err
			}
			// AwaitRequest loops: an unknown protocol does not end the session.
		}
	}
}

// Handle negotiates rwc and, if a handler was chosen, invokes it,
// surfacing its boolean return unchanged. If negotiation ends with no
// protocol selected (peer disconnected), Handle returns false.
func (mx *Muxer) Handle(rwc io.ReadWriteCloser) bool {
	return mx.HandleContext(context.Background(), rwc)
}

// HandleContext is Handle with cancellation threaded through negotiation
// and into the chosen handler.
func (mx *Muxer) HandleContext(ctx context.Context, rwc io.ReadWriteCloser) bool {
	result, err := mx.NegotiateContext(ctx, rwc)
	if err != nil || result == nil {
		return false
	}
	return result.Handler.Handle(ctx, result.Protocol, rwc)
}

// Ls writes the current handler listing to rwc, for callers that want to
// serve an ls probe without going through Negotiate's loop (e.g. a
// handler that itself supports sub-negotiation).
func (mx *Muxer) Ls(w io.Writer) error {
	return writeLs(w, mx.registry)
}
