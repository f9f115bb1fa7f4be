package multistream

import (
	"io"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// lazyState tracks where a LazyStream is in its one-way state machine:
// NotYet -> Handshaking (implicit, inside the singleflight call) ->
// Ready | Failed. It never returns to NotYet.
type lazyState int

const (
	lazyNotYet lazyState = iota
	lazyReady
	lazyFailed
)

// LazyStream wraps an underlying stream and a pre-chosen protocol,
// deferring the initiator handshake until the first Read or Write. It
// implements io.ReadWriteCloser so it is a drop-in replacement for the
// underlying stream.
//
// The once-only handshake invariant is implemented with
// singleflight.Group rather than sync.Once: singleflight naturally
// expresses "exactly one caller performs the work, every concurrent
// caller observes its result," and a resolved state is then
// memoized under mu so later calls never re-enter the singleflight at
// all (singleflight alone would re-run the handshake on a second call
// made after the first had already completed).
type LazyStream struct {
	rwc      io.ReadWriteCloser
	protocol string

	sf singleflight.Group

	mu    sync.Mutex
	state lazyState
	err   error
}

// NewLazyStream returns a LazyStream that will negotiate protocol on rwc
// the first time a Read or Write is issued against it.
func NewLazyStream(rwc io.ReadWriteCloser, protocol string) *LazyStream {
	return &LazyStream{rwc: rwc, protocol: protocol}
}

func (ls *LazyStream) ensureReady() error {
	ls.mu.Lock()
	switch ls.state {
	case lazyReady:
		ls.mu.Unlock()
		return nil
	case lazyFailed:
		err := ls.err
		ls.mu.Unlock()
		return err
	}
	ls.mu.Unlock()

	_, err, _ := ls.sf.Do("handshake", func() (interface{}, error) {
		// A caller that saw NotYet above may reach Do only after another
		// caller's handshake has already resolved; reuse that outcome.
		ls.mu.Lock()
		if ls.state != lazyNotYet {
			resolvedErr := ls.err
			ls.mu.Unlock()
			return nil, resolvedErr
		}
		ls.mu.Unlock()

		hsErr := SelectProtoOrFail(ls.protocol, ls.rwc)

		ls.mu.Lock()
		if hsErr != nil {
			ls.state = lazyFailed
			ls.err = hsErr
		} else {
			ls.state = lazyReady
		}
		ls.mu.Unlock()

		return nil, hsErr
	})
	return err
}

// Read triggers the handshake on first call, then passes through to the
// underlying stream.
func (ls *LazyStream) Read(p []byte) (int, error) {
	if err := ls.ensureReady(); err != nil {
		return 0, err
	}
	return ls.rwc.Read(p)
}

// Write triggers the handshake on first call, then passes through to the
// underlying stream.
func (ls *LazyStream) Write(p []byte) (int, error) {
	if err := ls.ensureReady(); err != nil {
		return 0, err
	}
	return ls.rwc.Write(p)
}

// Close closes the underlying stream, aggregating any stored
// negotiation failure with the close error so neither is lost.
func (ls *LazyStream) Close() error {
	ls.mu.Lock()
	negotiationErr := ls.err
	ls.mu.Unlock()

	closeErr := ls.rwc.Close()
	return multierr.Append(negotiationErr, closeErr)
}
