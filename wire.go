package multistream

import (
	"bytes"
	"context"
	"io"

	varint "github.com/multiformats/go-varint"
	"golang.org/x/sync/errgroup"
)

// selectOutcome is the result of trySelect.
type selectOutcome int

const (
	selected selectOutcome = iota
	notSupported
)

// handshakeInitiator performs the initiator side of the version
// handshake: it writes PROTOCOL_ID and reads the listener's PROTOCOL_ID
// concurrently (the two directions of a duplex stream are independent;
// the initiator does not need the listener's token before sending its
// own), then checks what came back.
func handshakeInitiator(rw io.ReadWriter) error {
	var g errgroup.Group
	g.Go(func() error {
		return WriteTokenString(rw, ProtocolID)
	})

	tok, atEOF, readErr := ReadToken(rw)
	writeErr := g.Wait()

	if writeErr != nil {
		return writeErr
	}
	if readErr != nil {
		return readErr
	}
	if atEOF || tok != ProtocolID {
		e := newErr("handshake_as_initiator", KindVersionMismatch)
		e.Token = tok
		return e
	}
	return nil
}

// handshakeListener performs the listener side: it writes PROTOCOL_ID as
// a buffered token while concurrently reading the initiator's token, then
// verifies what came back.
func handshakeListener(rw io.ReadWriter) error {
	var g errgroup.Group
	g.Go(func() error {
		return WriteTokenString(rw, ProtocolID)
	})

	tok, atEOF, readErr := ReadToken(rw)
	writeErr := g.Wait()

	if writeErr != nil {
		return writeErr
	}
	if readErr != nil {
		return readErr
	}
	if atEOF || tok != ProtocolID {
		e := newErr("handshake_as_listener", KindVersionMismatch)
		e.Token = tok
		return e
	}
	return nil
}

// trySelect writes proto as a token and interprets the single response
// token: an echo of proto means Selected, "na" means NotSupported, EOF
// also means NotSupported (the peer hung up rather than answering), and
// anything else is UnexpectedToken.
func trySelect(rw io.ReadWriter, proto string) (selectOutcome, error) {
	if err := WriteTokenString(rw, proto); err != nil {
		return notSupported, err
	}

	tok, atEOF, err := ReadToken(rw)
	if err != nil {
		return notSupported, err
	}

	switch {
	case atEOF:
		return notSupported, nil
	case tok == proto:
		return selected, nil
	case tok == NAToken:
		return notSupported, nil
	default:
		e := newErr("try_select", KindUnexpectedToken)
		e.Token = tok
		return notSupported, e
	}
}

// writeLs responds to an "ls" request: an outer length envelope wrapping
// an inner varint(count) followed by one token per registered protocol,
// snapshotted atomically from reg.
func writeLs(rw io.Writer, reg *Registry) error {
	protos := reg.protocols()

	var inner bytes.Buffer
	if _, err := varint.WriteUvarint(&inner, uint64(len(protos))); err != nil {
		return wrapErr("ls", KindTransportClosed, err)
	}
	for _, p := range protos {
		if err := writeFrame(&inner, []byte(p)); err != nil {
			return err
		}
	}

	var outer bytes.Buffer
	if _, err := varint.WriteUvarint(&outer, uint64(inner.Len())); err != nil {
		return wrapErr("ls", KindTransportClosed, err)
	}
	outer.Write(inner.Bytes())

	if _, err := rw.Write(outer.Bytes()); err != nil {
		return wrapErr("ls", KindTransportClosed, err)
	}
	return nil
}

// runCancellable races fn against ctx, returning KindCancelled if ctx is
// done first. fn is expected to operate on a stream that does not itself
// observe ctx; cancellation here does not abort in-flight I/O on fn's
// stream, it only stops waiting for it. The stream is left in an
// undefined protocol state afterward and must not be reused.
func runCancellable(ctx context.Context, op string, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		e := newErr(op, KindCancelled)
		e.Err = ctx.Err()
		return e
	}
}
