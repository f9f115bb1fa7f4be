package multistream

import (
	"context"
	"io"
)

// SelectProtoOrFail runs the initiator side of the version handshake and
// then proposes proto, failing with KindProtocolNotSupported if the
// listener rejects it.
func SelectProtoOrFail(proto string, rwc io.ReadWriteCloser) error {
	return SelectProtoOrFailContext(context.Background(), proto, rwc)
}

// SelectProtoOrFailContext is SelectProtoOrFail with cancellation.
func SelectProtoOrFailContext(ctx context.Context, proto string, rwc io.ReadWriteCloser) error {
	return runCancellable(ctx, "select_proto_or_fail", func() error {
		if err := handshakeInitiator(rwc); err != nil {
			return err
		}
		outcome, err := trySelect(rwc, proto)
		if err != nil {
			return err
		}
		if outcome == notSupported {
			e := newErr("select_proto_or_fail", KindProtocolNotSupported)
			e.Protocols = []string{proto}
			return e
		}
		return nil
	})
}

// SelectOneOf runs the initiator handshake once, then offers each
// candidate in order, returning the first one the listener accepts.
// Candidates are never reordered: if the first is accepted, later ones
// are never tried.
func SelectOneOf(protocols []string, rwc io.ReadWriteCloser) (string, error) {
	return SelectOneOfContext(context.Background(), protocols, rwc)
}

// SelectOneOfContext is SelectOneOf with cancellation.
func SelectOneOfContext(ctx context.Context, protocols []string, rwc io.ReadWriteCloser) (proto string, err error) {
	cancelErr := runCancellable(ctx, "select_one_of", func() error {
		if hsErr := handshakeInitiator(rwc); hsErr != nil {
			return hsErr
		}
		for _, p := range protocols {
			outcome, tryErr := trySelect(rwc, p)
			if tryErr != nil {
				return tryErr
			}
			if outcome == selected {
				proto = p
				return nil
			}
		}
		e := newErr("select_one_of", KindProtocolNotSupported)
		e.Protocols = append([]string(nil), protocols...)
		return e
	})
	if cancelErr != nil {
		return "", cancelErr
	}
	return proto, nil
}

// ReadNextToken reads and returns the next token off rwc, exposed for
// advanced callers and tests that want to drive the wire protocol
// manually.
func ReadNextToken(rwc io.ReadWriteCloser) (string, error) {
	return ReadNextTokenContext(context.Background(), rwc)
}

// ReadNextTokenContext is ReadNextToken with cancellation.
func ReadNextTokenContext(ctx context.Context, rwc io.ReadWriteCloser) (tok string, err error) {
	cancelErr := runCancellable(ctx, "read_next_token", func() error {
		var e error
		tok, _, e = ReadToken(rwc)
		return e
	})
	if cancelErr != nil {
		return "", cancelErr
	}
	return tok, nil
}
