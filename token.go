package multistream

import (
	"bytes"
	"errors"
	"io"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	varint "github.com/multiformats/go-varint"
)

const (
	// ProtocolID is the literal multistream-select version this package
	// speaks. No other version is negotiated.
	ProtocolID = "/multistream/1.0.0"

	// Delimiter terminates every token frame.
	Delimiter byte = '\n'

	// NAToken is written back by a listener that does not recognize the
	// offered protocol.
	NAToken = "na"

	// MaxTokenPayload is the largest payload (including the trailing
	// delimiter) a declared token length may claim.
	MaxTokenPayload = 65536

	// TooLargeMsg is sent back, best-effort, when a peer declares a token
	// longer than MaxTokenPayload.
	TooLargeMsg = "Messages over 64k are not allowed"

	// shortReadYield is the interval the read loop waits between attempts
	// when the source returns zero bytes without signaling EOF.
	shortReadYield = time.Millisecond
)

// tokenClock drives the short-read loop's yield; overridden in tests via
// clock.NewMock() so no real wall-clock delay is needed.
var tokenClock clock.Clock = clock.New()

// WriteToken writes payload as one length-prefixed, newline-terminated
// token: varint(len(payload)+1), payload, Delimiter. The whole frame is
// built in memory and written in a single Write call so the length and
// payload cannot be split across application writes.
func WriteToken(w io.Writer, payload []byte) error {
	return writeFrame(w, payload)
}

// WriteTokenString is a convenience wrapper over WriteToken for string
// payloads.
func WriteTokenString(w io.Writer, s string) error {
	return writeFrame(w, []byte(s))
}

func writeFrame(w io.Writer, payload []byte) error {
	var buf bytes.Buffer
	buf.Grow(varint.UvarintSize(uint64(len(payload)+1)) + len(payload) + 1)

	if _, err := varint.WriteUvarint(&buf, uint64(len(payload)+1)); err != nil {
		return wrapErr("write_token", KindTransportClosed, err)
	}
	buf.Write(payload)
	buf.WriteByte(Delimiter)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return wrapErr("write_token", KindTransportClosed, err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return wrapErr("write_token", KindTransportClosed, err)
		}
	}
	return nil
}

// ReadToken reads one token off rw, writing a best-effort TOO_LARGE_MSG
// notice back over rw if the peer's declared length exceeds
// MaxTokenPayload.
//
// It returns atEOF = true when the stream ended cleanly before any byte
// of the next varint arrived: this is not an error, and callers such as
// Muxer.Negotiate treat it as a clean end of the session. An EOF observed
// after the varint but before the declared payload fully arrives is a
// *NegotiationError with KindTransportClosed.
func ReadToken(rw io.ReadWriter) (tok string, atEOF bool, err error) {
	length, err := varint.ReadUvarint(rw)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", true, nil
		}
		return "", false, wrapErr("read_token", KindTransportClosed, err)
	}

	if length == 0 {
		return "", false, nil
	}

	if length > MaxTokenPayload {
		_ = writeFrame(rw, []byte(TooLargeMsg))
		e := newErr("read_token", KindMessageTooLarge)
		e.Length = length
		return "", false, e
	}

	payload := make([]byte, length)
	if err := readFull(rw, payload); err != nil {
		return "", false, err
	}

	if payload[length-1] != Delimiter {
		e := newErr("read_token", KindMissingDelimiter)
		e.Token = string(payload)
		return "", false, e
	}

	s := payload[:length-1]
	if !utf8.Valid(s) {
		return "", false, newErr("read_token", KindBadEncoding)
	}

	return string(s), false, nil
}

// readFull fills buf completely, looping on short reads and yielding
// between zero-byte, non-EOF reads so a non-blocking source is not
// busy-spun. A clean EOF mid-frame is TransportClosed, not the
// "no bytes yet" sentinel ReadToken uses at a token boundary.
func readFull(r io.Reader, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := r.Read(buf[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return newErr("read_token", KindTransportClosed)
			}
			return wrapErr("read_token", KindTransportClosed, err)
		}
		if n == 0 {
			tokenClock.Sleep(shortReadYield)
		}
	}
	return nil
}
