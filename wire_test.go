package multistream

import (
	"bytes"
	"io"
	"net"
	"testing"

	varint "github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshake_Success(t *testing.T) {
	listenerConn, initiatorConn := net.Pipe()
	defer listenerConn.Close()
	defer initiatorConn.Close()

	errs := make(chan error, 2)
	go func() { errs <- handshakeListener(listenerConn) }()
	go func() { errs <- handshakeInitiator(initiatorConn) }()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
}

func TestHandshake_VersionMismatch(t *testing.T) {
	listenerConn, initiatorConn := net.Pipe()
	defer listenerConn.Close()
	defer initiatorConn.Close()

	// Initiator expects PROTOCOL_ID back but the peer sends garbage.
	go func() {
		_, _, _ = ReadToken(listenerConn)
		_ = WriteTokenString(listenerConn, "/not-multistream/7.0.0")
	}()

	err := handshakeInitiator(initiatorConn)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindVersionMismatch))
}

func TestTrySelect_AllOutcomes(t *testing.T) {
	t.Run("selected", func(t *testing.T) {
		serverConn, clientConn := net.Pipe()
		defer serverConn.Close()
		defer clientConn.Close()

		go func() {
			tok, _, _ := ReadToken(serverConn)
			_ = WriteTokenString(serverConn, tok)
		}()

		outcome, err := trySelect(clientConn, "/foo")
		require.NoError(t, err)
		assert.Equal(t, selected, outcome)
	})

	t.Run("not_supported_na", func(t *testing.T) {
		serverConn, clientConn := net.Pipe()
		defer serverConn.Close()
		defer clientConn.Close()

		go func() {
			_, _, _ = ReadToken(serverConn)
			_ = WriteTokenString(serverConn, NAToken)
		}()

		outcome, err := trySelect(clientConn, "/foo")
		require.NoError(t, err)
		assert.Equal(t, notSupported, outcome)
	})

	t.Run("not_supported_eof", func(t *testing.T) {
		serverConn, clientConn := net.Pipe()
		defer clientConn.Close()

		go func() {
			_, _, _ = ReadToken(serverConn)
			serverConn.Close()
		}()

		outcome, err := trySelect(clientConn, "/foo")
		require.NoError(t, err)
		assert.Equal(t, notSupported, outcome)
	})

	t.Run("unexpected_token", func(t *testing.T) {
		serverConn, clientConn := net.Pipe()
		defer serverConn.Close()
		defer clientConn.Close()

		go func() {
			_, _, _ = ReadToken(serverConn)
			_ = WriteTokenString(serverConn, "/something-else")
		}()

		_, err := trySelect(clientConn, "/foo")
		require.Error(t, err)
		assert.True(t, IsKind(err, KindUnexpectedToken))
	})
}

func TestWriteLs_EnvelopeAndCount(t *testing.T) {
	cases := [][]string{
		{},
		{"a"},
		{"a", "b", "c", "d", "e"},
	}

	for _, protos := range cases {
		reg := NewRegistry()
		for _, p := range protos {
			reg.AddFunc(p, nil)
		}

		var buf rwBuffer
		require.NoError(t, writeLs(&buf, reg))

		outerLen, err := varint.ReadUvarint(&buf)
		require.NoError(t, err)
		assert.Equal(t, uint64(buf.Len()), outerLen, "outer length must equal the remaining bytes")

		inner := bytes.NewReader(buf.Bytes())
		count, err := varint.ReadUvarint(inner)
		require.NoError(t, err)
		assert.Equal(t, uint64(len(protos)), count)

		var innerRW rwBuffer
		innerRW.Write(mustReadAll(t, inner))
		got := make([]string, 0, len(protos))
		for i := uint64(0); i < count; i++ {
			tok, atEOF, readErr := ReadToken(&innerRW)
			require.NoError(t, readErr)
			require.False(t, atEOF)
			got = append(got, tok)
		}
		assert.Equal(t, protos, got)
	}
}

func mustReadAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return b
}
