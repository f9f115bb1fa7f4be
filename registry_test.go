package multistream

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddReplacesExisting(t *testing.T) {
	reg := NewRegistry()

	firstCalled := false
	reg.AddFunc("/foo", func(string, io.ReadWriteCloser) bool {
		firstCalled = true
		return false
	})
	reg.AddFunc("/foo", func(string, io.ReadWriteCloser) bool {
		return true
	})

	protos := reg.Protocols()
	require.Len(t, protos, 1)
	assert.Equal(t, "/foo", protos[0])

	h, ok := reg.Find("/foo")
	require.True(t, ok)
	assert.True(t, h.Handle(context.Background(), "/foo", nil))
	assert.False(t, firstCalled, "the replaced handler must never run")
}

func TestRegistry_RemoveIsSilentNoOp(t *testing.T) {
	reg := NewRegistry()
	reg.Remove("/does-not-exist") // must not panic

	reg.AddFunc("/a", nil)
	reg.Remove("/a")
	_, ok := reg.Find("/a")
	assert.False(t, ok)
	assert.Empty(t, reg.Protocols())
}

func TestRegistry_ProtocolsSnapshotIsACopy(t *testing.T) {
	reg := NewRegistry()
	reg.AddFunc("/a", nil)

	snap := reg.Protocols()
	snap[0] = "mutated"

	fresh := reg.Protocols()
	assert.Equal(t, "/a", fresh[0])
}

func TestRegistry_LsOrderIsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, p := range []string{"e", "c", "a", "d", "b"} {
		reg.AddFunc(p, nil)
	}
	assert.Equal(t, []string{"e", "c", "a", "d", "b"}, reg.protocols())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			reg.AddFunc("/x", nil)
		}(i)
		go func() {
			defer wg.Done()
			_ = reg.Protocols()
		}()
	}
	wg.Wait()

	protos := reg.Protocols()
	assert.Equal(t, []string{"/x"}, protos)
}

func TestHandlerFunc_NilFuncReturnsFalse(t *testing.T) {
	h := HandlerFunc{ProtocolID: "/x"}
	assert.False(t, h.Handle(context.Background(), "/x", nil))
}
