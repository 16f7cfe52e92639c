package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	closed bool
}

func (f *fakeSocket) Close(code int, reason string) error {
	f.closed = true
	return nil
}

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := NewRegistry()
	s := NewSession("w1", &fakeSocket{})

	r.Insert(s)

	got, ok := r.Get("w1")
	require.True(t, ok)
	assert.Same(t, s, got)

	removed, ok := r.Remove("w1")
	require.True(t, ok)
	assert.Same(t, s, removed)

	_, ok = r.Get("w1")
	assert.False(t, ok)
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Insert(NewSession("w1", &fakeSocket{}))

	_, ok := r.Remove("w1")
	require.True(t, ok)

	_, ok = r.Remove("w1")
	assert.False(t, ok, "second remove of the same id must report absence, not panic or error")
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestRegistry_LenTracksOpenSessions(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())

	r.Insert(NewSession("w1", &fakeSocket{}))
	r.Insert(NewSession("w2", &fakeSocket{}))
	assert.Equal(t, 2, r.Len())

	r.Remove("w1")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SnapshotIsConsistentCopy(t *testing.T) {
	r := NewRegistry()
	r.Insert(NewSession("w1", &fakeSocket{}))
	r.Insert(NewSession("w2", &fakeSocket{}))

	snap := r.Snapshot()
	assert.Len(t, snap, 2)

	r.Insert(NewSession("w3", &fakeSocket{}))
	assert.Len(t, snap, 2, "snapshot must not observe later mutations")
}

func TestRegistry_ConcurrentInsertLookupRemove(t *testing.T) {
	r := NewRegistry()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := idFor(i)
			r.Insert(NewSession(id, &fakeSocket{}))
			_, _ = r.Get(id)
			r.Remove(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}

func idFor(i int) string {
	return "w" + string(rune('a'+i%26)) + string(rune('A'+(i/26)%26))
}

func TestSession_StateTransitions(t *testing.T) {
	s := NewSession("w1", &fakeSocket{})
	assert.Equal(t, StateOpening, s.State())

	s.SetState(StateOpen)
	assert.Equal(t, StateOpen, s.State())

	s.SetState(StateClosed)
	assert.Equal(t, StateClosed, s.State())
}
