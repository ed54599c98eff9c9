package queue

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ranked-engine/internal/domain"
)

func newTestStore(capacity int) *Store {
	return NewStore(domain.TitleValorant, capacity, zerolog.Nop())
}

func fillStore(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		status, _ := s.Join(fmt.Sprintf("player-%d", i))
		require.Equal(t, Joined, status)
	}
}

func TestJoinUntilFull(t *testing.T) {
	s := newTestStore(10)

	fillStore(t, s, 9)
	assert.False(t, s.IsFull())
	assert.Equal(t, 9, s.Size())

	status, slotsNeeded := s.Join("player-9")
	assert.Equal(t, Joined, status)
	assert.Equal(t, 0, slotsNeeded)
	assert.True(t, s.IsFull())

	status, _ = s.Join("player-10")
	assert.Equal(t, QueueFull, status)
	assert.Equal(t, 10, s.Size())
}

func TestJoinReportsRemainingSlots(t *testing.T) {
	s := newTestStore(10)
	_, slotsNeeded := s.Join("p1")
	assert.Equal(t, 9, slotsNeeded)
}

func TestDuplicateJoinIsIdempotentRejection(t *testing.T) {
	s := newTestStore(10)
	fillStore(t, s, 1)

	status, _ := s.Join("player-0")
	assert.Equal(t, AlreadyQueued, status)
	assert.Equal(t, 1, s.Size())
}

func TestJoinWhileLockedFailsRegardlessOfSize(t *testing.T) {
	s := newTestStore(10)
	s.Lock()

	status, _ := s.Join("p1")
	assert.Equal(t, QueueLocked, status)
	assert.Equal(t, 0, s.Size())
}

func TestLeave(t *testing.T) {
	s := newTestStore(10)
	fillStore(t, s, 3)

	assert.Equal(t, Left, s.Leave("player-1"))
	assert.Equal(t, 2, s.Size())

	assert.Equal(t, NotQueued, s.Leave("player-1"))
	assert.Equal(t, 2, s.Size())
}

func TestLeaveWhileLockedFails(t *testing.T) {
	s := newTestStore(10)
	fillStore(t, s, 2)
	s.Lock()

	assert.Equal(t, LeaveLocked, s.Leave("player-0"))
	assert.Equal(t, 2, s.Size())
}

func TestLockIsIdempotent(t *testing.T) {
	s := newTestStore(10)
	s.Lock()
	s.Lock()
	assert.True(t, s.IsLocked())

	s.Unlock()
	assert.False(t, s.IsLocked())
}

func TestClearEmptiesAndUnlocks(t *testing.T) {
	s := newTestStore(10)
	fillStore(t, s, 4)
	s.Lock()

	s.Clear()
	assert.Equal(t, 0, s.Size())
	assert.False(t, s.IsLocked())

	// clear after clear is a no-op on an already-empty queue
	s.Clear()
	assert.Equal(t, 0, s.Size())
}

func TestSnapshotPreservesJoinOrder(t *testing.T) {
	s := newTestStore(10)
	fillStore(t, s, 3)

	entries := s.Snapshot()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("player-%d", i), e.PlayerID)
	}
}

func TestReplaceIgnoredWhileLocked(t *testing.T) {
	s := newTestStore(10)
	fillStore(t, s, 2)
	s.Lock()

	s.Replace(nil)
	assert.Equal(t, 2, s.Size())
}

func TestRegistryIsolatesTitles(t *testing.T) {
	r := NewRegistry(10, zerolog.Nop())

	valorant, ok := r.For(domain.TitleValorant)
	require.True(t, ok)
	cs2, ok := r.For(domain.TitleCS2)
	require.True(t, ok)

	valorant.Join("p1")
	assert.Equal(t, 1, valorant.Size())
	assert.Equal(t, 0, cs2.Size())

	_, ok = r.For(domain.GameTitle("pinball"))
	assert.False(t, ok)
}
