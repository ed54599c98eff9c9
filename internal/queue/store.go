package queue

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ranked-engine/internal/domain"
)

// JoinStatus is the outcome of a join attempt. AlreadyQueued is an
// idempotent rejection, not an error.
type JoinStatus int

const (
	Joined JoinStatus = iota
	AlreadyQueued
	QueueFull
	QueueLocked
)

func (s JoinStatus) String() string {
	switch s {
	case Joined:
		return "joined"
	case AlreadyQueued:
		return "already queued"
	case QueueFull:
		return "queue full"
	case QueueLocked:
		return "queue locked"
	}
	return "unknown"
}

// LeaveStatus is the outcome of a leave attempt.
type LeaveStatus int

const (
	Left LeaveStatus = iota
	NotQueued
	LeaveLocked
)

func (s LeaveStatus) String() string {
	switch s {
	case Left:
		return "left"
	case NotQueued:
		return "not in queue"
	case LeaveLocked:
		return "queue locked"
	}
	return "unknown"
}

// Store is the in-memory waiting list for one game title. All operations
// are serialized by a single mutex; titles never share a Store, so there is
// no cross-title coordination.
type Store struct {
	mu       sync.Mutex
	title    domain.GameTitle
	capacity int
	locked   bool
	entries  []domain.QueueEntry
	logger   zerolog.Logger
}

func NewStore(title domain.GameTitle, capacity int, logger zerolog.Logger) *Store {
	return &Store{
		title:    title,
		capacity: capacity,
		logger:   logger.With().Str("title", string(title)).Logger(),
	}
}

func (s *Store) Title() domain.GameTitle { return s.title }

func (s *Store) Capacity() int { return s.capacity }

// Join appends the player to the waiting list in arrival order. It returns
// the join status and how many more players are needed to fill the queue.
func (s *Store) Join(playerID string) (JoinStatus, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return QueueLocked, s.capacity - len(s.entries)
	}
	for _, e := range s.entries {
		if e.PlayerID == playerID {
			return AlreadyQueued, s.capacity - len(s.entries)
		}
	}
	if len(s.entries) >= s.capacity {
		return QueueFull, 0
	}

	s.entries = append(s.entries, domain.QueueEntry{
		PlayerID: playerID,
		Title:    s.title,
		JoinedAt: time.Now(),
	})
	s.logger.Debug().Str("player_id", playerID).Int("size", len(s.entries)).Msg("player joined queue")
	return Joined, s.capacity - len(s.entries)
}

func (s *Store) Leave(playerID string) LeaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return LeaveLocked
	}
	for i, e := range s.entries {
		if e.PlayerID == playerID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.logger.Debug().Str("player_id", playerID).Int("size", len(s.entries)).Msg("player left queue")
			return Left
		}
	}
	return NotQueued
}

func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) >= s.capacity
}

func (s *Store) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Lock freezes the queue for match formation. Idempotent: locking a locked
// queue is a no-op.
func (s *Store) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		s.locked = true
		s.logger.Debug().Msg("queue locked")
	}
}

func (s *Store) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		s.locked = false
		s.logger.Debug().Msg("queue unlocked")
	}
}

// Clear empties the queue and unlocks it. Used after a match is formed or
// by an operator; clearing an empty queue is a no-op.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.locked = false
	s.logger.Debug().Msg("queue cleared")
}

// Snapshot returns the entries in join order without mutating the queue.
func (s *Store) Snapshot() []domain.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QueueEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Replace swaps the in-memory view for a fresh read of the durable mirror.
// Only valid while the queue is unlocked; the caller owns ordering.
func (s *Store) Replace(entries []domain.QueueEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return
	}
	if len(entries) > s.capacity {
		entries = entries[:s.capacity]
	}
	s.entries = append([]domain.QueueEntry(nil), entries...)
}

// Registry maps each title to its independent Store. State is isolated per
// title; capacity and rules are identical.
type Registry struct {
	stores map[domain.GameTitle]*Store
}

func NewRegistry(capacity int, logger zerolog.Logger) *Registry {
	stores := make(map[domain.GameTitle]*Store, len(domain.Titles()))
	for _, title := range domain.Titles() {
		stores[title] = NewStore(title, capacity, logger)
	}
	return &Registry{stores: stores}
}

func (r *Registry) For(title domain.GameTitle) (*Store, bool) {
	s, ok := r.stores[title]
	return s, ok
}
