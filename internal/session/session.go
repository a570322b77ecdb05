package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"docqa/internal/domain"
)

// Session is the index and conversation history of one upload. The index
// never changes; history is guarded by a per-session mutex.
type Session struct {
	id        string
	index     domain.VectorIndex
	createdAt time.Time
	lastUsed  atomic.Int64

	mu      sync.Mutex
	history []domain.Turn
	closed  bool
}

func newSession(id string, index domain.VectorIndex, now time.Time) *Session {
	s := &Session{id: id, index: index, createdAt: now}
	s.lastUsed.Store(now.UnixNano())
	return s
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Index() domain.VectorIndex { return s.index }
func (s *Session) CreatedAt() time.Time      { return s.createdAt }

// LastUsed returns when the session was last looked up.
func (s *Session) LastUsed() time.Time { return time.Unix(0, s.lastUsed.Load()) }

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

// History returns a copy of the recorded turns, oldest first.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn(nil), s.history...)
}

// Exchange runs fn with exclusive access to the session and a copy of its
// history. The returned turn is appended only when fn succeeds.
func (s *Session) Exchange(fn func(history []domain.Turn) (domain.Turn, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, s.id)
	}
	turn, err := fn(append([]domain.Turn(nil), s.history...))
	if err != nil {
		return err
	}
	s.history = append(s.history, turn)
	return nil
}

// Reset clears the history and keeps the index. It waits for an in-flight Exchange.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// busy reports whether an Exchange or Reset currently holds the session.
func (s *Session) busy() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

// release closes the index once any in-flight Exchange has finished. Later
// exchanges fail with ErrSessionNotFound.
func (s *Session) release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close(ctx)
}
