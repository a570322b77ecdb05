// Package session keeps per-upload state in memory with a capacity bound and
// idle expiry.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"docqa/internal/domain"
)

const (
	DefaultMaxSessions = 1000
	DefaultTTL         = 2 * time.Hour
)

// Store maps session identifiers to sessions. The map has its own lock;
// operations on one session never block another.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	now         func() time.Time
	log         logrus.FieldLogger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSessions bounds the number of live sessions; the least recently
// used session is evicted to make room. Zero disables the bound.
func WithMaxSessions(n int) Option {
	return func(s *Store) { s.maxSessions = n }
}

// WithTTL expires sessions idle for longer than d. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:    make(map[string]*Session),
		maxSessions: DefaultMaxSessions,
		ttl:         DefaultTTL,
		now:         time.Now,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores index under a fresh random identifier with empty history.
func (s *Store) Create(ctx context.Context, index domain.VectorIndex) string {
	now := s.now()
	var full []*Session

	s.mu.Lock()
	id := uuid.NewString()
	for _, taken := s.sessions[id]; taken; _, taken = s.sessions[id] {
		id = uuid.NewString()
	}
	expired := s.expiredLocked(now)
	for s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		full = append(full, s.evictOldestLocked())
	}
	s.sessions[id] = newSession(id, index, now)
	s.mu.Unlock()

	s.close(ctx, expired, "ttl")
	s.close(ctx, full, "capacity")
	return id
}

// Get returns the session or ErrSessionNotFound. Expired sessions are removed.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	now := s.now()
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if s.expired(sess, now) {
		s.mu.Lock()
		if cur, ok := s.sessions[id]; ok && cur == sess {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		s.close(ctx, []*Session{sess}, "ttl")
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	sess.touch(now)
	return sess, nil
}

// ResetHistory clears the history of a session and keeps its index.
func (s *Store) ResetHistory(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.Reset()
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep(ctx context.Context) int {
	s.mu.Lock()
	evicted := s.expiredLocked(s.now())
	s.mu.Unlock()
	s.close(ctx, evicted, "ttl")
	return len(evicted)
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				s.log.WithField("sessions", n).Info("expired sessions removed")
			}
		}
	}
}

// Close removes every session and closes its index.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	s.close(ctx, all, "shutdown")
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.LastUsed()) > s.ttl
}

func (s *Store) expiredLocked(now time.Time) []*Session {
	var out []*Session
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			out = append(out, sess)
			delete(s.sessions, id)
		}
	}
	return out
}

// evictOldestLocked removes the least recently used session, preferring
// sessions without an exchange in flight.
func (s *Store) evictOldestLocked() *Session {
	var oldest, oldestIdle *Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.lastUsed.Load() < oldest.lastUsed.Load() {
			oldest = sess
		}
		if (oldestIdle == nil || sess.lastUsed.Load() < oldestIdle.lastUsed.Load()) && !sess.busy() {
			oldestIdle = sess
		}
	}
	if oldestIdle != nil {
		oldest = oldestIdle
	}
	delete(s.sessions, oldest.id)
	return oldest
}

func (s *Store) close(ctx context.Context, sessions []*Session, reason string) {
	for _, sess := range sessions {
		entry := s.log.WithFields(logrus.Fields{"session_id": sess.id, "reason": reason})
		if err := sess.release(ctx); err != nil {
			entry.WithError(err).Warn("failed to release session index")
			continue
		}
		entry.Debug("session evicted")
	}
}
