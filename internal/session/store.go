package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/storybot/core/logger"
)

// ErrNotFound is returned by a Backend for a user without a live record.
var ErrNotFound = errors.New("session: not found")

// DefaultTTL applies when the store is built with a zero ttl.
const DefaultTTL = 5 * time.Minute

// Backend persists session records. Implementations must treat records
// created before notBefore as absent and should purge them eventually.
type Backend interface {
	PutSession(ctx context.Context, rec Record) error
	LoadSession(ctx context.Context, userID int64, notBefore time.Time) (Record, error)
	DeleteSession(ctx context.Context, userID int64) error
}

// Store is the session API used by the conversation engine.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wraps backend with expiry handling.
func NewStore(backend Backend, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{backend: backend, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create replaces any session of the user and stamps the creation time.
func (s *Store) Create(ctx context.Context, userID int64, st State) (Session, error) {
	sess := Session{UserID: userID, State: st, CreatedAt: s.now().UTC()}
	rec, err := Encode(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.backend.PutSession(ctx, rec); err != nil {
		return Session{}, fmt.Errorf("session: put user %d: %w", userID, err)
	}
	logger.SVCSessions.DebugContext(ctx, "session saved",
		slog.String("event", "session.put"),
		slog.String("mode", string(rec.Mode)),
		slog.String("stage", string(rec.Stage)),
	)
	return sess, nil
}

// Get returns the live session of the user. A missing, expired or
// undecodable record yields ok=false without error.
func (s *Store) Get(ctx context.Context, userID int64) (Session, bool, error) {
	notBefore := s.now().Add(-s.ttl)
	rec, err := s.backend.LoadSession(ctx, userID, notBefore)
	switch {
	case errors.Is(err, ErrNotFound):
		return Session{}, false, nil
	case err != nil:
		return Session{}, false, fmt.Errorf("session: load user %d: %w", userID, err)
	}
	if rec.CreatedAt.Before(notBefore) {
		return Session{}, false, nil
	}
	sess, err := Decode(rec)
	if err != nil {
		logger.SVCSessions.WarnContext(ctx, "session dropped",
			slog.String("event", "session.decode"),
			slog.String("status", "invalid"),
			slog.String("mode", string(rec.Mode)),
			slog.String("stage", string(rec.Stage)),
			logger.Err(err),
		)
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Clear removes the user's session. Clearing twice is not an error.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	if err := s.backend.DeleteSession(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("session: delete user %d: %w", userID, err)
	}
	return nil
}
