package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/storybot/internal/session"
	"github.com/m3rciful/storybot/internal/storage/memory"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newStore(ttl time.Duration) (*session.Store, *memory.Store, *clock) {
	clk := &clock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	backend := memory.New()
	return session.NewStore(backend, ttl, session.WithClock(clk.Now)), backend, clk
}

func TestCreateReplacesWithoutMerging(t *testing.T) {
	store, _, _ := newStore(time.Minute)
	ctx := context.Background()

	_, err := store.Create(ctx, 7, session.AdminAdd{Category: "drama", Step: session.StageAwaitPhoto, Title: "YODDHA"})
	require.NoError(t, err)
	_, err = store.Create(ctx, 7, session.Listen{VisionID: "dr01"})
	require.NoError(t, err)

	sess, ok, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, session.Listen{VisionID: "dr01"}, sess.State)
}

func TestGetMissing(t *testing.T) {
	store, _, _ := newStore(time.Minute)
	_, ok, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiredSessionIsAbsent(t *testing.T) {
	store, backend, clk := newStore(5 * time.Minute)
	ctx := context.Background()
	_, err := store.Create(ctx, 3, session.Search{})
	require.NoError(t, err)

	clk.now = clk.now.Add(4 * time.Minute)
	_, ok, err := store.Get(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.now = clk.now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, backend.SessionCount())
}

// staleBackend ignores notBefore, like a store whose TTL index has not run yet.
type staleBackend struct{ rec session.Record }

func (b *staleBackend) PutSession(_ context.Context, rec session.Record) error {
	b.rec = rec
	return nil
}

func (b *staleBackend) LoadSession(context.Context, int64, time.Time) (session.Record, error) {
	if b.rec.UserID == 0 {
		return session.Record{}, session.ErrNotFound
	}
	return b.rec, nil
}

func (b *staleBackend) DeleteSession(context.Context, int64) error {
	return nil
}

func TestExpiryCheckedAgainInStore(t *testing.T) {
	backend := &staleBackend{}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := session.NewStore(backend, time.Minute, session.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := store.Create(ctx, 5, session.Request{})
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)

	_, ok, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndecodableRecordIsAbsent(t *testing.T) {
	backend := &staleBackend{}
	now := time.Now()
	require.NoError(t, backend.PutSession(context.Background(), session.Record{
		UserID: 8, Mode: "teleport", Stage: "nowhere", CreatedAt: now,
	}))
	store := session.NewStore(backend, time.Minute)

	_, ok, err := store.Get(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearIsIdempotent(t *testing.T) {
	store, _, _ := newStore(time.Minute)
	ctx := context.Background()
	_, err := store.Create(ctx, 4, session.Search{})
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, 4))
	require.NoError(t, store.Clear(ctx, 4))
	_, ok, err := store.Get(ctx, 4)
	require.NoError(t, err)
	assert.False(t, ok)
}

type brokenBackend struct{ staleBackend }

var errDown = errors.New("connection refused")

func (brokenBackend) LoadSession(context.Context, int64, time.Time) (session.Record, error) {
	return session.Record{}, errDown
}

func TestBackendErrorsPropagate(t *testing.T) {
	store := session.NewStore(&brokenBackend{}, time.Minute)
	_, _, err := store.Get(context.Background(), 1)
	assert.ErrorIs(t, err, errDown)
}

func TestDefaultTTL(t *testing.T) {
	store := session.NewStore(memory.New(), 0)
	assert.Equal(t, session.DefaultTTL, store.TTL())
}
