package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/metrics"
	tghelpers "github.com/m3rciful/storybot/core/telegram/helpers"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func textUpdate(id int, user int64, text string) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		Sender: &tele.User{ID: user},
		Chat:   &tele.Chat{ID: user, Type: tele.ChatPrivate},
		Text:   text,
	}}
}

func TestRateLimitDropsRapidMessages(t *testing.T) {
	b := offlineBot(t)
	clock := time.Unix(1000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Metrics:   metrics.New(prometheus.NewRegistry()),
		Now:       func() time.Time { return clock },
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(b.NewContext(textUpdate(1, 7, "a"))))
	require.NoError(t, h(b.NewContext(textUpdate(2, 7, "b"))))
	require.NoError(t, h(b.NewContext(textUpdate(3, 8, "c"))))
	clock = clock.Add(2 * time.Second)
	require.NoError(t, h(b.NewContext(textUpdate(4, 7, "d"))))

	cb := tele.Update{ID: 5, Callback: &tele.Callback{Sender: &tele.User{ID: 7}, Data: "explore:open"}}
	require.NoError(t, h(b.NewContext(cb)))

	assert.Equal(t, 4, handled)
	assert.Equal(t, 1, limited)
}

func TestRecoverMiddlewareConvertsPanic(t *testing.T) {
	b := offlineBot(t)
	h := RecoverMiddleware(nil)(func(tele.Context) error { panic("boom") })
	err := h(b.NewContext(textUpdate(1, 7, "x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	h = RecoverMiddleware(nil)(func(tele.Context) error { return errors.New("plain") })
	assert.EqualError(t, h(b.NewContext(textUpdate(2, 7, "x"))), "plain")
}

func TestLoggerMiddlewareStoresContext(t *testing.T) {
	b := offlineBot(t)
	var rid string
	var userID int64
	h := LoggerMiddleware(func(c tele.Context) error {
		ctx, ok := tghelpers.Lookup(c)
		require.True(t, ok)
		rid = logger.RIDFrom(ctx)
		userID = logger.UserIDFrom(ctx)
		return nil
	})
	require.NoError(t, h(b.NewContext(textUpdate(42, 7, "/start"))))
	assert.Equal(t, logger.BuildRID(42, 7, 7), rid)
	assert.Equal(t, int64(7), userID)
}

func TestBoundContextCancelsWithBase(t *testing.T) {
	b := offlineBot(t)
	base, cancel := context.WithCancel(context.Background())
	var got context.Context
	h := tghelpers.Bind(base)(LoggerMiddleware(func(c tele.Context) error {
		got = tghelpers.Request(c)
		return nil
	}))
	require.NoError(t, h(b.NewContext(textUpdate(7, 7, "hi"))))
	require.NotNil(t, got)
	assert.NoError(t, got.Err())
	cancel()
	assert.ErrorIs(t, got.Err(), context.Canceled)
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "callback", UpdateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, "message", UpdateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, "other", UpdateKind(tele.Update{}))
}
