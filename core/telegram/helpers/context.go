// Package helpers carries the per-update context.Context through telebot,
// which only offers an untyped key/value store on tele.Context.
package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/logger"
)

const (
	baseKey    = "storybot.base_ctx"
	requestKey = "storybot.request_ctx"
)

// Bind returns a middleware that parents every update context on base, so
// handlers observe cancellation when the bot is shutting down.
func Bind(base context.Context) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if base != nil {
				c.Set(baseKey, base)
			}
			return next(c)
		}
	}
}

// Attach stores ctx as the update's request context.
func Attach(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(requestKey, ctx)
}

// Lookup returns the request context stored by Attach.
func Lookup(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(requestKey).(context.Context)
	return ctx, ok && ctx != nil
}

// Request returns the update's context, building and storing it on first use.
// It carries the request id plus update, user and chat ids for logging.
func Request(c tele.Context) context.Context {
	if ctx, ok := Lookup(c); ok {
		return ctx
	}
	ctx := NewRequest(c)
	Attach(c, ctx)
	return ctx
}

// NewRequest builds a fresh request context without consulting the cache.
func NewRequest(c tele.Context) context.Context {
	base, _ := c.Get(baseKey).(context.Context)
	if base == nil {
		base = context.Background()
	}
	updateID, userID, chatID := Meta(c)
	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}
	ctx := logger.WithRID(base, rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	return logger.WithLogger(ctx, logger.TG)
}

// Meta extracts the update, sender and chat ids; absent parts are zero.
func Meta(c tele.Context) (updateID int, userID, chatID int64) {
	updateID = c.Update().ID
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	return updateID, userID, chatID
}

// WithHandler tags the stored context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := Request(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	Attach(c, ctx)
	return ctx
}
