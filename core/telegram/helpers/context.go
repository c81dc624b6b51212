// Package helpers bridges telebot contexts to request-scoped logging and
// sends plain replies.
package helpers

import (
	"context"

	"github.com/m3rciful/stickerbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "req_ctx"

// StoreContext caches ctx on c for later helpers of the same update.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(ctxKey, ctx)
}

// BuildContext returns the request context cached on c, building one with the
// rid and update identifiers on first use.
func BuildContext(c tele.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}

	var userID, chatID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	updateID := c.Update().ID

	req := logger.NewRequest(updateID, chatID, userID)
	if rid, _ := c.Get("rid").(string); rid != "" {
		req.RID = rid
	}
	ctx := logger.WithRequest(context.Background(), req)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the cached context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
