package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/stickerbot/core/logger"
)

func newContext(t *testing.T) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(tele.Update{ID: 12, Message: &tele.Message{
		Sender: &tele.User{ID: 7},
		Chat:   &tele.Chat{ID: 9},
		Text:   "/publish",
	}})
}

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := newContext(t)
	ctx := BuildContext(c)

	assert.Equal(t, "12:9:7", logger.RIDFrom(ctx))
	assert.Equal(t, 12, logger.UpdateIDFrom(ctx))
	assert.Equal(t, int64(7), logger.UserIDFrom(ctx))
	assert.Equal(t, int64(9), logger.ChatIDFrom(ctx))
	assert.Equal(t, ctx, BuildContext(c))
}

func TestBuildContextPrefersStoredRID(t *testing.T) {
	c := newContext(t)
	c.Set("rid", "custom")
	assert.Equal(t, "custom", logger.RIDFrom(BuildContext(c)))

	c = newContext(t)
	stored := logger.WithRID(context.Background(), "stored")
	StoreContext(c, stored)
	assert.Equal(t, stored, BuildContext(c))
}

func TestWithHandler(t *testing.T) {
	c := newContext(t)
	ctx := WithHandler(c, "publish")
	assert.Equal(t, "publish", logger.HandlerFrom(ctx))
	assert.Equal(t, "publish", logger.HandlerFrom(BuildContext(c)))
	assert.Equal(t, context.Background(), BuildContext(nil))
}
