package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/stickerbot/core/logger"
	tghelpers "github.com/m3rciful/stickerbot/core/telegram/helpers"
	"github.com/m3rciful/stickerbot/core/telegram/inbox"
	"github.com/m3rciful/stickerbot/core/telegram/keyboard"
	"github.com/m3rciful/stickerbot/core/telegram/router"
	"github.com/m3rciful/stickerbot/internal/dispatch"

	tele "gopkg.in/telebot.v4"
)

// MsgBusy is sent when a user's queue is full.
const MsgBusy = "too many messages at once, wait a bit and resend"

// handle converts the update and queues it on the sender's lane. The handler
// summary is written by the lane once the update has been processed.
func (a *App) handle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if a.dispatcher == nil {
		return errors.New("app: dispatcher not started")
	}
	upd := toUpdate(c)
	summary := router.Defer(c)
	err := a.dispatcher.Submit(ctx, upd, chatResponder{c: c}, func(err error) {
		summary.Finish("", err)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, inbox.ErrQueueFull):
		logger.Warn(ctx, "bot", "update.dropped", slog.String("kind", upd.Kind.String()))
		_ = tghelpers.SendText(c, MsgBusy)
		summary.Finish("rate_limited", nil)
		return nil
	case errors.Is(err, inbox.ErrQueueClosed):
		summary.Finish("cancelled", nil)
		return nil
	}
	summary.Finish("", err)
	return err
}

func toUpdate(c tele.Context) dispatch.Update {
	upd := dispatch.Update{ID: c.Update().ID}
	if u := c.Sender(); u != nil {
		upd.UserID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		upd.ChatID = ch.ID
	}
	msg := c.Message()
	if msg == nil {
		return upd
	}
	switch {
	case msg.Sticker != nil:
		upd.Kind = dispatch.KindSticker
		upd.FileID = msg.Sticker.FileID
		upd.StickerSet = msg.Sticker.SetName
		upd.Animated = msg.Sticker.Animated || msg.Sticker.Video
	case msg.Photo != nil:
		upd.Kind = dispatch.KindPhoto
		upd.FileID = msg.Photo.FileID
	case msg.Document != nil:
		upd.Kind = dispatch.KindDocument
		upd.FileID = msg.Document.FileID
		upd.MIME = msg.Document.MIME
	case msg.Text != "":
		upd.Kind = dispatch.KindText
		upd.Text = msg.Text
	}
	return upd
}

// chatResponder replies to the chat of the originating update.
type chatResponder struct {
	c tele.Context
}

func (r chatResponder) Reply(_ context.Context, rep dispatch.Reply) error {
	switch {
	case len(rep.Keyboard) > 0:
		return tghelpers.SendWithMarkup(r.c, rep.Text, keyboard.ReplyButtons(keyboard.Chunk(rep.Keyboard, 1)...))
	case rep.RemoveKeyboard:
		return tghelpers.SendWithMarkup(r.c, rep.Text, keyboard.RemoveKeyboard())
	}
	return tghelpers.SendText(r.c, rep.Text)
}
