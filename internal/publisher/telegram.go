// Package publisher uploads finished stickers through the Bot API.
package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/telegram/netutil"
	"github.com/m3rciful/stickerbot/internal/sticker"
)

// API is the subset of *tele.Bot used to manage sticker sets.
type API interface {
	CreateStickerSet(of tele.Recipient, set *tele.StickerSet) error
	AddStickerToSet(of tele.Recipient, name string, input tele.InputSticker) error
	DeleteSticker(sticker string) error
}

// Telegram publishes stickers on behalf of the set owner.
type Telegram struct {
	api API
}

// NewTelegram wraps api.
func NewTelegram(api API) *Telegram {
	return &Telegram{api: api}
}

// Publish creates a new set when st carries a title, otherwise appends to the set.
func (p *Telegram) Publish(ctx context.Context, st sticker.ReadyToPublish) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(st.Image) == 0 {
		return "", errors.New("publisher: empty image")
	}
	emojis := sticker.SplitEmojis(st.Emojis)
	if len(emojis) == 0 {
		return "", errors.New("publisher: no emojis")
	}

	owner := &tele.User{ID: st.OwnerID}
	input := tele.InputSticker{
		File:   tele.FromReader(bytes.NewReader(st.Image)),
		Emojis: emojis,
	}

	start := time.Now()
	op := "add_sticker"
	var err error
	if st.Title != nil {
		op = "create_set"
		err = p.api.CreateStickerSet(owner, &tele.StickerSet{
			Name:  st.Name,
			Title: *st.Title,
			Input: []tele.InputSticker{input},
		})
	} else {
		err = p.api.AddStickerToSet(owner, st.Name, input)
	}
	if err != nil {
		logger.Warn(ctx, "tg", "sticker."+op,
			slog.String("pack", st.Name),
			slog.String("error", netutil.Redact(err)),
			slog.String("error_kind", netutil.Classify(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		return "", fmt.Errorf("publisher: %s %s: %w", op, st.Name, err)
	}
	logger.Info(ctx, "tg", "sticker."+op,
		slog.String("pack", st.Name),
		slog.Int("emojis", len(emojis)),
		slog.Duration("duration", logger.Took(start)),
	)
	return sticker.PackURL(st.Name), nil
}

// Remove deletes a sticker from a set created by the bot.
func (p *Telegram) Remove(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.api.DeleteSticker(fileID); err != nil {
		return fmt.Errorf("publisher: delete sticker: %w", err)
	}
	return nil
}
