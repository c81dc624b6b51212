package helpers

import (
	"log/slog"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// SendText sends raw text (no parse mode) to the current recipient. Failures are
// logged and returned; replies are not retried.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	ctx := BuildContext(c)
	start := time.Now()
	var err error
	if len(opts) > 0 && opts[0] != nil {
		err = c.Send(text, opts[0])
	} else {
		err = c.Send(text)
	}
	if err != nil {
		logger.Warn(ctx, "tg", "send.fail",
			slog.String("endpoint", "sendMessage"),
			slog.String("error", netutil.Redact(err)),
			slog.String("error_kind", netutil.Classify(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		return err
	}
	logger.Debug(ctx, "tg", "send.success",
		slog.String("endpoint", "sendMessage"),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// SendWithMarkup sends raw text with the given reply markup.
func SendWithMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup == nil {
		return SendText(c, text)
	}
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}
