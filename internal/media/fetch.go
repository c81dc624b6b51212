package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/telegram/netutil"
)

// DefaultMaxBytes matches the Bot API download limit.
const DefaultMaxBytes = 20 << 20

// FileSource resolves and downloads Telegram files. *tele.Bot implements it.
type FileSource interface {
	File(file *tele.File) (io.ReadCloser, error)
}

// TelegramFetcher downloads files referenced by updates.
type TelegramFetcher struct {
	src      FileSource
	maxBytes int64
}

// NewTelegramFetcher builds a fetcher; maxBytes <= 0 selects DefaultMaxBytes.
func NewTelegramFetcher(src FileSource, maxBytes int64) *TelegramFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &TelegramFetcher{src: src, maxBytes: maxBytes}
}

// Fetch returns the file content, refusing anything above the size limit.
func (f *TelegramFetcher) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	rc, err := f.src.File(&tele.File{FileID: fileID})
	if err != nil {
		logger.Warn(ctx, "media", "fetch.fail",
			slog.String("error", netutil.Redact(err)),
			slog.String("error_kind", netutil.Classify(err)),
		)
		return nil, fmt.Errorf("media: fetch %s: %w", fileID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("media: read %s: %w", fileID, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	logger.Debug(ctx, "media", "fetch.ok",
		slog.Int("bytes", len(data)),
		slog.Duration("duration", logger.Took(start)),
	)
	return data, nil
}
