package router

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
	tghelpers "github.com/m3rciful/stickerbot/core/telegram/helpers"
	"github.com/m3rciful/stickerbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

const (
	keySummary  = "summary"
	keyDeferred = "summary_deferred"
)

type summary struct {
	name  string
	start time.Time
}

var summaryLog = func(ctx context.Context, attrs ...slog.Attr) {
	logger.Info(ctx, "tg", "handler.handled", attrs...)
}

func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn func() error) error {
	tghelpers.WithHandler(c, handlerName)
	c.Set(keySummary, summary{name: handlerName, start: start})
	err := fn()
	if deferred, _ := c.Get(keyDeferred).(bool); deferred {
		return err
	}
	logHandlerSummary(c, handlerName, start, "", err)
	return err
}

// Pending is the summary of a handler whose work completes after it returns.
type Pending struct {
	c     tele.Context
	name  string
	start time.Time
	once  sync.Once
}

// Defer hands the summary line of the running handler to the caller. The
// router skips its own line and Finish writes it once the work is done.
func Defer(c tele.Context) *Pending {
	p := &Pending{c: c, name: "unknown", start: time.Now()}
	if s, ok := c.Get(keySummary).(summary); ok {
		p.name, p.start = s.name, s.start
	}
	c.Set(keyDeferred, true)
	return p
}

// Finish logs the summary. Only the first call has an effect. A non-empty
// status overrides the one derived from err.
func (p *Pending) Finish(status string, err error) {
	if p == nil {
		return
	}
	p.once.Do(func() { logHandlerSummary(p.c, p.name, p.start, status, err) })
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, statusOverride string, err error) {
	ctx := tghelpers.WithHandler(c, handlerName)
	msgs, kb := middleware.GetCounters(c)

	status := statusOverride
	if status == "" {
		status = logger.Status(err)
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	summaryLog(ctx, attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	if c, ok := err.(coder); ok {
		code := strings.TrimSpace(c.Code())
		if code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
