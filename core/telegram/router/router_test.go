package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/stickerbot/core/telegram"
	"github.com/m3rciful/stickerbot/core/telegram/commands"
	"github.com/m3rciful/stickerbot/core/telegram/middleware"
)

func textContext(t *testing.T, text string) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(tele.Update{ID: 3, Message: &tele.Message{
		Sender: &tele.User{ID: 1},
		Chat:   &tele.Chat{ID: 1},
		Text:   text,
	}})
}

func routeFor(routes []tg.Route, endpoint string) tele.HandlerFunc {
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	return nil
}

func TestMessageRoutesDispatch(t *testing.T) {
	var got []string
	reg := tg.NewRegistry()
	reg.RegisterCommand("/publish", commands.Command{
		Description: "publish",
		Aliases:     []string{"send"},
		Handler:     func(tele.Context) error { got = append(got, "publish"); return nil },
	})
	reg.SetFallback(func(c tele.Context) error { got = append(got, "fallback:"+c.Text()); return nil })

	routes := MessageRoutes(reg)
	text := routeFor(routes, tele.OnText)
	require.NotNil(t, text)
	require.NotNil(t, routeFor(routes, tele.OnSticker))

	require.NoError(t, text(textContext(t, "send now")))
	require.NoError(t, text(textContext(t, "hello")))
	require.NoError(t, routeFor(routes, tele.OnPhoto)(textContext(t, "")))
	assert.Equal(t, []string{"publish", "fallback:hello", "fallback:"}, got)
}

func TestMessageRoutesWithoutFallback(t *testing.T) {
	routes := MessageRoutes(tg.NewRegistry())
	assert.NoError(t, routeFor(routes, tele.OnText)(textContext(t, "hi")))
	assert.NoError(t, routeFor(MessageRoutes(nil), tele.OnText)(textContext(t, "hi")))
}

func TestCommandRoutesPropagateErrors(t *testing.T) {
	boom := errors.New("boom")
	reg := tg.NewRegistry()
	reg.RegisterCommand("/new_pack", commands.Command{
		Description: "new",
		Handler:     func(tele.Context) error { return boom },
	})
	routes := CommandRoutes(reg)
	require.Len(t, routes, 1)
	assert.Equal(t, "/new_pack", routes[0].Endpoint)
	assert.ErrorIs(t, routes[0].Handler(textContext(t, "/new_pack")), boom)
	assert.Nil(t, CommandRoutes(nil))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "new_pack", normalizeHandlerName("/New_Pack"))
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
	assert.Equal(t, "/add_sticker_pack", firstWord("/add_sticker_pack cats_by_bot"))
	assert.Equal(t, "/publish", firstWord("/publish\nnow"))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	assert.Empty(t, deriveErrorCode(nil))
}

// quietContext accepts sends without reaching the Bot API.
type quietContext struct{ tele.Context }

func (quietContext) Send(interface{}, ...interface{}) error { return nil }

type summaryCapture struct {
	mu    sync.Mutex
	lines []map[string]any
}

func captureSummaries(t *testing.T) *summaryCapture {
	t.Helper()
	sc := &summaryCapture{}
	orig := summaryLog
	summaryLog = func(_ context.Context, attrs ...slog.Attr) {
		line := make(map[string]any, len(attrs))
		for _, a := range attrs {
			line[a.Key] = a.Value.Any()
		}
		sc.mu.Lock()
		sc.lines = append(sc.lines, line)
		sc.mu.Unlock()
	}
	t.Cleanup(func() { summaryLog = orig })
	return sc
}

func (sc *summaryCapture) all() []map[string]any {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]map[string]any(nil), sc.lines...)
}

func TestSummaryCountsRepliesOfSyncHandler(t *testing.T) {
	sc := captureSummaries(t)
	reg := tg.NewRegistry()
	reg.SetFallback(func(c tele.Context) error { return c.Send("echo") })

	h := middleware.MessageMetricsMiddleware(routeFor(MessageRoutes(reg), tele.OnText))
	require.NoError(t, h(quietContext{textContext(t, "hello")}))

	lines := sc.all()
	require.Len(t, lines, 1)
	assert.Equal(t, "text", lines[0]["handler"])
	assert.Equal(t, int64(1), lines[0]["messages"])
}

func TestDeferredSummaryWaitsForAsyncWork(t *testing.T) {
	sc := captureSummaries(t)
	release := make(chan struct{})
	finished := make(chan struct{})
	buttons := &tele.ReplyMarkup{ReplyKeyboard: [][]tele.ReplyButton{{{Text: "cats_by_bot"}}}}

	reg := tg.NewRegistry()
	reg.SetFallback(func(c tele.Context) error {
		pending := Defer(c)
		go func() {
			defer close(finished)
			<-release
			_ = c.Send("first")
			_ = c.Send("second", buttons)
			pending.Finish("", errors.New("boom"))
			pending.Finish("", nil)
		}()
		return nil
	})

	h := middleware.MessageMetricsMiddleware(routeFor(MessageRoutes(reg), tele.OnText))
	require.NoError(t, h(quietContext{textContext(t, "hello")}))
	assert.Empty(t, sc.all(), "no summary before the work completes")

	close(release)
	<-finished
	lines := sc.all()
	require.Len(t, lines, 1)
	assert.Equal(t, "text", lines[0]["handler"])
	assert.Equal(t, "fail", lines[0]["status"])
	assert.Equal(t, int64(2), lines[0]["messages"])
	assert.Equal(t, true, lines[0]["kb"])
	assert.Equal(t, "ERRORSTRING", lines[0]["err_code"])
}

func TestFinishOverridesStatus(t *testing.T) {
	sc := captureSummaries(t)
	c := textContext(t, "hi")
	Defer(c).Finish("rate_limited", nil)
	lines := sc.all()
	require.Len(t, lines, 1)
	assert.Equal(t, "unknown", lines[0]["handler"])
	assert.Equal(t, "rate_limited", lines[0]["status"])
}
