package router

import (
	"strings"
	"time"
	"unicode"

	tg "github.com/m3rciful/stickerbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// mediaEndpoints are the non-text message kinds forwarded to the fallback.
var mediaEndpoints = map[string]string{
	tele.OnPhoto:     "photo",
	tele.OnDocument:  "document",
	tele.OnSticker:   "sticker",
	tele.OnAnimation: "animation",
	tele.OnVideo:     "video",
	tele.OnVoice:     "voice",
	tele.OnAudio:     "audio",
	tele.OnVideoNote: "video_note",
	tele.OnLocation:  "location",
	tele.OnContact:   "contact",
}

// MessageRoutes builds handlers for text and media messages. Text that names a
// registered command or alias goes to that command; everything else goes to
// the registry fallback.
func MessageRoutes(reg *tg.Registry) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		if reg == nil {
			logHandlerSummary(c, "unknown_text", start, "skip", nil)
			return nil
		}
		if key, cmd, ok := reg.LookupCommand(firstWord(c.Text())); ok && cmd.Handler != nil {
			return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
				return cmd.Handler(c)
			})
		}
		return fallback(c, reg, "text", start)
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: text}}
	for endpoint, name := range mediaEndpoints {
		name := name
		routes = append(routes, tg.Route{
			Endpoint: endpoint,
			Handler: func(c tele.Context) error {
				return fallback(c, reg, name, time.Now())
			},
		})
	}
	return routes
}

func fallback(c tele.Context, reg *tg.Registry, name string, start time.Time) error {
	if reg == nil || reg.Fallback() == nil {
		logHandlerSummary(c, name, start, "skip", nil)
		return nil
	}
	fb := reg.Fallback()
	return handleWithSummary(c, name, start, func() error { return fb(c) })
}

func firstWord(text string) string {
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		return text[:i]
	}
	return text
}
