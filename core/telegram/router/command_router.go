package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
	tg "github.com/m3rciful/stickerbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command to its handler with a summary log line.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		h := def.Handler
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler: func(c tele.Context) error {
				start := time.Now()
				return handleWithSummary(c, name, start, func() error { return h(c) })
			},
		})
	}

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("commands", len(reg.Commands())),
	)
	return routes
}
