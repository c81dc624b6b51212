// Package app wires configuration, storage and the Telegram runtime into the
// sticker bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/stickerbot/core/bootstrap"
	corecmd "github.com/m3rciful/stickerbot/core/cmd"
	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/scheduler"
	coretelegram "github.com/m3rciful/stickerbot/core/telegram"
	"github.com/m3rciful/stickerbot/core/telegram/commands"
	"github.com/m3rciful/stickerbot/core/telegram/inbox"
	"github.com/m3rciful/stickerbot/core/telegram/router"
	"github.com/m3rciful/stickerbot/internal/dispatch"
	"github.com/m3rciful/stickerbot/internal/media"
	"github.com/m3rciful/stickerbot/internal/publisher"
	"github.com/m3rciful/stickerbot/internal/store"
)

var menu = []struct {
	name string
	desc string
}{
	{dispatch.CmdNewPack, "create a new sticker pack"},
	{dispatch.CmdAddToPack, "add a sticker to one of your packs"},
	{dispatch.CmdPublish, "upload the prepared sticker"},
	{dispatch.CmdAddKnownSet, "remember an existing pack: /add_sticker_pack <name>"},
	{dispatch.CmdHelp, "show help"},
}

// App is a bootstrapped bot ready to run.
type App struct {
	cfg   *Config
	store store.Store

	inbox      *inbox.Inbox
	sched      *scheduler.Scheduler
	dispatcher *dispatch.Dispatcher
}

// LoadConfig adapts Load to the core runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return Load(path)
}

// Bootstrap initializes logging and opens the store, applying migrations.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(context.Background(), bootstrap.Options[store.Store]{
		Config: &cfg.Config,
		Open: func(ctx context.Context) (store.Store, error) {
			return store.Open(ctx, cfg.StoreOptions(true))
		},
	})
	if err != nil {
		return nil, err
	}
	return New(cfg, res.Storage), nil
}

// New builds an App over an already opened store.
func New(cfg *Config, st store.Store) *App {
	return &App{cfg: cfg, store: st}
}

// TelegramRunOptions registers commands, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	for _, m := range menu {
		reg.RegisterCommand(m.name, commands.Command{Handler: a.handle, Description: m.desc})
	}
	reg.RegisterCommand(dispatch.CmdStart, commands.Command{Handler: a.handle, Description: "start", Hidden: true})
	reg.SetFallback(a.handle)

	routes := append(router.CommandRoutes(reg), router.MessageRoutes(reg)...)
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt coretelegram.Runtime) error {
	if rt.Bot == nil {
		return errors.New("app: runtime has no bot")
	}
	botName := a.cfg.Telegram.BotName
	if botName == "" && rt.Bot.Me != nil {
		botName = rt.Bot.Me.Username
	}
	if botName == "" {
		return errors.New("app: bot name unknown; set telegram.bot_name")
	}

	a.inbox = inbox.New(a.cfg.InboxOptions())
	d, err := dispatch.New(dispatch.Options{
		OwnerID:    a.cfg.Telegram.AdminID,
		BotName:    botName,
		Store:      a.store,
		Fetcher:    media.NewTelegramFetcher(rt.Bot, a.cfg.Media.MaxBytes),
		Normalizer: media.NewNormalizer(),
		Publisher:  publisher.NewTelegram(rt.Bot),
		Lanes:      a.inbox,
	})
	if err != nil {
		a.inbox.Close()
		return err
	}
	a.dispatcher = d

	if err := a.startMaintenance(); err != nil {
		a.inbox.Close()
		return err
	}

	logger.Info(ctx, "app", "bot.ready",
		slog.String("bot_name", botName),
		slog.String("storage", a.cfg.Storage.Driver),
	)
	return nil
}

func (a *App) startMaintenance() error {
	c, ok := a.store.(store.Compacter)
	interval := a.cfg.CompactInterval()
	if !ok || interval <= 0 {
		return nil
	}
	s, err := scheduler.New()
	if err != nil {
		return err
	}
	if err := s.Every("store.compact", interval, c.Compact); err != nil {
		_ = s.Stop()
		return err
	}
	s.Start()
	a.sched = s
	return nil
}

// Close releases the store. It is safe to call after the bot has stopped.
func (a *App) Close() error {
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("app: close store: %w", err)
	}
	return nil
}

// stop drains queued updates before closing the store they write to.
func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	var failed uint64
	var draining int
	if a.inbox != nil {
		draining = a.inbox.Lanes()
		a.inbox.Close()
		failed = a.inbox.ErrorCount()
	}
	var errs []error
	if a.sched != nil {
		errs = append(errs, a.sched.Stop())
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("app: close store: %w", err))
	}
	logger.Info(ctx, "app", "stopped",
		slog.Int("lanes", draining),
		slog.Uint64("failed_updates", failed),
	)
	return errors.Join(errs...)
}
