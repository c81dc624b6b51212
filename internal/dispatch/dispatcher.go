// Package dispatch turns inbound chat updates into session transitions and replies.
// It is the only package that touches both the state machine and I/O.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/internal/sticker"
	"github.com/m3rciful/stickerbot/internal/store"
)

// Publisher talks to the remote stickers API.
type Publisher interface {
	// Publish creates the set when a title is present, otherwise adds to it, and
	// returns the public pack URL.
	Publish(ctx context.Context, st sticker.ReadyToPublish) (string, error)
	// Remove deletes a sticker from a set owned by the bot.
	Remove(ctx context.Context, fileID string) error
}

// Options wires the dispatcher collaborators.
type Options struct {
	OwnerID    int64
	BotName    string
	Store      store.Store
	Fetcher    Fetcher
	Normalizer Normalizer
	Publisher  Publisher
	// Lanes serializes Submit per user. Nil runs updates inline.
	Lanes Lanes
}

// Dispatcher routes updates for the single authorized user.
type Dispatcher struct {
	owner      int64
	botName    string
	store      store.Store
	fetcher    Fetcher
	normalizer Normalizer
	publisher  Publisher
	lanes      Lanes
}

// New validates opts and builds a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.OwnerID == 0:
		return nil, errors.New("dispatch: owner id is required")
	case opts.BotName == "":
		return nil, errors.New("dispatch: bot name is required")
	case opts.Store == nil:
		return nil, errors.New("dispatch: store is required")
	case opts.Fetcher == nil || opts.Normalizer == nil || opts.Publisher == nil:
		return nil, errors.New("dispatch: fetcher, normalizer and publisher are required")
	}
	return &Dispatcher{
		owner:      opts.OwnerID,
		botName:    opts.BotName,
		store:      opts.Store,
		fetcher:    opts.Fetcher,
		normalizer: opts.Normalizer,
		publisher:  opts.Publisher,
		lanes:      opts.Lanes,
	}, nil
}

// Submit queues upd on its user's lane. Updates of one user are handled strictly
// in submission order. done, if set, receives the result of Handle once the
// update has been processed. It is never called for an update that could not
// be queued.
func (d *Dispatcher) Submit(ctx context.Context, upd Update, out Responder, done func(error)) error {
	run := func(ctx context.Context) error {
		err := d.Handle(ctx, upd, out)
		if done != nil {
			done(err)
		}
		return err
	}
	if d.lanes == nil {
		return run(ctx)
	}
	return d.lanes.Enqueue(ctx, upd.UserID, "update."+upd.Kind.String(), run)
}

// Handle processes a single update. Callers must not run two updates of the same
// user concurrently; Submit takes care of that.
func (d *Dispatcher) Handle(ctx context.Context, upd Update, out Responder) error {
	if upd.UserID == 0 {
		d.reply(ctx, out, Reply{Text: MsgNoUser})
		return nil
	}
	if upd.UserID != d.owner {
		logger.Info(ctx, "bot", "access.denied", slog.Int64("user_id", upd.UserID))
		d.reply(ctx, out, Reply{Text: MsgUnauthorized})
		return nil
	}

	switch upd.Kind {
	case KindText:
		return d.handleText(ctx, upd, out)
	case KindPhoto:
		return d.handleImage(ctx, upd, out)
	case KindDocument:
		if !isImageMIME(upd.MIME) {
			d.reply(ctx, out, Reply{Text: MsgNotImage})
			return nil
		}
		return d.handleImage(ctx, upd, out)
	case KindSticker:
		if sticker.OwnsPack(upd.StickerSet, d.botName) {
			return d.removeSticker(ctx, upd, out)
		}
		return d.handleImage(ctx, upd, out)
	}
	d.reply(ctx, out, Reply{Text: MsgUnsupported})
	return nil
}

func (d *Dispatcher) handleText(ctx context.Context, upd Update, out Responder) error {
	cmd, arg := splitCommand(upd.Text)
	switch cmd {
	case CmdStart, CmdHelp:
		d.reply(ctx, out, Reply{Text: MsgHelp, RemoveKeyboard: true})
		return nil
	case CmdNewPack:
		return d.start(ctx, upd, out, sticker.New)
	case CmdAddToPack:
		return d.start(ctx, upd, out, sticker.Existing)
	case CmdPublish:
		return d.publish(ctx, upd, out)
	case CmdAddKnownSet:
		return d.registerPack(ctx, upd, out, arg)
	}

	ctx, st, ok, err := d.session(ctx, upd.UserID)
	if err != nil {
		return d.internal(ctx, out, err)
	}
	if !ok {
		d.reply(ctx, out, Reply{Text: upd.Text})
		return nil
	}

	ev := sticker.TextEvent(st, upd.Text)
	switch e := ev.(type) {
	case sticker.NameChosen:
		name, err := sticker.PackName(e.Name, d.botName)
		if err != nil {
			logger.Debug(ctx, "bot", "name.invalid", slog.String("err", err.Error()))
			d.reply(ctx, out, Reply{Text: MsgInvalidName})
			return nil
		}
		ev = sticker.NameChosen{Name: name}
	case sticker.EmojisChosen:
		if !sticker.ValidEmojis(e.Emojis) {
			d.reply(ctx, out, Reply{Text: MsgNotEmoji})
			return nil
		}
	}
	return d.apply(ctx, upd, out, st, ev)
}

func (d *Dispatcher) start(ctx context.Context, upd Update, out Responder, target sticker.Target) error {
	st := sticker.Start(target)
	if err := d.store.SetSession(ctx, upd.UserID, st); err != nil {
		return d.internal(ctx, out, err)
	}
	logger.Info(ctx, "bot", "session.start", slog.String("target", target.String()))

	if target == sticker.Existing {
		names, err := d.store.PackNames(ctx, upd.UserID)
		if err != nil {
			return d.internal(ctx, out, err)
		}
		if len(names) > 0 {
			d.reply(ctx, out, Reply{Text: MsgChoosePack, Keyboard: names})
			return nil
		}
	}
	d.reply(ctx, out, Reply{Text: sticker.PromptFor(st), RemoveKeyboard: true})
	return nil
}

func (d *Dispatcher) handleImage(ctx context.Context, upd Update, out Responder) error {
	ctx, st, ok, err := d.session(ctx, upd.UserID)
	if err != nil {
		return d.internal(ctx, out, err)
	}
	if !ok || !sticker.AcceptsImage(st) {
		d.reply(ctx, out, Reply{Text: MsgNotExpected})
		return nil
	}
	if upd.Animated {
		d.reply(ctx, out, Reply{Text: MsgBadImage})
		return nil
	}

	start := time.Now()
	raw, err := d.fetcher.Fetch(ctx, upd.FileID)
	if err != nil {
		logger.Warn(ctx, "bot", "image.fetch", slog.String("err", err.Error()))
		d.reply(ctx, out, Reply{Text: MsgFetchFailed})
		return nil
	}
	img, err := d.normalizer.Normalize(ctx, raw)
	if err != nil {
		logger.Warn(ctx, "bot", "image.normalize",
			slog.Int("bytes", len(raw)),
			slog.String("err", err.Error()),
		)
		d.reply(ctx, out, Reply{Text: MsgBadImage})
		return nil
	}
	logger.Debug(ctx, "bot", "image.ready",
		slog.Int("raw_bytes", len(raw)),
		slog.Int("png_bytes", len(img)),
		slog.Duration("duration", logger.Took(start)),
	)
	return d.apply(ctx, upd, out, st, sticker.ImageReceived{Image: img})
}

// apply commits the transition and then prompts for the next step.
func (d *Dispatcher) apply(ctx context.Context, upd Update, out Responder, st sticker.State, ev sticker.Event) error {
	next := sticker.Next(st, ev)
	if err := d.store.SetSession(ctx, upd.UserID, next); err != nil {
		return d.internal(ctx, out, err)
	}
	logger.Debug(ctx, "bot", "transition",
		slog.String("from", sticker.Kind(st)),
		slog.String("to", sticker.Kind(next)),
		slog.String("trigger", sticker.EventKind(ev)),
	)
	_, fromName := st.(sticker.AwaitingName)
	d.reply(ctx, out, Reply{Text: sticker.PromptFor(next), RemoveKeyboard: fromName})
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, upd Update, out Responder) error {
	ctx, st, ok, err := d.session(ctx, upd.UserID)
	if err != nil {
		return d.internal(ctx, out, err)
	}
	if !ok {
		d.reply(ctx, out, Reply{Text: MsgCannotPublish})
		return nil
	}
	if sticker.Confirmable(st) {
		st = sticker.Next(st, sticker.UserConfirmed{UserID: upd.UserID})
	}
	ready, isReady := st.(sticker.ReadyToPublish)
	if !isReady {
		logger.Debug(ctx, "bot", "publish.not_ready", slog.String("state", sticker.Kind(st)))
		d.reply(ctx, out, Reply{Text: MsgCannotPublish})
		return nil
	}
	if err := d.store.SetSession(ctx, upd.UserID, ready); err != nil {
		return d.internal(ctx, out, err)
	}

	start := time.Now()
	url, err := d.publisher.Publish(ctx, ready)
	if err != nil {
		logger.Warn(ctx, "bot", "publish.fail",
			slog.String("pack", ready.Name),
			slog.String("target", ready.Target.String()),
			slog.String("err", err.Error()),
		)
		d.reply(ctx, out, Reply{Text: MsgPublishFailed})
		return nil
	}
	logger.Info(ctx, "bot", "publish.ok",
		slog.String("pack", ready.Name),
		slog.String("target", ready.Target.String()),
		slog.Duration("duration", logger.Took(start)),
	)

	// The set exists remotely now. Local bookkeeping failures must not turn
	// into a retry that creates it again.
	if ready.Target == sticker.New {
		if err := d.store.AppendPackName(ctx, upd.UserID, ready.Name); err != nil {
			logger.Error(ctx, "bot", "pack.index",
				slog.String("status", "fail"),
				slog.String("pack", ready.Name),
				slog.String("err", err.Error()),
			)
		}
	}
	if _, _, err := d.store.DeleteSession(ctx, upd.UserID); err != nil {
		logger.Error(ctx, "bot", "session.delete",
			slog.String("status", "fail"),
			slog.String("pack", ready.Name),
			slog.String("err", err.Error()),
		)
	}
	d.reply(ctx, out, Reply{Text: url, RemoveKeyboard: true})
	return nil
}

func (d *Dispatcher) registerPack(ctx context.Context, upd Update, out Responder, name string) error {
	if !sticker.OwnsPack(name, d.botName) {
		d.reply(ctx, out, Reply{Text: MsgPackNotFound})
		return nil
	}
	if err := d.store.AppendPackName(ctx, upd.UserID, name); err != nil {
		return d.internal(ctx, out, err)
	}
	d.reply(ctx, out, Reply{Text: fmt.Sprintf(MsgPackAdded, name)})
	return nil
}

func (d *Dispatcher) removeSticker(ctx context.Context, upd Update, out Responder) error {
	if err := d.publisher.Remove(ctx, upd.FileID); err != nil {
		logger.Warn(ctx, "bot", "sticker.delete",
			slog.String("pack", upd.StickerSet),
			slog.String("err", err.Error()),
		)
		d.reply(ctx, out, Reply{Text: MsgDeleteFailed})
		return nil
	}
	logger.Info(ctx, "bot", "sticker.delete", slog.String("pack", upd.StickerSet))
	d.reply(ctx, out, Reply{Text: MsgStickerDeleted})
	return nil
}

// session loads the stored session and tags ctx with its state for logging.
func (d *Dispatcher) session(ctx context.Context, userID int64) (context.Context, sticker.State, bool, error) {
	st, ok, err := d.store.GetSession(ctx, userID)
	if err != nil || !ok {
		return ctx, st, ok, err
	}
	return logger.WithSessionState(ctx, sticker.Kind(st)), st, true, nil
}

func (d *Dispatcher) internal(ctx context.Context, out Responder, err error) error {
	d.reply(ctx, out, Reply{Text: MsgInternal})
	return fmt.Errorf("dispatch: %w", err)
}

func (d *Dispatcher) reply(ctx context.Context, out Responder, r Reply) {
	if out == nil {
		return
	}
	if err := out.Reply(ctx, r); err != nil {
		logger.Warn(ctx, "bot", "reply.fail", slog.String("err", err.Error()))
	}
}
