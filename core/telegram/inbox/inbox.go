// Package inbox runs inbound work serially per key and in parallel across keys.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after Close.
	ErrQueueClosed = errors.New("inbox: closed")
	// ErrQueueFull indicates the key's lane is saturated and the job was not accepted.
	ErrQueueFull = errors.New("inbox: lane full")
)

// Options controls lane sizing and lifetime.
type Options struct {
	// QueueSize bounds pending jobs per key.
	QueueSize int
	// IdleTimeout stops a lane goroutine after this long without work.
	IdleTimeout time.Duration
}

type job struct {
	ctx    context.Context
	action string
	run    func(context.Context) error
}

type lane struct {
	jobs chan job
}

// Inbox executes jobs with the same key one at a time, in enqueue order.
type Inbox struct {
	opts   Options
	mu     sync.Mutex
	lanes  map[int64]*lane
	closed bool
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// New builds an Inbox with sane defaults if options are zeroed.
func New(opts Options) *Inbox {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Minute
	}
	return &Inbox{
		opts:  opts,
		lanes: make(map[int64]*lane),
	}
}

// Enqueue schedules run on key's lane and returns without waiting.
func (b *Inbox) Enqueue(ctx context.Context, key int64, action string, run func(context.Context) error) error {
	if run == nil {
		return errors.New("inbox: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	j := job{ctx: context.WithoutCancel(ctx), action: action, run: run}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrQueueClosed
	}
	l, ok := b.lanes[key]
	if !ok {
		l = &lane{jobs: make(chan job, b.opts.QueueSize)}
		b.lanes[key] = l
		b.wg.Add(1)
		go b.worker(key, l)
	}
	select {
	case l.jobs <- j:
		return nil
	default:
		logger.Warn(ctx, "inbox", "lane.full",
			slog.Int64("key", key),
			slog.String("action", action),
			slog.Int("queue_size", b.opts.QueueSize),
		)
		return ErrQueueFull
	}
}

// Lanes returns the number of live lanes, idle ones included until they time out.
func (b *Inbox) Lanes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lanes)
}

// ErrorCount returns the number of failed jobs.
func (b *Inbox) ErrorCount() uint64 {
	return b.errs.Load()
}

// Close stops accepting work and waits for queued jobs to finish.
func (b *Inbox) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, l := range b.lanes {
		close(l.jobs)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Inbox) worker(key int64, l *lane) {
	defer b.wg.Done()
	idle := time.NewTimer(b.opts.IdleTimeout)
	defer idle.Stop()
	for {
		select {
		case j, ok := <-l.jobs:
			if !ok {
				return
			}
			b.handle(key, j)
			idle.Reset(b.opts.IdleTimeout)
		case <-idle.C:
			b.mu.Lock()
			if !b.closed && len(l.jobs) == 0 {
				delete(b.lanes, key)
				b.mu.Unlock()
				return
			}
			b.mu.Unlock()
			idle.Reset(b.opts.IdleTimeout)
		}
	}
}

func (b *Inbox) handle(key int64, j job) {
	ctx := j.ctx
	start := time.Now()
	logger.Debug(ctx, "inbox", "job.start", jobAttrs(ctx, key, j)...)

	err := b.run(j)
	elapsed := time.Since(start)
	if err != nil {
		b.errs.Add(1)
		logger.Error(ctx, "inbox", "job.fail",
			append(jobAttrs(ctx, key, j),
				slog.String("error", netutil.Redact(err)),
				slog.String("error_kind", netutil.Classify(err)),
				slog.Duration("duration", logger.RoundMS(elapsed)),
			)...,
		)
		return
	}
	logger.Debug(ctx, "inbox", "job.success",
		append(jobAttrs(ctx, key, j), slog.Duration("duration", logger.RoundMS(elapsed)))...,
	)
}

func (b *Inbox) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inbox: panic in %s: %v", j.action, r)
		}
	}()
	return j.run(j.ctx)
}

func jobAttrs(ctx context.Context, key int64, j job) []slog.Attr {
	attrs := []slog.Attr{
		slog.Int64("key", key),
		slog.String("action", j.action),
	}
	if rid := logger.RIDFrom(ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", rid))
	}
	if updateID := logger.UpdateIDFrom(ctx); updateID != 0 {
		attrs = append(attrs, slog.Int("update_id", updateID))
	}
	return attrs
}
