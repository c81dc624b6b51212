package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/stickerbot/core/buildinfo"
	coreconfig "github.com/m3rciful/stickerbot/core/config"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	logWriter  *asyncWriter
	logClosers []io.Closer
	levelVar   slog.LevelVar

	debugSampler atomic.Pointer[sampler]

	// L is the base logger; component loggers derive from it.
	L *slog.Logger
)

func init() {
	debugSampler.Store(newSampler(defaultDebugSample))
}

// InitLogger configures the global structured logger. Only the first call has
// an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		if cfg == nil {
			cfg = &coreconfig.Config{}
		}
		levelVar.Set(selectLevel(cfg.Logging.Level))
		debugSampler.Store(newSampler(debugSample(cfg.Logging.DebugSample)))

		outputs, closers, err := buildOutputs(cfg)
		if err != nil {
			initErr = err
			return
		}
		logClosers = closers
		logWriter = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   selectFormat(cfg.Logging),
			keyOrder: selectKeyOrder(cfg.Logging.KeysOrder),
		}))
		slog.SetDefault(L)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Revision()),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", selectProfile(cfg.Logging.Profile)),
		)
	})
	return initErr
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if logWriter != nil {
		errs = append(errs, logWriter.Flush(), logWriter.Close())
	}
	return errors.Join(append(errs, closeAll(logClosers))...)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func selectFormat(cfg coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Profile)) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

// selectKeyOrder parses a comma separated key list. Empty or "default" selects
// defaultKeyOrder.
func selectKeyOrder(raw string) []string {
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" && k != "default" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

// selectLevel accepts the slog level names plus "warning". Anything else is INFO.
func selectLevel(raw string) slog.Level {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "warning") {
		raw = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func selectProfile(profile string) string {
	if profile = strings.TrimSpace(profile); profile != "" {
		return strings.ToLower(profile)
	}
	return "prod"
}

// buildOutputs returns stdout plus the optional bot and errors files under
// logging.dir. The errors file only receives WARN and above.
func buildOutputs(cfg *coreconfig.Config) ([]output, []io.Closer, error) {
	outputs := []output{{w: os.Stdout, min: slog.LevelDebug}}
	var closers []io.Closer
	if cfg == nil {
		return outputs, closers, nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	if dir == "" {
		return outputs, closers, nil
	}
	files := []struct {
		name string
		min  slog.Level
	}{
		{strings.TrimSpace(cfg.Logging.BotFile), slog.LevelDebug},
		{strings.TrimSpace(cfg.Logging.ErrorsFile), slog.LevelWarn},
	}
	for _, f := range files {
		if f.name == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, errors.Join(fmt.Errorf("logger: create %s: %w", dir, err), closeAll(closers))
		}
		path := filepath.Join(dir, f.name)
		fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("logger: open %s: %w", path, err), closeAll(closers))
		}
		outputs = append(outputs, output{w: fh, min: f.min})
		closers = append(closers, fh)
	}
	return outputs, closers, nil
}

// Background returns an empty context for log calls made outside an update.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes one event line through logg, or the base logger when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = L
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Event logs event on behalf of component. It is a no-op before InitLogger.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	if L == nil {
		return
	}
	logg := L
	if component = strings.TrimSpace(component); component != "" {
		logg = L.With("component", component)
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// debugSample resolves logging.debug_sample. TRACE or LOG_TRACE in the
// environment disables sampling.
func debugSample(spec string) ratio {
	if isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE")) {
		return ratio{}
	}
	r, ok := parseRatio(spec)
	if !ok {
		return defaultDebugSample
	}
	return r
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether debug details of a high-volume event should be logged.
func ShouldSampleDebug() bool {
	return debugSampler.Load().Allow()
}
