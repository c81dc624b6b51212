package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders each record as one line with a fixed key order.
// Attributes given to WithAttrs are flattened when they are added.
type structuredHandler struct {
	cfg    handlerConfig
	group  string
	preset fields
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	f := make(fields, len(h.preset)+r.NumAttrs()+8)
	maps.Copy(f, h.preset)
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.group, a)
		return true
	})
	f.addRequest(RequestFrom(ctx))

	isJSON := h.cfg.format == formatJSON
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	f["level"] = normalizeLevel(r.Level.String())
	if isJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	f.compactRID(isJSON)
	f.setDefault("event", r.Message)
	f.setDefault("event", "unknown")
	f.setDefault("component", "app")
	f.normalizeEnums()
	f.prune()

	line, err := h.encode(f)
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(r.Level, append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.preset = make(fields, len(h.preset)+len(attrs))
	maps.Copy(clone.preset, h.preset)
	for _, a := range attrs {
		clone.preset.add(h.group, a)
	}
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

func (h *structuredHandler) encode(f fields) ([]byte, error) {
	keys := orderedKeys(f, h.cfg.keyOrder)
	var b bytes.Buffer
	if h.cfg.format != formatJSON {
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(kvValue(f[k]))
		}
		return b.Bytes(), nil
	}
	b.WriteByte('{')
	for i, k := range keys {
		v, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// orderedKeys lists the keys named in order first, then the rest sorted.
func orderedKeys(f fields, order []string) []string {
	keys := make([]string, 0, len(f))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := f[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := len(keys)
	for k := range f {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[rest:])
	return keys
}

func kvValue(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

// fields holds the flattened attributes of one line. Values are strings,
// bools or numbers.
type fields map[string]any

var enumFields = map[string]map[string]string{
	"status": allowedStatus,
	"target": allowedTarget,
	"driver": allowedDriver,
}

func (f fields) add(group string, a slog.Attr) {
	key := a.Key
	if key == "" {
		key = group
	} else {
		key = joinKey(group, key)
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if key, val, ok := plainValue(key, v); ok {
		f[key] = val
	}
}

func (f fields) addRequest(r Request) {
	f.setDefault("rid", r.RID)
	f.setDefault("update_id", int64(r.UpdateID))
	f.setDefault("user_id", r.UserID)
	f.setDefault("chat_id", r.ChatID)
	f.setDefault("handler", r.Handler)
	f.setDefault("state", r.State)
}

// setDefault stores v unless key already holds a non-zero value. Zero values
// are never stored.
func (f fields) setDefault(key string, v any) {
	if cur, ok := f[key]; ok && !isZero(cur) {
		return
	}
	if !isZero(v) {
		f[key] = v
	}
}

func (f fields) str(key string) string {
	s, _ := f[key].(string)
	return s
}

// compactRID shortens the rid. JSON lines also keep the original as rid_full.
func (f fields) compactRID(keepFull bool) {
	rid := f.str("rid")
	compact := CompactRID(rid)
	if compact == "" || compact == rid {
		return
	}
	if keepFull {
		f.setDefault("rid_full", rid)
	}
	f["rid"] = compact
}

func (f fields) normalizeEnums() {
	for key, allowed := range enumFields {
		if v := f.str(key); v != "" {
			f[key], _ = normalizeEnum(allowed, v)
		}
	}
}

func (f fields) prune() {
	for k, v := range f {
		if v == nil || v == "" {
			delete(f, k)
		}
	}
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int64:
		return x == 0
	}
	return false
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

// plainValue converts v to a JSON friendly value. Durations are written in
// milliseconds under a key ending in _ms.
func plainValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case string:
		return key, strings.TrimSpace(x), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// durationKey renames duration attributes so the unit is part of the key.
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}
