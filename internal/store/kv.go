package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akrylysov/pogreb"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/internal/sticker"
)

const (
	prefixSession byte = 's'
	prefixPacks   byte = 'p'
	lockStripes        = 64
)

// KV is a Store over an embedded pogreb database. Pogreb has no merge operator, so
// appends are read-modify-write under a per-user lock.
type KV struct {
	db     *pogreb.DB
	path   string
	locks  [lockStripes]sync.Mutex
	closed atomic.Bool
}

// OpenKV opens or creates the database directory at path.
func OpenKV(path string) (*KV, error) {
	db, err := pogreb.Open(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open pogreb %s: %w", path, err)
	}
	return &KV{db: db, path: path}, nil
}

func kvKey(prefix byte, userID int64) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], uint64(userID))
	return key
}

func (s *KV) lock(userID int64) *sync.Mutex {
	return &s.locks[uint64(userID)%lockStripes]
}

// GetSession returns the user's session and whether it exists.
func (s *KV) GetSession(ctx context.Context, userID int64) (sticker.State, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrUnavailable
	}
	raw, err := s.db.Get(kvKey(prefixSession, userID))
	if err != nil {
		return nil, false, s.fail(ctx, "session.get", userID, err)
	}
	if raw == nil {
		return nil, false, nil
	}
	st, err := decodeSession(raw)
	if err != nil {
		return nil, false, s.fail(ctx, "session.get", userID, err)
	}
	return st, true, nil
}

// SetSession replaces the user's session.
func (s *KV) SetSession(ctx context.Context, userID int64, st sticker.State) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	raw, err := encodeSession(st)
	if err != nil {
		return err
	}
	mu := s.lock(userID)
	mu.Lock()
	defer mu.Unlock()
	if err := s.db.Put(kvKey(prefixSession, userID), raw); err != nil {
		return s.fail(ctx, "session.set", userID, err)
	}
	return nil
}

// DeleteSession removes the session and returns the stored value.
func (s *KV) DeleteSession(ctx context.Context, userID int64) (sticker.State, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrUnavailable
	}
	mu := s.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	key := kvKey(prefixSession, userID)
	raw, err := s.db.Get(key)
	if err != nil {
		return nil, false, s.fail(ctx, "session.delete", userID, err)
	}
	if raw == nil {
		return nil, false, nil
	}
	if err := s.db.Delete(key); err != nil {
		return nil, false, s.fail(ctx, "session.delete", userID, err)
	}
	st, err := decodeSession(raw)
	if err != nil {
		return nil, true, s.fail(ctx, "session.delete", userID, err)
	}
	return st, true, nil
}

// AppendPackName appends name to the user's pack index.
func (s *KV) AppendPackName(ctx context.Context, userID int64, name string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	mu := s.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	key := kvKey(prefixPacks, userID)
	raw, err := s.db.Get(key)
	if err != nil {
		return s.fail(ctx, "packs.append", userID, err)
	}
	names, err := decodeNames(raw)
	if err != nil {
		return s.fail(ctx, "packs.append", userID, err)
	}
	out, err := encodeNames(append(names, name))
	if err != nil {
		return s.fail(ctx, "packs.append", userID, err)
	}
	if err := s.db.Put(key, out); err != nil {
		return s.fail(ctx, "packs.append", userID, err)
	}
	return nil
}

// PackNames returns the user's pack index in insertion order.
func (s *KV) PackNames(ctx context.Context, userID int64) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	raw, err := s.db.Get(kvKey(prefixPacks, userID))
	if err != nil {
		return nil, s.fail(ctx, "packs.list", userID, err)
	}
	names, err := decodeNames(raw)
	if err != nil {
		return nil, s.fail(ctx, "packs.list", userID, err)
	}
	return names, nil
}

// Compact reclaims space taken by overwritten and deleted records.
func (s *KV) Compact(ctx context.Context) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	start := time.Now()
	res, err := s.db.Compact()
	if err != nil {
		return s.fail(ctx, "compact", 0, err)
	}
	logger.Info(ctx, "store", "compact",
		slog.String("driver", "pogreb"),
		slog.Int("segments", res.CompactedSegments),
		slog.Int("reclaimed_records", res.ReclaimedRecords),
		slog.Int("reclaimed_bytes", res.ReclaimedBytes),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Close flushes and closes the database.
func (s *KV) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *KV) fail(ctx context.Context, op string, userID int64, err error) error {
	logger.Error(ctx, "store", op,
		slog.String("driver", "pogreb"),
		slog.String("path", s.path),
		slog.Int64("user_id", userID),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("store: %s: %w", op, err)
}
