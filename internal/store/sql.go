package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/stickerbot/core/database"
	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/internal/sticker"
)

const (
	qGetSession = `SELECT payload FROM sticker_sessions WHERE user_id = ?`
	qSetSession = `INSERT INTO sticker_sessions (user_id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	qDeleteSession = `DELETE FROM sticker_sessions WHERE user_id = ? RETURNING payload`
	qAppendPack    = `INSERT INTO known_packs (user_id, name) VALUES (?, ?)`
	qPackNames     = `SELECT name FROM known_packs WHERE user_id = ? ORDER BY id`
)

// SQL is a Store over postgres or sqlite. Pack appends are single INSERTs so the
// database orders concurrent writers.
type SQL struct {
	db     *sqlx.DB
	driver string
	closed atomic.Bool
}

// NewSQL wraps an open connection whose schema is already migrated. The store owns db.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db, driver: db.DriverName()}
}

// GetSession returns the user's session and whether it exists.
func (s *SQL) GetSession(ctx context.Context, userID int64) (sticker.State, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrUnavailable
	}
	var payload []byte
	err := s.db.GetContext(ctx, &payload, s.db.Rebind(qGetSession), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail(ctx, "session.get", userID, err)
	}
	st, err := decodeSession(payload)
	if err != nil {
		return nil, false, s.fail(ctx, "session.get", userID, err)
	}
	return st, true, nil
}

// SetSession upserts the user's session.
func (s *SQL) SetSession(ctx context.Context, userID int64, st sticker.State) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	payload, err := encodeSession(st)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(qSetSession), userID, payload); err != nil {
		return s.fail(ctx, "session.set", userID, err)
	}
	return nil
}

// DeleteSession removes the session and returns the stored value.
func (s *SQL) DeleteSession(ctx context.Context, userID int64) (sticker.State, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrUnavailable
	}
	var payload []byte
	err := s.db.GetContext(ctx, &payload, s.db.Rebind(qDeleteSession), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail(ctx, "session.delete", userID, err)
	}
	st, err := decodeSession(payload)
	if err != nil {
		return nil, true, s.fail(ctx, "session.delete", userID, err)
	}
	return st, true, nil
}

// AppendPackName inserts name at the end of the user's pack index.
func (s *SQL) AppendPackName(ctx context.Context, userID int64, name string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(qAppendPack), userID, name); err != nil {
		return s.fail(ctx, "packs.append", userID, err)
	}
	return nil
}

// PackNames returns the user's pack index in insertion order.
func (s *SQL) PackNames(ctx context.Context, userID int64) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	var names []string
	if err := s.db.SelectContext(ctx, &names, s.db.Rebind(qPackNames), userID); err != nil {
		return nil, s.fail(ctx, "packs.list", userID, err)
	}
	return names, nil
}

// Compact refreshes planner statistics.
func (s *SQL) Compact(ctx context.Context) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	stmt := "ANALYZE"
	if s.driver == database.DriverSQLite {
		stmt = "PRAGMA optimize"
	}
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return s.fail(ctx, "compact", 0, err)
	}
	logger.Info(ctx, "store", "compact",
		slog.String("driver", s.driver),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Close closes the underlying connection pool.
func (s *SQL) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQL) fail(ctx context.Context, op string, userID int64, err error) error {
	logger.Error(ctx, "store", op,
		slog.String("driver", s.driver),
		slog.Int64("user_id", userID),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("store: %s: %w", op, err)
}
