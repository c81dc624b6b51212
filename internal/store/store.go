// Package store persists conversation sessions and the per-user index of known packs.
package store

import (
	"context"
	"errors"

	"github.com/m3rciful/stickerbot/internal/sticker"
)

var (
	// ErrUnavailable is returned by a store that has been closed.
	ErrUnavailable = errors.New("store: unavailable")
	// ErrCorrupt is returned when a stored session cannot be decoded.
	ErrCorrupt = errors.New("store: corrupt session")
)

// Store keeps one session per user and an append-only list of pack names.
// Each call is atomic for its key.
type Store interface {
	// GetSession returns the user's session and whether it exists.
	GetSession(ctx context.Context, userID int64) (sticker.State, bool, error)
	// SetSession creates or replaces the user's session.
	SetSession(ctx context.Context, userID int64, st sticker.State) error
	// DeleteSession removes the session and returns what was stored.
	DeleteSession(ctx context.Context, userID int64) (sticker.State, bool, error)
	// AppendPackName adds name to the end of the user's pack index. Concurrent
	// appends for the same user are never lost.
	AppendPackName(ctx context.Context, userID int64, name string) error
	// PackNames returns the user's pack index in insertion order.
	PackNames(ctx context.Context, userID int64) ([]string, error)
	Close() error
}

// Compacter is implemented by backends that benefit from periodic maintenance.
type Compacter interface {
	Compact(ctx context.Context) error
}
