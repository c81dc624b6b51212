package store

import (
	"context"
	"sync"

	"github.com/m3rciful/stickerbot/internal/sticker"
)

type memoryStore struct {
	mu       sync.RWMutex
	closed   bool
	sessions map[int64][]byte
	packs    map[int64][]string
}

// NewMemory constructs an in-memory Store for tests and development. Sessions go
// through the same codec as the persistent backends.
func NewMemory() Store {
	return &memoryStore{
		sessions: make(map[int64][]byte),
		packs:    make(map[int64][]string),
	}
}

// GetSession returns the decoded session for a user if it exists.
func (m *memoryStore) GetSession(_ context.Context, userID int64) (sticker.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrUnavailable
	}
	raw, ok := m.sessions[userID]
	if !ok {
		return nil, false, nil
	}
	st, err := decodeSession(raw)
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// SetSession replaces the user's session.
func (m *memoryStore) SetSession(_ context.Context, userID int64, st sticker.State) error {
	raw, err := encodeSession(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrUnavailable
	}
	m.sessions[userID] = raw
	return nil
}

// DeleteSession removes the user's session and returns the previous value.
func (m *memoryStore) DeleteSession(_ context.Context, userID int64) (sticker.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrUnavailable
	}
	raw, ok := m.sessions[userID]
	if !ok {
		return nil, false, nil
	}
	delete(m.sessions, userID)
	st, err := decodeSession(raw)
	if err != nil {
		return nil, true, err
	}
	return st, true, nil
}

// AppendPackName appends name to the user's pack index.
func (m *memoryStore) AppendPackName(_ context.Context, userID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrUnavailable
	}
	m.packs[userID] = append(m.packs[userID], name)
	return nil
}

// PackNames returns a copy of the user's pack index.
func (m *memoryStore) PackNames(_ context.Context, userID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrUnavailable
	}
	names := m.packs[userID]
	if len(names) == 0 {
		return nil, nil
	}
	return append([]string(nil), names...), nil
}

// Close marks the store unavailable.
func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
