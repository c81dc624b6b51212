package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/stickerbot/internal/sticker"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"sqlite", func(t *testing.T) Store {
			s, err := Open(context.Background(), Options{
				Backend: BackendSQLite,
				Path:    filepath.Join(t.TempDir(), "store.db"),
				Migrate: true,
			})
			require.NoError(t, err)
			return s
		}},
		{"pogreb", func(t *testing.T) Store {
			s, err := Open(context.Background(), Options{
				Backend: BackendPogreb,
				Path:    filepath.Join(t.TempDir(), "kv"),
			})
			require.NoError(t, err)
			return s
		}},
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func sampleStates() []sticker.State {
	title := "Cats"
	img := []byte{1, 2, 3, 4}
	return []sticker.State{
		sticker.Idle{},
		sticker.AwaitingName{Target: sticker.Existing},
		sticker.AwaitingSticker{Target: sticker.New, Name: "cats_by_bot"},
		sticker.AwaitingEmojis{Target: sticker.Existing, Name: "cats_by_bot", Image: img, Emojis: "😀"},
		sticker.AwaitingTitle{Name: "cats_by_bot", Image: img, Emojis: "😀", Title: "Cats"},
		sticker.ReadyToPublish{Target: sticker.New, OwnerID: 9, Name: "cats_by_bot", Image: img, Emojis: "😀", Title: &title},
		sticker.ReadyToPublish{Target: sticker.Existing, OwnerID: 9, Name: "cats_by_bot", Image: img, Emojis: "😀"},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i, st := range sampleStates() {
			uid := int64(100 + i)
			require.NoError(t, s.SetSession(ctx, uid, st))
			got, ok, err := s.GetSession(ctx, uid)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, st, got, sticker.Kind(st))
		}
	})
}

func TestSessionMissingAndDelete(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, ok, err := s.GetSession(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = s.DeleteSession(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		st := sticker.AwaitingSticker{Target: sticker.New, Name: "x_by_bot"}
		require.NoError(t, s.SetSession(ctx, 1, st))
		require.NoError(t, s.SetSession(ctx, 1, sticker.Start(sticker.Existing)))

		prev, ok, err := s.DeleteSession(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, sticker.Start(sticker.Existing), prev)

		_, ok, err = s.GetSession(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SetSession(ctx, 1, sticker.Start(sticker.New)))
		require.NoError(t, s.SetSession(ctx, 2, sticker.Start(sticker.Existing)))
		_, _, err := s.DeleteSession(ctx, 1)
		require.NoError(t, err)

		got, ok, err := s.GetSession(ctx, 2)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, sticker.Start(sticker.Existing), got)
	})
}

func TestPackIndexKeepsOrderAndDuplicates(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		names, err := s.PackNames(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, names)

		for _, n := range []string{"b_by_bot", "a_by_bot", "b_by_bot"} {
			require.NoError(t, s.AppendPackName(ctx, 5, n))
		}
		require.NoError(t, s.AppendPackName(ctx, 6, "other_by_bot"))

		names, err = s.PackNames(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"b_by_bot", "a_by_bot", "b_by_bot"}, names)
	})
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	const writers = 40
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.AppendPackName(ctx, 77, fmt.Sprintf("p%d_by_bot", i))
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		names, err := s.PackNames(ctx, 77)
		require.NoError(t, err)
		require.Len(t, names, writers)
		want := make([]string, 0, writers)
		for i := 0; i < writers; i++ {
			want = append(want, fmt.Sprintf("p%d_by_bot", i))
		}
		assert.ElementsMatch(t, want, names)
	})
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Close())
		_, _, err := s.GetSession(ctx, 1)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorIs(t, s.AppendPackName(ctx, 1, "x"), ErrUnavailable)
		require.NoError(t, s.Close())
	})
}

func TestCompact(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		c, ok := s.(Compacter)
		if !ok {
			t.Skip("backend has no maintenance")
		}
		ctx := context.Background()
		require.NoError(t, s.SetSession(ctx, 1, sticker.Start(sticker.New)))
		_, _, err := s.DeleteSession(ctx, 1)
		require.NoError(t, err)
		assert.NoError(t, c.Compact(ctx))
	})
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "redis"})
	assert.Error(t, err)
}

func TestKVKeyLayout(t *testing.T) {
	assert.Equal(t, []byte{'s', 0, 0, 0, 0, 0, 0, 0x01, 0x02}, kvKey(prefixSession, 0x0102))
	assert.Equal(t, byte('p'), kvKey(prefixPacks, 7)[0])
	assert.Less(t, string(kvKey(prefixPacks, 255)), string(kvKey(prefixPacks, 256)), "keys sort by user id")
}
