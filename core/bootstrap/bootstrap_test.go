package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/stickerbot/core/config"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunOpensStorageAfterLogger(t *testing.T) {
	var order []string
	res, err := Run(context.Background(), Options[string]{
		Config: &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error {
			order = append(order, "logger")
			return nil
		},
		Open: func(context.Context) (string, error) {
			order = append(order, "open")
			return "db", nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "db", res.Storage)
	assert.Equal(t, []string{"logger", "open"}, order)
}

func TestRunFailures(t *testing.T) {
	ctx := context.Background()
	_, err := Run(ctx, Options[int]{Open: func(context.Context) (int, error) { return 0, nil }})
	assert.Error(t, err)

	_, err = Run(ctx, Options[int]{Config: &coreconfig.Config{}, LoggerInit: noLogger})
	assert.Error(t, err)

	boom := errors.New("disk full")
	_, err = Run(ctx, Options[int]{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
		Open:       func(context.Context) (int, error) { return 1, nil },
	})
	assert.ErrorIs(t, err, boom)

	_, err = Run(ctx, Options[int]{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Open:       func(context.Context) (int, error) { return 0, boom },
	})
	assert.ErrorIs(t, err, boom)
}
