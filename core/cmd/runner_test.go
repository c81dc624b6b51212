package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/stickerbot/core/config"
	coretelegram "github.com/m3rciful/stickerbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct {
	opts coretelegram.RunOptions
	err  error
}

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, a.err }

type closingApp struct {
	app
	calls *[]string
}

func (a closingApp) Close() error {
	*a.calls = append(*a.calls, "close")
	return nil
}

func TestRunWrapsLifecycleHooks(t *testing.T) {
	var calls []string
	var loadedFrom string
	err := Run(Options{
		ConfigPath: "explicit.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedFrom = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return app{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error {
					calls = append(calls, "start")
					return nil
				},
				OnStop: func(context.Context, coretelegram.Runtime) error {
					calls = append(calls, "stop")
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error {
			calls = append(calls, "logger")
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "explicit.yaml", loadedFrom)
	assert.Equal(t, []string{"start", "stop", "logger"}, calls)
}

func TestRunClosesAppWhenBotFails(t *testing.T) {
	var calls []string
	boom := errors.New("unauthorized")
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return closingApp{calls: &calls}, nil
		},
		ShutdownLogger: func() error {
			calls = append(calls, "logger")
			return nil
		},
		RunTelegram: func(context.Context, coretelegram.RunOptions) error { return boom },
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"close", "logger"}, calls)
}

func TestRunConfigErrors(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.Error(t, err)

	boom := errors.New("no such file")
	err = Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return nil, boom },
		Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.ErrorIs(t, err, boom)

	err = Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.Error(t, err)

	assert.Error(t, Run(Options{}))
}
