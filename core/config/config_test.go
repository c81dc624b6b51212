package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valid() *Config {
	return &Config{Telegram: TelegramConfig{Token: "123:abc", AdminID: 42}}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := valid()
	cfg.Telegram.BotName = " @pack_bot "
	cfg.RateLimit.ExcludeUpdates = []string{" Other "}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "pack_bot", cfg.Telegram.BotName)
	assert.Equal(t, []string{"other"}, cfg.RateLimit.ExcludeUpdates)

	cfg = valid()
	cfg.Telegram.RunMode = "Polling"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"no token":          func(c *Config) { c.Telegram.Token = "" },
		"no admin":          func(c *Config) { c.Telegram.AdminID = 0 },
		"bad run mode":      func(c *Config) { c.Telegram.RunMode = "carrier-pigeon" },
		"webhook no url":    func(c *Config) { c.Telegram.RunMode = RunModeWebhook },
		"negative timeout":  func(c *Config) { c.Telegram.LongPollTimeoutSeconds = -1 },
		"negative interval": func(c *Config) { c.RateLimit.IntervalMS = -5 },
		"bad exclusion":     func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"callback"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, Normalize(cfg))
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestLoadOverlaysEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: from-file
  admin_id: 7
  run_mode: longpoll
rate_limit:
  interval_ms: 250
`), 0o600))
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("BOT_NAME", "pack_bot")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "pack_bot", cfg.Telegram.BotName)
	assert.Equal(t, int64(7), cfg.Telegram.AdminID)
	assert.Equal(t, 250, cfg.RateLimit.IntervalMS)
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir on Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
