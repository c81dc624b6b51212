package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "config.yaml")
	body := "telegram:\n  token: \"123:abc\"\n  admin_id: 42\n  bot_name: pack_bot\n" +
		"storage:\n  driver: sqlite\n  path: " + filepath.Join(dir, "stickers.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPacksAddAndList(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "packs", "add", "cats_by_pack_bot")
	require.NoError(t, err)
	assert.Contains(t, out, "added cats_by_pack_bot for user 42")

	_, err = run(t, "--config", cfg, "packs", "add", "--user", "7", "dogs_by_pack_bot")
	require.NoError(t, err)

	out, err = run(t, "--config", cfg, "packs", "list")
	require.NoError(t, err)
	assert.Equal(t, "cats_by_pack_bot\thttps://t.me/addstickers/cats_by_pack_bot\n", out)
}

func TestPacksAddRejectsForeignPack(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "--config", cfg, "packs", "add", "cats_by_other_bot")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready (sqlite)")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "migrate")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stickerbot dev")
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
