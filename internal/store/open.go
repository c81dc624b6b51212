package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/m3rciful/stickerbot/core/database"
	"github.com/m3rciful/stickerbot/migrations"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendPogreb   = "pogreb"
	BackendMemory   = "memory"
)

// Options selects and locates a backend.
type Options struct {
	Backend  string
	Path     string
	Database database.Config
	// Migrate applies the embedded schema before SQL backends are used.
	Migrate bool
}

// Open constructs the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendPogreb:
		return OpenKV(opts.Path)
	case "", BackendSQLite:
		cfg := opts.Database
		cfg.Driver = database.DriverSQLite
		cfg.Path = opts.Path
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create dir %s: %w", dir, err)
			}
		}
		return openSQL(ctx, cfg, opts.Migrate)
	case BackendPostgres:
		cfg := opts.Database
		cfg.Driver = database.DriverPostgres
		return openSQL(ctx, cfg, opts.Migrate)
	}
	return nil, fmt.Errorf("store: unknown backend %q", opts.Backend)
}

// Migrate applies the embedded schema for cfg's driver.
func Migrate(ctx context.Context, cfg database.Config) error {
	src, err := migrations.For(cfg.DriverName())
	if err != nil {
		return err
	}
	return database.RunMigrations(ctx, cfg, src)
}

func openSQL(ctx context.Context, cfg database.Config, migrate bool) (*SQL, error) {
	if migrate {
		if err := Migrate(ctx, cfg); err != nil {
			return nil, fmt.Errorf("store: migrate: %w", err)
		}
	}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return NewSQL(db), nil
}
