package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/stickerbot/core/config"
	"github.com/m3rciful/stickerbot/core/database"
	"github.com/m3rciful/stickerbot/core/telegram/inbox"
	"github.com/m3rciful/stickerbot/internal/store"
)

const (
	defaultDataDir         = "data"
	defaultCompactInterval = time.Hour
)

// StorageConfig selects the session and pack index backend.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Path   string `yaml:"path" envconfig:"STORAGE_PATH"`
	// CompactIntervalMinutes schedules backend maintenance; 0 -> hourly, < 0 -> off.
	CompactIntervalMinutes int `yaml:"compact_interval_minutes" envconfig:"STORAGE_COMPACT_INTERVAL_MINUTES"`
}

// InboxConfig sizes the per-user update queues.
type InboxConfig struct {
	QueueSize          int `yaml:"queue_size" envconfig:"INBOX_QUEUE_SIZE"`
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds" envconfig:"INBOX_IDLE_TIMEOUT_SECONDS"`
}

// MediaConfig bounds downloads.
type MediaConfig struct {
	MaxBytes int64 `yaml:"max_bytes" envconfig:"MEDIA_MAX_BYTES"`
}

// Config is the full bot configuration: the shared core plus storage, queue
// and media sections.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage  StorageConfig   `yaml:"storage"`
	Database database.Config `yaml:"database"`
	Inbox    InboxConfig     `yaml:"inbox"`
	Media    MediaConfig     `yaml:"media"`
}

// CoreConfig exposes the shared part to the core runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if driver == "" {
		driver = store.BackendSQLite
	}
	switch driver {
	case store.BackendSQLite:
		if c.Storage.Path == "" {
			c.Storage.Path = filepath.Join(defaultDataDir, "stickers.db")
		}
	case store.BackendPogreb:
		if c.Storage.Path == "" {
			c.Storage.Path = filepath.Join(defaultDataDir, "stickers.pogreb")
		}
	case store.BackendPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres storage driver")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case store.BackendMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: sqlite, postgres, pogreb, memory", c.Storage.Driver)
	}
	c.Storage.Driver = driver

	if c.Inbox.QueueSize < 0 {
		return fmt.Errorf("inbox.queue_size must be >= 0")
	}
	if c.Inbox.IdleTimeoutSeconds < 0 {
		return fmt.Errorf("inbox.idle_timeout_seconds must be >= 0")
	}
	if c.Media.MaxBytes < 0 {
		return fmt.Errorf("media.max_bytes must be >= 0")
	}
	return nil
}

// StoreOptions maps the storage section onto store.Open options.
func (c *Config) StoreOptions(migrate bool) store.Options {
	return store.Options{
		Backend:  c.Storage.Driver,
		Path:     c.Storage.Path,
		Database: c.Database,
		Migrate:  migrate,
	}
}

// InboxOptions maps the inbox section onto inbox.New options.
func (c *Config) InboxOptions() inbox.Options {
	return inbox.Options{
		QueueSize:   c.Inbox.QueueSize,
		IdleTimeout: time.Duration(c.Inbox.IdleTimeoutSeconds) * time.Second,
	}
}

// CompactInterval returns how often to run store maintenance; 0 disables it.
func (c *Config) CompactInterval() time.Duration {
	switch m := c.Storage.CompactIntervalMinutes; {
	case m < 0:
		return 0
	case m == 0:
		return defaultCompactInterval
	default:
		return time.Duration(m) * time.Minute
	}
}
