package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSQLiteTargets(t *testing.T) {
	cfg := Config{Driver: "SQLite", Path: "/var/lib/bot/stickers.db"}
	assert.Equal(t, DriverSQLite, cfg.DriverName())
	assert.Equal(t, "file:/var/lib/bot/stickers.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DSN())
	assert.Equal(t, "sqlite:///var/lib/bot/stickers.db", cfg.MigrateURL())
	assert.Equal(t, "/var/lib/bot/stickers.db", cfg.Target())
}

func TestPostgresTargets(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "stickers", SSLMode: "disable"}
	assert.Equal(t, DriverPostgres, cfg.DriverName())
	assert.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=stickers sslmode=disable", cfg.DSN())
	assert.Equal(t, "postgres://bot:p%40ss@db:5432/stickers?sslmode=disable", cfg.MigrateURL())
	assert.Equal(t, "db:5432/stickers", cfg.Target())
	assert.NotContains(t, cfg.Target(), "p@ss")
}
