// Package migrations embeds the SQL schema for every supported database driver.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// For returns the migration files of driver rooted at the driver directory.
func For(driver string) (fs.FS, error) {
	sub, err := fs.Sub(files, driver)
	if err != nil {
		return nil, fmt.Errorf("migrations for %q: %w", driver, err)
	}
	if _, err := fs.Stat(sub, "."); err != nil {
		return nil, fmt.Errorf("migrations for %q: %w", driver, err)
	}
	return sub, nil
}
