package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
)

const fileSourceScheme = "file://"

// migrationSource turns a directory such as migrations/postgres into a
// golang-migrate source URL. Paths that already carry a scheme are kept.
func migrationSource(migrationsPath string) (string, error) {
	path := strings.TrimSpace(migrationsPath)
	if path == "" || path == fileSourceScheme {
		return "", errors.New("migrations path cannot be empty")
	}
	if strings.Contains(path, "://") {
		return path, nil
	}
	return fileSourceScheme + path, nil
}

// RunMigrations applies every pending up migration to the database at databaseURL
func RunMigrations(databaseURL string, migrationsPath string) error {
	sourceURL, err := migrationSource(migrationsPath)
	if err != nil {
		return err
	}
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, _ := m.Version()
		return fmt.Errorf("failed to apply migrations (version %d, dirty %t): %w", version, dirty, err)
	}
	return nil
}
