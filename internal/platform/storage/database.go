package storage

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"worklog-server-go/internal/platform/errors"
	"worklog-server-go/internal/platform/storage/migrations"
)

// Database is the dependency-injected handle over the durable store. It is
// constructed once during bootstrap and passed to every component that needs
// record access; there is no package-level instance.
type Database struct {
	db *gorm.DB
}

// Open creates the SQLite database, applies migrations, and returns the handle.
func Open(dsn string) (*Database, error) {
	if dsn == "" {
		dsn = "data/worklog.db"
	}
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "open", "failed to create data directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "open", "failed to open database", err)
	}

	handle := &Database{db: db}
	if err := handle.migrate(); err != nil {
		return nil, err
	}
	return handle, nil
}

// OpenInMemory creates a throwaway database for tests.
func OpenInMemory() (*Database, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "open", "failed to open in-memory database", err)
	}

	handle := &Database{db: db}
	if err := handle.migrate(); err != nil {
		return nil, err
	}
	return handle, nil
}

func (d *Database) migrate() error {
	// AutoMigrate keeps schemas current for columns added after a migration
	// shipped; the versioned migrations own table creation.
	if err := d.db.AutoMigrate(
		&UserAccount{},
		&SessionRecord{},
		&LoginAttemptRecord{},
		&AuditEventRecord{},
	); err != nil {
		return errors.Wrap(errors.KindStorage, "migrate", "auto migration failed", err)
	}

	manager := NewMigrationManager(d.db)
	manager.AddMigration(&migrations.Migration001Initial{})
	if err := manager.RunMigrations(); err != nil {
		return err
	}
	return nil
}

// Gorm exposes the underlying gorm handle for repository implementations.
func (d *Database) Gorm() *gorm.DB {
	return d.db
}

// Close releases the underlying sqlite connection.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return errors.Wrap(errors.KindStorage, "close", "failed to resolve sql handle", err)
	}
	return sqlDB.Close()
}
