package storage

import (
	_ "github.com/mattn/go-sqlite3"

	"calendar-service/internal/config"
)

type SQLiteProvider struct {
	SQLProvider
}

func NewSQLiteProvider(config *config.Storage) *SQLiteProvider {
	// _fk enables foreign key enforcement so cascade deletes work.
	dsn := config.SQLite.Path + "?_fk=1&_loc=UTC"

	sqlProvider := NewSQLProvider(config, "sqlite3", dsn)
	if sqlProvider == nil {
		return nil
	}

	// An in-memory database exists per connection, so the pool must not
	// grow past one.
	if config.SQLite.Path == ":memory:" {
		sqlProvider.db.SetMaxOpenConns(1)
	}

	return &SQLiteProvider{
		SQLProvider: *sqlProvider,
	}
}

func (p *SQLiteProvider) runMigrations() error {
	runner := NewMigrationRunner(p.db.DB, "sqlite3")
	return runner.MigrateUp()
}
