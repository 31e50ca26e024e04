package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jollyunion/unionkeeper/internal/domain"

	_ "modernc.org/sqlite"
)

var (
	_ domain.TemplateRepository = (*TemplateRepository)(nil)
	_ domain.GroupRepository    = (*GroupRepository)(nil)
	_ domain.TopicRepository    = (*TopicRepository)(nil)
)

// Open opens the SQLite database at path, creating its directory if needed,
// and brings the schema up to date. The caller closes both the queue and db.
func Open(path string) (*sql.DB, *DBQueue, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and matches the queue
	db.SetMaxOpenConns(1)

	queue := NewDBQueue(db)

	if err := InitSchema(queue); err != nil {
		queue.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := RunMigrations(queue); err != nil {
		queue.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, queue, nil
}
