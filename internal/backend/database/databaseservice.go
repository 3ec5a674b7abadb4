package database

import (
	"context"
	"database/sql"
)

// DatabaseService persists prediction entries. Entries are append-only.
type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// CreateEntry inserts a row in its own transaction and returns it with id and timestamp assigned.
	CreateEntry(ctx context.Context, entry NewEntry) (*Entry, error)
	// GetEntriesBySession returns the entries of a session ordered by id; empty if there are none.
	GetEntriesBySession(ctx context.Context, sessionID string) ([]*Entry, error)
	// GetEntry returns nil, nil when no entry matches both session and id.
	GetEntry(ctx context.Context, sessionID string, id int64) (*Entry, error)
	HasEntries(ctx context.Context, sessionID string) (bool, error)
}
