package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is how date_created is stored; always UTC.
const timeLayout = "2006-01-02 15:04:05.000000"

const entryColumns = `id, uuid, image, segments, percentage, most_significant_detection, most_significant_area, date_created`

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	now              func() time.Time
}

func NewSQLiteDatabase(connectionString string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		now:              time.Now,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL,
		image TEXT NOT NULL,
		segments TEXT NOT NULL,
		percentage INTEGER,
		most_significant_detection TEXT,
		most_significant_area INTEGER NOT NULL DEFAULT 0,
		date_created TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_uuid ON entries(uuid);
	`)
	if err != nil {
		return nil, err
	}

	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreateEntry(ctx context.Context, entry NewEntry) (*Entry, error) {
	created := s.now().UTC().Truncate(time.Microsecond)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after a successful commit
	}()

	var percentage sql.NullInt64
	if entry.Percentage != nil {
		percentage = sql.NullInt64{Int64: int64(*entry.Percentage), Valid: true}
	}
	var detection sql.NullString
	if entry.MostSignificantDetection != nil {
		detection = sql.NullString{String: *entry.MostSignificantDetection, Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO entries (uuid, image, segments, percentage, most_significant_detection, most_significant_area, date_created)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.SessionID, entry.Image, entry.Segments, percentage, detection, entry.MostSignificantArea, created.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read entry id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit entry: %w", err)
	}

	return &Entry{
		ID:                       id,
		SessionID:                entry.SessionID,
		Image:                    entry.Image,
		Segments:                 entry.Segments,
		Percentage:               entry.Percentage,
		MostSignificantDetection: entry.MostSignificantDetection,
		MostSignificantArea:      entry.MostSignificantArea,
		DateCreated:              created,
	}, nil
}

func (s *SQLiteDatabase) GetEntriesBySession(ctx context.Context, sessionID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE uuid = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	entries := make([]*Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteDatabase) GetEntry(ctx context.Context, sessionID string, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE uuid = ? AND id = ?`, sessionID, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *SQLiteDatabase) HasEntries(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM entries WHERE uuid = ?)`, sessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check entries: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry      Entry
		percentage sql.NullInt64
		detection  sql.NullString
		created    string
	)
	err := row.Scan(&entry.ID, &entry.SessionID, &entry.Image, &entry.Segments,
		&percentage, &detection, &entry.MostSignificantArea, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	if percentage.Valid {
		p := int(percentage.Int64)
		entry.Percentage = &p
	}
	if detection.Valid {
		d := detection.String
		entry.MostSignificantDetection = &d
	}
	entry.DateCreated, err = time.ParseInLocation(timeLayout, created, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date_created %q: %w", created, err)
	}
	return &entry, nil
}
