package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore persists raw profile records as JSON blobs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over the given database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// FetchRecord returns the raw record for userCode. An empty userCode
// returns the most recently updated record, if any.
func (s *SQLiteStore) FetchRecord(ctx context.Context, userCode string) (json.RawMessage, error) {
	var record string
	var err error
	if userCode == "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT record FROM profiles ORDER BY updated_at DESC LIMIT 1`,
		).Scan(&record)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT record FROM profiles WHERE user_code = ?`, userCode,
		).Scan(&record)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("failed to fetch profile record: %w", err)
	}
	return json.RawMessage(record), nil
}

// SaveRecord upserts the raw record for userCode. The record must be
// valid JSON; its sub-field encodings are deliberately not normalized
// here, that is the Loader's job at read time.
func (s *SQLiteStore) SaveRecord(ctx context.Context, userCode string, record json.RawMessage) error {
	if !json.Valid(record) {
		return fmt.Errorf("profile record is not valid JSON")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_code, record, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_code) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		userCode, string(record), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile record: %w", err)
	}
	return nil
}
