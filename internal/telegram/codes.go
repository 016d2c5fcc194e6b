package telegram

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CodeStore persists which profile a chat builds menus for, so users
// set their code once with /code and every later request picks it up.
type CodeStore struct {
	db *sql.DB
}

func NewCodeStore(db *sql.DB) *CodeStore {
	return &CodeStore{db: db}
}

// Set binds chatID to userCode, replacing any previous binding.
func (s *CodeStore) Set(ctx context.Context, chatID int64, userCode string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_codes (chat_id, user_code, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			user_code = excluded.user_code,
			updated_at = excluded.updated_at`,
		chatID, userCode, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save chat code: %w", err)
	}
	return nil
}

// Get returns the bound code, or "" when the chat never set one.
func (s *CodeStore) Get(ctx context.Context, chatID int64) (string, error) {
	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_code FROM chat_codes WHERE chat_id = ?`, chatID,
	).Scan(&code)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to fetch chat code: %w", err)
	}
	return code, nil
}

// Clear removes the binding for chatID.
func (s *CodeStore) Clear(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_codes WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to clear chat code: %w", err)
	}
	return nil
}
