package menu

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one persisted build, the menu with its summed tracks.
type Record struct {
	ID         string      `json:"id"`
	UserCode   string      `json:"user_code"`
	Menu       Menu        `json:"menu"`
	TotalsMain MacroTotals `json:"totals_main"`
	TotalsAlt  MacroTotals `json:"totals_alt"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Repository stores finished menus.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, userCode string, result *BuildResult) (string, error) {
	menuJSON, err := json.Marshal(result.Menu)
	if err != nil {
		return "", fmt.Errorf("failed to marshal menu: %w", err)
	}
	mainJSON, err := json.Marshal(result.TotalsMain)
	if err != nil {
		return "", fmt.Errorf("failed to marshal totals: %w", err)
	}
	altJSON, err := json.Marshal(result.TotalsAlt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal totals: %w", err)
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO menus (id, user_code, menu_data, totals_main, totals_alt, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, userCode, string(menuJSON), string(mainJSON), string(altJSON), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to save menu: %w", err)
	}
	return id, nil
}

// ListRecent returns the newest menus first. An empty user code means
// any user.
func (r *Repository) ListRecent(ctx context.Context, userCode string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, user_code, menu_data, totals_main, totals_alt, created_at
		FROM menus`
	args := []any{}
	if userCode != "" {
		query += ` WHERE user_code = ?`
		args = append(args, userCode)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query menus: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec      Record
			menuJSON string
			mainJSON string
			altJSON  string
		)
		if err := rows.Scan(&rec.ID, &rec.UserCode, &menuJSON, &mainJSON, &altJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu row: %w", err)
		}
		if err := json.Unmarshal([]byte(menuJSON), &rec.Menu); err != nil {
			return nil, fmt.Errorf("failed to unmarshal menu %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(mainJSON), &rec.TotalsMain); err != nil {
			return nil, fmt.Errorf("failed to unmarshal totals of menu %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(altJSON), &rec.TotalsAlt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal totals of menu %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
