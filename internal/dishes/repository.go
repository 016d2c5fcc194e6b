package dishes

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository is a database-backed store for dishes. The full dish
// lives as JSON in the data column; title and source URL are lifted
// into columns for listing without decoding.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts or updates a dish.
func (r *Repository) Save(ctx context.Context, d *Dish) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal dish: %w", err)
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dishes (id, title, source_url, data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, source_url = excluded.source_url, data = excluded.data`,
		d.ID, d.Title, d.SourceURL, string(data), createdAt)
	if err != nil {
		return fmt.Errorf("failed to save dish: %w", err)
	}
	return nil
}

// Get retrieves a dish by ID. Returns nil when not found.
func (r *Repository) Get(ctx context.Context, id string) (*Dish, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM dishes WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dish by ID: %w", err)
	}
	var d Dish
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dish %s: %w", id, err)
	}
	return &d, nil
}

// GetByIDs retrieves multiple dishes preserving the order of ids.
// Missing ids are skipped.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) ([]Dish, error) {
	var out []Dish
	for _, id := range ids {
		d, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

// List returns dishes newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Dish, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM dishes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	defer rows.Close()

	var out []Dish
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan dish row: %w", err)
		}
		var d Dish
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Count returns the number of stored dishes.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dishes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dishes: %w", err)
	}
	return count, nil
}
