package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Repository interface {
	Save(ctx context.Context, e *Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Save(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO feedback (id, session_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			rating = $3,
			comment = $4
	`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.SessionID, e.Rating, e.Comment, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

func (r *postgresRepo) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, session_id, rating, comment, created_at FROM feedback ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Rating, &e.Comment, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// memoryRepo keeps feedback in process when no database is configured.
type memoryRepo struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryRepository() Repository {
	return &memoryRepo{}
}

func (r *memoryRepo) Save(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == e.ID {
			r.entries[i] = *e
			return nil
		}
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *memoryRepo) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	r.mu.RLock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
