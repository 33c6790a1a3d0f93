package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lewtec/imgserver/internal/domain"
)

// StateInfo describes a saved state without loading it
type StateInfo struct {
	Process string
	Size    int64
	SavedAt time.Time
}

// StateRepository implements domain.StateRepository on a sqlite table,
// one row per process
type StateRepository struct {
	db      *sql.DB
	process string
	now     func() time.Time
}

// NewStateRepository creates a StateRepository for the given process
func NewStateRepository(db *sql.DB, process string) *StateRepository {
	return &StateRepository{db: db, process: process, now: time.Now}
}

// Load returns the saved state or domain.ErrNoState
func (r *StateRepository) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, "SELECT data FROM process_state WHERE process = ?", r.process).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoState
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Save replaces the saved state
func (r *StateRepository) Save(ctx context.Context, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO process_state (process, data, size, saved_at) VALUES (?, ?, ?, ?)
ON CONFLICT(process) DO UPDATE SET data=excluded.data, size=excluded.size, saved_at=excluded.saved_at
`, r.process, data, len(data), r.now().Unix())
	return err
}

// Stat returns metadata about the saved state or domain.ErrNoState
func (r *StateRepository) Stat(ctx context.Context) (*StateInfo, error) {
	var size, savedAt int64
	err := r.db.QueryRowContext(ctx, "SELECT size, saved_at FROM process_state WHERE process = ?", r.process).Scan(&size, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoState
	}
	if err != nil {
		return nil, err
	}
	return &StateInfo{Process: r.process, Size: size, SavedAt: time.Unix(savedAt, 0)}, nil
}

// Verify that StateRepository implements domain.StateRepository
var _ domain.StateRepository = (*StateRepository)(nil)
