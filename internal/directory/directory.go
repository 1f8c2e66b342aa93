// Package directory resolves shop ids against the tenant directory.
// The gateway uses it for one question only: does the shop a token
// claims actually exist.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// Directory answers existence checks for shop ids.
type Directory interface {
	Exists(ctx context.Context, shopID string) (bool, error)
}

// PostgresDirectory reads the shops table owned by the tenant service.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) (*PostgresDirectory, error) {
	if db == nil {
		return nil, errors.New("directory: db is required")
	}
	return &PostgresDirectory{db: db}, nil
}

func (d *PostgresDirectory) Exists(ctx context.Context, shopID string) (bool, error) {
	if shopID == "" {
		return false, nil
	}
	var one int
	err := d.db.QueryRowContext(ctx, `SELECT 1 FROM shops WHERE id = $1`, shopID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryDirectory is a fixed shop-id set for tests.
type MemoryDirectory struct {
	mu    sync.RWMutex
	shops map[string]struct{}
}

func NewMemoryDirectory(shopIDs ...string) *MemoryDirectory {
	d := &MemoryDirectory{shops: make(map[string]struct{}, len(shopIDs))}
	for _, id := range shopIDs {
		d.shops[id] = struct{}{}
	}
	return d
}

func (d *MemoryDirectory) Add(shopID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shops[shopID] = struct{}{}
}

func (d *MemoryDirectory) Exists(_ context.Context, shopID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.shops[shopID]
	return ok, nil
}
