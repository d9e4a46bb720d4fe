package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"oj_workbench/internal/common"

	"github.com/jackc/pgx/v5/pgconn"
)

// DraftRepository is a key-value text store. Load returns common.ErrNotFound
// when the key is absent.
type DraftRepository interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

const draftSchema = `CREATE TABLE IF NOT EXISTS drafts (
	draft_key  TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

type pgDraftRepository struct {
	db *sql.DB
}

func NewPgDraftRepository(db *sql.DB) DraftRepository {
	return &pgDraftRepository{db: db}
}

// EnsureDraftSchema creates the drafts table when it does not exist yet.
func EnsureDraftSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, draftSchema); err != nil {
		return fmt.Errorf("EnsureDraftSchema: %w", err)
	}
	return nil
}

func (r *pgDraftRepository) Save(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO drafts (draft_key, value, updated_at)
	          VALUES ($1, $2, CURRENT_TIMESTAMP)
	          ON CONFLICT (draft_key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, key, string(value)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "53100" { // disk_full
			return fmt.Errorf("pgDraftRepository.Save: storage full: %w", err)
		}
		return fmt.Errorf("pgDraftRepository.Save: %w", err)
	}
	return nil
}

func (r *pgDraftRepository) Load(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM drafts WHERE draft_key = $1`

	var value string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgDraftRepository.Load: %w", err)
	}
	return []byte(value), nil
}

func (r *pgDraftRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM drafts WHERE draft_key = $1`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("pgDraftRepository.Delete: %w", err)
	}
	return nil
}
