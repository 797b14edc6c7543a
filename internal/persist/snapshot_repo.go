package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/orrery/orrery/internal/state"
)

// PGStore implements Store on PostgreSQL. The current snapshot lives in a
// single-row table; every accepted mutation also appends to scene_history,
// which doubles as an audit trail of who changed what when.
type PGStore struct {
	db *DB
}

func NewPGStore(db *DB) *PGStore {
	return &PGStore{db: db}
}

func (r *PGStore) LoadCurrent(ctx context.Context) (*state.Snapshot, error) {
	var doc []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT doc FROM scene_state WHERE id = 1`,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var s state.Snapshot
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode stored snapshot: %w", err)
	}
	return &s, nil
}

// SaveCurrent upserts the current row and appends history in one
// transaction, so the audit log never disagrees with the live state.
func (r *PGStore) SaveCurrent(ctx context.Context, s *state.Snapshot, source string) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO scene_state (id, doc, updated_at)
		 VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		doc,
	); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO scene_history (source, doc) VALUES ($1, $2)`,
		source, doc,
	); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PGStore) Close() {
	r.db.Close()
}
