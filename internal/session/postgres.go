package session

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"gitlab.com/tozd/go/errors"

	"gitlab.com/wikibot/awb/domain"
)

// PostgresStore is an optional Postgres-backed implementation of
// ports.SessionStore, storing the same JSON document FileStore writes but
// keyed by session ID in a single table. Selected by CLI flag;
// not required for correctness (the file store is the default).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and ensures the sessions table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS awb_sessions (
			id         TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		pool.Close()
		return nil, errors.WithStack(err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// Save upserts the session record by ID.
func (s *PostgresStore) Save(ctx context.Context, rec domain.SessionRecord) error {
	if errE := validateID(rec.ID); errE != nil {
		return errE
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO awb_sessions (id, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, rec.ID, data)
	return errors.WithStack(err)
}

// Load reads a session record by ID.
func (s *PostgresStore) Load(ctx context.Context, id string) (domain.SessionRecord, error) {
	if errE := validateID(id); errE != nil {
		return domain.SessionRecord{}, errE
	}
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM awb_sessions WHERE id = $1`, id).Scan(&data)
	if err != nil {
		errE := errors.WithStack(err)
		errors.Details(errE)["id"] = id
		return domain.SessionRecord{}, errE
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.SessionRecord{}, errors.WithStack(err)
	}
	return rec, nil
}

// List returns every stored session ID.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM awb_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.WithStack(err)
		}
		ids = append(ids, id)
	}
	return ids, errors.WithStack(rows.Err())
}

// Delete removes a session record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if errE := validateID(id); errE != nil {
		return errE
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM awb_sessions WHERE id = $1`, id)
	return errors.WithStack(err)
}
