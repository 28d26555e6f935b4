package pgstore

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/session"
)

// Store keeps the credentials as two rows of the portal_storage table.
type Store struct {
	db *sqlx.DB
}

var _ session.Repository = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type row struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func (s *Store) Load(ctx context.Context) (session.Credentials, error) {
	query, args, err := sqlx.In(`SELECT key, value FROM portal_storage WHERE key IN (?)`, session.Keys)
	if err != nil {
		return session.Credentials{}, errors.Wrap(err, "building session query")
	}

	var rows []row
	if err = s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return session.Credentials{}, errors.Wrap(err, "loading session")
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	return session.DecodeCredentials(values)
}

func (s *Store) Save(ctx context.Context, creds session.Credentials) error {
	values, err := creds.Encode()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	for _, key := range session.Keys {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO portal_storage (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			key, values[key],
		)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "saving session key %q", key)
		}
	}
	return errors.Wrap(tx.Commit(), "committing session")
}

func (s *Store) Clear(ctx context.Context) error {
	query, args, err := sqlx.In(`DELETE FROM portal_storage WHERE key IN (?)`, session.Keys)
	if err != nil {
		return errors.Wrap(err, "building session query")
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return errors.Wrap(err, "clearing session")
}
