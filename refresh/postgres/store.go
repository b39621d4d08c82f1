package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tmarq/authgate/refresh"
)

// Schema creates the backing table. Run it once at deploy time, or feed it
// to the application's migration tool.
const Schema = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
	id          UUID PRIMARY KEY,
	token_value TEXT NOT NULL UNIQUE,
	owner_id    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	revoked     BOOLEAN NOT NULL DEFAULT FALSE,
	revoked_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS refresh_tokens_owner_idx ON refresh_tokens (owner_id) WHERE NOT revoked;
CREATE INDEX IF NOT EXISTS refresh_tokens_expires_idx ON refresh_tokens (expires_at);
`

// DB is the subset of pgx used by the store, satisfied by *pgxpool.Pool,
// *pgx.Conn, and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements refresh.Store on PostgreSQL.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, token *refresh.Token) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, token_value, owner_id, created_at, expires_at, revoked, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '0001-01-01 00:00:00+00'::timestamptz))`,
		token.ID, token.Value, token.OwnerID, token.CreatedAt, token.ExpiresAt, token.Revoked, token.RevokedAt,
	)
	if err != nil {
		return storeErr("insert refresh token", err)
	}
	return nil
}

func (s *Store) GetActive(ctx context.Context, value string) (*refresh.Token, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, token_value, owner_id, created_at, expires_at, revoked, COALESCE(revoked_at, '0001-01-01 00:00:00+00'::timestamptz)
		FROM refresh_tokens
		WHERE token_value = $1 AND NOT revoked`,
		value,
	)
	return scanToken(row, "select refresh token")
}

func (s *Store) RevokeIfActive(ctx context.Context, value string, now time.Time) (*refresh.Token, error) {
	// The conditional UPDATE is the atomicity primitive: only one
	// transaction can flip revoked on a given row.
	row := s.db.QueryRow(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE token_value = $1 AND NOT revoked
		RETURNING id, token_value, owner_id, created_at, expires_at, FALSE, '0001-01-01 00:00:00+00'::timestamptz`,
		value, now,
	)
	return scanToken(row, "revoke refresh token")
}

func (s *Store) Revoke(ctx context.Context, value string, now time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE token_value = $1 AND NOT revoked`,
		value, now,
	)
	if err != nil {
		return storeErr("revoke refresh token", err)
	}
	return nil
}

func (s *Store) RevokeAllForOwner(ctx context.Context, ownerID string, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE owner_id = $1 AND NOT revoked`,
		ownerID, now,
	)
	if err != nil {
		return 0, storeErr("revoke owner tokens", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, storeErr("delete expired tokens", err)
	}
	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row, op string) (*refresh.Token, error) {
	var t refresh.Token
	err := row.Scan(&t.ID, &t.Value, &t.OwnerID, &t.CreatedAt, &t.ExpiresAt, &t.Revoked, &t.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, refresh.ErrNotFound
		}
		return nil, storeErr(op, err)
	}
	return &t, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", refresh.ErrStoreUnavailable, op, err)
}
