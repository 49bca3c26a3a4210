package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, user_id, token_hash, expires_at, created_at, revoked_at`

// CreateSession grava o hash do refresh emitido no login.
func (q *Queries) CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (Session, error) {
	row := q.db.QueryRow(ctx, `
        INSERT INTO sessions (user_id, token_hash, expires_at)
        VALUES ($1, $2, $3)
        RETURNING `+sessionColumns,
		userID, tokenHash, expiresAt)
	return scanSession(row)
}

func (q *Queries) SessionByHash(ctx context.Context, tokenHash string) (Session, error) {
	row := q.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash)
	return scanSession(row)
}

// RevokeSession encerra uma sessão ainda aberta.
func (q *Queries) RevokeSession(ctx context.Context, tokenHash string) error {
	cmd, err := q.db.Exec(ctx, `UPDATE sessions SET revoked_at = now() WHERE token_hash = $1 AND revoked_at IS NULL`, tokenHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeOtherSessions deixa só a sessão keepHash aberta; uma conta tem um dispositivo logado por vez.
func (q *Queries) RevokeOtherSessions(ctx context.Context, userID uuid.UUID, keepHash string) error {
	_, err := q.db.Exec(ctx, `
        UPDATE sessions SET revoked_at = now()
        WHERE user_id = $1 AND token_hash <> $2 AND revoked_at IS NULL
    `, userID, keepHash)
	return err
}

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt, &s.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}
