package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const passkeyColumns = `id, user_id, credential_id, public_key, sign_count, transports, aaguid, nickname, cloned, created_at, updated_at`

// ListPasskeys lista as credenciais do usuário, mais recentes primeiro.
func (q *Queries) ListPasskeys(ctx context.Context, userID uuid.UUID) ([]PasskeyCredential, error) {
	rows, err := q.db.Query(ctx, `
        SELECT `+passkeyColumns+`
        FROM webauthn_credentials
        WHERE user_id = $1
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []PasskeyCredential
	for rows.Next() {
		cred, err := scanPasskey(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return creds, nil
}

// GetPasskeyByCredentialID busca a credencial pelo id WebAuthn.
func (q *Queries) GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (PasskeyCredential, error) {
	row := q.db.QueryRow(ctx, `SELECT `+passkeyColumns+` FROM webauthn_credentials WHERE credential_id = $1`, credentialID)
	return scanPasskey(row)
}

// CreatePasskey grava uma nova credencial.
func (q *Queries) CreatePasskey(ctx context.Context, arg CreatePasskeyParams) (PasskeyCredential, error) {
	transports := arg.Transports
	if transports == nil {
		transports = []string{}
	}
	row := q.db.QueryRow(ctx, `
        INSERT INTO webauthn_credentials (user_id, credential_id, public_key, sign_count, transports, aaguid, nickname, cloned)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+passkeyColumns,
		arg.UserID, arg.CredentialID, arg.PublicKey, int64(arg.SignCount), transports, arg.AAGUID, arg.Nickname, arg.Cloned)
	return scanPasskey(row)
}

// UpdatePasskeyCounter atualiza contador de assinatura e flag de clonagem.
func (q *Queries) UpdatePasskeyCounter(ctx context.Context, id uuid.UUID, signCount uint32, cloned bool) error {
	cmd, err := q.db.Exec(ctx, `
        UPDATE webauthn_credentials
        SET sign_count = $2, cloned = $3, updated_at = now()
        WHERE id = $1
    `, id, int64(signCount), cloned)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPasskey(row pgx.Row) (PasskeyCredential, error) {
	var (
		cred PasskeyCredential
		sign int64
	)
	if err := row.Scan(&cred.ID, &cred.UserID, &cred.CredentialID, &cred.PublicKey, &sign, &cred.Transports, &cred.AAGUID, &cred.Nickname, &cred.Cloned, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PasskeyCredential{}, ErrNotFound
		}
		return PasskeyCredential{}, err
	}
	if sign < 0 {
		sign = 0
	}
	cred.SignCount = uint32(sign)
	return cred, nil
}
