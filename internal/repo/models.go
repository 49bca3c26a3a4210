package repo

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecoa/zeladoria/internal/policy"
)

// User representa uma conta do sistema (cidadão ou administrador).
type User struct {
	ID           uuid.UUID
	Email        string
	Name         *string
	PasswordHash string
	Role         policy.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal converte o usuário no principal usado pela política.
func (u User) Principal() *policy.Principal {
	return &policy.Principal{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// CreateUserParams agrupa os campos de cadastro.
type CreateUserParams struct {
	Email        string
	Name         *string
	PasswordHash string
	Role         policy.Role
}

// Session é um refresh token emitido; só o hash fica salvo.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Usable diz se a sessão ainda pode ser trocada por tokens novos.
func (s Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// PasskeyCredential é uma credencial WebAuthn vinculada a um usuário.
type PasskeyCredential struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	CredentialID []byte
	PublicKey    []byte
	SignCount    uint32
	Transports   []string
	AAGUID       []byte
	Nickname     *string
	Cloned       bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// CreatePasskeyParams agrupa os dados retornados pela cerimônia de registro.
type CreatePasskeyParams struct {
	UserID       uuid.UUID
	CredentialID []byte
	PublicKey    []byte
	SignCount    uint32
	Transports   []string
	AAGUID       []byte
	Nickname     *string
	Cloned       bool
}
