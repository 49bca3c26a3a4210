package policy

import "github.com/google/uuid"

// Principal é o chamador autenticado, resolvido a cada requisição.
type Principal struct {
	ID    uuid.UUID
	Email string
	Name  *string
	Role  Role
}

// IsAdmin informa se o principal é administrador. Nil nunca é.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Owns informa se o principal é o dono do recurso.
func (p *Principal) Owns(ownerID uuid.UUID) bool {
	return p != nil && p.ID == ownerID
}
