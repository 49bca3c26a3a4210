package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/repo"
)

type userLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
}

// IdentityService resolve o principal da requisição a partir do subject do token.
// O usuário é relido a cada chamada: papel e existência valem no momento da ação.
type IdentityService struct {
	users userLookup
}

// NewIdentityService cria nova instância.
func NewIdentityService(r *repo.Queries) *IdentityService {
	return &IdentityService{users: r}
}

// Principal devolve o principal atual. Usuário removido conta como não autenticado.
func (s *IdentityService) Principal(ctx context.Context, subject uuid.UUID) (*policy.Principal, error) {
	user, err := s.users.GetUserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, policy.ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %w", policy.ErrStore, err)
	}
	return user.Principal(), nil
}
