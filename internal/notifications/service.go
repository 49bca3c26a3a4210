package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecoa/zeladoria/internal/policy"
)

// Store é o acesso a notificações usado pelo serviço.
type Store interface {
	List(ctx context.Context, filter Filter) ([]Notification, error)
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)
	SetRead(ctx context.Context, id, userID uuid.UUID, read bool) (*Notification, error)
}

// Service aplica a política de leitura sobre as notificações.
type Service struct {
	repo   Store
	logger zerolog.Logger
}

// NewService cria uma nova instância do serviço.
func NewService(repo Store, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List devolve apenas as notificações do próprio principal.
func (s *Service) List(ctx context.Context, p *policy.Principal, unreadOnly bool) ([]Notification, error) {
	if p == nil {
		return nil, policy.ErrUnauthenticated
	}
	items, err := s.repo.List(ctx, Filter{UserID: p.ID, UnreadOnly: unreadOnly})
	if err != nil {
		return nil, s.storeError("listar notificações", err)
	}
	return items, nil
}

// MarkRead altera is_read. Notificação inexistente ou de outro usuário responde ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, p *policy.Principal, id uuid.UUID, read bool) (*Notification, error) {
	if p == nil {
		return nil, policy.ErrUnauthenticated
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, policy.ErrNotFound
		}
		return nil, s.storeError("carregar notificação", err)
	}
	if err := policy.AuthorizeNotificationUpdate(p, current.UserID); err != nil {
		return nil, err
	}

	updated, err := s.repo.SetRead(ctx, id, p.ID, read)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, policy.ErrNotFound
		}
		return nil, s.storeError("atualizar notificação", err)
	}
	return updated, nil
}

func (s *Service) storeError(op string, err error) error {
	s.logger.Error().Err(err).Str("op", op).Msg("falha no banco")
	return fmt.Errorf("%w: %w", policy.ErrStore, err)
}
