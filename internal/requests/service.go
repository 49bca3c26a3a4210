// Package requests orquestra solicitações, respostas e anexos: cada operação
// consulta a política antes de tocar no banco.
package requests

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecoa/zeladoria/internal/notifications"
	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/storage"
	"github.com/ecoa/zeladoria/internal/telemetry"
)

type store interface {
	Create(ctx context.Context, req policy.NewRequest) (*ServiceRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*ServiceRequest, error)
	List(ctx context.Context, filter Filter) ([]ServiceRequest, error)
	Update(ctx context.Context, id uuid.UUID, changes policy.Changes, guard policy.Guard) (*ServiceRequest, error)
	Delete(ctx context.Context, id uuid.UUID, guard policy.Guard) error
	ListResponses(ctx context.Context, requestID uuid.UUID, newestFirst bool) ([]Response, error)
	ResponsesFor(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID][]Response, error)
	CreateResponse(ctx context.Context, requestID, authorID uuid.UUID, message string, draft policy.NotificationDraft) (*Response, *notifications.Notification, error)
	Stats(ctx context.Context, ownerID *uuid.UUID) (*Stats, error)
	CountUsers(ctx context.Context) (int64, error)
	CreateAttachment(ctx context.Context, a Attachment) (*Attachment, error)
	ListAttachments(ctx context.Context, requestID uuid.UUID) ([]Attachment, error)
}

type dispatcher interface {
	ResponsePosted(ctx context.Context, ownerEmail string, n *notifications.Notification)
	RequestOpened(ctx context.Context, requestID uuid.UUID, title, category string)
}

var allowedAttachmentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/gif":       {},
	"image/heic":      {},
	"application/pdf": {},
}

// Service reúne as regras de negócio das solicitações.
type Service struct {
	repo      store
	storage   storage.Blobs
	dispatch  dispatcher
	maxUpload int64
	logger    zerolog.Logger
}

// NewService cria uma nova instância do serviço.
func NewService(repo *Repository, blobs storage.Blobs, dispatch *notifications.Dispatcher, maxUpload int64, logger zerolog.Logger) *Service {
	return &Service{repo: repo, storage: blobs, dispatch: dispatch, maxUpload: maxUpload, logger: logger}
}

// List devolve as solicitações visíveis ao principal, cada uma com suas
// respostas, mais recentes primeiro.
func (s *Service) List(ctx context.Context, p *policy.Principal, params ListParams) ([]ServiceRequest, error) {
	owner, err := policy.ListScope(p)
	if err != nil {
		return nil, err
	}

	filter := Filter{OwnerID: owner, Search: strings.TrimSpace(params.Search)}
	if strings.TrimSpace(params.Status) != "" {
		status, err := policy.ParseStatus(params.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}
	if strings.TrimSpace(params.Category) != "" {
		category, err := policy.ParseCategory(params.Category)
		if err != nil {
			return nil, err
		}
		filter.Category = &category
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.storeError("listar solicitações", err)
	}

	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	byRequest, err := s.repo.ResponsesFor(ctx, ids)
	if err != nil {
		return nil, s.storeError("listar respostas", err)
	}
	for i := range items {
		items[i].Responses = byRequest[items[i].ID]
		if items[i].Responses == nil {
			items[i].Responses = []Response{}
		}
	}
	return items, nil
}

// Get devolve uma solicitação com suas respostas, mais recentes primeiro.
func (s *Service) Get(ctx context.Context, p *policy.Principal, id uuid.UUID) (*ServiceRequest, error) {
	req, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanView(p, req.Target()); err != nil {
		return nil, err
	}

	responses, err := s.repo.ListResponses(ctx, id, true)
	if err != nil {
		return nil, s.storeError("listar respostas", err)
	}
	if responses == nil {
		responses = []Response{}
	}
	req.Responses = responses
	return req, nil
}

// Create abre uma solicitação em nome do principal.
func (s *Service) Create(ctx context.Context, p *policy.Principal, draft policy.Draft) (*ServiceRequest, error) {
	newReq, err := policy.AuthorizeCreate(p, draft)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, newReq)
	if err != nil {
		return nil, s.storeError("criar solicitação", err)
	}

	telemetry.RequestsCreatedTotal.WithLabelValues(string(created.Category)).Inc()
	s.logger.Info().
		Str("request_id", created.ID.String()).
		Str("user_id", created.UserID.String()).
		Str("category", string(created.Category)).
		Msg("solicitação criada")

	if s.dispatch != nil {
		s.dispatch.RequestOpened(ctx, created.ID, created.Title, string(created.Category))
	}
	return created, nil
}

// Update aplica a alteração permitida pela política.
func (s *Service) Update(ctx context.Context, p *policy.Principal, id uuid.UUID, patch policy.Patch) (*ServiceRequest, error) {
	current, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	changes, guard, err := policy.AuthorizeUpdate(p, current.Target(), patch)
	if err != nil {
		return nil, err
	}
	if changes.Empty() {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, id, changes, guard)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, policy.ErrNotFound
		}
		return nil, s.storeError("atualizar solicitação", err)
	}

	if changes.Status != nil && *changes.Status != current.Status {
		telemetry.RequestStatusChangesTotal.WithLabelValues(string(*changes.Status)).Inc()
		s.logger.Info().
			Str("request_id", id.String()).
			Str("from", string(current.Status)).
			Str("to", string(*changes.Status)).
			Str("by", p.ID.String()).
			Msg("status alterado")
	}
	return updated, nil
}

// Delete remove a solicitação conforme a regra de exclusão.
func (s *Service) Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error {
	current, err := s.load(ctx, p, id)
	if err != nil {
		return err
	}

	guard, err := policy.AuthorizeDelete(p, current.Target())
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, guard); err != nil {
		if errors.Is(err, ErrNotFound) {
			return policy.ErrNotFound
		}
		return s.storeError("excluir solicitação", err)
	}

	s.logger.Info().Str("request_id", id.String()).Str("by", p.ID.String()).Msg("solicitação excluída")
	return nil
}

// ListResponses devolve as respostas em ordem de criação.
func (s *Service) ListResponses(ctx context.Context, p *policy.Principal, id uuid.UUID) ([]Response, error) {
	req, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanViewResponses(p, req.Target()); err != nil {
		return nil, err
	}

	items, err := s.repo.ListResponses(ctx, id, false)
	if err != nil {
		return nil, s.storeError("listar respostas", err)
	}
	return items, nil
}

// Respond grava a resposta e a notificação do dono como uma unidade.
// A cópia por e-mail só é tentada depois do commit.
func (s *Service) Respond(ctx context.Context, p *policy.Principal, id uuid.UUID, message string) (*PostedResponse, error) {
	if err := policy.AuthorizeRespond(p); err != nil {
		return nil, err
	}
	message, err := policy.ValidateResponseMessage(message)
	if err != nil {
		return nil, err
	}

	target, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	draft := policy.ResponseNotification(target.Target(), id, message)
	resp, note, err := s.repo.CreateResponse(ctx, id, p.ID, message, draft)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, policy.ErrNotFound
		}
		return nil, s.storeError("registrar resposta", err)
	}

	resp.Author = &Person{ID: p.ID, Name: p.Name, Email: p.Email}
	telemetry.ResponsesPostedTotal.Inc()
	s.logger.Info().
		Str("request_id", id.String()).
		Str("response_id", resp.ID.String()).
		Str("notification_id", note.ID.String()).
		Msg("resposta registrada")

	if s.dispatch != nil && target.Owner != nil {
		s.dispatch.ResponsePosted(ctx, target.Owner.Email, note)
	}
	return &PostedResponse{Response: resp, Notification: note}, nil
}

// Stats agrega as solicitações visíveis; administradores também recebem o total de usuários.
func (s *Service) Stats(ctx context.Context, p *policy.Principal) (*Stats, error) {
	owner, err := policy.ListScope(p)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Stats(ctx, owner)
	if err != nil {
		return nil, s.storeError("estatísticas", err)
	}

	if p.IsAdmin() {
		total, err := s.repo.CountUsers(ctx)
		if err != nil {
			return nil, s.storeError("contar usuários", err)
		}
		stats.TotalUsers = &total
	}
	return stats, nil
}

// Attach envia um arquivo para o storage e registra o anexo.
func (s *Service) Attach(ctx context.Context, p *policy.Principal, id uuid.UUID, file FileUpload) (*Attachment, error) {
	req, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeAttach(p, req.Target()); err != nil {
		return nil, err
	}

	contentType := strings.ToLower(strings.TrimSpace(file.ContentType))
	if _, ok := allowedAttachmentTypes[contentType]; !ok {
		return nil, fmt.Errorf("%w: tipo de arquivo não suportado: %s", policy.ErrInvalidArgument, contentType)
	}
	if file.Size <= 0 {
		return nil, fmt.Errorf("%w: arquivo vazio", policy.ErrInvalidArgument)
	}
	if s.maxUpload > 0 && file.Size > s.maxUpload {
		return nil, fmt.Errorf("%w: arquivo excede %d bytes", policy.ErrInvalidArgument, s.maxUpload)
	}

	name := sanitizeFileName(file.Name)
	key := storage.AttachmentKey(id, name)

	uploaded, err := s.storage.Put(ctx, storage.Object{
		Key:         key,
		Body:        file.Body,
		Size:        file.Size,
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", id.String()).Msg("falha no upload do anexo")
		return nil, fmt.Errorf("%w: %w", policy.ErrStore, err)
	}

	created, err := s.repo.CreateAttachment(ctx, Attachment{
		RequestID:   id,
		UploadedBy:  p.ID,
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   file.Size,
		ObjectKey:   key,
		URL:         uploaded.URL,
	})
	if err != nil {
		if rmErr := s.storage.Delete(ctx, key); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("key", key).Msg("não foi possível remover objeto órfão")
		}
		if errors.Is(err, ErrNotFound) {
			return nil, policy.ErrNotFound
		}
		return nil, s.storeError("registrar anexo", err)
	}

	telemetry.AttachmentsUploadedTotal.Inc()
	return created, nil
}

// ListAttachments segue a regra de leitura da solicitação.
func (s *Service) ListAttachments(ctx context.Context, p *policy.Principal, id uuid.UUID) ([]Attachment, error) {
	req, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanView(p, req.Target()); err != nil {
		return nil, err
	}

	items, err := s.repo.ListAttachments(ctx, id)
	if err != nil {
		return nil, s.storeError("listar anexos", err)
	}
	return items, nil
}

func (s *Service) load(ctx context.Context, p *policy.Principal, id uuid.UUID) (*ServiceRequest, error) {
	if p == nil {
		return nil, policy.ErrUnauthenticated
	}
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, policy.ErrNotFound
		}
		return nil, s.storeError("carregar solicitação", err)
	}
	return req, nil
}

func (s *Service) storeError(op string, err error) error {
	s.logger.Error().Err(err).Str("op", op).Msg("falha no banco")
	return fmt.Errorf("%w: %w", policy.ErrStore, err)
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "arquivo"
	}
	if len(name) > 200 {
		name = name[len(name)-200:]
	}
	return name
}
