// Package policy decide quem pode ler e alterar solicitações, respostas e
// notificações, e calcula quais campos uma alteração pode gravar.
// Nenhuma função aqui faz I/O.
package policy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Target é a visão mínima de uma solicitação necessária para decidir.
type Target struct {
	OwnerID uuid.UUID
	Status  Status
}

// Guard são condições que o armazenamento reavalia no momento da escrita.
// Zero value significa escrita incondicional.
type Guard struct {
	OwnerID        *uuid.UUID
	RequirePending bool
}

// Patch é a alteração pedida pelo cliente, ainda sem normalização.
// Campos nil (ou texto vazio) não são alterados.
type Patch struct {
	Title         *string
	Description   *string
	Category      *string
	Location      *string
	ClearLocation bool
	Status        *string
	Priority      *string
}

// Changes é o conjunto de campos que a política autorizou gravar.
type Changes struct {
	Title         *string
	Description   *string
	Category      *Category
	Location      *string
	ClearLocation bool
	Status        *Status
	Priority      *Priority
}

// Empty indica que nenhuma coluna será alterada.
func (c Changes) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Category == nil &&
		c.Location == nil && !c.ClearLocation && c.Status == nil && c.Priority == nil
}

// Draft é o payload de criação enviado pelo cliente.
type Draft struct {
	Title       string
	Description string
	Category    string
	Location    string
	// Status e Priority são aceitos no payload mas sempre ignorados.
	Status   string
	Priority string
}

// NewRequest é a solicitação pronta para ser persistida.
type NewRequest struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	Category    Category
	Location    *string
	Status      Status
	Priority    Priority
}

// ListScope devolve o dono a filtrar na listagem; nil significa todas.
func ListScope(p *Principal) (*uuid.UUID, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if p.IsAdmin() {
		return nil, nil
	}
	id := p.ID
	return &id, nil
}

// CanView decide a leitura direta de uma solicitação.
// Solicitação de outro usuário responde ErrNotFound para não revelar sua existência.
func CanView(p *Principal, t Target) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.IsAdmin() || p.Owns(t.OwnerID) {
		return nil
	}
	return ErrNotFound
}

// CanViewResponses decide a leitura das respostas de uma solicitação existente.
func CanViewResponses(p *Principal, t Target) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.IsAdmin() || p.Owns(t.OwnerID) {
		return nil
	}
	return ErrForbidden
}

// AuthorizeCreate valida o rascunho e força dono, status e prioridade iniciais.
func AuthorizeCreate(p *Principal, d Draft) (NewRequest, error) {
	if p == nil {
		return NewRequest{}, ErrUnauthenticated
	}

	title := strings.TrimSpace(d.Title)
	description := strings.TrimSpace(d.Description)
	if title == "" {
		return NewRequest{}, fmt.Errorf("%w: título obrigatório", ErrInvalidArgument)
	}
	if description == "" {
		return NewRequest{}, fmt.Errorf("%w: descrição obrigatória", ErrInvalidArgument)
	}
	if strings.TrimSpace(d.Category) == "" {
		return NewRequest{}, fmt.Errorf("%w: categoria obrigatória", ErrInvalidArgument)
	}
	category, err := ParseCategory(d.Category)
	if err != nil {
		return NewRequest{}, err
	}

	req := NewRequest{
		OwnerID:     p.ID,
		Title:       title,
		Description: description,
		Category:    category,
		Status:      StatusPending,
		Priority:    PriorityMedium,
	}
	if loc := strings.TrimSpace(d.Location); loc != "" {
		req.Location = &loc
	}
	return req, nil
}

// AuthorizeUpdate decide uma alteração e devolve os campos permitidos.
//
// Administradores alteram qualquer campo em qualquer status. O dono altera
// apenas título, descrição, categoria e local enquanto PENDING; status e
// prioridade enviados por ele são descartados sem erro.
func AuthorizeUpdate(p *Principal, t Target, patch Patch) (Changes, Guard, error) {
	if p == nil {
		return Changes{}, Guard{}, ErrUnauthenticated
	}

	if p.IsAdmin() {
		changes, err := descriptiveChanges(patch)
		if err != nil {
			return Changes{}, Guard{}, err
		}
		if s := nonEmpty(patch.Status); s != nil {
			status, err := ParseStatus(*s)
			if err != nil {
				return Changes{}, Guard{}, err
			}
			changes.Status = &status
		}
		if s := nonEmpty(patch.Priority); s != nil {
			priority, err := ParsePriority(*s)
			if err != nil {
				return Changes{}, Guard{}, err
			}
			changes.Priority = &priority
		}
		return changes, Guard{}, nil
	}

	if !p.Owns(t.OwnerID) {
		return Changes{}, Guard{}, ErrNotFound
	}
	if t.Status != StatusPending {
		return Changes{}, Guard{}, fmt.Errorf("%w: solicitação não está mais pendente", ErrForbidden)
	}

	changes, err := descriptiveChanges(patch)
	if err != nil {
		return Changes{}, Guard{}, err
	}
	owner := p.ID
	return changes, Guard{OwnerID: &owner, RequirePending: true}, nil
}

// AuthorizeDelete decide a exclusão de uma solicitação.
func AuthorizeDelete(p *Principal, t Target) (Guard, error) {
	if p == nil {
		return Guard{}, ErrUnauthenticated
	}
	if p.IsAdmin() {
		return Guard{}, nil
	}
	if !p.Owns(t.OwnerID) {
		return Guard{}, ErrNotFound
	}
	if t.Status != StatusPending {
		return Guard{}, fmt.Errorf("%w: apenas solicitações pendentes podem ser excluídas", ErrForbidden)
	}
	owner := p.ID
	return Guard{OwnerID: &owner, RequirePending: true}, nil
}

// AuthorizeAttach decide o envio de anexos; segue a mesma regra da alteração.
func AuthorizeAttach(p *Principal, t Target) error {
	_, _, err := AuthorizeUpdate(p, t, Patch{})
	return err
}

// AuthorizeRespond garante que apenas administradores respondam.
func AuthorizeRespond(p *Principal) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.IsAdmin() {
		return fmt.Errorf("%w: apenas administradores podem responder", ErrForbidden)
	}
	return nil
}

// ValidateResponseMessage rejeita mensagens vazias. A mensagem é mantida como enviada.
func ValidateResponseMessage(message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: mensagem é obrigatória", ErrInvalidArgument)
	}
	return message, nil
}

// AuthorizeNotificationUpdate permite alterar apenas notificações próprias.
func AuthorizeNotificationUpdate(p *Principal, recipientID uuid.UUID) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.Owns(recipientID) {
		return ErrNotFound
	}
	return nil
}

func descriptiveChanges(patch Patch) (Changes, error) {
	var c Changes
	if s := nonEmpty(patch.Title); s != nil {
		c.Title = s
	}
	if s := nonEmpty(patch.Description); s != nil {
		c.Description = s
	}
	if s := nonEmpty(patch.Category); s != nil {
		category, err := ParseCategory(*s)
		if err != nil {
			return Changes{}, err
		}
		c.Category = &category
	}
	switch {
	case patch.ClearLocation:
		c.ClearLocation = true
	case patch.Location != nil:
		loc := strings.TrimSpace(*patch.Location)
		if loc == "" {
			c.ClearLocation = true
		} else {
			c.Location = &loc
		}
	}
	return c, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
