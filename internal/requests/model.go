package requests

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ecoa/zeladoria/internal/notifications"
	"github.com/ecoa/zeladoria/internal/policy"
)

// ErrNotFound indica solicitação inexistente ou bloqueada pela condição de escrita.
var ErrNotFound = errors.New("solicitação não encontrada")

// Person resume o dono ou o autor exibido junto com solicitações e respostas.
type Person struct {
	ID    uuid.UUID `json:"id"`
	Name  *string   `json:"name"`
	Email string    `json:"email"`
}

// ServiceRequest é um problema relatado por um cidadão.
type ServiceRequest struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    policy.Category `json:"category"`
	Location    *string         `json:"location"`
	Status      policy.Status   `json:"status"`
	Priority    policy.Priority `json:"priority"`
	UserID      uuid.UUID       `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Owner       *Person         `json:"owner,omitempty"`
	Responses   []Response      `json:"responses"`
}

// Target devolve a visão usada nas decisões de política.
func (r *ServiceRequest) Target() policy.Target {
	return policy.Target{OwnerID: r.UserID, Status: r.Status}
}

// Response é a resposta de um administrador; nunca é alterada.
type Response struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Person   `json:"author,omitempty"`
}

// PostedResponse é o par gravado na mesma transação.
type PostedResponse struct {
	Response     *Response                   `json:"response"`
	Notification *notifications.Notification `json:"notification"`
}

// Attachment é um arquivo enviado para ilustrar a solicitação.
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	RequestID   uuid.UUID `json:"request_id"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ObjectKey   string    `json:"-"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// FileUpload é o arquivo recebido do cliente.
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ListParams são os filtros brutos da listagem.
type ListParams struct {
	Status   string
	Category string
	Search   string
}

// Filter é o filtro já normalizado e escopado enviado ao banco.
type Filter struct {
	OwnerID  *uuid.UUID
	Status   *policy.Status
	Category *policy.Category
	Search   string
}

// Stats agrega contagens das solicitações visíveis ao principal.
type Stats struct {
	Total      int64                     `json:"total"`
	ByStatus   map[policy.Status]int64   `json:"by_status"`
	ByCategory map[policy.Category]int64 `json:"by_category"`
	ByPriority map[policy.Priority]int64 `json:"by_priority"`
	TotalUsers *int64                    `json:"total_users,omitempty"`
}

func newStats() *Stats {
	s := &Stats{
		ByStatus:   make(map[policy.Status]int64),
		ByCategory: make(map[policy.Category]int64),
		ByPriority: make(map[policy.Priority]int64),
	}
	for _, v := range policy.Statuses() {
		s.ByStatus[v] = 0
	}
	for _, v := range policy.Categories() {
		s.ByCategory[v] = 0
	}
	for _, v := range policy.Priorities() {
		s.ByPriority[v] = 0
	}
	return s
}
