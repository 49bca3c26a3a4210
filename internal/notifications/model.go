package notifications

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indica notificação inexistente ou de outro destinatário.
var ErrNotFound = errors.New("notificação não encontrada")

// Notification é uma entrada da caixa de entrada de um usuário.
type Notification struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	RequestID    *uuid.UUID `json:"request_id,omitempty"`
	RequestTitle *string    `json:"request_title,omitempty"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	IsRead       bool       `json:"is_read"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Filter restringe a listagem ao destinatário e, opcionalmente, às não lidas.
type Filter struct {
	UserID     uuid.UUID
	UnreadOnly bool
}
