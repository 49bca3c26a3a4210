package policy

import "github.com/google/uuid"

const (
	// ResponseNotificationTitle é o título fixo da notificação de resposta.
	ResponseNotificationTitle = "Nova resposta"
	// ResponseNotificationPrefix antecede o trecho da resposta na notificação.
	ResponseNotificationPrefix = "Um administrador respondeu sua solicitação: "

	notificationExcerptLen = 100
)

// NotificationDraft é a notificação gravada junto com a resposta.
type NotificationDraft struct {
	UserID    uuid.UUID
	RequestID uuid.UUID
	Title     string
	Message   string
}

// ResponseNotification monta a notificação endereçada ao dono da solicitação.
func ResponseNotification(t Target, requestID uuid.UUID, message string) NotificationDraft {
	return NotificationDraft{
		UserID:    t.OwnerID,
		RequestID: requestID,
		Title:     ResponseNotificationTitle,
		Message:   ResponseNotificationMessage(message),
	}
}

// ResponseNotificationMessage corta a resposta em 100 caracteres e acrescenta
// "..." quando houve corte.
func ResponseNotificationMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= notificationExcerptLen {
		return ResponseNotificationPrefix + message
	}
	return ResponseNotificationPrefix + string(runes[:notificationExcerptLen]) + "..."
}
