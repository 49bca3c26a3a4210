package notifications

import (
	"context"
	"errors"
)

// ErrChannelDisabled indica canal sem configuração.
var ErrChannelDisabled = errors.New("canal de entrega não configurado")

// Message é a cópia de uma notificação entregue fora do sistema.
type Message struct {
	To       string
	Subject  string
	Text     string
	Link     string
	Severity string
}

// Channel entrega mensagens a um destino externo (e-mail, Slack).
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// NoopChannel descarta mensagens; usado quando o canal não está configurado.
type NoopChannel struct {
	ChannelName string
}

func (n NoopChannel) Name() string { return n.ChannelName }

func (NoopChannel) Send(context.Context, Message) error {
	return ErrChannelDisabled
}
