package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v3"
)

var mailTemplate = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<body style="font-family: sans-serif; color: #1f2937;">
  <h2>{{.Subject}}</h2>
  <p>{{.Text}}</p>
  {{if .Link}}<p><a href="{{.Link}}">Ver solicitação</a></p>{{end}}
  <p style="font-size: 12px; color: #6b7280;">Ecoa Zeladoria</p>
</body>
</html>`))

// ResendMailer envia a cópia das notificações por e-mail.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer devolve nil sem chave de API.
func NewResendMailer(apiKey, from string) *ResendMailer {
	if apiKey == "" || from == "" {
		return nil
	}
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) Name() string { return "email" }

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if m == nil {
		return ErrChannelDisabled
	}
	if msg.To == "" {
		return fmt.Errorf("destinatário ausente")
	}

	html, err := renderMail(msg)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Ecoa Zeladoria <%s>", m.from),
		To:      []string{msg.To},
		Html:    html,
		Subject: msg.Subject,
	}

	_, err = m.client.Emails.SendWithContext(ctx, params)
	return err
}

func renderMail(msg Message) (string, error) {
	var body bytes.Buffer
	if err := mailTemplate.Execute(&body, msg); err != nil {
		return "", fmt.Errorf("falha ao montar e-mail: %w", err)
	}
	return body.String(), nil
}
