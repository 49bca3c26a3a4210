package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var severityEmoji = map[string]string{
	"warning":  ":warning:",
	"critical": ":rotating_light:",
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// SlackNotifier avisa a equipe de zeladoria num canal via incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier devolve nil sem webhook; quem chama decide se liga o canal.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{webhookURL: webhookURL, client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *SlackNotifier) Name() string { return "slack" }

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

func (s *SlackNotifier) Send(ctx context.Context, msg Message) error {
	if s == nil {
		return ErrChannelDisabled
	}

	body, err := json.Marshal(slackMessage(msg))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("slack: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// slackMessage monta o texto de fallback e os blocos; o link vira um contexto clicável.
func slackMessage(msg Message) slackPayload {
	emoji, ok := severityEmoji[msg.Severity]
	if !ok {
		emoji = ":information_source:"
	}

	head := emoji + " " + slackEscaper.Replace(msg.Text)
	if msg.Subject != "" {
		head = emoji + " *" + slackEscaper.Replace(msg.Subject) + "*\n" + slackEscaper.Replace(msg.Text)
	}

	payload := slackPayload{
		Text:   head,
		Blocks: []slackBlock{{Type: "section", Text: &slackText{Type: "mrkdwn", Text: head}}},
	}
	if msg.Link != "" {
		payload.Blocks = append(payload.Blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: "<" + msg.Link + "|Abrir solicitação>"}},
		})
	}
	return payload
}
