package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/ecoa/zeladoria/internal/telemetry"
)

const deliveryTimeout = 5 * time.Second

// Dispatcher faz a entrega externa, em melhor esforço, depois que a
// notificação já foi gravada. Falhas são registradas e nunca propagadas.
type Dispatcher struct {
	mail     Channel
	alerts   Channel
	breakers map[string]*gobreaker.CircuitBreaker
	appURL   string
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewDispatcher cria o despachante. Canais nil são ignorados.
func NewDispatcher(mail, alerts Channel, appURL string, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		mail:     mail,
		alerts:   alerts,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		appURL:   appURL,
		timeout:  deliveryTimeout,
		logger:   logger,
	}
	for _, ch := range []Channel{mail, alerts} {
		if ch != nil {
			d.breakers[ch.Name()] = newBreaker(ch.Name(), logger)
		}
	}
	return d
}

func newBreaker(name string, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("channel", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker mudou de estado")
		},
	})
}

// ResponsePosted envia ao dono da solicitação uma cópia da notificação.
func (d *Dispatcher) ResponsePosted(ctx context.Context, ownerEmail string, n *Notification) {
	if d == nil || n == nil {
		return
	}
	msg := Message{To: ownerEmail, Subject: n.Title, Text: n.Message}
	if n.RequestID != nil {
		msg.Link = d.requestLink(*n.RequestID)
	}
	d.deliver(ctx, d.mail, msg)
}

// RequestOpened alerta a administração sobre uma nova solicitação.
func (d *Dispatcher) RequestOpened(ctx context.Context, requestID uuid.UUID, title, category string) {
	if d == nil {
		return
	}
	d.deliver(ctx, d.alerts, Message{
		Subject:  "Nova solicitação",
		Text:     fmt.Sprintf("%s (%s)", title, category),
		Link:     d.requestLink(requestID),
		Severity: "info",
	})
}

func (d *Dispatcher) requestLink(id uuid.UUID) string {
	if d.appURL == "" {
		return ""
	}
	return d.appURL + "/solicitacoes/" + id.String()
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, msg Message) {
	if ch == nil {
		return
	}
	name := ch.Name()
	cb, ok := d.breakers[name]
	if !ok {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	skipped := false
	_, err := cb.Execute(func() (interface{}, error) {
		err := ch.Send(sendCtx, msg)
		if errors.Is(err, ErrChannelDisabled) {
			skipped = true
			return nil, nil
		}
		return nil, err
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		telemetry.NotificationDeliveriesTotal.WithLabelValues(name, "circuit_open").Inc()
		d.logger.Warn().Str("channel", name).Msg("entrega suspensa pelo circuit breaker")
	case err != nil:
		telemetry.NotificationDeliveriesTotal.WithLabelValues(name, "failed").Inc()
		d.logger.Error().Err(err).Str("channel", name).Msg("falha na entrega externa")
	case skipped:
		telemetry.NotificationDeliveriesTotal.WithLabelValues(name, "skipped").Inc()
	default:
		telemetry.NotificationDeliveriesTotal.WithLabelValues(name, "sent").Inc()
	}
}
