// Package monitor acompanha periodicamente a fila de solicitações.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecoa/zeladoria/internal/config"
	"github.com/ecoa/zeladoria/internal/notifications"
	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/requests"
	"github.com/ecoa/zeladoria/internal/telemetry"
)

// StatsSource devolve contagens; ownerID nil conta todas as solicitações.
type StatsSource interface {
	Stats(ctx context.Context, ownerID *uuid.UUID) (*requests.Stats, error)
}

// Service atualiza os gauges da fila e alerta a administração quando a triagem acumula.
type Service struct {
	source StatsSource
	alerts notifications.Channel
	cfg    config.MonitoringConfig
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastAlert time.Time

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService cria o monitor. alerts pode ser nil.
func NewService(source StatsSource, alerts notifications.Channel, cfg config.MonitoringConfig, logger zerolog.Logger) *Service {
	return &Service{
		source: source,
		alerts: alerts,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Start inicia loop periódico. Safe para chamar múltiplas vezes.
func (s *Service) Start(parent context.Context) {
	if !s.cfg.Enabled {
		return
	}
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.runLoop(ctx)
	})
}

// Stop encerra o loop e aguarda a execução corrente.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Service) runLoop(ctx context.Context) {
	defer close(s.done)

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("monitor: loop iniciado")

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("monitor: primeira execução falhou")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("monitor: loop encerrado")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("monitor: execução periódica falhou")
			}
		}
	}
}

// RunOnce lê as contagens globais, publica os gauges e avalia o alerta de fila.
func (s *Service) RunOnce(ctx context.Context) error {
	stats, err := s.source.Stats(ctx, nil)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	for status, count := range stats.ByStatus {
		telemetry.RequestsByStatus.WithLabelValues(string(status)).Set(float64(count))
	}
	for priority, count := range stats.ByPriority {
		telemetry.RequestsByPriority.WithLabelValues(string(priority)).Set(float64(count))
	}

	s.evaluateBacklog(ctx, stats.ByStatus[policy.StatusPending])
	return nil
}

func (s *Service) evaluateBacklog(ctx context.Context, pending int64) {
	threshold := s.cfg.PendingThreshold
	if threshold <= 0 || s.alerts == nil || pending < threshold {
		return
	}

	now := s.now()
	if s.shouldThrottleAlert(now) {
		return
	}

	severity := "warning"
	if pending >= 2*threshold {
		severity = "critical"
	}
	msg := notifications.Message{
		Subject:  "Fila de triagem acumulada",
		Text:     fmt.Sprintf("%d solicitações aguardando triagem (limite %d)", pending, threshold),
		Severity: severity,
	}
	if err := s.alerts.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("channel", s.alerts.Name()).Msg("monitor: falha ao enviar alerta")
		return
	}

	s.mu.Lock()
	s.lastAlert = now
	s.mu.Unlock()
	telemetry.BacklogAlertsTotal.Inc()
	s.logger.Warn().Int64("pending", pending).Str("severity", severity).Msg("monitor: alerta de fila enviado")
}

func (s *Service) shouldThrottleAlert(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAlert.IsZero() {
		return false
	}
	return now.Sub(s.lastAlert) < s.cfg.AlertCooldown
}
