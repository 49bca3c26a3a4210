package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/ecoa/zeladoria/internal/config"
	"github.com/ecoa/zeladoria/internal/notifications"
	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/requests"
	"github.com/ecoa/zeladoria/internal/telemetry"
)

type stubSource struct {
	mu      sync.Mutex
	pending int64
	calls   int
	err     error
}

func (s *stubSource) Stats(ctx context.Context, ownerID *uuid.UUID) (*requests.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if ownerID != nil {
		return nil, errors.New("monitor must read global stats")
	}
	if s.err != nil {
		return nil, s.err
	}
	return &requests.Stats{
		Total:      s.pending + 2,
		ByStatus:   map[policy.Status]int64{policy.StatusPending: s.pending, policy.StatusResolved: 2},
		ByCategory: map[policy.Category]int64{policy.CategoryOutros: s.pending + 2},
		ByPriority: map[policy.Priority]int64{policy.PriorityMedium: s.pending, policy.PriorityHigh: 2},
	}, nil
}

type recordingChannel struct {
	sent []notifications.Message
	err  error
}

func (c *recordingChannel) Name() string { return "slack" }

func (c *recordingChannel) Send(ctx context.Context, msg notifications.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func newMonitor(source StatsSource, ch notifications.Channel, threshold int64) (*Service, *time.Time) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(source, ch, config.MonitoringConfig{
		Enabled:          true,
		Interval:         time.Hour,
		PendingThreshold: threshold,
		AlertCooldown:    30 * time.Minute,
	}, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestRunOncePublishesGauges(t *testing.T) {
	svc, _ := newMonitor(&stubSource{pending: 7}, nil, 0)

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := testutil.ToFloat64(telemetry.RequestsByStatus.WithLabelValues("PENDING")); got != 7 {
		t.Fatalf("expected 7 pending, got %v", got)
	}
	if got := testutil.ToFloat64(telemetry.RequestsByPriority.WithLabelValues("HIGH")); got != 2 {
		t.Fatalf("expected 2 high, got %v", got)
	}
}

func TestBacklogAlertThresholdAndCooldown(t *testing.T) {
	source := &stubSource{pending: 4}
	ch := &recordingChannel{}
	svc, now := newMonitor(source, ch, 5)
	ctx := context.Background()

	if err := svc.RunOnce(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ch.sent) != 0 {
		t.Fatal("below threshold must not alert")
	}

	source.pending = 6
	_ = svc.RunOnce(ctx)
	if len(ch.sent) != 1 || ch.sent[0].Severity != "warning" {
		t.Fatalf("expected one warning, got %+v", ch.sent)
	}

	source.pending = 12
	*now = now.Add(10 * time.Minute)
	_ = svc.RunOnce(ctx)
	if len(ch.sent) != 1 {
		t.Fatal("alert inside cooldown must be suppressed")
	}

	*now = now.Add(31 * time.Minute)
	_ = svc.RunOnce(ctx)
	if len(ch.sent) != 2 || ch.sent[1].Severity != "critical" {
		t.Fatalf("expected critical after cooldown, got %+v", ch.sent)
	}
}

func TestFailedAlertIsRetriedNextRun(t *testing.T) {
	source := &stubSource{pending: 10}
	ch := &recordingChannel{err: errors.New("webhook fora")}
	svc, _ := newMonitor(source, ch, 5)
	ctx := context.Background()

	_ = svc.RunOnce(ctx)
	ch.err = nil
	_ = svc.RunOnce(ctx)
	if len(ch.sent) != 1 {
		t.Fatalf("failed delivery must not start the cooldown, got %d", len(ch.sent))
	}
}

func TestRunOnceSurfacesStatsError(t *testing.T) {
	svc, _ := newMonitor(&stubSource{err: errors.New("db fora")}, nil, 0)
	if err := svc.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	source := &stubSource{}
	svc, _ := newMonitor(source, nil, 0)

	svc.Start(context.Background())
	svc.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for {
		source.mu.Lock()
		calls := source.calls
		source.mu.Unlock()
		if calls >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first run did not happen")
		}
		time.Sleep(5 * time.Millisecond)
	}

	svc.Stop()
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.calls != 1 {
		t.Fatalf("expected a single run with a one hour interval, got %d", source.calls)
	}
}

func TestDisabledMonitorDoesNothing(t *testing.T) {
	source := &stubSource{}
	svc := NewService(source, nil, config.MonitoringConfig{}, zerolog.Nop())
	svc.Start(context.Background())
	svc.Stop()
	if source.calls != 0 {
		t.Fatal("disabled monitor must not run")
	}
}
