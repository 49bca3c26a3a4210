// Package telemetry reúne os coletores Prometheus do serviço.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Métricas de negócio
	RequestsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeladoria_requests_created_total",
		Help: "Total de solicitações abertas",
	}, []string{"category"})

	RequestStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeladoria_request_status_changes_total",
		Help: "Total de mudanças de status feitas pela administração",
	}, []string{"status"})

	ResponsesPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zeladoria_responses_posted_total",
		Help: "Total de respostas publicadas (cada uma com sua notificação)",
	})

	NotificationDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeladoria_notification_deliveries_total",
		Help: "Entregas externas de notificações por canal e resultado",
	}, []string{"channel", "status"})

	AttachmentsUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zeladoria_attachments_uploaded_total",
		Help: "Total de anexos enviados",
	})

	RequestsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zeladoria_requests",
		Help: "Solicitações existentes por status",
	}, []string{"status"})

	RequestsByPriority = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zeladoria_requests_by_priority",
		Help: "Solicitações existentes por prioridade",
	}, []string{"priority"})

	BacklogAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zeladoria_backlog_alerts_total",
		Help: "Alertas de fila de triagem enviados",
	})

	// Métricas de infraestrutura
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeladoria_http_requests_total",
		Help: "Total de requisições HTTP",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zeladoria_http_request_duration_seconds",
		Help:    "Latência das requisições HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeladoria_rate_limited_total",
		Help: "Requisições recusadas pelo rate limit",
	}, []string{"scope"})
)
