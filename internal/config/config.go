package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port             int
	DBDSN            string
	RedisURL         string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	JWTSecret        string
	AllowOrigins     []string
	RateLimitPublic  RateLimitConfig
	RateLimitAuth    RateLimitConfig
	WebAuthnRPID     string
	WebAuthnRPOrigin string
	WebAuthnRPName   string
	Storage          StorageConfig
	Mail             MailConfig
	SlackWebhookURL  string
	MetricsEnabled   bool
	Monitoring       MonitoringConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// StorageConfig descreve o backend de anexos das solicitações.
type StorageConfig struct {
	Provider       string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	PublicURL      string
	MaxUploadBytes int64
}

// MailConfig habilita o envio de cópias das notificações por e-mail.
type MailConfig struct {
	ResendAPIKey string
	From         string
	AppURL       string
}

// Enabled indica se o canal de e-mail possui credenciais.
func (m MailConfig) Enabled() bool {
	return m.ResendAPIKey != "" && m.From != ""
}

// MonitoringConfig controla o acompanhamento periódico da fila de solicitações.
type MonitoringConfig struct {
	Enabled          bool
	Interval         time.Duration
	PendingThreshold int64
	AlertCooldown    time.Duration
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	cfg.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", ""))

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	cfg.WebAuthnRPID = strings.TrimSpace(getEnv("WEBAUTHN_RP_ID", "localhost"))
	if cfg.WebAuthnRPID == "" {
		cfg.WebAuthnRPID = "localhost"
	}
	cfg.WebAuthnRPOrigin = strings.TrimSpace(getEnv("WEBAUTHN_RP_ORIGIN", "http://localhost:3000"))
	if cfg.WebAuthnRPOrigin == "" {
		cfg.WebAuthnRPOrigin = "http://localhost:3000"
	}
	cfg.WebAuthnRPName = strings.TrimSpace(getEnv("WEBAUTHN_RP_NAME", "Ecoa Zeladoria"))
	if cfg.WebAuthnRPName == "" {
		cfg.WebAuthnRPName = "Ecoa Zeladoria"
	}

	storage, err := loadStorage()
	if err != nil {
		return nil, err
	}
	cfg.Storage = storage

	cfg.Mail = MailConfig{
		ResendAPIKey: strings.TrimSpace(getEnv("RESEND_API_KEY", "")),
		From:         strings.TrimSpace(getEnv("MAIL_FROM", "")),
		AppURL:       strings.TrimRight(strings.TrimSpace(getEnv("APP_URL", "http://localhost:3000")), "/"),
	}

	cfg.SlackWebhookURL = strings.TrimSpace(getEnv("SLACK_WEBHOOK_URL", ""))

	metrics, err := parseBoolEnv("METRICS_ENABLED", true)
	if err != nil {
		return nil, err
	}
	cfg.MetricsEnabled = metrics

	monitoring, err := loadMonitoring()
	if err != nil {
		return nil, err
	}
	cfg.Monitoring = monitoring

	return cfg, nil
}

func loadMonitoring() (MonitoringConfig, error) {
	mc := MonitoringConfig{}

	enabled, err := parseBoolEnv("MONITOR_ENABLED", true)
	if err != nil {
		return mc, err
	}
	mc.Enabled = enabled

	if mc.Interval, err = parseDurationEnv("MONITOR_INTERVAL", time.Minute); err != nil {
		return mc, err
	}
	if mc.AlertCooldown, err = parseDurationEnv("MONITOR_ALERT_COOLDOWN", 30*time.Minute); err != nil {
		return mc, err
	}

	if raw := strings.TrimSpace(getEnv("MONITOR_PENDING_THRESHOLD", "")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return mc, errors.New("MONITOR_PENDING_THRESHOLD inválido")
		}
		mc.PendingThreshold = v
	}

	return mc, nil
}

func loadStorage() (StorageConfig, error) {
	sc := StorageConfig{
		Provider:  strings.ToLower(strings.TrimSpace(getEnv("STORAGE_PROVIDER", "noop"))),
		Endpoint:  strings.TrimSpace(getEnv("MINIO_ENDPOINT", "")),
		AccessKey: strings.TrimSpace(getEnv("MINIO_ACCESS_KEY", "")),
		SecretKey: strings.TrimSpace(getEnv("MINIO_SECRET_KEY", "")),
		Bucket:    strings.TrimSpace(getEnv("MINIO_BUCKET", "solicitacoes")),
		PublicURL: strings.TrimRight(strings.TrimSpace(getEnv("MINIO_PUBLIC_URL", "")), "/"),
	}

	useSSL, err := parseBoolEnv("MINIO_USE_SSL", false)
	if err != nil {
		return sc, err
	}
	sc.UseSSL = useSSL

	maxBytes := int64(5 << 20)
	if raw := strings.TrimSpace(getEnv("ATTACHMENT_MAX_BYTES", "")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return sc, errors.New("ATTACHMENT_MAX_BYTES inválido")
		}
		maxBytes = v
	}
	sc.MaxUploadBytes = maxBytes

	if sc.Provider == "minio" && (sc.Endpoint == "" || sc.AccessKey == "" || sc.SecretKey == "") {
		return sc, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY e MINIO_SECRET_KEY são obrigatórios com STORAGE_PROVIDER=minio")
	}

	return sc, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " inválido")
	}
	return b, nil
}
