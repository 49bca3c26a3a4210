package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ecoa/zeladoria/internal/auth"
	"github.com/ecoa/zeladoria/internal/config"
	httpmiddleware "github.com/ecoa/zeladoria/internal/http/middleware"
	"github.com/ecoa/zeladoria/internal/notifications"
	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/requests"
	"github.com/ecoa/zeladoria/internal/service"
)

type requestService interface {
	List(ctx context.Context, p *policy.Principal, params requests.ListParams) ([]requests.ServiceRequest, error)
	Get(ctx context.Context, p *policy.Principal, id uuid.UUID) (*requests.ServiceRequest, error)
	Create(ctx context.Context, p *policy.Principal, draft policy.Draft) (*requests.ServiceRequest, error)
	Update(ctx context.Context, p *policy.Principal, id uuid.UUID, patch policy.Patch) (*requests.ServiceRequest, error)
	Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error
	ListResponses(ctx context.Context, p *policy.Principal, id uuid.UUID) ([]requests.Response, error)
	Respond(ctx context.Context, p *policy.Principal, id uuid.UUID, message string) (*requests.PostedResponse, error)
	Stats(ctx context.Context, p *policy.Principal) (*requests.Stats, error)
	Attach(ctx context.Context, p *policy.Principal, id uuid.UUID, file requests.FileUpload) (*requests.Attachment, error)
	ListAttachments(ctx context.Context, p *policy.Principal, id uuid.UUID) ([]requests.Attachment, error)
}

type notificationService interface {
	List(ctx context.Context, p *policy.Principal, unreadOnly bool) ([]notifications.Notification, error)
	MarkRead(ctx context.Context, p *policy.Principal, id uuid.UUID, read bool) (*notifications.Notification, error)
}

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	jwt           *auth.JWTManager
	authService   *service.AuthService
	identity      httpmiddleware.PrincipalResolver
	requests      requestService
	notifications notificationService
	webauthn      *webauthn.WebAuthn
	ceremonies    *ceremonyStore
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	maxUpload     int64
	metricsOn     bool
	devCookies    bool
}

const (
	refreshCookieName = "zeladoria_refresh"
	passkeySessionTTL = 5 * time.Minute
)

// NewRouter devolve roteador configurado.
func NewRouter(
	cfg *config.Config,
	pool *pgxpool.Pool,
	redisClient *redis.Client,
	authService *service.AuthService,
	identity *service.IdentityService,
	requestService *requests.Service,
	notificationService *notifications.Service,
) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.WebAuthnRPName,
		RPID:          cfg.WebAuthnRPID,
		RPOrigins:     []string{cfg.WebAuthnRPOrigin},
	})
	if err != nil {
		return nil, fmt.Errorf("webauthn: %w", err)
	}

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		jwt:           authService.JWT(),
		authService:   authService,
		identity:      identity,
		requests:      requestService,
		notifications: notificationService,
		webauthn:      wa,
		ceremonies:    newCeremonyStore(redisClient, passkeySessionTTL),
		publicLimiter: httpmiddleware.NewRateLimiter("public", cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter("user", cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		maxUpload:     cfg.Storage.MaxUploadBytes,
		metricsOn:     cfg.MetricsEnabled,
		devCookies:    devCookies,
	}

	return h.routes(cfg.AllowOrigins), nil
}

func (h *Handler) routes(allowOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.Metrics)
	r.Use(httpmiddleware.CORS(allowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		if h.metricsOn {
			public.Handle("/metrics", promhttp.Handler())
		}

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Register)
			auth.Post("/login", h.Login)
			auth.Post("/passkey/login/start", h.PasskeyLoginStart)
			auth.Post("/passkey/login/finish", h.PasskeyLoginFinish)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.jwt))
		private.Use(httpmiddleware.Identity(h.identity))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)
		private.Route("/auth/passkey/register", func(r chi.Router) {
			r.Post("/start", h.PasskeyRegisterStart)
			r.Post("/finish", h.PasskeyRegisterFinish)
		})

		private.Route("/requests", func(rr chi.Router) {
			rr.Get("/", h.ListRequests)
			rr.Post("/", h.CreateRequest)
			rr.Route("/{id}", func(item chi.Router) {
				item.Get("/", h.GetRequest)
				item.Patch("/", h.UpdateRequest)
				item.Delete("/", h.DeleteRequest)
				item.Get("/responses", h.ListResponses)
				item.Post("/responses", h.CreateResponse)
				item.Get("/attachments", h.ListAttachments)
				item.Post("/attachments", h.UploadAttachment)
			})
		})

		private.Route("/notifications", func(n chi.Router) {
			n.Get("/", h.ListNotifications)
			n.Patch("/{id}", h.UpdateNotification)
		})

		private.Get("/stats", h.Stats)
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Register cria uma conta de cidadão.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	profile, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     payload.Name,
	})
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"user": profile})
}

// Login autentica com e-mail e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(payload.Password) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Refresh rotaciona token de acesso.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := getRefreshFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			h.clearRefreshCookie(w)
			WriteError(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao renovar sessão", nil)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Logout revoga refresh token atual.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := getRefreshFromRequest(r); err == nil {
		_ = h.authService.Logout(r.Context(), token)
	}

	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me retorna o usuário autenticado com o papel atual.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := httpmiddleware.GetPrincipal(r.Context())
	if p == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user": service.UserProfile{
			ID:    p.ID.String(),
			Email: p.Email,
			Name:  p.Name,
			Role:  string(p.Role),
		},
	})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrRefreshInvalid):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	default:
		writeDomainError(w, r, err)
	}
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, result *service.LoginResult) {
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"user":         result.Profile,
	})
}

func principalOrAbort(w http.ResponseWriter, r *http.Request) (*policy.Principal, bool) {
	p := httpmiddleware.GetPrincipal(r.Context())
	if p == nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "não autenticado", nil)
		return nil, false
	}
	return p, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		// id malformado não pode existir
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
		return uuid.Nil, false
	}
	return id, true
}

func getRefreshFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errors.New("refresh ausente")
}

func (h *Handler) refreshCookie(value string) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: sameSite,
	}
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := h.refreshCookie(token)
	c.Expires = expires
	http.SetCookie(w, c)
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	c := h.refreshCookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}
