package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ecoa/zeladoria/internal/auth"
	"github.com/ecoa/zeladoria/internal/policy"
)

type resolverFunc func(ctx context.Context, subject uuid.UUID) (*policy.Principal, error)

func (f resolverFunc) Principal(ctx context.Context, subject uuid.UUID) (*policy.Principal, error) {
	return f(ctx, subject)
}

func newJWT() *auth.JWTManager {
	return auth.NewJWTManager(strings.Repeat("k", 32), time.Minute)
}

func TestAuthRejectsMissingAndForeignTokens(t *testing.T) {
	jwtMgr := newJWT()
	handler := Auth(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    auth.Issuer,
			Subject:   uuid.NewString(),
			Audience:  jwt.ClaimStrings{"saas"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(strings.Repeat("k", 32)))
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	for name, header := range map[string]string{
		"audiência estranha": "Bearer " + foreign,
		"esquema errado":     "Basic abc",
		"bearer vazio":       "Bearer ",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestAuthAndIdentityInjectPrincipal(t *testing.T) {
	jwtMgr := newJWT()
	id := uuid.New()
	stored := &policy.Principal{ID: id, Email: "admin@ecoa.com", Role: policy.RoleAdmin}
	resolver := resolverFunc(func(ctx context.Context, subject uuid.UUID) (*policy.Principal, error) {
		if subject != id {
			return nil, policy.ErrUnauthenticated
		}
		return stored, nil
	})

	var got *policy.Principal
	var tokenRole string
	var subject uuid.UUID
	handler := Auth(jwtMgr)(Identity(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
		tokenRole = GetRole(r.Context())
		subject = GetSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	token, err := jwtMgr.Issue(id, "USER")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token.Value)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got != stored || !got.IsAdmin() {
		t.Fatalf("principal must be the stored user, got %+v", got)
	}
	if tokenRole != "USER" || subject != id {
		t.Fatalf("token claims must still be readable, got %q %s", tokenRole, subject)
	}
}

func TestIdentityFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"usuário removido", policy.ErrUnauthenticated, http.StatusUnauthorized},
		{"banco fora", errors.New("timeout"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := resolverFunc(func(ctx context.Context, subject uuid.UUID) (*policy.Principal, error) {
				return nil, tc.err
			})
			handler := Identity(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("next must not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithSubject(req.Context(), uuid.New()))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestUserRateLimit(t *testing.T) {
	limiter := NewRateLimiter("user", 0.001, 2)
	handler := UserRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	p := &policy.Principal{ID: uuid.New(), Role: policy.RoleUser}
	other := &policy.Principal{ID: uuid.New(), Role: policy.RoleUser}
	call := func(principal *policy.Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithPrincipal(req.Context(), principal))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if call(p) != http.StatusNoContent || call(p) != http.StatusNoContent {
		t.Fatal("burst must be allowed")
	}
	if code := call(p); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := call(other); code != http.StatusNoContent {
		t.Fatalf("other users have their own bucket, got %d", code)
	}
}

func TestRateLimitRetryAfter(t *testing.T) {
	limiter := NewRateLimiter("public", 0.5, 1)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	handler := IPRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.7:5123"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := call(); rec.Code != http.StatusNoContent {
		t.Fatalf("first call must pass, got %d", rec.Code)
	}
	rec := call()
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected 429 with Retry-After 2, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}

	// a recusa não consome token
	now = now.Add(2 * time.Second)
	if rec := call(); rec.Code != http.StatusNoContent {
		t.Fatalf("bucket must refill, got %d", rec.Code)
	}
}

func TestRateLimiterDropsIdleKeys(t *testing.T) {
	limiter := NewRateLimiter("public", 1, 1)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	now = now.Add(limiterIdleTTL + time.Minute)
	limiter.Allow("b")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, ok := limiter.buckets["a"]; ok {
		t.Fatal("idle key must be swept")
	}
	if len(limiter.buckets) != 1 {
		t.Fatalf("expected only the fresh key, got %d", len(limiter.buckets))
	}
}

func TestCORSWildcard(t *testing.T) {
	handler := CORS([]string{"https://app.ecoa.com", "*.ecoa.gov.br"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := map[string]bool{
		"https://app.ecoa.com":         true,
		"https://painel.ecoa.gov.br":   true,
		"https://ecoa.gov.br":          false,
		"https://ecoa.gov.br.evil.com": false,
	}
	for origin, allowed := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		got := rec.Header().Get("Access-Control-Allow-Origin") == origin
		if got != allowed {
			t.Fatalf("origin %s: expected allowed=%v", origin, allowed)
		}
	}

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.ecoa.com")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight must short-circuit, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("preflight must allow PATCH, got %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}

	// OPTIONS sem cabeçalho de preflight segue para o handler
	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("plain OPTIONS must reach the handler, got %d", rec.Code)
	}
}

func TestRecoverWritesEnvelope(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"INTERNAL"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
