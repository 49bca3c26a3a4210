package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ecoa/zeladoria/internal/telemetry"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepEach = time.Minute
)

// RateLimiter mantém um token bucket por chave; chaves ociosas são descartadas.
type RateLimiter struct {
	scope string
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter cria limiter nomeado; scope aparece na métrica de recusas.
func NewRateLimiter(scope string, reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		scope:   scope,
		limit:   rate.Limit(reqPerSec),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow consome um token da chave.
func (r *RateLimiter) Allow(key string) bool {
	ok, _ := r.take(key)
	return ok
}

// take consome um token ou informa quanto falta para o próximo.
func (r *RateLimiter) take(key string) (bool, time.Duration) {
	now := r.now()
	lim := r.bucketFor(key, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (r *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= limiterSweepEach {
		for k, b := range r.buckets {
			if now.Sub(b.lastSeen) > limiterIdleTTL {
				delete(r.buckets, k)
			}
		}
		r.lastSweep = now
	}

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// LimitByKey aplica rate limit pela chave extraída da requisição; sem chave, passa direto.
func (r *RateLimiter) LimitByKey(next http.Handler, keyFunc func(*http.Request) (string, bool)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		key, ok := keyFunc(req)
		if !ok || key == "" {
			next.ServeHTTP(w, req)
			return
		}

		if allowed, wait := r.take(key); !allowed {
			telemetry.RateLimitedTotal.WithLabelValues(r.scope).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT", "Limite de requisições excedido")
			return
		}

		next.ServeHTTP(w, req)
	})
}

// IPRateLimit usa o IP do cliente como chave.
func IPRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return limiter.LimitByKey(next, func(r *http.Request) (string, bool) {
			return realIPFromRequest(r), true
		})
	}
}

// UserRateLimit usa o usuário autenticado como chave.
func UserRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return limiter.LimitByKey(next, func(r *http.Request) (string, bool) {
			if p := GetPrincipal(r.Context()); p != nil {
				return p.ID.String(), true
			}
			subject := GetSubject(r.Context())
			return subject.String(), subject != uuid.Nil
		})
	}
}

// realIPFromRequest lê RemoteAddr, já ajustado pelo middleware RealIP do chi.
func realIPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
