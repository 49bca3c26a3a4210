package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ecoa/zeladoria/internal/policy"
)

// PrincipalResolver carrega o usuário atual a partir do subject do token.
type PrincipalResolver interface {
	Principal(ctx context.Context, subject uuid.UUID) (*policy.Principal, error)
}

// Identity relê o usuário do token a cada requisição e injeta o principal no contexto.
// Deve rodar depois de Auth.
func Identity(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetSubject(r.Context())
			if subject == uuid.Nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "não autenticado")
				return
			}

			principal, err := resolver.Principal(r.Context(), subject)
			if err != nil {
				if errors.Is(err, policy.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, "AUTH", "usuário não encontrado")
					return
				}
				log.Error().Err(err).Str("subject", subject.String()).Msg("falha ao carregar principal")
				writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// WithPrincipal injeta o principal no contexto.
func WithPrincipal(ctx context.Context, p *policy.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// GetPrincipal retorna o principal do contexto, ou nil.
func GetPrincipal(ctx context.Context) *policy.Principal {
	val, _ := ctx.Value(ContextKeyPrincipal).(*policy.Principal)
	return val
}
