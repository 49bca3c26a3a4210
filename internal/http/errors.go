package http

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/service"
	"github.com/ecoa/zeladoria/internal/storage"
)

// writeDomainError traduz a taxonomia de erros dos serviços para o envelope HTTP.
// Falhas de armazenamento nunca expõem o erro original.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, policy.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, policy.ErrForbidden):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, policy.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
	case errors.Is(err, policy.ErrInvalidArgument):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, service.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, storage.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "envio de anexos indisponível", nil)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("erro não tratado")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
