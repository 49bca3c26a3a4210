package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ecoa/zeladoria/internal/repo"
)

func writeCeremony(w http.ResponseWriter, sessionID string, publicKey any) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"session": sessionID,
		"options": map[string]any{"publicKey": publicKey},
	})
}

func (h *Handler) loadPasskeyUser(ctx context.Context, userID uuid.UUID) (*passkeyUser, error) {
	user, err := h.authService.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stored, err := h.authService.ListPasskeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newPasskeyUser(user, stored), nil
}

// PasskeyRegisterStart inicia o cadastro de uma biometria para o usuário logado.
func (h *Handler) PasskeyRegisterStart(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	user, err := h.loadPasskeyUser(ctx, p.ID)
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível carregar biometria")
		return
	}

	creation, session, err := h.webauthn.BeginRegistration(user,
		webauthn.WithExclusions(user.exclusions()),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
	)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	id, err := h.ceremonies.Save(ctx, ceremonyRegister, session, p.ID)
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível preparar registro")
		return
	}
	writeCeremony(w, id, creation.Response)
}

// PasskeyRegisterFinish valida a resposta do autenticador e grava a credencial.
func (h *Handler) PasskeyRegisterFinish(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	session, userID, err := h.ceremonies.Take(ctx, ceremonyRegister, r.URL.Query().Get("session"))
	if err == nil && userID != p.ID {
		err = errCeremonyExpired
	}
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível validar registro")
		return
	}

	user, err := h.loadPasskeyUser(ctx, userID)
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível carregar biometria")
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "resposta inválida", nil)
		return
	}
	credential, err := h.webauthn.CreateCredential(user, *session, parsed)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	if _, err := h.authService.CreatePasskey(ctx, storedFromCredential(userID, credential)); err != nil {
		h.passkeyFailure(w, r, err, "não foi possível salvar a biometria")
		return
	}

	log.Info().Str("user_id", userID.String()).Msg("biometria cadastrada")
	WriteJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// PasskeyLoginStart prepara o desafio de login para o e-mail informado.
func (h *Handler) PasskeyLoginStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Email) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email é obrigatório", nil)
		return
	}
	ctx := r.Context()

	account, err := h.authService.GetUserByEmail(ctx, payload.Email)
	if errors.Is(err, repo.ErrNotFound) {
		WriteError(w, http.StatusUnauthorized, "AUTH", "biometria não configurada", nil)
		return
	}
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível preparar biometria")
		return
	}

	user, err := h.loadPasskeyUser(ctx, account.ID)
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível preparar biometria")
		return
	}
	if len(user.credentials) == 0 {
		WriteError(w, http.StatusUnauthorized, "AUTH", "biometria não configurada", nil)
		return
	}

	assertion, session, err := h.webauthn.BeginLogin(user)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	id, err := h.ceremonies.Save(ctx, ceremonyLogin, session, account.ID)
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível preparar biometria")
		return
	}
	writeCeremony(w, id, assertion.Response)
}

// PasskeyLoginFinish confere a asserção e emite a sessão como no login por senha.
func (h *Handler) PasskeyLoginFinish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, userID, err := h.ceremonies.Take(ctx, ceremonyLogin, r.URL.Query().Get("session"))
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível validar biometria")
		return
	}

	user, err := h.loadPasskeyUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		WriteError(w, http.StatusUnauthorized, "AUTH", "usuário não encontrado", nil)
		return
	}
	if err != nil {
		h.passkeyFailure(w, r, err, "não foi possível validar biometria")
		return
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "resposta inválida", nil)
		return
	}
	credential, err := h.webauthn.ValidateLogin(user, *session, parsed)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "biometria não confere", nil)
		return
	}

	stored, err := h.authService.GetPasskeyByCredentialID(ctx, credential.ID)
	if err != nil || stored.UserID != userID {
		WriteError(w, http.StatusUnauthorized, "AUTH", "credencial inválida", nil)
		return
	}
	if credential.Authenticator.CloneWarning {
		log.Warn().Str("user_id", userID.String()).Msg("contador da biometria regrediu: possível clone")
	}
	if err := h.authService.UpdatePasskeyCounter(ctx, stored.ID, credential.Authenticator.SignCount, credential.Authenticator.CloneWarning); err != nil {
		h.passkeyFailure(w, r, err, "não foi possível atualizar biometria")
		return
	}

	result, err := h.authService.LoginWithUser(ctx, user.user)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}
	h.writeLoginSuccess(w, result)
}

// passkeyFailure responde 400 para sessão vencida e 500 (logado) para o resto.
func (h *Handler) passkeyFailure(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, errCeremonyExpired) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", errCeremonyExpired.Error(), nil)
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	WriteError(w, http.StatusInternalServerError, "INTERNAL", message, nil)
}
