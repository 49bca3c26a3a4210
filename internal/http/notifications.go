package http

import (
	"net/http"
	"strconv"

	"github.com/ecoa/zeladoria/internal/notifications"
)

// ListNotifications lista a caixa de entrada do usuário. ?unread=true filtra as não lidas.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "unread inválido", nil)
			return
		}
		unreadOnly = v
	}

	items, err := h.notifications.List(r.Context(), p, unreadOnly)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}

	WriteJSON(w, http.StatusOK, items)
}

// UpdateNotification marca como lida ou não lida.
func (h *Handler) UpdateNotification(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var payload struct {
		Read *bool `json:"read"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.Read == nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "read é obrigatório", nil)
		return
	}

	updated, err := h.notifications.MarkRead(r.Context(), p, id, *payload.Read)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, updated)
}
