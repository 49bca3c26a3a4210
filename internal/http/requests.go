package http

import (
	"encoding/json"
	"net/http"

	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/requests"
)

type createRequestPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// updateRequestPayload distingue "location" ausente de "location": null (limpa o campo).
type updateRequestPayload struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Location    json.RawMessage `json:"location"`
	Status      *string         `json:"status"`
	Priority    *string         `json:"priority"`
}

func (p updateRequestPayload) patch() (policy.Patch, error) {
	patch := policy.Patch{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Status:      p.Status,
		Priority:    p.Priority,
	}
	if len(p.Location) == 0 {
		return patch, nil
	}
	if string(p.Location) == "null" {
		patch.ClearLocation = true
		return patch, nil
	}
	var loc string
	if err := json.Unmarshal(p.Location, &loc); err != nil {
		return policy.Patch{}, err
	}
	patch.Location = &loc
	return patch, nil
}

// ListRequests lista solicitações visíveis com filtros opcionais.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	items, err := h.requests.List(r.Context(), p, requests.ListParams{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, items)
}

// CreateRequest abre uma nova solicitação.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	var payload createRequestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	created, err := h.requests.Create(r.Context(), p, policy.Draft{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    payload.Category,
		Location:    payload.Location,
		Status:      payload.Status,
		Priority:    payload.Priority,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// GetRequest devolve a solicitação com respostas.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	item, err := h.requests.Get(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

// UpdateRequest aplica alteração parcial.
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var payload updateRequestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	patch, err := payload.patch()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "location inválida", nil)
		return
	}

	updated, err := h.requests.Update(r.Context(), p, id, patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, updated)
}

// DeleteRequest remove a solicitação.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.requests.Delete(r.Context(), p, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListResponses lista respostas em ordem cronológica.
func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	items, err := h.requests.ListResponses(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []requests.Response{}
	}

	WriteJSON(w, http.StatusOK, items)
}

// CreateResponse registra a resposta de um administrador.
func (h *Handler) CreateResponse(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	posted, err := h.requests.Respond(r.Context(), p, id, payload.Message)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, posted)
}
