package http

import "net/http"

// Stats devolve contagens das solicitações visíveis.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}

	stats, err := h.requests.Stats(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
