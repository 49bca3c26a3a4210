package http

import (
	"errors"
	"net/http"

	"github.com/ecoa/zeladoria/internal/requests"
)

// memória usada pelo multipart antes de ir para disco
const multipartMemory = 1 << 20

// UploadAttachment recebe o campo multipart "file".
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "arquivo muito grande", nil)
			return
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", "formulário inválido", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo file obrigatório", nil)
		return
	}
	defer file.Close()

	created, err := h.requests.Attach(r.Context(), p, id, requests.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// ListAttachments lista anexos da solicitação.
func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrAbort(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	items, err := h.requests.ListAttachments(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []requests.Attachment{}
	}

	WriteJSON(w, http.StatusOK, items)
}
