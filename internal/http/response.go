package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// responseEnvelope é o formato de toda resposta JSON: data ou error, nunca os dois.
type responseEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody é o conteúdo de "error".
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, body responseEnvelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, responseEnvelope{Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	writeEnvelope(w, status, responseEnvelope{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}

const maxJSONBody = 1 << 20

// decodeJSON aceita um único objeto JSON de até 1 MiB e responde 400 no resto.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	err := dec.Decode(dst)
	if err == nil && dec.More() {
		err = errTrailingJSON
	}
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo da requisição muito grande", nil)
	case errors.Is(err, io.EOF):
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo da requisição vazio", nil)
	default:
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
	}
	return false
}

var errTrailingJSON = errors.New("conteúdo após o objeto JSON")
