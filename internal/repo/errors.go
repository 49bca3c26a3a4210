package repo

import "errors"

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrEmailTaken indica violação do índice único de e-mail.
	ErrEmailTaken = errors.New("e-mail já cadastrado")
)
