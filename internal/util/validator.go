package util

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	maxEmailLen    = 254
	minPasswordLen = 8
	// argon2 aceita qualquer tamanho; o teto evita hashing de payloads enormes
	maxPasswordLen = 128
	maxNameLen     = 120
)

// NormalizeEmail remove espaços e converte para minúsculas.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail aceita apenas o endereço puro, sem nome de exibição.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obrigatório")
	}
	if len(email) > maxEmailLen {
		return errors.New("email longo demais")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("email inválido")
	}
	return nil
}

// ValidatePassword verifica os limites de tamanho da senha.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n < minPasswordLen:
		return errors.New("senha deve ter pelo menos 8 caracteres")
	case n > maxPasswordLen:
		return errors.New("senha deve ter no máximo 128 caracteres")
	}
	return nil
}

// NormalizeName devolve nil para nome vazio e valida o tamanho.
func NormalizeName(name string) (*string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return nil, errors.New("nome deve ter no máximo 120 caracteres")
	}
	return &name, nil
}
