package auth

import (
	"errors"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// parâmetros atuais; hashes gravados com outros valores são refeitos no próximo login
var current = argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

var (
	dummyOnce sync.Once
	dummyHash string
)

func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, &current)
}

// Verify aceita Argon2id e bcrypt ($2a/$2b/$2y) das contas importadas.
func Verify(password, encoded string) (bool, error) {
	if !isBcrypt(encoded) {
		return argon2id.ComparePasswordAndHash(password, encoded)
	}
	switch err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)); {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// VerifyDummy gasta o mesmo tempo de um Verify real; usado quando o e-mail não existe.
func VerifyDummy(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = Hash("zeladoria-dummy")
	})
	_, _ = argon2id.ComparePasswordAndHash(password, dummyHash)
}

// NeedsRehash vale para bcrypt e para Argon2id com parâmetros antigos.
func NeedsRehash(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}
	params, _, _, err := argon2id.DecodeHash(encoded)
	if err != nil {
		return false
	}
	return *params != current
}

func isBcrypt(hash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}
