package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const refreshBytes = 32

// RefreshToken é o par entregue ao cliente (Raw) e guardado no servidor (Hash).
type RefreshToken struct {
	Raw  string
	Hash string
}

// NewRefreshToken sorteia um refresh opaco.
func NewRefreshToken() (RefreshToken, error) {
	buf := make([]byte, refreshBytes)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return RefreshToken{Raw: raw, Hash: HashRefresh(raw)}, nil
}

// WellFormedRefresh descarta valores que não podem ter saído de NewRefreshToken.
func WellFormedRefresh(raw string) bool {
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	return err == nil && len(decoded) == refreshBytes
}

func HashRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RefreshKey é a chave Redis do refresh; o valor guardado é o id do dono.
func RefreshKey(hash string) string {
	return "zeladoria:refresh:" + hash
}
