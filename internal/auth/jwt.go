package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AudienceApp identifica tokens emitidos para o app de solicitações.
	AudienceApp = "app"
	// Issuer vai no claim iss de todo token emitido.
	Issuer = "zeladoria"

	clockLeeway = 30 * time.Second
)

// ErrTokenInvalid cobre assinatura, expiração, emissor ou audiência inválidos.
var ErrTokenInvalid = errors.New("token inválido")

// Claims do token de acesso. Role é só informativo: o papel efetivo
// é relido do banco a cada requisição.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID devolve o subject como id de usuário.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject", ErrTokenInvalid)
	}
	return id, nil
}

// AccessToken é o JWT assinado e seus metadados.
type AccessToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// JWTManager emite e valida tokens HS256.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

// Issue assina um token de acesso para o usuário.
func (m *JWTManager) Issue(userID uuid.UUID, role string) (AccessToken, error) {
	now := m.now().UTC()
	tok := AccessToken{ID: uuid.NewString(), ExpiresAt: now.Add(m.accessTTL)}

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{AudienceApp},
			ExpiresAt: jwt.NewNumericDate(tok.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tok.ID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return AccessToken{}, err
	}
	tok.Value = signed
	return tok, nil
}

// Parse valida assinatura, expiração, emissor e audiência.
func (m *JWTManager) Parse(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(AudienceApp),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
