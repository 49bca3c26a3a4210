package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ecoa/zeladoria/internal/auth"
	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/repo"
	"github.com/ecoa/zeladoria/internal/util"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
	// ErrEmailTaken indica cadastro com e-mail já existente.
	ErrEmailTaken = errors.New("e-mail já cadastrado")
)

type authRepository interface {
	GetUserByEmail(ctx context.Context, email string) (repo.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	CreateUser(ctx context.Context, arg repo.CreateUserParams) (repo.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	SessionByHash(ctx context.Context, tokenHash string) (repo.Session, error)
	CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (repo.Session, error)
	RevokeOtherSessions(ctx context.Context, userID uuid.UUID, keepHash string) error
	RevokeSession(ctx context.Context, tokenHash string) error
	ListPasskeys(ctx context.Context, userID uuid.UUID) ([]repo.PasskeyCredential, error)
	GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (repo.PasskeyCredential, error)
	CreatePasskey(ctx context.Context, arg repo.CreatePasskeyParams) (repo.PasskeyCredential, error)
	UpdatePasskeyCounter(ctx context.Context, id uuid.UUID, signCount uint32, cloned bool) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r *repo.Queries, redisClient *redis.Client, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Profile       *UserProfile
	RefreshHash   string
	RefreshExpiry time.Time
}

// UserProfile é a visão pública de uma conta.
type UserProfile struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
	Role  string  `json:"role"`
}

// RegisterInput agrupa os dados de cadastro público.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register cria uma conta USER. O papel nunca vem do cliente.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserProfile, error) {
	email := util.NormalizeEmail(input.Email)
	if err := util.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %s", policy.ErrInvalidArgument, err.Error())
	}
	if err := util.ValidatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", policy.ErrInvalidArgument, err.Error())
	}

	name, err := util.NormalizeName(input.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", policy.ErrInvalidArgument, err.Error())
	}

	hash, err := auth.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, repo.CreateUserParams{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         policy.RoleUser,
	})
	if err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("novo usuário cadastrado")
	return newProfile(user), nil
}

// Login autentica com e-mail e senha.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, util.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			auth.VerifyDummy(password)
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, user.PasswordHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verify password failed")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.Hash(password); err == nil {
			if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("login: falha ao regravar hash")
			}
		}
	}

	return s.issue(ctx, user)
}

// LoginWithUser emite tokens para um usuário já autenticado (passkey).
func (s *AuthService) LoginWithUser(ctx context.Context, user repo.User) (*LoginResult, error) {
	return s.issue(ctx, user)
}

// Refresh troca refresh token por novos tokens.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if !auth.WellFormedRefresh(rawToken) {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefresh(rawToken)
	session, err := s.repo.SessionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if !session.Usable(util.Now()) {
		return nil, ErrRefreshInvalid
	}

	redisKey := auth.RefreshKey(hash)
	owner, err := s.redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if owner != session.UserID.String() {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	// Revoga token anterior (DB + Redis)
	if err := s.repo.RevokeSession(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	return result, nil
}

// Logout revoga refresh token atual.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefresh(rawToken)
	if err := s.repo.RevokeSession(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := s.redis.Del(ctx, auth.RefreshKey(hash)).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (repo.User, error) {
	return s.repo.GetUserByEmail(ctx, util.NormalizeEmail(email))
}

func (s *AuthService) ListPasskeys(ctx context.Context, userID uuid.UUID) ([]repo.PasskeyCredential, error) {
	return s.repo.ListPasskeys(ctx, userID)
}

func (s *AuthService) GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (repo.PasskeyCredential, error) {
	return s.repo.GetPasskeyByCredentialID(ctx, credentialID)
}

func (s *AuthService) CreatePasskey(ctx context.Context, arg repo.CreatePasskeyParams) (repo.PasskeyCredential, error) {
	return s.repo.CreatePasskey(ctx, arg)
}

func (s *AuthService) UpdatePasskeyCounter(ctx context.Context, id uuid.UUID, signCount uint32, cloned bool) error {
	return s.repo.UpdatePasskeyCounter(ctx, id, signCount, cloned)
}

func (s *AuthService) issue(ctx context.Context, user repo.User) (*LoginResult, error) {
	token, err := s.jwt.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, user.ID, refresh.Hash, expires); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   token.Value,
		RefreshToken:  refresh.Raw,
		Subject:       user.ID,
		Profile:       newProfile(user),
		RefreshHash:   refresh.Hash,
		RefreshExpiry: expires,
	}, nil
}

func (s *AuthService) persistRefresh(ctx context.Context, userID uuid.UUID, hash string, expires time.Time) error {
	if _, err := s.repo.CreateSession(ctx, userID, hash, expires); err != nil {
		return err
	}
	if err := s.repo.RevokeOtherSessions(ctx, userID, hash); err != nil {
		return err
	}
	return s.redis.Set(ctx, auth.RefreshKey(hash), userID.String(), time.Until(expires)).Err()
}

func newProfile(user repo.User) *UserProfile {
	return &UserProfile{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}
}
