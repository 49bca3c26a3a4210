package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/repo"
	"github.com/ecoa/zeladoria/internal/requests"
)

type seedUser struct {
	email    string
	password string
	name     string
	role     policy.Role
}

var seedUsers = []seedUser{
	{email: "admin@ecoa.com", password: "admin123", name: "Administrador", role: policy.RoleAdmin},
	{email: "usuario@ecoa.com", password: "user123", name: "João Silva", role: policy.RoleUser},
}

func ptr(s string) *string { return &s }

// solicitações do cidadão de demonstração, uma por estágio
var seedRequests = []policy.NewRequest{
	{
		Title:       "Lâmpada queimada na Rua Principal",
		Description: "A lâmpada do poste 123 está queimada há uma semana",
		Category:    policy.CategoryIluminacao,
		Location:    ptr("Rua Principal, 123"),
		Status:      policy.StatusPending,
		Priority:    policy.PriorityMedium,
	},
	{
		Title:       "Buraco na pista",
		Description: "Grande buraco na Avenida Central causando risco aos motoristas",
		Category:    policy.CategoryPavimentacao,
		Location:    ptr("Avenida Central, altura do 500"),
		Status:      policy.StatusInProgress,
		Priority:    policy.PriorityHigh,
	},
	{
		Title:       "Lixo não coletado",
		Description: "O lixo não foi coletado nos últimos 3 dias",
		Category:    policy.CategoryColetaLixo,
		Location:    ptr("Rua das Flores, 45"),
		Status:      policy.StatusResolved,
		Priority:    policy.PriorityUrgent,
	},
}

func runSeed(ctx context.Context, args []string) error {
	fs, dsn := newFlagSet("seed")
	if err := parse(fs, args); err != nil {
		return err
	}

	pool, err := connect(ctx, *dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	return seed(ctx, pool)
}

// seed é idempotente: contas existentes são mantidas e as solicitações
// só são criadas junto com o cidadão de demonstração.
func seed(ctx context.Context, pool *pgxpool.Pool) error {
	q := repo.New(pool)

	var citizen *repo.User
	for _, su := range seedUsers {
		user, created, err := ensureUser(ctx, q, su)
		if err != nil {
			return fmt.Errorf("seed %s: %w", su.email, err)
		}
		log.Info().Str("email", user.Email).Bool("created", created).Msg("conta de demonstração")
		if su.role == policy.RoleUser && created {
			citizen = &user
		}
	}
	if citizen == nil {
		log.Info().Msg("solicitações de demonstração já existem")
		return nil
	}

	store := requests.NewRepository(pool)
	for _, nr := range seedRequests {
		nr.OwnerID = citizen.ID
		sr, err := store.Create(ctx, nr)
		if err != nil {
			return fmt.Errorf("seed solicitação %q: %w", nr.Title, err)
		}
		log.Info().Str("request_id", sr.ID.String()).Str("status", string(sr.Status)).Msg("solicitação criada")
	}
	return nil
}

func ensureUser(ctx context.Context, q *repo.Queries, su seedUser) (repo.User, bool, error) {
	existing, err := q.GetUserByEmail(ctx, su.email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return repo.User{}, false, err
	}

	user, err := createUser(ctx, q, su.email, su.password, su.name, su.role)
	if errors.Is(err, repo.ErrEmailTaken) {
		// corrida com outro seed
		existing, err = q.GetUserByEmail(ctx, su.email)
		return existing, false, err
	}
	if err != nil {
		return repo.User{}, false, err
	}
	return user, true, nil
}
