package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ecoa/zeladoria/internal/auth"
	"github.com/ecoa/zeladoria/internal/db"
	"github.com/ecoa/zeladoria/internal/policy"
	"github.com/ecoa/zeladoria/internal/repo"
	"github.com/ecoa/zeladoria/internal/util"
)

const usage = `zeladoria-admin: tarefas administrativas do banco.

Uso:
  admin migrate                 aplica o schema
  admin seed                    cria contas e solicitações de demonstração
  admin create-admin --email E --password S [--name N]
  admin list-users

Todas aceitam --dsn (padrão: DB_DSN do ambiente ou .env).
`

var errUsage = errors.New("uso inválido")

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Error().Err(err).Msg("falha")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "migrate":
		return runMigrate(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	case "create-admin":
		return runCreateAdmin(ctx, args[1:])
	case "list-users":
		return runListUsers(ctx, args[1:], out)
	case "-h", "--help", "help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("%w: comando desconhecido %q", errUsage, args[0])
	}
}

func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dsn := fs.String("dsn", os.Getenv("DB_DSN"), "connection string do Postgres")
	return fs, dsn
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return errUsage
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: argumento inesperado %s", errUsage, fs.Arg(0))
	}
	return nil
}

func connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}
	return db.NewPool(ctx, dsn)
}

func runMigrate(ctx context.Context, args []string) error {
	fs, dsn := newFlagSet("migrate")
	if err := parse(fs, args); err != nil {
		return err
	}

	pool, err := connect(ctx, *dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Msg("schema aplicado")
	return nil
}

type adminInput struct {
	email    string
	password string
	name     string
}

func (in adminInput) validate() error {
	if err := util.ValidateEmail(in.email); err != nil {
		return err
	}
	return util.ValidatePassword(in.password)
}

func runCreateAdmin(ctx context.Context, args []string) error {
	var in adminInput
	fs, dsn := newFlagSet("create-admin")
	fs.StringVar(&in.email, "email", "", "e-mail do administrador")
	fs.StringVar(&in.password, "password", "", "senha inicial")
	fs.StringVar(&in.name, "name", "", "nome exibido")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	pool, err := connect(ctx, *dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	user, err := createUser(ctx, repo.New(pool), in.email, in.password, in.name, policy.RoleAdmin)
	if err != nil {
		return err
	}
	log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("administrador criado")
	return nil
}

func createUser(ctx context.Context, q *repo.Queries, email, password, name string, role policy.Role) (repo.User, error) {
	displayName, err := util.NormalizeName(name)
	if err != nil {
		return repo.User{}, err
	}
	hash, err := auth.Hash(password)
	if err != nil {
		return repo.User{}, fmt.Errorf("hash: %w", err)
	}

	return q.CreateUser(ctx, repo.CreateUserParams{
		Email:        util.NormalizeEmail(email),
		Name:         displayName,
		PasswordHash: hash,
		Role:         role,
	})
}

func runListUsers(ctx context.Context, args []string, out io.Writer) error {
	fs, dsn := newFlagSet("list-users")
	if err := parse(fs, args); err != nil {
		return err
	}

	pool, err := connect(ctx, *dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	users, err := repo.New(pool).ListUsers(ctx)
	if err != nil {
		return err
	}
	return printUsers(out, users)
}

func printUsers(out io.Writer, users []repo.User) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNOME\tPAPEL\tCRIADO EM")
	for _, u := range users {
		name := "-"
		if u.Name != nil {
			name = *u.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, name, u.Role, u.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}
