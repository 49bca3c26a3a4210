package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ecoa/zeladoria/internal/auth"
	"github.com/ecoa/zeladoria/internal/config"
	"github.com/ecoa/zeladoria/internal/db"
	internalhttp "github.com/ecoa/zeladoria/internal/http"
	"github.com/ecoa/zeladoria/internal/monitor"
	"github.com/ecoa/zeladoria/internal/notifications"
	"github.com/ecoa/zeladoria/internal/repo"
	"github.com/ecoa/zeladoria/internal/requests"
	"github.com/ecoa/zeladoria/internal/service"
	"github.com/ecoa/zeladoria/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	blobs, err := newBlobs(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	repository := repo.New(pool)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	authService := service.NewAuthService(repository, redisClient, jwtManager, cfg.JWTRefreshTTL)
	identity := service.NewIdentityService(repository)

	var alerts notifications.Channel
	if slack := notifications.NewSlackNotifier(cfg.SlackWebhookURL); slack != nil {
		alerts = slack
	}

	requestRepo := requests.NewRepository(pool)
	dispatcher := newDispatcher(cfg, alerts)
	requestService := requests.NewService(
		requestRepo,
		blobs,
		dispatcher,
		cfg.Storage.MaxUploadBytes,
		log.With().Str("component", "requests").Logger(),
	)
	notificationService := notifications.NewService(
		notifications.NewRepository(pool),
		log.With().Str("component", "notifications").Logger(),
	)

	backlog := monitor.NewService(requestRepo, alerts, cfg.Monitoring, log.With().Str("component", "monitor").Logger())
	backlog.Start(ctx)
	defer backlog.Stop()

	handler, err := internalhttp.NewRouter(cfg, pool, redisClient, authService, identity, requestService, notificationService)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newBlobs(ctx context.Context, sc config.StorageConfig) (storage.Blobs, error) {
	switch sc.Provider {
	case "", "noop":
		log.Warn().Msg("anexos desabilitados: STORAGE_PROVIDER=noop")
		return storage.Disabled{}, nil
	case "minio":
		return storage.NewBucket(ctx, storage.BucketConfig{
			Endpoint:  sc.Endpoint,
			AccessKey: sc.AccessKey,
			SecretKey: sc.SecretKey,
			Bucket:    sc.Bucket,
			UseSSL:    sc.UseSSL,
			PublicURL: sc.PublicURL,
		})
	default:
		return nil, fmt.Errorf("provedor %s não suportado", sc.Provider)
	}
}

func newDispatcher(cfg *config.Config, alerts notifications.Channel) *notifications.Dispatcher {
	logger := log.With().Str("component", "dispatch").Logger()

	var mail notifications.Channel
	if m := notifications.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From); m != nil {
		mail = m
	} else {
		logger.Info().Msg("e-mail desabilitado: RESEND_API_KEY ou MAIL_FROM ausente")
	}

	return notifications.NewDispatcher(mail, alerts, cfg.Mail.AppURL, logger)
}
