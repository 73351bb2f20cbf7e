package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-bgg-gateway/internal/application/game"
	"github.com/go-bgg-gateway/internal/application/verification"
	"github.com/go-bgg-gateway/internal/config"
	"github.com/go-bgg-gateway/internal/infrastructure/bgg"
	"github.com/go-bgg-gateway/internal/infrastructure/dynamo"
	"github.com/go-bgg-gateway/internal/infrastructure/firebase"
	s3infra "github.com/go-bgg-gateway/internal/infrastructure/s3"
	"github.com/go-bgg-gateway/internal/infrastructure/smtp"
	"github.com/go-bgg-gateway/internal/pkg/logger"
	transporthttp "github.com/go-bgg-gateway/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if envErr != nil {
		zl.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		zl.Fatal("dynamodb client", zap.Error(err))
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, zl)

	// Raw payload archive (optional).
	var archive *s3infra.Archive
	if cfg.ArchiveBucket != "" {
		s3Client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			zl.Fatal("s3 client", zap.Error(err))
		}
		archive = s3infra.NewArchive(s3Client, cfg.ArchiveBucket)
	}

	gameDeps := game.ServiceDeps{
		Store:     dynamo.NewGameRepo(dynamoClient, cfg.DynamoTables.Games),
		Fetcher:   bgg.NewClient(cfg.BGG, zl.Named("bgg")),
		CacheSize: cfg.GameCacheSize,
		Logger:    zl.Named("game"),
	}
	if archive != nil {
		gameDeps.Archive = archive
	}
	gameSvc, err := game.NewService(gameDeps)
	if err != nil {
		zl.Fatal("game service", zap.Error(err))
	}

	// Identity provider (graceful fallback: BGG routes keep working without credentials).
	identity := newIdentity(ctx, cfg.Firebase, zl)
	verificationSvc := verification.NewService(verification.ServiceDeps{
		Identity: identity,
		Mailer:   smtp.NewMailer(cfg.SMTP),
		Exchange: verification.NewExchange(
			dynamo.NewVerificationCodeRepo(dynamoClient, cfg.DynamoTables.VerificationCodes),
			zl.Named("exchange"),
		),
		Logger: zl.Named("verification"),
	})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Games:         gameSvc,
		Verification:  verificationSvc,
		TokenVerifier: identity,
		Logger:        zl.Named("http"),
		Metrics:       promhttp.Handler(),
	})

	// WriteTimeout covers three 20s BGG attempts plus the retry delays.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
		return
	}
	zl.Info("server stopped")
}

func newIdentity(ctx context.Context, cfg config.Firebase, zl *zap.Logger) *firebase.Auth {
	app, err := firebase.NewApp(ctx, cfg)
	if err != nil {
		zl.Warn("firebase credentials not available, verification endpoints will fail", zap.Error(err))
	}
	return firebase.NewAuth(app, firebase.WithContinueURL(cfg.VerifyContinueURL))
}
