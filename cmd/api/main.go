package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/bizchat/bizchat-api/internal/config"
	"github.com/bizchat/bizchat-api/internal/handler"
	"github.com/bizchat/bizchat-api/internal/notify"
	"github.com/bizchat/bizchat-api/internal/repository"
	"github.com/bizchat/bizchat-api/internal/session"
	"github.com/bizchat/bizchat-api/internal/usecase"
	"github.com/bizchat/bizchat-api/shared/auth"
	"github.com/bizchat/bizchat-api/shared/mailer"
	"github.com/bizchat/bizchat-api/shared/provider"
	"github.com/bizchat/bizchat-api/shared/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.New(&logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mongodb")
	}

	db := client.Database(cfg.MongoDatabase)
	userRepo := repository.NewUserMongoRepository(ctx, &logger, db)

	var sender usecase.CodeSender
	if cfg.SMTPEnabled {
		sender = notify.NewEmailSender(mailer.NewMailer(&logger))
	} else {
		sender = notify.NewLogSender(&logger)
	}

	accountUsecase := usecase.NewAccountUsecase(userRepo, sender, &logger)

	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Secret, cfg.Token.Issuer, cfg.Token.Issuer)
	sessions := session.NewIssuer(jwtAuth, userRepo, cfg.Token.Issuer, cfg.Token.ExpiresIn, &logger)

	googleProvider := provider.NewGoogleOAuthProvider(cfg.GoogleClientID)

	validate, err := validator.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create validator")
	}

	accountHandler := handler.NewAccountHandler(accountUsecase, googleProvider, sessions, validate, &logger)

	r := chi.NewRouter()
	r.Use(handler.RequestLogger(&logger))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	accountHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
