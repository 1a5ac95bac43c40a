package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/diagnosai/backend/internal/adapters/cache"
	"github.com/diagnosai/backend/internal/adapters/database"
	"github.com/diagnosai/backend/internal/adapters/providers/healthdata"
	"github.com/diagnosai/backend/internal/adapters/providers/overpass"
	"github.com/diagnosai/backend/internal/api/handlers"
	"github.com/diagnosai/backend/internal/api/routes"
	"github.com/diagnosai/backend/internal/application/services"
	"github.com/diagnosai/backend/internal/domain/providers"
	"github.com/diagnosai/backend/internal/infrastructure/clients/gemini"
	"github.com/diagnosai/backend/internal/infrastructure/clients/postgres"
	"github.com/diagnosai/backend/internal/infrastructure/clients/redis"
	"github.com/diagnosai/backend/internal/infrastructure/observability"
	"github.com/diagnosai/backend/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "diagnosai-api",
		Short:         "DiagnosAI health chatbot backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			db, err := postgres.NewClient(ctx, &cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			applied, err := db.Migrate(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("applied", applied).Msg("migrations complete")
			return nil
		},
	})

	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics")
	}

	db, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, health data will not be cached")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	var generator providers.TextGenerator
	geminiClient, err := gemini.NewClient(&cfg.Gemini)
	if err != nil {
		log.Warn().Err(err).Msg("text generation disabled")
	} else {
		generator = geminiClient
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		log.Warn().Msg("JWT_SECRET not set, using an ephemeral signing key")
	}
	tokens, err := services.NewTokenManager(secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	userRepo := database.NewUserAdapter(db)
	locator := overpass.NewClient(cfg.Overpass.URL, cfg.Overpass.Timeout)
	healthProvider := healthdata.NewCDCProvider(cfg.HealthData.BaseURL, cfg.HealthData.Timeout)

	diagnosisService := services.NewDiagnosisService(generator, metrics)
	healthInfoService := services.NewHealthInfoService(healthProvider, cacheProvider, cfg.HealthData.CacheTTLSeconds, metrics)
	referralService := services.NewReferralService(locator, cfg.Overpass.DefaultRadiusKm, metrics)
	userService := services.NewUserService(userRepo, tokens)
	chatService := services.NewChatService(generator, metrics)

	router := routes.NewRouter(
		handlers.NewSystemHandler(cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion),
		handlers.NewDiagnosisHandler(diagnosisService),
		handlers.NewHealthInfoHandler(healthInfoService),
		handlers.NewReferralHandler(referralService),
		handlers.NewUserHandler(userService),
		handlers.NewChatHandler(chatService),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Gemini.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", serverAddr).Str("env", cfg.Server.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate signing key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
