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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"usersvc/docs"
	"usersvc/internal/adapters/api"
	"usersvc/internal/adapters/api/middleware"
	"usersvc/internal/adapters/db/memory"
	"usersvc/internal/adapters/db/sqlstore"
	appauth "usersvc/internal/application/auth"
	"usersvc/internal/config"
	"usersvc/internal/domain/user"
	"usersvc/internal/infrastructure/credentials"
	"usersvc/internal/infrastructure/database"
	"usersvc/internal/infrastructure/secrets"
	"usersvc/internal/infrastructure/validation"
)

//	@title			User Service API
//	@version		1.0
//	@description	User records over a relational store, gated by OIDC access tokens

//	@host		localhost:8000
//	@BasePath	/api

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the access token.

func main() {
	cfg := config.LoadConfig()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatal().Err(err).Msg("User service stopped")
	}
}

// run serves until ctx is cancelled. Every resource it opens is closed before
// it returns.
func run(ctx context.Context, cfg *config.Config) error {
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Bool("auth_enabled", cfg.Auth.Enabled).
		Bool("db_enabled", cfg.Database.Enabled).
		Str("db_driver", cfg.Database.Driver).
		Msg("Starting user service")

	if err := validation.ValidateSecretName(cfg.Secrets.Provider, cfg.Database.NameSecret); err != nil {
		return fmt.Errorf("invalid DB_NAME_SECRET %q: %w", cfg.Database.NameSecret, err)
	}
	keys := credentials.DefaultKeyNames()
	keys.Database = cfg.Database.NameSecret
	if err := keys.Validate(); err != nil {
		return fmt.Errorf("invalid DB_NAME_SECRET: %w", err)
	}
	resolver := credentials.NewResolver(credentials.Options{
		EnvFile: cfg.Database.EnvFile,
		Keys:    keys,
		Timeout: cfg.Secrets.Timeout,
	}, func(ctx context.Context) (secrets.Store, error) {
		return secrets.Open(ctx, cfg.Secrets)
	})
	defer func() {
		if err := resolver.Close(); err != nil {
			log.Warn().Err(err).Msg("close secret store")
		}
	}()

	log.Info().Stringer("source", resolver.Source()).Str("env_file", cfg.Database.EnvFile).Msg("Credential source selected")

	if cfg.Auth.Enabled && needsIdentity(cfg.Auth) {
		identity, err := resolver.ResolveIdentity(ctx)
		if err != nil {
			return fmt.Errorf("resolve identity provider settings: %w", err)
		}
		if cfg.Auth.TenantID == "" {
			cfg.Auth.TenantID = identity.TenantID
		}
		if cfg.Auth.ClientID == "" {
			cfg.Auth.ClientID = identity.ClientID
		}
	}

	// Initialize repositories (choose SQL or in-memory)
	var userRepo user.Repository
	var pinger api.Pinger

	if cfg.Database.Enabled {
		params, err := resolver.Resolve(ctx)
		if err != nil {
			return fmt.Errorf("resolve database credentials: %w", err)
		}

		factory := database.NewFactory(database.Options{
			Driver:          cfg.Database.Driver,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			AcquireTimeout:  cfg.Database.AcquireTimeout,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
		})
		engine, err := factory.Initialize(ctx, params)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer func() {
			if err := engine.Close(); err != nil {
				log.Warn().Err(err).Msg("close database engine")
			}
		}()

		if cfg.Database.AutoMigrate {
			if err := sqlstore.RunMigrations(ctx, engine); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		userRepo = sqlstore.NewUserRepository(engine)
		pinger = engine
	} else {
		log.Warn().Msg("DB disabled - using in-memory repository")
		userRepo = memory.NewUserRepository()
	}

	var validator middleware.TokenValidator
	if cfg.Auth.Enabled {
		validator = appauth.NewService(cfg.Auth)
		log.Info().Str("issuer", cfg.Auth.Issuer()).Msg("OIDC authentication enabled")
	} else {
		log.Warn().Msg("Authentication disabled - every caller holds all scopes")
	}

	docs.SwaggerInfo.Host = "localhost:" + cfg.HTTPPort

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(api.RateLimitMiddleware(cfg.RateLimit))

	handler := api.NewHandler(userRepo, pinger, cfg.Auth)
	handler.RegisterRoutes(r, middleware.AuthMiddleware(validator, cfg.Auth))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Msgf("Listening on port %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	return nil
}

// needsIdentity reports whether tenant or client must come from the
// credential source.
func needsIdentity(a config.AuthConfig) bool {
	return a.ClientID == "" || (a.TenantID == "" && a.IssuerURL == "")
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.DefaultContextLogger = &log.Logger
}
