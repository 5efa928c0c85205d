package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usersvc/internal/config"
	"usersvc/internal/infrastructure/credentials"
	"usersvc/internal/infrastructure/database"
)

func localSQLiteConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "users.db")
	envFile := filepath.Join(dir, ".env")
	content := "server=localhost\ndatabase=" + dbPath + "\nusername=dev\npassword=dev\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	return &config.Config{
		HTTPPort:       "0",
		AllowedOrigins: []string{"http://localhost:5173"},
		Database: config.DBConfig{
			Enabled:     true,
			Driver:      database.DriverSQLite,
			EnvFile:     envFile,
			NameSecret:  "DB-NAME",
			AutoMigrate: true,
		},
		Secrets: config.SecretsConfig{Provider: "azure"},
	}, dbPath
}

func TestRun_ShutsDownCleanly(t *testing.T) {
	cfg, dbPath := localSQLiteConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, run(ctx, cfg))

	db, err := sqlx.Open(database.DriverSQLite, dbPath)
	require.NoError(t, err)
	defer db.Close()

	var applied int
	require.NoError(t, db.Get(&applied, `SELECT COUNT(*) FROM schema_migrations`))
	assert.Positive(t, applied)
}

func TestRun_ReturnsStartupErrors(t *testing.T) {
	tests := []struct {
		name       string
		nameSecret string
		target     error
	}{
		{"duplicate remote key", "DB-SERVER", credentials.ErrDuplicateKeyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := localSQLiteConfig(t)
			cfg.Database.NameSecret = tt.nameSecret

			err := run(context.Background(), cfg)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("invalid secret name", func(t *testing.T) {
		cfg, _ := localSQLiteConfig(t)
		cfg.Database.NameSecret = "db name!"
		assert.Error(t, run(context.Background(), cfg))
	})

	t.Run("missing local key", func(t *testing.T) {
		cfg, _ := localSQLiteConfig(t)
		require.NoError(t, os.WriteFile(cfg.Database.EnvFile, []byte("server=localhost\n"), 0o600))
		assert.ErrorIs(t, run(context.Background(), cfg), credentials.ErrMissingLocalKey)
	})
}

func TestNeedsIdentity(t *testing.T) {
	assert.True(t, needsIdentity(config.AuthConfig{}))
	assert.True(t, needsIdentity(config.AuthConfig{TenantID: "t"}))
	assert.False(t, needsIdentity(config.AuthConfig{TenantID: "t", ClientID: "c"}))
	assert.False(t, needsIdentity(config.AuthConfig{IssuerURL: "https://idp", ClientID: "c"}))
}
