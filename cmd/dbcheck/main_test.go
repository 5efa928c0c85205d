package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usersvc/internal/infrastructure/database"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_LocalSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "check.db")
	envFile := writeEnvFile(t, "server=localhost\ndatabase="+dbPath+"\nusername=dev\npassword=s3cr3t-value\n")

	var out bytes.Buffer
	err := run(context.Background(), &out, options{
		envFile: envFile,
		driver:  database.DriverSQLite,
		timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "source:    local-file")
	assert.Contains(t, out.String(), "ping:      ok")
	assert.NotContains(t, out.String(), "s3cr3t-value")
}

func TestRun_MissingLocalKey(t *testing.T) {
	envFile := writeEnvFile(t, "server=localhost\ndatabase=app\nusername=dev\n")

	var out bytes.Buffer
	err := run(context.Background(), &out, options{
		envFile: envFile,
		driver:  database.DriverSQLite,
		timeout: time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, out.String(), "missing:   password")
}
