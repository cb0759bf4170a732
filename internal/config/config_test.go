package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("RATE_WINDOW", "")
	t.Setenv("RATE_ANON_LIMIT", "")
	t.Setenv("RATE_USER_LIMIT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.Equal(t, 10, cfg.RateAnonLimit)
	assert.Equal(t, 100, cfg.RateUserLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "retail.tasks", cfg.TaskTopic)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("RATE_ANON_LIMIT", "ten")

	_, err := Load()
	assert.ErrorContains(t, err, "RATE_ANON_LIMIT must be number")
}

func TestLoad_EnvFileAndBrokerList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RATE_WINDOW=30s\n"), 0o600))

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	// godotenvは既存の環境変数を上書きしないので、空にしておく
	require.NoError(t, os.Unsetenv("RATE_WINDOW"))
	t.Cleanup(func() { _ = os.Unsetenv("RATE_WINDOW") })

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.RateWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Config{PostgresHost: "db", PostgresPort: 5433, PostgresUser: "u", PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", cfg.DatabaseDSN())

	cfg.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", cfg.DatabaseDSN())
}
