package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "notes2gogo", cfg.Database.Database)
	assert.Equal(t, 10, cfg.Search.DefaultPerPage)
	assert.Equal(t, 100, cfg.Search.MaxPerPage)
	assert.Equal(t, 200, cfg.Search.SnippetLength)
	assert.Equal(t, 5*time.Second, cfg.Search.AnalyticsDebounce)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
}

func TestLoad_SearchOverrides(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_PER_PAGE", "25")
	t.Setenv("SEARCH_ANALYTICS_DEBOUNCE", "2s")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Search.DefaultPerPage)
	assert.Equal(t, 2*time.Second, cfg.Search.AnalyticsDebounce)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("SEARCH_ANALYTICS_DEBOUNCE", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Search.AnalyticsDebounce)
}

func TestLoad_RejectsDefaultPageAboveMax(t *testing.T) {
	t.Setenv("SEARCH_DEFAULT_PER_PAGE", "150")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "notes", Password: "secret", Database: "notes", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=notes password=secret dbname=notes sslmode=require", cfg.DatabaseDSN())
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://app.notes2gogo.com, https://admin.notes2gogo.com,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.notes2gogo.com", "https://admin.notes2gogo.com"}, cfg.Server.AllowedOrigins)
}
