package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirEmpty keeps a developer's .env file out of the test.
func chdirEmpty(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestNewConfig_Defaults(t *testing.T) {
	chdirEmpty(t)

	cfg := NewConfig()

	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Empty(t, cfg.UI.TemplatesPath)
	assert.Empty(t, cfg.UI.StaticPath)
	assert.Equal(t, 12, cfg.UI.PageSize)
	assert.Equal(t, AuthModeLocal, cfg.Auth.Mode)
	assert.Equal(t, 168*time.Hour, cfg.Auth.SessionLifetime)
	assert.True(t, cfg.Auth.AllowSignup)
	assert.Equal(t, StorageDriverDisk, cfg.Storage.Driver)
	assert.Equal(t, int64(8), cfg.Storage.MaxUploadMB)
	assert.Equal(t, 300, cfg.Scheduler.SearchDebounceMS)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.SearchCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.ReadOnly.Enabled)
	assert.Empty(t, cfg.Plausible.Domain)
	assert.Equal(t, "https://plausible.io/js/script.js", cfg.Plausible.ScriptURL)
	assert.False(t, cfg.IsDevelopment())
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	chdirEmpty(t)
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("READ_ONLY", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SEARCH_CACHE_TTL", "30s")
	t.Setenv("ENV", "development")
	t.Setenv("PLAUSIBLE_DOMAIN", "choplife.ng")

	cfg := NewConfig()

	assert.Equal(t, int32(9090), cfg.HTTP.Port)
	assert.Equal(t, AuthModeNone, cfg.Auth.Mode)
	assert.True(t, cfg.ReadOnly.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.SearchCacheTTL)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "choplife.ng", cfg.Plausible.Domain)
}

func TestNewConfig_ReadsDotEnv(t *testing.T) {
	chdirEmpty(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("PAGE_SIZE=30\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PAGE_SIZE") })

	cfg := NewConfig()

	assert.Equal(t, 30, cfg.UI.PageSize)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , "))
	assert.Equal(t, []string{"a", "b"}, splitList("a,b"))
}
