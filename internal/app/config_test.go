package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("JWT_SECRET=from-dotenv\nCACHE_TTL=2m\nAPP_ADDR=:7000\n"), 0o600))
	t.Setenv("APP_ADDR", ":9090")
	previous, hadSecret := os.LookupEnv("JWT_SECRET")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	t.Cleanup(func() {
		_ = os.Unsetenv("CACHE_TTL")
		if hadSecret {
			_ = os.Setenv("JWT_SECRET", previous)
		} else {
			_ = os.Unsetenv("JWT_SECRET")
		}
	})

	cfg, err := LoadConfig(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.JWTSecret)
	require.Equal(t, ":9090", cfg.AppAddr)
	require.Equal(t, 2*time.Minute, cfg.CacheTTL)
	require.Equal(t, "America/Santo_Domingo", cfg.BusinessTimezone)
	require.Equal(t, 300, cfg.RateLimitPerMinute)
	require.False(t, cfg.Archive().Enabled())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
}

func TestLoadConfigRejectsShortSecretInProduction(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("APP_ENV", "production")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "none.env"))
	require.ErrorContains(t, err, "32 bytes")
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BUSINESS_TIMEZONE", "Mars/Olympus")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel("debug").String())
	require.Equal(t, "WARN", parseLevel(" WARNING ").String())
	require.Equal(t, "INFO", parseLevel("").String())
}
