package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-0123456789abcdef-0123"
	testRefreshSecret = "refresh-secret-0123456789abcdef-012"
)

func validConfig() *Config {
	c := &Config{}
	c.LoadDefaults()
	c.AccessTokenSecret = testAccessSecret
	c.RefreshTokenSecret = testRefreshSecret
	return c
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, ":50051", c.GRPCAddr)
	assert.Equal(t, 24*time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, time.Hour, c.PruneInterval)
	assert.Equal(t, "lax", c.CookieSameSite)
	assert.Equal(t, "foodhub", c.TokenIssuer)
	assert.Empty(t, c.AccessTokenSecret)
	assert.Empty(t, c.RefreshTokenSecret)
	assert.Empty(t, c.RedisAddr)
	assert.False(t, c.Production())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing access secret", mutate: func(c *Config) { c.AccessTokenSecret = "" }, wantErr: "access token secret"},
		{name: "missing refresh secret", mutate: func(c *Config) { c.RefreshTokenSecret = "" }, wantErr: "refresh token secret"},
		{name: "short secret", mutate: func(c *Config) { c.AccessTokenSecret = "short" }, wantErr: "at least 32 bytes"},
		{name: "same secrets", mutate: func(c *Config) { c.RefreshTokenSecret = c.AccessTokenSecret }, wantErr: "must differ"},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTokenValidityDuration = 0 }, wantErr: "access token ttl"},
		{name: "refresh ttl not longer", mutate: func(c *Config) { c.RefreshTokenValidityDuration = c.AccessTokenValidityDuration }, wantErr: "refresh token ttl"},
		{name: "no dsn", mutate: func(c *Config) { c.DatabaseDSN = "" }, wantErr: "database dsn"},
		{name: "samesite none outside production", mutate: func(c *Config) { c.CookieSameSite = "none" }, wantErr: "SameSite=None"},
		{name: "samesite none in production", mutate: func(c *Config) { c.CookieSameSite = "none"; c.Environment = "production" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSameSite(t *testing.T) {
	c := &Config{}
	for in, want := range map[string]http.SameSite{
		"":       http.SameSiteLaxMode,
		"lax":    http.SameSiteLaxMode,
		"Strict": http.SameSiteStrictMode,
		"none":   http.SameSiteNoneMode,
	} {
		c.CookieSameSite = in
		assert.Equal(t, want, c.SameSite(), in)
	}
}

func TestLoadConfig_FailsWithoutSecrets(t *testing.T) {
	t.Setenv("FOODHUB_ACCESS_TOKEN_SECRET", "")
	t.Setenv("FOODHUB_REFRESH_TOKEN_SECRET", "")

	c, err := LoadConfig(nil)
	require.Error(t, err)
	assert.Nil(t, c)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	body := `{
		"http_addr": ":7000",
		"database_dsn": "postgres://json",
		"access_token_secret": "` + testAccessSecret + `",
		"refresh_token_secret": "` + testRefreshSecret + `",
		"access_token_validity_duration": "30m"
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	// env beats json, flags beat env
	t.Setenv("FOODHUB_DATABASE_DSN", "postgres://env")
	t.Setenv("FOODHUB_HTTP_ADDR", ":7100")

	c, err := LoadConfig([]string{"-c", path, "-a", ":7200"})
	require.NoError(t, err)

	assert.Equal(t, ":7200", c.HTTPAddr)
	assert.Equal(t, "postgres://env", c.DatabaseDSN)
	assert.Equal(t, 30*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, testAccessSecret, c.AccessTokenSecret)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig([]string{"-config", filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "json config"))
}
