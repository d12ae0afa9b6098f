package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:       "8080",
		Env:        "development",
		JWTSecret:  "secure-secret-at-least-32-chars-long",
		BcryptCost: 12,
		DBPassword: "secure-password",
		DBSSLMode:  "require",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development", func(_ *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Bcrypt cost too low", func(c *Config) { c.BcryptCost = 2 }, true},
		{"Bcrypt cost too high", func(c *Config) { c.BcryptCost = 40 }, true},
		{"Development without secret only warns", func(c *Config) { c.JWTSecret = "" }, false},
		{"Production without secret", func(c *Config) { c.Env = "production"; c.JWTSecret = "" }, true},
		{"Production with default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = defaultJWTSecret }, true},
		{"Production with short secret", func(c *Config) { c.Env = "prod"; c.JWTSecret = "short" }, true},
		{"Production with weak db password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"Production valid", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_TokenTTL(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL())

	c.TokenTTLHours = 2
	assert.Equal(t, 2*time.Hour, c.TokenTTL())
}

func TestConfig_GoogleEnabled(t *testing.T) {
	c := &Config{GoogleClientID: "id"}
	assert.False(t, c.GoogleEnabled())

	c.GoogleClientSecret = "secret"
	assert.True(t, c.GoogleEnabled())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9999")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("JWT_SECRET", "  "+strings.Repeat("s", 40)+"  ")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, "test", c.Env)
	assert.Equal(t, 4, c.BcryptCost)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, strings.Repeat("s", 40), c.JWTSecret)
	assert.Equal(t, "inkwell-api", c.JWTIssuer)
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL())
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer viper.Reset()
	for _, key := range []string{"PORT", "BCRYPT_COST", "JWT_SECRET", "TOKEN_TTL_HOURS"} {
		if v, ok := os.LookupEnv(key); ok {
			t.Setenv(key, v)
			require.NoError(t, os.Unsetenv(key))
		}
	}
	t.Setenv("APP_ENV", "test")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 12, c.BcryptCost)
	assert.Equal(t, 24*7, c.TokenTTLHours)
	assert.False(t, c.GoogleEnabled())
}

func TestConfig_RateLimitsEnabled(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"", false},
		{"development", false},
		{"test", false},
		{"staging", true},
		{"production", true},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, (&Config{Env: tt.env}).RateLimitsEnabled())
		})
	}
}

func TestLoadConfig_EnvironmentFromFile(t *testing.T) {
	defer viper.Reset()
	for _, key := range []string{"APP_ENV", "JWT_SECRET", "DB_PASSWORD"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	dir := t.TempDir()
	yml := "APP_ENV: production\n" +
		"JWT_SECRET: " + strings.Repeat("k", 40) + "\n" +
		"DB_PASSWORD: a-long-database-password\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))
	t.Chdir(dir)

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "production", c.Env)
	assert.True(t, c.IsProduction())
	assert.True(t, c.RateLimitsEnabled())
}
