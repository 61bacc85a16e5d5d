package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, "Your Sales Report", cfg.Mail.Subject)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 2, cfg.Scheduler.Workers)
	assert.Equal(t, "http://localhost:8080/api", cfg.Reports.PublicURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("CACHE_TTL", "bogus")
	t.Setenv("SCHEDULER_WORKERS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 1, cfg.Scheduler.Workers)
	assert.Equal(t, "http://localhost:9090/api", cfg.Reports.PublicURL)
}

func TestValidateProductionRequiresCredentials(t *testing.T) {
	cfg := &Config{
		Env:     EnvProduction,
		Port:    8080,
		Mail:    MailConfig{},
		Reports: ReportsConfig{SignedURLSecret: defaultSignedURLSecret},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "SMTP_HOST")
	assert.Contains(t, err.Error(), "REPORTS_SIGNED_URL_SECRET")

	cfg.Database.URL = "postgres://u:p@db/sales"
	cfg.Mail = MailConfig{Host: "smtp.test", From: "reports@test"}
	cfg.Reports.SignedURLSecret = "prod-secret"
	assert.NoError(t, cfg.Validate())
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
