package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://api.integration.app", cfg.Integration.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Flow.PollInterval)
	assert.Equal(t, 12, cfg.Flow.OutputMaxAttempts)
	assert.Equal(t, 5, cfg.Flow.StatusMaxAttempts)
	assert.Equal(t, "create-data-record", cfg.Flow.CreateNodeKey)
	assert.Equal(t, 100*time.Millisecond, cfg.Importer.PageDelay)
	assert.True(t, cfg.IsDev())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := `
environment: PROD
integration:
  base_url: "https://platform.example.com/ "
  workspace_key: wk
  app_event_webhook_url: https://platform.example.com/webhooks/app-events/abc
flow:
  status_max_attempts: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.env"), []byte("INTEGRATION_WORKSPACE_SECRET=from-dotenv\n"), 0o600))
	t.Setenv("FLOW_POLL_INTERVAL", "250ms")
	t.Cleanup(func() { _ = os.Unsetenv("INTEGRATION_WORKSPACE_SECRET") })

	cfg, err := LoadConfig("test.env")
	require.NoError(t, err)

	assert.False(t, cfg.IsDev())
	assert.Equal(t, "https://platform.example.com", cfg.Integration.BaseURL)
	assert.Equal(t, "from-dotenv", cfg.Integration.WorkspaceSecret)
	assert.Equal(t, 7, cfg.Flow.StatusMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Flow.PollInterval)
}

func TestLoadConfigMissingEnvFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := LoadConfig("does-not-exist.env")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Environment = "PROD"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integration.base_url")
	assert.Contains(t, err.Error(), "auth.issuer")

	cfg.Environment = "DEV"
	cfg.DevModeBypass = true
	cfg.Integration.BaseURL = "https://api.integration.app"
	cfg.Integration.WorkspaceKey = "k"
	cfg.Integration.WorkspaceSecret = "s"
	cfg.Integration.AppEventWebhookURL = "https://api.integration.app/webhooks/app-events/x"
	cfg.Flow.OutputMaxAttempts = 12
	cfg.Flow.StatusMaxAttempts = 5
	assert.NoError(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Host = "db"
	cfg.DB.Port = 5433
	cfg.DB.User = "u"
	cfg.DB.Password = "p"
	cfg.DB.Name = "n"
	cfg.DB.SSLMode = "disable"
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", cfg.DSN())
}
