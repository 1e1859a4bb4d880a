package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8960, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "helm", cfg.Helm.Binary)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9100
  log_level: debug
helm:
  binary: /usr/local/bin/helm
  timeout: 45s
database:
  path: /tmp/rudder-test.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "/usr/local/bin/helm", cfg.Helm.Binary)
	require.Equal(t, 45*time.Second, cfg.Helm.Timeout)
	require.Equal(t, "/tmp/rudder-test.db", cfg.Database.Path)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("RUDDER_SERVER_PORT", "9200")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 9200, cfg.Server.Port)
}

func TestConfigureLoggingDefaultsEmptyLevel(t *testing.T) {
	require.NoError(t, ConfigureLogging("  "))
}
