package offline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgentConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://pos.example.lk
  timeout: 5s
store:
  path: /var/lib/posagent/till.db
queue:
  max_backoff: 1m
`), 0o600))
	t.Setenv("POSAGENT_SERVER_TOKEN", "secret-token")

	cfg, err := LoadAgentConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://pos.example.lk", cfg.Server.BaseURL)
	assert.Equal(t, "secret-token", cfg.Server.Token)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "/var/lib/posagent/till.db", cfg.Store.Path)
	assert.Equal(t, time.Minute, cfg.Queue.MaxBackoff)
	assert.Equal(t, 2*time.Second, cfg.Queue.BaseBackoff)
	assert.Equal(t, 50, cfg.Queue.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.Monitor.Interval)
}

func TestLoadAgentConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadAgentConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestAgentConfig_Validate(t *testing.T) {
	var cfg AgentConfig
	cfg.Store.Path = "x.db"
	assert.ErrorContains(t, cfg.Validate(), "base_url")
}
