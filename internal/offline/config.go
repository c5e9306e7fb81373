package offline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AgentConfig is the posagent configuration
type AgentConfig struct {
	Server struct {
		BaseURL string        `mapstructure:"base_url"`
		Token   string        `mapstructure:"token"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"server"`
	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`
	Queue   QueueConfig `mapstructure:"queue"`
	Monitor struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"monitor"`
	Catalog struct {
		SyncInterval time.Duration `mapstructure:"sync_interval"`
		PageSize     int           `mapstructure:"page_size"`
	} `mapstructure:"catalog"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// LoadAgentConfig reads posagent.yaml from path (or the working directory
// and ~/.posagent when path is empty), then POSAGENT_* environment variables.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	v := viper.New()
	// keys without a default are invisible to Unmarshal when only set in the environment
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.token", "")
	v.SetDefault("server.timeout", 15*time.Second)
	v.SetDefault("store.path", "posagent.db")
	v.SetDefault("queue.batch_size", 50)
	v.SetDefault("queue.base_backoff", 2*time.Second)
	v.SetDefault("queue.max_backoff", 5*time.Minute)
	v.SetDefault("monitor.interval", 10*time.Second)
	v.SetDefault("catalog.sync_interval", 5*time.Minute)
	v.SetDefault("catalog.page_size", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("posagent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.posagent")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("POSAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg AgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate checks what every command needs
func (c *AgentConfig) Validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	return nil
}
