package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
	getenv     func(string) string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		getenv:     os.Getenv,
	}
}

// Load loads the configuration from file. A missing file yields the defaults.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("json")

		// VTOOL_EXECUTOR_ATTEMPT_BUDGET overrides executor.attempt_budget
		v.SetEnvPrefix("VTOOL")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".vtool")
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "vtool.log")
	}

	l.applyEnvProfiles(cfg)

	return cfg, nil
}

// applyEnvProfiles derives AI profiles from well-known environment variables
// when the config file declares none.
func (l *Loader) applyEnvProfiles(cfg *Config) {
	if len(cfg.AI.Profiles) > 0 {
		return
	}

	if key := l.getenv("OPENAI_API_KEY"); key != "" {
		cfg.AI.Profiles = append(cfg.AI.Profiles, AIProfile{
			ID:       "env-openai",
			Provider: "openai",
			APIKey:   key,
			Model:    l.getenv("VTOOL_OPENAI_MODEL"),
			Priority: 1,
		})
	}
	if key := l.getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.AI.Profiles = append(cfg.AI.Profiles, AIProfile{
			ID:       "env-anthropic",
			Provider: "anthropic",
			APIKey:   key,
			Model:    l.getenv("VTOOL_ANTHROPIC_MODEL"),
			Priority: 2,
		})
	}
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("ai", cfg.AI)
	v.Set("executor", cfg.Executor)
	v.Set("conversation", cfg.Conversation)
	v.Set("virtual_tools", cfg.VirtualTools)
	v.Set("server", cfg.Server)
	v.Set("logging", cfg.Logging)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "vtool", "vtool.json")
	}
	return filepath.Join(home, ".vtool", "vtool.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
