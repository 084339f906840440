package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main vtool configuration
type Config struct {
	// Collaborator (language model) access
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Tool invocation and verification
	Executor ExecutorConfig `json:"executor" mapstructure:"executor"`

	// Collaborator conversation budgets
	Conversation ConversationConfig `json:"conversation" mapstructure:"conversation"`

	// Virtual tool memoization
	VirtualTools VirtualToolsConfig `json:"virtual_tools" mapstructure:"virtual_tools"`

	// HTTP presentation boundary
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AIConfig holds collaborator provider configuration
type AIConfig struct {
	Profiles    []AIProfile `json:"profiles" mapstructure:"profiles"`
	Temperature float64     `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int         `json:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries  int         `json:"max_retries" mapstructure:"max_retries"` // transport retries per turn
}

// AIProfile represents an AI provider profile
type AIProfile struct {
	ID       string `json:"id" mapstructure:"id"`
	Provider string `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Model    string `json:"model" mapstructure:"model"`
	Priority int    `json:"priority" mapstructure:"priority"`
}

// ExecutorConfig configures tool invocation
type ExecutorConfig struct {
	// AttemptBudget is the total number of invocations allowed to corroborate an unreliable tool result.
	AttemptBudget int `json:"attempt_budget" mapstructure:"attempt_budget"`
	// FaultRate is the probability that an unreliable tool returns a wrong value.
	FaultRate float64 `json:"fault_rate" mapstructure:"fault_rate"`
	// Seed makes faults reproducible when non-zero.
	Seed uint64 `json:"seed" mapstructure:"seed"`
}

// ConversationConfig bounds one collaborator conversation
type ConversationConfig struct {
	TurnBudget      int `json:"turn_budget" mapstructure:"turn_budget"`
	MaxToolFailures int `json:"max_tool_failures" mapstructure:"max_tool_failures"`
}

// VirtualToolsConfig configures plan memoization
type VirtualToolsConfig struct {
	PromotionThreshold int `json:"promotion_threshold" mapstructure:"promotion_threshold"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
	// RequestsPerMinute and MaxConcurrent limit each client; zero disables the limit.
	RequestsPerMinute int `json:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxConcurrent     int `json:"max_concurrent" mapstructure:"max_concurrent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	AuditFile  string `json:"audit_file" mapstructure:"audit_file"`
	MaxSize    int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge     int    `json:"max_age" mapstructure:"max_age"`   // days
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
	Redaction  bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultModels maps a provider to the model used when a profile names none
var DefaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-sonnet-20241022",
}

// ModelOrDefault returns the profile model or the provider default
func (p AIProfile) ModelOrDefault() string {
	if p.Model != "" {
		return p.Model
	}
	return DefaultModels[p.Provider]
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Profiles:    []AIProfile{},
			Temperature: 0,
			MaxTokens:   1024,
			MaxRetries:  3,
		},
		Executor: ExecutorConfig{
			AttemptBudget: 3,
			FaultRate:     0.4,
		},
		Conversation: ConversationConfig{
			TurnBudget:      20,
			MaxToolFailures: 3,
		},
		VirtualTools: VirtualToolsConfig{
			PromotionThreshold: 3,
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8080,
			RequestsPerMinute: 60,
			MaxConcurrent:     10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   true,
			Redaction:  true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	for i, profile := range c.AI.Profiles {
		if profile.ID == "" {
			return fmt.Errorf("AI profile %d: ID is required", i)
		}
		if profile.Provider == "" {
			return fmt.Errorf("AI profile %s: provider is required", profile.ID)
		}
		if profile.APIKey == "" {
			return fmt.Errorf("AI profile %s: api_key is required", profile.ID)
		}
		if _, ok := DefaultModels[profile.Provider]; !ok {
			return fmt.Errorf("AI profile %s: invalid provider %s (must be: anthropic, openai)", profile.ID, profile.Provider)
		}
	}

	if c.Executor.AttemptBudget < 2 {
		return fmt.Errorf("executor attempt_budget must be at least 2 to corroborate a result, got %d", c.Executor.AttemptBudget)
	}
	if c.Executor.FaultRate < 0 || c.Executor.FaultRate >= 1 {
		return fmt.Errorf("executor fault_rate must be in [0, 1), got %g", c.Executor.FaultRate)
	}
	if c.Conversation.TurnBudget <= 0 {
		return fmt.Errorf("conversation turn_budget must be positive, got %d", c.Conversation.TurnBudget)
	}
	if c.Conversation.MaxToolFailures < 0 {
		return fmt.Errorf("conversation max_tool_failures cannot be negative, got %d", c.Conversation.MaxToolFailures)
	}
	if c.VirtualTools.PromotionThreshold <= 0 {
		return fmt.Errorf("virtual_tools promotion_threshold must be positive, got %d", c.VirtualTools.PromotionThreshold)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("ai max_retries cannot be negative")
	}
	if c.Server.RequestsPerMinute < 0 || c.Server.MaxConcurrent < 0 {
		return fmt.Errorf("server rate limits cannot be negative")
	}

	return nil
}

// RequireCollaborator checks that at least one AI profile is available
func (c *Config) RequireCollaborator() error {
	if len(c.AI.Profiles) == 0 {
		return fmt.Errorf("no AI credentials configured: set OPENAI_API_KEY or ANTHROPIC_API_KEY, or add an ai.profiles entry")
	}
	return nil
}
