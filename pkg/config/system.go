package config

import "time"

// EvidenceConfig holds resolved evidence storage configuration.
type EvidenceConfig struct {
	Dir           string        // Root directory for evidence files (default: "evidence")
	RetentionDays int           // Files older than this are swept (0 = keep forever)
	SweepInterval time.Duration // How often the cleanup service runs (default: 1h)
}

// SlackConfig holds resolved Slack notification configuration.
type SlackConfig struct {
	Enabled  bool
	TokenEnv string // Env var name for Slack bot token (default: "SLACK_BOT_TOKEN")
	Channel  string // Slack channel ID (e.g., "C12345678")
}

// StoreConfig holds resolved persistent store configuration.
type StoreConfig struct {
	Type   StoreType // postgres or memory
	DSNEnv string    // Env var name containing the Postgres DSN (default: "DATABASE_URL")
}

// LLMConfig holds resolved LLM endpoint configuration. The endpoint is any
// OpenAI-compatible chat-completion service.
type LLMConfig struct {
	Model       string
	BaseURL     string // Empty = provider default endpoint
	APIKeyEnv   string // Env var name for the API key (default: "LLM_API_KEY")
	Temperature *float32
	MaxTokens   *int
	Timeout     time.Duration // Per-completion budget (default: 120s)
	// MaxMemoryMessages bounds the conversation memory ring
	MaxMemoryMessages int
}
