// Package config provides configuration types and loading for crewdesk.
package config

// Config is the root configuration struct.
// Top-level groups: Provider, Model, Store, Audit, Threads, Gateway, Notify.
type Config struct {
	Env      string         `json:"env" envconfig:"ENV"`
	Provider ProviderConfig `json:"provider"`
	Model    ModelConfig    `json:"model"`
	Store    StoreConfig    `json:"store"`
	Audit    AuditConfig    `json:"audit"`
	Threads  ThreadsConfig  `json:"threads"`
	Gateway  GatewayConfig  `json:"gateway"`
	Notify   NotifyConfig   `json:"notify"`
}

// ProviderConfig holds the model API connection settings.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase" envconfig:"API_BASE"`
	Model   string `json:"model" envconfig:"MODEL"`
}

// ModelConfig groups model-call and agent-loop settings.
type ModelConfig struct {
	MaxTokens         int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature       float64 `json:"temperature" envconfig:"TEMPERATURE"`
	MaxToolIterations int     `json:"maxToolIterations" envconfig:"MAX_TOOL_ITERATIONS"`
}

// StoreConfig locates the sqlite database behind the tool executor.
type StoreConfig struct {
	Path string `json:"path" envconfig:"STORE_PATH"`
}

// AuditConfig configures the audit trail. StoreFullText stores query text
// verbatim in audit records instead of hash+length; keep it off outside of
// debugging.
type AuditConfig struct {
	Dir           string `json:"dir" envconfig:"AUDIT_DIR"`
	StoreFullText bool   `json:"storeFullText" envconfig:"AUDIT_STORE_FULL_TEXT"`
	KafkaBrokers  string `json:"kafkaBrokers" envconfig:"AUDIT_KAFKA_BROKERS"`
	KafkaTopic    string `json:"kafkaTopic" envconfig:"AUDIT_KAFKA_TOPIC"`
}

// ThreadsConfig locates persisted conversation threads.
type ThreadsConfig struct {
	Dir string `json:"dir" envconfig:"THREADS_DIR"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Port         int      `json:"port" envconfig:"GATEWAY_PORT"`
	AllowOrigins []string `json:"allowOrigins" envconfig:"GATEWAY_ALLOW_ORIGINS"`
}

// NotifyConfig configures pending-approval notifications. Both fields must
// be set for the Slack notifier to be wired in.
type NotifyConfig struct {
	SlackToken   string `json:"slackToken" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
}
