// Package config provides configuration types and loading for cjagent.
package config

// Config is the root configuration struct.
// Top-level groups: Paths, Model, Providers, Agent, Gateway, Audit, Log.
type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	Agent     AgentConfig     `json:"agent"`
	Gateway   GatewayConfig   `json:"gateway"`
	Audit     AuditConfig     `json:"audit"`
	Log       LogConfig       `json:"log"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups filesystem path settings.
type PathsConfig struct {
	// StorePath is the sqlite database file. ":memory:" keeps everything in RAM.
	StorePath string `json:"storePath" envconfig:"STORE_PATH"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups completion model settings.
type ModelConfig struct {
	// Name is "provider/model" or a bare model name for the OpenAI-compatible provider.
	Name           string  `json:"name" envconfig:"NAME"`
	EmbeddingModel string  `json:"embeddingModel" envconfig:"EMBEDDING_MODEL"`
	MaxTokens      int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature    float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	OpenAI ProviderConfig `json:"openai"`
	Gemini ProviderConfig `json:"gemini"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Agent – orchestration behaviour
// ---------------------------------------------------------------------------

// AgentConfig controls the agent runtime.
type AgentConfig struct {
	ID                  string  `json:"id" envconfig:"ID"`
	Name                string  `json:"name" envconfig:"NAME"`
	MaxTries            int     `json:"maxTries" envconfig:"MAX_TRIES"`
	MaxContinuesInARow  int     `json:"maxContinuesInARow" envconfig:"MAX_CONTINUES_IN_A_ROW"`
	RecentMessageCount  int     `json:"recentMessageCount" envconfig:"RECENT_MESSAGE_COUNT"`
	RelationshipCount   int     `json:"relationshipCount" envconfig:"RELATIONSHIP_COUNT"`
	MinSimilarity       float64 `json:"minSimilarity" envconfig:"MIN_SIMILARITY"`
	ActionOverridesPath string  `json:"actionOverridesPath" envconfig:"ACTION_OVERRIDES_PATH"`
	Workers             int     `json:"workers" envconfig:"WORKERS"`
	QueueSize           int     `json:"queueSize" envconfig:"QUEUE_SIZE"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP server networking
// ---------------------------------------------------------------------------

// GatewayConfig contains gateway server settings.
type GatewayConfig struct {
	Host string `json:"host" envconfig:"HOST"`
	Port int    `json:"port" envconfig:"PORT"`
	// JWTSecret enables HS256 verification. Empty means tokens are decoded
	// without verification.
	JWTSecret string `json:"jwtSecret" envconfig:"JWT_SECRET"`
}

// ---------------------------------------------------------------------------
// Audit – completion audit trail
// ---------------------------------------------------------------------------

// AuditConfig configures where completion attempts are recorded besides the store.
type AuditConfig struct {
	KafkaBrokers string `json:"kafkaBrokers" envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string `json:"kafkaTopic" envconfig:"KAFKA_TOPIC"`
}

// ---------------------------------------------------------------------------
// Log – process logging
// ---------------------------------------------------------------------------

// LogConfig configures the default slog handler.
type LogConfig struct {
	Level  string `json:"level" envconfig:"LEVEL"`
	Format string `json:"format" envconfig:"FORMAT"` // "text" or "json"
}

// DefaultAgentID is the well-known identity of the built-in agent.
const DefaultAgentID = "00000000-0000-0000-0000-000000000000"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			StorePath: "~/.cjagent/cjagent.db",
		},
		Model: ModelConfig{
			Name:        "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		Agent: AgentConfig{
			ID:                 DefaultAgentID,
			Name:               "CJ",
			MaxTries:           3,
			MaxContinuesInARow: 2,
			RecentMessageCount: 20,
			RelationshipCount:  5,
			MinSimilarity:      0.1,
			Workers:            4,
			QueueSize:          64,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18790,
		},
		Audit: AuditConfig{
			KafkaTopic: "cjagent.audit",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
