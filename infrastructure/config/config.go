package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Lambda configuration
	IsLambda bool

	// Chat platform configuration
	PublicKey       string
	BotToken        string
	ApplicationID   string
	FollowupBaseURL string

	// Media control API (Spotify) configuration
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURL  string

	// Language model configuration
	OpenAIKey        string
	OpenAIModel      string
	FallbackEndpoint string
	FallbackKey      string
	FallbackModel    string

	// Authorization handshake
	StateSecret string
	StateExpiry time.Duration

	// Rate limiting
	RateLimitWindow  time.Duration
	RateLimitDefault int

	// Memory
	MemoryMaxMessages   int
	MemorySummarizeAt   int
	MemoryIdleExpiry    time.Duration
	UpstreamCallTimeout time.Duration

	// Agentic loop
	AgentMaxIterations int
	AgentRetryEnabled  bool

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", "muse-sessions"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "muse-events"),

		IsLambda: os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",

		PublicKey:       getEnv("DISCORD_PUBLIC_KEY", ""),
		BotToken:        getEnv("DISCORD_BOT_TOKEN", ""),
		ApplicationID:   getEnv("DISCORD_APPLICATION_ID", ""),
		FollowupBaseURL: getEnv("DISCORD_API_BASE", "https://discord.com/api/v10"),

		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyRedirectURL:  getEnv("SPOTIFY_REDIRECT_URL", ""),

		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		FallbackEndpoint: getEnv("FALLBACK_LLM_ENDPOINT", ""),
		FallbackKey:      getEnv("FALLBACK_LLM_KEY", ""),
		FallbackModel:    getEnv("FALLBACK_LLM_MODEL", "@cf/meta/llama-3-8b-instruct"),

		StateSecret: getEnv("STATE_SECRET", ""),
		StateExpiry: getEnvDuration("STATE_EXPIRY", 10*time.Minute),

		RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitDefault: getEnvInt("RATE_LIMIT_DEFAULT", 10),

		MemoryMaxMessages:   getEnvInt("MEMORY_MAX_MESSAGES", 20),
		MemorySummarizeAt:   getEnvInt("MEMORY_SUMMARIZE_AT", 10),
		MemoryIdleExpiry:    getEnvDuration("MEMORY_IDLE_EXPIRY", 2*time.Hour),
		UpstreamCallTimeout: getEnvDuration("UPSTREAM_CALL_TIMEOUT", 15*time.Second),

		AgentMaxIterations: getEnvInt("AGENT_MAX_ITERATIONS", 3),
		AgentRetryEnabled:  getEnvBool("AGENT_RETRY_ENABLED", true),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.PublicKey == "" {
			return fmt.Errorf("DISCORD_PUBLIC_KEY is required in production")
		}
		if c.StateSecret == "" {
			return fmt.Errorf("STATE_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
