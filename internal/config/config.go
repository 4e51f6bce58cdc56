// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendSurrealDB = "surrealdb"
	BackendMongoDB   = "mongodb"
	BackendMemory    = "memory"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// ConfigFileEnv names the variable that points at an optional YAML config file.
const ConfigFileEnv = "NEXTWATCH_CONFIG"

// Config holds all configuration values.
type Config struct {
	// HTTP server
	Host        string
	Port        string
	CORSOrigins []string

	// Persistence
	StoreBackend string

	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// MongoDB connection
	MongoDBURI string

	// Redis recommendation cache, disabled when RedisAddr is empty
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	// LLM collaborator
	LLMProvider     string
	LLMModel        string
	LLMTimeout      time.Duration
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	OllamaHost      string
	AWSRegion       string // bedrock; credentials come from the default AWS chain

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
// Values from the YAML file named by NEXTWATCH_CONFIG act as defaults
// that the environment overrides.
func Load() (Config, error) {
	fileVals, err := readFile(os.Getenv(ConfigFileEnv))
	if err != nil {
		return Config{}, err
	}
	get := func(key, defaultVal string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		if val, ok := fileVals[key]; ok && val != "" {
			return val
		}
		return defaultVal
	}

	return Config{
		Host:        get("HOST", "0.0.0.0"),
		Port:        get("PORT", "3001"),
		CORSOrigins: splitList(get("CORS_ORIGINS", "*")),

		StoreBackend: strings.ToLower(get("STORE_BACKEND", BackendSurrealDB)),

		SurrealDBURL:       get("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: get("SURREALDB_NAMESPACE", "nextwatch"),
		SurrealDBDatabase:  get("SURREALDB_DATABASE", "nextwatch"),
		SurrealDBUser:      get("SURREALDB_USER", "root"),
		SurrealDBPass:      get("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: get("SURREALDB_AUTH_LEVEL", "root"),

		MongoDBURI: get("MONGODB_URI", "mongodb://127.0.0.1:27017/next-watch"),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		CacheTTL:      parseDuration(get("CACHE_TTL", "10m"), 10*time.Minute),

		LLMProvider:     strings.ToLower(get("LLM_PROVIDER", ProviderOpenAI)),
		LLMModel:        get("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:      parseDuration(get("LLM_TIMEOUT", "30s"), 30*time.Second),
		OpenAIAPIKey:    get("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   get("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: get("ANTHROPIC_API_KEY", ""),
		OllamaHost:      get("OLLAMA_HOST", "http://localhost:11434"),
		AWSRegion:       get("AWS_REGION", "us-east-1"),

		LogFile:  get("LOG_FILE", "/tmp/nextwatch.log"),
		LogLevel: parseLogLevel(get("LOG_LEVEL", "INFO")),
	}, nil
}

// Validate checks that the selected backend and provider are usable.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendSurrealDB, BackendMongoDB, BackendMemory:
	default:
		return fmt.Errorf("unsupported store backend: %s", c.StoreBackend)
	}

	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %s", c.LLMProvider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %s", c.LLMProvider)
		}
	case ProviderOllama, ProviderBedrock:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}

	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// readFile parses a flat KEY: value YAML document. An empty path yields no values.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	vals := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		switch tv := v.(type) {
		case []any:
			parts := make([]string, 0, len(tv))
			for _, p := range tv {
				parts = append(parts, fmt.Sprint(p))
			}
			vals[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			vals[strings.ToUpper(k)] = fmt.Sprint(tv)
		}
	}
	return vals, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
