package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port                  string   `toml:"port"`
	CORSAllowOrigin       []string `toml:"cors_allow_origins"`
	ObjectStoreType       string   `toml:"object_store"`
	LocalStoreDir         string   `toml:"local_store_dir"`
	AWSRegion             string   `toml:"aws_region"`
	S3Bucket              string   `toml:"s3_bucket"`
	S3Prefix              string   `toml:"s3_prefix"`
	S3Endpoint            string   `toml:"s3_endpoint"`
	SSEKMSKeyID           string   `toml:"sse_kms_key_id"`
	S3AccessKeyID         string   `toml:"-"`
	S3SecretAccessKey     string   `toml:"-"`
	LLMProvider           string   `toml:"llm_provider"`
	LLMModel              string   `toml:"llm_model"`
	LLMTemperature        float32  `toml:"llm_temperature"`
	LLMMaxTokens          int      `toml:"llm_max_tokens"`
	LLMTimeoutSeconds     int      `toml:"llm_timeout_seconds"`
	GoogleAPIKey          string   `toml:"-"`
	OpenAIAPIKey          string   `toml:"-"`
	AnthropicAPIKey       string   `toml:"-"`
	DatabaseURL           string   `toml:"-"`
	RabbitMQURL           string   `toml:"-"`
	EventsExchange        string   `toml:"events_exchange"`
	GenerateRatePerMinute float64  `toml:"generate_rate_per_minute"`
	GenerateBurst         int      `toml:"generate_burst"`
	Env                   string   `toml:"env"`
}

// Default models per provider, used when LLM_MODEL is unset.
const (
	DefaultGeminiModel    = "gemini-2.5-flash-lite"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-5"
)

// Defaults returns the configuration used when neither a config file nor env overrides a key.
// LLMModel is left empty and resolved per provider by DefaultModel.
func Defaults() Config {
	return Config{
		Port:                  "8080",
		CORSAllowOrigin:       []string{"http://localhost:5173"},
		ObjectStoreType:       "local",
		LocalStoreDir:         "./data",
		LLMProvider:           "gemini",
		LLMTemperature:        0.25,
		LLMMaxTokens:          8192,
		LLMTimeoutSeconds:     120,
		EventsExchange:        "generation_events",
		GenerateRatePerMinute: 6,
		GenerateBurst:         3,
		Env:                   "dev",
	}
}

// Load reads configuration from .env files, an optional CONFIG_FILE and environment variables.
// Environment variables win over the file, the file wins over defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			log.Printf("config file %s ignored: %v", path, err)
		}
	}
	applyEnv(&cfg)
	if strings.TrimSpace(cfg.LLMModel) == "" {
		cfg.LLMModel = DefaultModel(cfg.LLMProvider)
	}

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Env = normalizeEnv(getEnv("ENV", cfg.Env))
	cfg.Port = getEnv("PORT", cfg.Port)
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}
	cfg.ObjectStoreType = normalizeStoreType(getEnv("OBJECT_STORE", cfg.ObjectStoreType))
	cfg.LocalStoreDir = getEnv("LOCAL_STORE_DIR", cfg.LocalStoreDir)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Prefix = getEnv("S3_PREFIX", cfg.S3Prefix)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.SSEKMSKeyID = getEnv("SSE_KMS_KEY_ID", cfg.SSEKMSKeyID)
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.LLMProvider = NormalizeProvider(getEnv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMTemperature = float32(getEnvFloat("LLM_TEMPERATURE", float64(cfg.LLMTemperature)))
	cfg.LLMMaxTokens = getEnvInt("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	cfg.LLMTimeoutSeconds = getEnvInt("LLM_TIMEOUT_SECONDS", cfg.LLMTimeoutSeconds)
	cfg.GoogleAPIKey = firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")
	cfg.EventsExchange = getEnv("EVENTS_EXCHANGE", cfg.EventsExchange)
	cfg.GenerateRatePerMinute = getEnvFloat("GENERATE_RATE_PER_MINUTE", cfg.GenerateRatePerMinute)
	cfg.GenerateBurst = getEnvInt("GENERATE_BURST", cfg.GenerateBurst)
}

// APIKey returns the credential for the configured LLM provider.
func (c Config) APIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.GoogleAPIKey
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config env %s invalid float: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// DefaultModel returns the model used for a provider when none is configured.
func DefaultModel(provider string) string {
	switch NormalizeProvider(provider) {
	case "openai":
		return DefaultOpenAIModel
	case "anthropic":
		return DefaultAnthropicModel
	default:
		return DefaultGeminiModel
	}
}

// NormalizeProvider maps provider aliases to openai, anthropic, gemini or none.
// Unknown values fall back to gemini.
func NormalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "anthropic", "claude":
		return "anthropic"
	case "gemini", "google":
		return "gemini"
	case "none", "placeholder":
		return "none"
	default:
		return "gemini"
	}
}
