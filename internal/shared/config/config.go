package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds application configuration.
type Config struct {
	Env       string          `mapstructure:"env"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Prompt    PromptConfig    `mapstructure:"prompt"`
	Security  SecurityConfig  `mapstructure:"security"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type HTTPConfig struct {
	Port             string   `mapstructure:"port"`
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	RatePerSecond    float64  `mapstructure:"rate_per_second"`
	RateBurst        int      `mapstructure:"rate_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LLMConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
	BackoffMax       time.Duration `mapstructure:"backoff_max"`
	MaxResponseBytes int           `mapstructure:"max_response_bytes"`
	Temperature      float64       `mapstructure:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens"`
}

type RateLimitConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	HourlyCap   int           `mapstructure:"hourly_cap"`
}

type PromptConfig struct {
	MaxInputChars int `mapstructure:"max_input_chars"`
}

type SecurityConfig struct {
	WarnThreshold  int `mapstructure:"warn_threshold"`
	BlockThreshold int `mapstructure:"block_threshold"`
}

type RetentionConfig struct {
	Days          int           `mapstructure:"days"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Load reads configuration from the environment, after a best-effort load of
// local .env files. Variables already set in the environment win.
func Load() (*Config, error) {
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.HTTP.CORSAllowOrigins = splitAndTrim(cfg.HTTP.CORSAllowOrigins)
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Production reports whether the service runs in production.
func (c Config) Production() bool { return c.Env == "production" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.cors_allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("http.rate_per_second", 1.0)
	v.SetDefault("http.rate_burst", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.backoff_base", 500*time.Millisecond)
	v.SetDefault("llm.backoff_max", 8*time.Second)
	v.SetDefault("llm.max_response_bytes", 64<<10)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("rate_limit.min_interval", 2*time.Second)
	v.SetDefault("rate_limit.hourly_cap", 100)
	v.SetDefault("prompt.max_input_chars", 8000)
	v.SetDefault("security.warn_threshold", 20)
	v.SetDefault("security.block_threshold", 50)
	v.SetDefault("retention.days", 30)
	v.SetDefault("retention.purge_interval", time.Hour)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"env":                      "ENV",
		"http.port":                "PORT",
		"http.cors_allow_origins":  "CORS_ALLOW_ORIGINS",
		"http.rate_per_second":     "HTTP_RATE_PER_SECOND",
		"http.rate_burst":          "HTTP_RATE_BURST",
		"log.level":                "LOG_LEVEL",
		"log.format":               "LOG_FORMAT",
		"database.url":             "DATABASE_URL",
		"redis.url":                "REDIS_URL",
		"llm.provider":             "LLM_PROVIDER",
		"llm.model":                "LLM_MODEL",
		"llm.api_key":              "LLM_API_KEY",
		"llm.base_url":             "LLM_BASE_URL",
		"llm.timeout":              "LLM_TIMEOUT",
		"llm.max_attempts":         "LLM_MAX_ATTEMPTS",
		"llm.backoff_base":         "LLM_BACKOFF_BASE",
		"llm.backoff_max":          "LLM_BACKOFF_MAX",
		"llm.max_response_bytes":   "LLM_MAX_RESPONSE_BYTES",
		"llm.temperature":          "LLM_TEMPERATURE",
		"llm.max_tokens":           "LLM_MAX_TOKENS",
		"rate_limit.min_interval":  "RATE_LIMIT_MIN_INTERVAL",
		"rate_limit.hourly_cap":    "RATE_LIMIT_HOURLY_CAP",
		"prompt.max_input_chars":   "PROMPT_MAX_INPUT_CHARS",
		"security.warn_threshold":  "SECURITY_WARN_THRESHOLD",
		"security.block_threshold": "SECURITY_BLOCK_THRESHOLD",
		"retention.days":           "RETENTION_DAYS",
		"retention.purge_interval": "PURGE_INTERVAL",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}
	return nil
}

func validate(cfg Config) error {
	switch cfg.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLM.Provider)
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return errors.New("LLM_MODEL is required")
	}
	if cfg.LLM.Timeout <= 0 {
		return errors.New("LLM_TIMEOUT must be positive")
	}
	if cfg.LLM.MaxAttempts <= 0 {
		return errors.New("LLM_MAX_ATTEMPTS must be positive")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return errors.New("LLM_TEMPERATURE must be between 0 and 2")
	}
	if cfg.RateLimit.MinInterval < 0 || cfg.RateLimit.HourlyCap < 0 {
		return errors.New("rate limit settings must not be negative")
	}
	if cfg.Security.BlockThreshold <= 0 {
		return errors.New("SECURITY_BLOCK_THRESHOLD must be positive")
	}
	if cfg.Retention.Days <= 0 {
		return errors.New("RETENTION_DAYS must be positive")
	}
	if cfg.Production() && cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required in production")
	}
	return nil
}

// loadEnvFiles loads KEY=VALUE files if they exist. Missing files are skipped.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = gotenv.Load(path)
	}
}

func providerKey(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func splitAndTrim(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, p := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
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
	default:
		return "dev"
	}
}
