package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/socialchef/moodbite/internal/errors"
)

// MinGroqKeyLength is the shortest GROQ_API_KEY accepted at startup.
const MinGroqKeyLength = 30

const (
	ProviderGroq     = "groq"
	ProviderCerebras = "cerebras"
	ProviderOpenAI   = "openai"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	GroqKey     string
	CerebrasKey string
	OpenAIKey   string
	HFToken     string

	CatalogFile string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port string

	Inference InferenceConfig
	Features  FeaturesConfig
	Limits    LimitsConfig
}

type InferenceConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	FallbackProvider string  `yaml:"fallback_provider"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
}

// FallbackEnabled reports whether a secondary inference provider is configured.
func (c InferenceConfig) FallbackEnabled() bool {
	return c.FallbackProvider != "" && c.FallbackProvider != c.Provider
}

type FeaturesConfig struct {
	URL      string        `yaml:"url"`
	APIName  string        `yaml:"api_name"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type LimitsConfig struct {
	RatePerMinute   int           `yaml:"rate_per_minute"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	JobRetention    time.Duration `yaml:"job_retention"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		GroqKey:                  os.Getenv("GROQ_API_KEY"),
		CerebrasKey:              os.Getenv("CEREBRAS_API_KEY"),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		HFToken:                  os.Getenv("HF_TOKEN"),
		CatalogFile:              os.Getenv("CATALOG_FILE"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
		Inference: InferenceConfig{
			Provider:         os.Getenv("INFERENCE_PROVIDER"),
			Model:            os.Getenv("INFERENCE_MODEL"),
			FallbackProvider: os.Getenv("INFERENCE_FALLBACK_PROVIDER"),
		},
		Features: FeaturesConfig{
			URL:     os.Getenv("FEATURE_SERVICE_URL"),
			APIName: os.Getenv("FEATURE_API_NAME"),
		},
	}

	if err := cfg.loadNumericEnv(); err != nil {
		return nil, err
	}

	// Environment wins over config.yaml
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) loadNumericEnv() error {
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be an integer: %w", err)
		}
		c.Limits.RatePerMinute = n
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("UPSTREAM_TIMEOUT must be a duration like 45s: %w", err)
		}
		c.Limits.UpstreamTimeout = d
	}
	return nil
}

// LoadFromYAML fills settings that the environment left unset.
func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Inference InferenceConfig `yaml:"inference"`
		Features  FeaturesConfig  `yaml:"features"`
		Limits    LimitsConfig    `yaml:"limits"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&c.Inference.Provider, yamlConfig.Inference.Provider)
	setString(&c.Inference.Model, yamlConfig.Inference.Model)
	setString(&c.Inference.FallbackProvider, yamlConfig.Inference.FallbackProvider)
	if c.Inference.Temperature == 0 {
		c.Inference.Temperature = yamlConfig.Inference.Temperature
	}
	if c.Inference.MaxTokens == 0 {
		c.Inference.MaxTokens = yamlConfig.Inference.MaxTokens
	}

	setString(&c.Features.URL, yamlConfig.Features.URL)
	setString(&c.Features.APIName, yamlConfig.Features.APIName)
	if c.Features.CacheTTL == 0 {
		c.Features.CacheTTL = yamlConfig.Features.CacheTTL
	}

	if c.Limits.RatePerMinute == 0 {
		c.Limits.RatePerMinute = yamlConfig.Limits.RatePerMinute
	}
	if c.Limits.UpstreamTimeout == 0 {
		c.Limits.UpstreamTimeout = yamlConfig.Limits.UpstreamTimeout
	}
	if c.Limits.MaxUploadMB == 0 {
		c.Limits.MaxUploadMB = yamlConfig.Limits.MaxUploadMB
	}
	if c.Limits.JobRetention == 0 {
		c.Limits.JobRetention = yamlConfig.Limits.JobRetention
	}

	return nil
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func (c *Config) SetDefaults() {
	setString(&c.Env, "development")
	setString(&c.ServiceName, "moodbite")
	setString(&c.ServiceVersion, "1.0.0")
	setString(&c.Port, "8080")

	setString(&c.Inference.Provider, ProviderGroq)
	if c.Inference.Temperature == 0 {
		c.Inference.Temperature = 0.7
	}
	if c.Inference.MaxTokens == 0 {
		c.Inference.MaxTokens = 1024
	}

	setString(&c.Features.URL, "https://nishantrajpoot-must-duplicate.hf.space")
	setString(&c.Features.APIName, "process_video")
	if c.Features.CacheTTL == 0 {
		c.Features.CacheTTL = 24 * time.Hour
	}

	if c.Limits.RatePerMinute == 0 {
		c.Limits.RatePerMinute = 10
	}
	if c.Limits.UpstreamTimeout == 0 {
		c.Limits.UpstreamTimeout = 45 * time.Second
	}
	if c.Limits.MaxUploadMB == 0 {
		c.Limits.MaxUploadMB = 100
	}
	if c.Limits.JobRetention == 0 {
		c.Limits.JobRetention = time.Hour
	}
}

// ProviderKey returns the API key configured for an inference provider.
func (c *Config) ProviderKey(provider string) string {
	switch provider {
	case ProviderGroq:
		return c.GroqKey
	case ProviderCerebras:
		return c.CerebrasKey
	case ProviderOpenAI:
		return c.OpenAIKey
	default:
		return ""
	}
}

func (c *Config) validate() error {
	providers := []string{c.Inference.Provider}
	if c.Inference.FallbackEnabled() {
		providers = append(providers, c.Inference.FallbackProvider)
	}
	for _, p := range providers {
		if err := c.validateProvider(p); err != nil {
			return err
		}
	}

	u, err := url.Parse(c.Features.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewConfigurationError("FEATURE_SERVICE_URL must be an absolute http(s) URL", "INVALID_FEATURE_SERVICE_URL")
	}
	if c.Limits.RatePerMinute < 0 {
		return errors.NewConfigurationError("RATE_LIMIT_PER_MINUTE must not be negative", "INVALID_RATE_LIMIT")
	}
	if c.Limits.UpstreamTimeout < 0 {
		return errors.NewConfigurationError("UPSTREAM_TIMEOUT must be positive", "INVALID_UPSTREAM_TIMEOUT")
	}
	return nil
}

func (c *Config) validateProvider(provider string) error {
	switch provider {
	case ProviderGroq:
		if c.GroqKey == "" {
			return errors.NewConfigurationError("GROQ_API_KEY is required", "MISSING_CREDENTIAL")
		}
		if len(c.GroqKey) < MinGroqKeyLength {
			return errors.NewConfigurationError(
				fmt.Sprintf("GROQ_API_KEY looks truncated (%d characters, want at least %d)", len(c.GroqKey), MinGroqKeyLength),
				"INVALID_CREDENTIAL",
			)
		}
	case ProviderCerebras:
		if c.CerebrasKey == "" {
			return errors.NewConfigurationError("CEREBRAS_API_KEY is required", "MISSING_CREDENTIAL")
		}
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			return errors.NewConfigurationError("OPENAI_API_KEY is required", "MISSING_CREDENTIAL")
		}
	default:
		return errors.NewConfigurationError(fmt.Sprintf("unknown inference provider %q", provider), "UNKNOWN_PROVIDER")
	}
	return nil
}
