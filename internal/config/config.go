package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the API service and CLI
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Generation GenerationConfig `yaml:"generation"`
	Backend    BackendConfig    `yaml:"backend"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`

	// Optional infrastructure; empty disables the integration
	RedisURL     string `yaml:"redis_url"`
	NATSURL      string `yaml:"nats_url"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	Environment    string        `yaml:"environment"`
	ClientURL      string        `yaml:"client_url"`
	BodyLimitBytes int64         `yaml:"body_limit_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type GenerationConfig struct {
	LocalMode      bool   `yaml:"local_mode"`
	FallbackPolicy string `yaml:"fallback_policy"`
}

type BackendConfig struct {
	Provider      string        `yaml:"provider"`
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
}

type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-2.5-flash",
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "5000",
			Environment:    "development",
			ClientURL:      "http://localhost:5173",
			BodyLimitBytes: 10 << 10,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
		},
		Generation: GenerationConfig{
			FallbackPolicy: "always",
		},
		Backend: BackendConfig{
			Provider:      ProviderOpenAI,
			Temperature:   0.7,
			MaxTokens:     4000,
			Timeout:       30 * time.Second,
			MaxConcurrent: 4,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeout:      30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Requests: 50,
			Window:   15 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or CONFIG_FILE when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.Backend.Model == "" {
		cfg.Backend.Model = defaultModels[cfg.Backend.Provider]
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Environment = getEnv("GO_ENV", c.Server.Environment)
	c.Server.ClientURL = getEnv("CLIENT_URL", c.Server.ClientURL)

	c.Generation.FallbackPolicy = getEnv("FALLBACK_POLICY", c.Generation.FallbackPolicy)

	c.Backend.Provider = strings.ToLower(getEnv("BACKEND_PROVIDER", c.Backend.Provider))
	c.Backend.Model = getEnv("BACKEND_MODEL", c.Backend.Model)
	switch c.Backend.Provider {
	case ProviderGemini:
		c.Backend.APIKey = getEnv("GEMINI_API_KEY", c.Backend.APIKey)
	default:
		c.Backend.APIKey = getEnv("OPENAI_API_KEY", c.Backend.APIKey)
		c.Backend.BaseURL = getEnv("OPENAI_BASE_URL", c.Backend.BaseURL)
	}

	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	var err error
	if c.Server.BodyLimitBytes, err = getEnvInt64("BODY_LIMIT_BYTES", c.Server.BodyLimitBytes); err != nil {
		return err
	}
	if c.Generation.LocalMode, err = getEnvBool("LOCAL_MODE", c.Generation.LocalMode); err != nil {
		return err
	}
	if c.Backend.Timeout, err = getEnvDuration("BACKEND_TIMEOUT", c.Backend.Timeout); err != nil {
		return err
	}
	if c.Backend.MaxConcurrent, err = getEnvInt("BACKEND_MAX_CONCURRENT", c.Backend.MaxConcurrent); err != nil {
		return err
	}
	if c.RateLimit.Requests, err = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimit.Requests); err != nil {
		return err
	}
	if c.RateLimit.Window, err = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	switch c.Backend.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported backend provider %q", c.Backend.Provider)
	}
	switch strings.ToLower(c.Generation.FallbackPolicy) {
	case "always", "transient":
	default:
		return fmt.Errorf("unsupported fallback policy %q", c.Generation.FallbackPolicy)
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.BodyLimitBytes <= 0 {
		return errors.New("body limit must be positive")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("backend timeout must be positive")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit requests and window must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
