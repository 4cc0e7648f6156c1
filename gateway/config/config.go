package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitConfig names a limit bucket applied to a set of RPC methods.
type RateLimitConfig struct {
	ID                string   `yaml:"id"`
	RequestsPerMinute float64  `yaml:"requestsPerMinute"`
	Burst             int      `yaml:"burst"`
	Methods           []string `yaml:"methods"`
}

// AuthConfig controls bearer-token authentication for privileged RPC methods.
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	HMACSecret string        `yaml:"hmacSecret"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	ScopeClaim string        `yaml:"scopeClaim"`
	ClockSkew  time.Duration `yaml:"clockSkew"`
}

// ObservabilityConfig toggles request metrics and tracing on the RPC surface.
type ObservabilityConfig struct {
	ServiceName   string `yaml:"serviceName"`
	MetricsPrefix string `yaml:"metricsPrefix"`
	Metrics       bool   `yaml:"metrics"`
	Tracing       bool   `yaml:"tracing"`
	LogRequests   bool   `yaml:"logRequests"`
}

// Config is the RPC gateway configuration, loaded from YAML.
type Config struct {
	ReadTimeout   time.Duration       `yaml:"readTimeout"`
	WriteTimeout  time.Duration       `yaml:"writeTimeout"`
	IdleTimeout   time.Duration       `yaml:"idleTimeout"`
	RateLimits    []RateLimitConfig   `yaml:"rateLimits"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// Default returns the gateway configuration used when no file is provided:
// auth disabled, observability on, no rate limits.
func Default() Config {
	return Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		Observability: ObservabilityConfig{
			ServiceName:   "vault-gateway",
			MetricsPrefix: "gateway",
			Metrics:       true,
			Tracing:       true,
			LogRequests:   true,
		},
	}
}

// Load reads the gateway configuration from path, applying defaults for
// unset fields.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read gateway config: %w", err)
	}
	decoder := yaml.NewDecoder(strings.NewReader(string(raw)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse gateway config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports structural errors in the configuration.
func (c Config) Validate() error {
	if c.Auth.Enabled && strings.TrimSpace(c.Auth.HMACSecret) == "" {
		return errors.New("auth.hmacSecret must be set when auth is enabled")
	}
	seen := make(map[string]struct{}, len(c.RateLimits))
	for _, limit := range c.RateLimits {
		id := strings.TrimSpace(limit.ID)
		if id == "" {
			return errors.New("rate limit entries require an id")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate rate limit id %q", id)
		}
		seen[id] = struct{}{}
		if limit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate limit %q requires requestsPerMinute > 0", id)
		}
	}
	return nil
}
