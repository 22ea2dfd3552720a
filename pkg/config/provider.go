package config

import (
	"fmt"
	"net/url"
	"time"
)

// Fallback modes for failed prediction calls
const (
	FallbackSynthetic   = "synthetic"
	FallbackUnavailable = "unavailable"
)

// Defaults applied by ApplyDefaults
const (
	DefaultPredictorURL     = "http://localhost:5000"
	DefaultPredictorTimeout = 10 * time.Second
	DefaultListenAddr       = "0.0.0.0"
	DefaultPort             = 8080
	DefaultSessionTTL       = 30 * time.Minute
	DefaultSessionCookie    = "tc_session"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Predictor PredictorData `json:"predictor"`
	Server    ServerData    `json:"server"`
	Session   SessionData   `json:"session"`
	Log       LogData       `json:"log,omitempty"`
}

// PredictorData configures the outbound call to the prediction service
type PredictorData struct {
	BaseURL   string        `json:"base_url"`
	Timeout   time.Duration `json:"timeout"`
	Fallback  string        `json:"fallback"`
	RateLimit RateLimitData `json:"rate_limit,omitempty"`
	Breaker   BreakerData   `json:"breaker,omitempty"`
}

// RateLimitData configures the client-side token bucket. RPS of zero disables it.
type RateLimitData struct {
	RPS   float64 `json:"rps,omitempty"`
	Burst int     `json:"burst,omitempty"`
}

// BreakerData configures the circuit breaker. MaxFailures of zero disables it.
type BreakerData struct {
	MaxFailures  int           `json:"max_failures,omitempty"`
	ResetTimeout time.Duration `json:"reset_timeout,omitempty"`
}

// ServerData configures the REST API listener
type ServerData struct {
	ListenAddr     string   `json:"listen_addr,omitempty"`
	Port           int      `json:"port,omitempty"`
	Cert           string   `json:"cert,omitempty"`
	Key            string   `json:"key,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// SessionData configures browser sessions
type SessionData struct {
	TTL        time.Duration `json:"ttl,omitempty"`
	CookieName string        `json:"cookie_name,omitempty"`
}

// LogData configures the optional rotated log file
type LogData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// ApplyDefaults fills in zero values
func (c *ConfigData) ApplyDefaults() {
	if c.Predictor.BaseURL == "" {
		c.Predictor.BaseURL = DefaultPredictorURL
	}
	if c.Predictor.Timeout == 0 {
		c.Predictor.Timeout = DefaultPredictorTimeout
	}
	if c.Predictor.Fallback == "" {
		c.Predictor.Fallback = FallbackSynthetic
	}
	if c.Predictor.RateLimit.RPS > 0 && c.Predictor.RateLimit.Burst == 0 {
		c.Predictor.RateLimit.Burst = 1
	}
	if c.Predictor.Breaker.MaxFailures > 0 && c.Predictor.Breaker.ResetTimeout == 0 {
		c.Predictor.Breaker.ResetTimeout = 30 * time.Second
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = DefaultSessionTTL
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultSessionCookie
	}
	if c.Log.File != "" && c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
}

// Validate checks that the configuration is usable
func (c *ConfigData) Validate() error {
	u, err := url.Parse(c.Predictor.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("predictor.base_url %q is not an absolute URL", c.Predictor.BaseURL)
	}
	if c.Predictor.Timeout < 0 {
		return fmt.Errorf("predictor.timeout must not be negative")
	}
	switch c.Predictor.Fallback {
	case FallbackSynthetic, FallbackUnavailable:
	default:
		return fmt.Errorf("predictor.fallback must be %q or %q, got %q", FallbackSynthetic, FallbackUnavailable, c.Predictor.Fallback)
	}
	if c.Predictor.RateLimit.RPS < 0 || c.Predictor.RateLimit.Burst < 0 {
		return fmt.Errorf("predictor.rate_limit values must not be negative")
	}
	if c.Predictor.Breaker.MaxFailures < 0 || c.Predictor.Breaker.ResetTimeout < 0 {
		return fmt.Errorf("predictor.breaker values must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if (c.Server.Cert == "") != (c.Server.Key == "") {
		return fmt.Errorf("server.cert and server.key must be set together")
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	return nil
}

// Load reads configuration from the provider, applies defaults and validates it
func Load(p ConfigProvider) (*ConfigData, error) {
	cfg, err := p.LoadConfig()
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
