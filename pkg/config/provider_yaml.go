package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

type predictorYAML struct {
	BaseURL   string `yaml:"base-url,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	Fallback  string `yaml:"fallback,omitempty"`
	RateLimit struct {
		RPS   float64 `yaml:"rps,omitempty"`
		Burst int     `yaml:"burst,omitempty"`
	} `yaml:"rate-limit,omitempty"`
	Breaker struct {
		MaxFailures  int    `yaml:"max-failures,omitempty"`
		ResetTimeout string `yaml:"reset-timeout,omitempty"`
	} `yaml:"breaker,omitempty"`
}

type serverYAML struct {
	ListenAddr     string   `yaml:"listen-addr,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	Cert           string   `yaml:"cert,omitempty"`
	Key            string   `yaml:"key,omitempty"`
	AllowedOrigins []string `yaml:"allowed-origins,omitempty"`
}

type sessionYAML struct {
	TTL        string `yaml:"ttl,omitempty"`
	CookieName string `yaml:"cookie-name,omitempty"`
}

type logYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}
	return parseYAML(cfgFile)
}

func parseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Predictor predictorYAML `yaml:"predictor"`
		Server    serverYAML    `yaml:"server,omitempty"`
		Session   sessionYAML   `yaml:"session,omitempty"`
		Log       logYAML       `yaml:"log,omitempty"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, err
	}

	timeout, err := parseDuration("predictor.timeout", yamlConfig.Predictor.Timeout)
	if err != nil {
		return nil, err
	}
	resetTimeout, err := parseDuration("predictor.breaker.reset-timeout", yamlConfig.Predictor.Breaker.ResetTimeout)
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration("session.ttl", yamlConfig.Session.TTL)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	return &ConfigData{
		Predictor: PredictorData{
			BaseURL:  yamlConfig.Predictor.BaseURL,
			Timeout:  timeout,
			Fallback: yamlConfig.Predictor.Fallback,
			RateLimit: RateLimitData{
				RPS:   yamlConfig.Predictor.RateLimit.RPS,
				Burst: yamlConfig.Predictor.RateLimit.Burst,
			},
			Breaker: BreakerData{
				MaxFailures:  yamlConfig.Predictor.Breaker.MaxFailures,
				ResetTimeout: resetTimeout,
			},
		},
		Server: ServerData{
			ListenAddr:     yamlConfig.Server.ListenAddr,
			Port:           yamlConfig.Server.Port,
			Cert:           yamlConfig.Server.Cert,
			Key:            yamlConfig.Server.Key,
			AllowedOrigins: yamlConfig.Server.AllowedOrigins,
		},
		Session: SessionData{
			TTL:        ttl,
			CookieName: yamlConfig.Session.CookieName,
		},
		Log: LogData{
			File:       yamlConfig.Log.File,
			MaxSizeMB:  yamlConfig.Log.MaxSizeMB,
			MaxBackups: yamlConfig.Log.MaxBackups,
			MaxAgeDays: yamlConfig.Log.MaxAgeDays,
		},
	}, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", field, err)
	}
	return d, nil
}

// IsReadOnly returns true since YAML files are edited by hand
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
