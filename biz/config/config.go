package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvServer  = "KRUISE_PROXY_SERVER"
	EnvToken   = "KRUISE_PROXY_TOKEN"
	EnvCluster = "KRUISE_PROXY_CLUSTER"
	EnvLocale  = "KRUISE_PROXY_LOCALE"

	DefaultPageSize = 10
)

type Config struct {
	// Server is the console base URL. When empty the kubeconfig current
	// context supplies server and credentials.
	Server                string        `yaml:"server,omitempty"`
	Token                 string        `yaml:"token,omitempty"`
	CAFile                string        `yaml:"ca-file,omitempty"`
	InsecureSkipTLSVerify bool          `yaml:"insecure-skip-tls-verify,omitempty"`
	Kubeconfig            string        `yaml:"kubeconfig,omitempty"`
	Context               string        `yaml:"context,omitempty"`
	DefaultCluster        string        `yaml:"default-cluster,omitempty"`
	PageSize              int           `yaml:"page-size,omitempty"`
	Locale                string        `yaml:"locale,omitempty"`
	LogLevel              string        `yaml:"log-level,omitempty"`
	MetricsAddress        string        `yaml:"metrics-address,omitempty"`
	Timeout               time.Duration `yaml:"timeout,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
		Locale:   "en",
		LogLevel: "info",
		Timeout:  30 * time.Second,
	}
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".kruise-proxy", "config.yaml")
	}
	return filepath.Join(home, ".kruise-proxy", "config.yaml")
}

// Load reads path over the defaults. A missing file at the default path is
// not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from KRUISE_PROXY_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvCluster); v != "" {
		c.DefaultCluster = v
	}
	if v := os.Getenv(EnvLocale); v != "" {
		c.Locale = v
	}
}

func (c *Config) Validate() error {
	if c.PageSize < 0 {
		return fmt.Errorf("page-size must not be negative: %d", c.PageSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log-level %q", c.LogLevel)
	}
	if c.Server != "" && !strings.HasPrefix(c.Server, "http://") && !strings.HasPrefix(c.Server, "https://") {
		return fmt.Errorf("server must be an http(s) URL: %s", c.Server)
	}
	if c.Server == "" && c.Token != "" {
		return errors.New("token requires server")
	}
	if c.CAFile != "" && c.InsecureSkipTLSVerify {
		return errors.New("ca-file and insecure-skip-tls-verify are mutually exclusive")
	}
	return nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}
