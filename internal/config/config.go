package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BackendURL      string      `yaml:"backend_url"`
	RequestTimeout  int         `yaml:"request_timeout_seconds"`
	DefaultTone     string      `yaml:"default_tone"`
	AdminPassphrase string      `yaml:"admin_passphrase"`
	HistoryDB       string      `yaml:"history_db"`
	Watch           WatchConfig `yaml:"watch"`
	Debug           bool        `yaml:"debug"`
}

type WatchConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
}

const (
	defaultBackendURL = "http://localhost:8000"
	defaultTone       = "Conversational"
	defaultHistoryDB  = "./rag-console.db"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config usable without a config file
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.BackendURL == "" {
		c.BackendURL = defaultBackendURL
	}
	if c.DefaultTone == "" {
		c.DefaultTone = defaultTone
	}
	if c.HistoryDB == "" {
		c.HistoryDB = defaultHistoryDB
	}
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = []string{".pdf", ".txt", ".md", ".text", ".markdown"}
	}
}

// Timeout converts the configured request timeout to a duration; zero means
// no client-side timeout (ingestion can run for minutes server-side).
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
