// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	ProviderSimulated = "simulated"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"

	DefaultStoreKey = "chatgpt-conversations"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type StoreConfig struct {
	Key        string        `yaml:"key"`
	Backend    string        `yaml:"backend"`     // memory|redis|postgres
	WriteDelay time.Duration `yaml:"write_delay"` // 0 = synchronous write-through
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ResponderConfig struct {
	Provider         string        `yaml:"provider"` // simulated|openai|gemini
	Delay            time.Duration `yaml:"delay"`
	Timeout          time.Duration `yaml:"timeout"`
	Workers          int           `yaml:"workers"`
	ConcurrentLimit  int           `yaml:"concurrent_limit"` // max concurrent provider calls
	Model            string        `yaml:"model"`
	MaxContextTokens int           `yaml:"max_context_tokens"`
	OpenAIKey        string        `yaml:"openai_key"`
	OpenAIBaseURL    string        `yaml:"openai_base_url"`
	GeminiKey        string        `yaml:"gemini_key"`
	GeminiURL        string        `yaml:"gemini_url"`
}

type UploadConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Responder ResponderConfig `yaml:"responder"`
	Upload    UploadConfig    `yaml:"upload"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Default returns a config that runs entirely in-process.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads the YAML file at path, fills defaults and validates it.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML into a validated Config.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if strings.TrimSpace(cfg.Store.Key) == "" {
		cfg.Store.Key = DefaultStoreKey
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendMemory
	}
	if cfg.Store.WriteDelay < 0 {
		cfg.Store.WriteDelay = 0
	}

	r := &cfg.Responder
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
	if r.Provider == "" {
		r.Provider = ProviderSimulated
	}
	if r.Delay <= 0 && r.Provider == ProviderSimulated {
		r.Delay = time.Second
	}
	if r.Timeout <= 0 {
		r.Timeout = 30 * time.Second
	}
	if r.Workers <= 0 {
		r.Workers = 4
	}
	if r.ConcurrentLimit <= 0 {
		r.ConcurrentLimit = 8
	}
	if r.MaxContextTokens <= 0 {
		r.MaxContextTokens = 4096
	}
	if r.Model == "" {
		switch r.Provider {
		case ProviderGemini:
			r.Model = "gemini-2.0-flash"
		default:
			r.Model = "gpt-4o-mini"
		}
	}

	if cfg.Upload.Timeout <= 0 {
		cfg.Upload.Timeout = 60 * time.Second
	}
}

// Validate checks the fields a chosen backend or provider depends on.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for store.backend=redis")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for store.backend=postgres")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	switch c.Responder.Provider {
	case ProviderSimulated:
	case ProviderOpenAI:
		if c.Responder.OpenAIKey == "" {
			return errors.New("responder.openai_key is required for provider=openai")
		}
	case ProviderGemini:
		if c.Responder.GeminiKey == "" {
			return errors.New("responder.gemini_key is required for provider=gemini")
		}
	default:
		return fmt.Errorf("unknown responder.provider %q", c.Responder.Provider)
	}
	return nil
}
