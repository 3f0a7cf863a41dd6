package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Provider ProviderConfig `yaml:"provider" mapstructure:"provider"`
	Timeouts TimeoutConfig  `yaml:"timeouts" mapstructure:"timeouts"`
	Triggers TriggerConfig  `yaml:"triggers" mapstructure:"triggers"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Client   ClientConfig   `yaml:"client" mapstructure:"client"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr" mapstructure:"addr"`
	DBPath     string `yaml:"db_path" mapstructure:"db_path"`
	UserHeader string `yaml:"user_header" mapstructure:"user_header"`
}

// ProviderConfig points at an OpenAI-compatible endpoint (Ollama, vLLM, OpenAI).
type ProviderConfig struct {
	Name           string  `yaml:"name" mapstructure:"name"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey         string  `yaml:"api_key" mapstructure:"api_key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	NormalizeModel string  `yaml:"normalize_model" mapstructure:"normalize_model"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
}

type TimeoutConfig struct {
	Synthesis time.Duration `yaml:"synthesis" mapstructure:"synthesis"`
	Intents   time.Duration `yaml:"intents" mapstructure:"intents"`
	Chat      time.Duration `yaml:"chat" mapstructure:"chat"`
	Provider  time.Duration `yaml:"provider" mapstructure:"provider"`
}

// TriggerConfig names an optional YAML file replacing the built-in trigger table.
type TriggerConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type ClientConfig struct {
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	UserID    string `yaml:"user_id" mapstructure:"user_id"`
}

var envVarRe = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "$")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8787",
			DBPath:     filepath.Join(dataDir(), "foundernote.db"),
			UserHeader: "X-User-ID",
		},
		Provider: ProviderConfig{
			Name:        "ollama",
			BaseURL:     "http://localhost:11434/v1",
			Model:       "qwen2.5:14b",
			MaxRetries:  2,
			Temperature: 0.5,
		},
		Timeouts: TimeoutConfig{
			Synthesis: 45 * time.Second,
			Intents:   10 * time.Second,
			Chat:      60 * time.Second,
			Provider:  90 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Client: ClientConfig{
			ServerURL: "http://localhost:8787",
		},
	}
}

func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "foundernote")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "foundernote")
}

// Load reads config.yaml from the working directory or the user config dir,
// or from path when it is set. FOUNDERNOTE_* environment variables override
// file values, e.g. FOUNDERNOTE_PROVIDER_MODEL.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "foundernote"))
		}
		home, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(home, ".config", "foundernote"))
	}

	v.SetEnvPrefix("FOUNDERNOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Provider.APIKey = expandEnv(cfg.Provider.APIKey)
	cfg.Provider.BaseURL = expandEnv(cfg.Provider.BaseURL)
	cfg.Client.UserID = expandEnv(cfg.Client.UserID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnv registers every key so AutomaticEnv applies to values no config
// file mentions.
func bindEnv(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.db_path", cfg.Server.DBPath)
	v.SetDefault("server.user_header", cfg.Server.UserHeader)
	v.SetDefault("provider.name", cfg.Provider.Name)
	v.SetDefault("provider.base_url", cfg.Provider.BaseURL)
	v.SetDefault("provider.api_key", cfg.Provider.APIKey)
	v.SetDefault("provider.model", cfg.Provider.Model)
	v.SetDefault("provider.normalize_model", cfg.Provider.NormalizeModel)
	v.SetDefault("provider.max_retries", cfg.Provider.MaxRetries)
	v.SetDefault("provider.temperature", cfg.Provider.Temperature)
	v.SetDefault("timeouts.synthesis", cfg.Timeouts.Synthesis)
	v.SetDefault("timeouts.intents", cfg.Timeouts.Intents)
	v.SetDefault("timeouts.chat", cfg.Timeouts.Chat)
	v.SetDefault("timeouts.provider", cfg.Timeouts.Provider)
	v.SetDefault("triggers.file", cfg.Triggers.File)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("client.server_url", cfg.Client.ServerURL)
	v.SetDefault("client.user_id", cfg.Client.UserID)
}

// Validate checks the configuration for errors and fills zero values.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("config: provider.base_url is required")
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("config: provider.model is required")
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("config: provider.max_retries must not be negative")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("config: provider.temperature %.2f out of range [0, 2]", c.Provider.Temperature)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: log.format %q must be console or json", c.Log.Format)
	}

	def := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.UserHeader == "" {
		c.Server.UserHeader = def.Server.UserHeader
	}
	if c.Provider.NormalizeModel == "" {
		c.Provider.NormalizeModel = c.Provider.Model
	}
	if c.Timeouts.Synthesis <= 0 {
		c.Timeouts.Synthesis = def.Timeouts.Synthesis
	}
	if c.Timeouts.Intents <= 0 {
		c.Timeouts.Intents = def.Timeouts.Intents
	}
	if c.Timeouts.Chat <= 0 {
		c.Timeouts.Chat = def.Timeouts.Chat
	}
	if c.Timeouts.Provider <= 0 {
		c.Timeouts.Provider = def.Timeouts.Provider
	}
	return nil
}
