package core

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jo-hoe/wallscan/internal/backend/commandstructure"
	"github.com/jo-hoe/wallscan/internal/backend/imagecodec"
	"gopkg.in/yaml.v3"
)

// CommandConfig represents a generic preprocessing command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type" env:"WALLSCAN_DATABASE_TYPE"`
	ConnectionString string `yaml:"connectionString" env:"WALLSCAN_DATABASE_CONNECTION_STRING"`
}

type Inference struct {
	Type    string        `yaml:"type" env:"WALLSCAN_INFERENCE_TYPE"`
	URL     string        `yaml:"url" env:"WALLSCAN_INFERENCE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"WALLSCAN_INFERENCE_TIMEOUT"`
}

type Cache struct {
	Type     string        `yaml:"type" env:"WALLSCAN_CACHE_TYPE"`
	Addr     string        `yaml:"addr" env:"WALLSCAN_CACHE_ADDR"`
	Password string        `yaml:"password" env:"WALLSCAN_CACHE_PASSWORD"`
	DB       int           `yaml:"db" env:"WALLSCAN_CACHE_DB"`
	TTL      time.Duration `yaml:"ttl" env:"WALLSCAN_CACHE_TTL"`
}

type ServiceConfig struct {
	Port           int             `yaml:"port" env:"WALLSCAN_PORT"`
	LogLevel       string          `yaml:"logLevel" env:"WALLSCAN_LOG_LEVEL"`
	JPEGQuality    int             `yaml:"jpegQuality" env:"WALLSCAN_JPEG_QUALITY"`
	MaxUploadBytes int64           `yaml:"maxUploadBytes" env:"WALLSCAN_MAX_UPLOAD_BYTES"`
	MaxPixels      int64           `yaml:"maxPixels" env:"WALLSCAN_MAX_PIXELS"`
	Database       Database        `yaml:"database"`
	Inference      Inference       `yaml:"inference"`
	Cache          Cache           `yaml:"cache"`
	Commands       []CommandConfig `yaml:"commands"`
}

// DefaultConfig returns the values used for keys missing from the config file
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:           5000,
		LogLevel:       "info",
		JPEGQuality:    90,
		MaxUploadBytes: 20 << 20,
		MaxPixels:      imagecodec.DefaultMaxPixels,
		Database: Database{
			Type:             "sqlite",
			ConnectionString: "project.db",
		},
		Inference: Inference{
			Type:    "http",
			URL:     "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Cache: Cache{
			Type: "none",
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
	}
}

// LoadConfig loads configuration from the specified YAML file; environment variables override file values.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks ranges and required fields
func (c *ServiceConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.Database.Type == "" {
		return fmt.Errorf("database type must be set")
	}
	if c.Inference.Type == "http" && c.Inference.URL == "" {
		return fmt.Errorf("inference url must be set")
	}
	if c.Inference.Timeout < 0 {
		return fmt.Errorf("inference timeout must not be negative")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpegQuality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("maxUploadBytes must be positive")
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("maxPixels must be positive")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid logLevel %q: %w", c.LogLevel, err)
	}
	return validateCommands(c.Commands)
}

// SlogLevel returns the configured log level, defaulting to info
func (c *ServiceConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// CommandConfigs converts the YAML command list for the preprocessing pipeline
func (c *ServiceConfig) CommandConfigs() []commandstructure.CommandConfig {
	configs := make([]commandstructure.CommandConfig, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		configs = append(configs, commandstructure.CommandConfig{Name: cmd.Name, Params: cmd.Params})
	}
	return configs
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}
