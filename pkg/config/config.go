/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/breakdb/pkg/backend"
	"github.com/ssargent/breakdb/pkg/codec"
)

// Backend names accepted in the backend field
const (
	BackendPath   = "path"
	BackendFile   = "file"
	BackendMmap   = "mmap"
	BackendMemory = "memory"
	BackendPebble = "pebble"
)

// Config represents the BreakDB configuration
type Config struct {
	Path     string  `yaml:"path"`
	Backend  string  `yaml:"backend"`
	Codec    string  `yaml:"codec"`
	Checksum bool    `yaml:"checksum"`
	MmapSize int     `yaml:"mmap_size"`
	Server   Server  `yaml:"server"`
	Logging  Logging `yaml:"logging"`
}

// Server contains settings for the REST API
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Path:     "./breakdb.json",
		Backend:  BackendPath,
		Codec:    codec.FormatJSON,
		MmapSize: backend.DefaultMmapSize,
		Server: Server{
			Bind:   "127.0.0.1",
			Port:   8080,
			APIKey: "auto",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Validate reports the first setting that cannot be used
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPath, BackendFile, BackendPebble:
		if c.Path == "" {
			return fmt.Errorf("backend %q requires a path", c.Backend)
		}
	case BackendMmap:
		if c.MmapSize < 0 {
			return fmt.Errorf("invalid mmap_size %d", c.MmapSize)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if _, err := codec.ByName[map[string]string](c.CodecName()); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// CodecName is the codec name understood by codec.ByName, including the
// checksum suffix when enabled.
func (c *Config) CodecName() string {
	name := c.Codec
	if c.Checksum && !strings.HasSuffix(name, codec.ChecksumSuffix) {
		name += codec.ChecksumSuffix
	}
	return name
}

// LogLevel parses the configured logging level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Logging.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return level, fmt.Errorf("invalid logging level %q: %w", c.Logging.Level, err)
	}
	return level, nil
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	b, err := backend.OpenPath(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	data, err := b.GetData()
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig atomically replaces the configuration file. New files are
// created with 0600 permissions; existing files keep theirs.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := backend.NewPath(configPath).PutData(data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key
func BootstrapConfig(configPath string, dbPath string) (*Config, error) {
	config := DefaultConfig()
	if dbPath != "" {
		config.Path = dbPath
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./breakdb.yaml"
	}

	// ~/.config/breakdb/config.yaml
	configDir := filepath.Join(homeDir, ".config", "breakdb")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
