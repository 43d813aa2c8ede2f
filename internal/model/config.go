package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Theme names accepted in display.theme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultBaseURL is the public mock collection the dashboard talks to
// when no base URL is configured.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// APIConfig holds settings for the remote todo collection.
type APIConfig struct {
	// BaseURL is the root URL of the collection service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`

	// TimeoutSec is the transport-level deadline per request.
	// Zero disables the deadline.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" validate:"gte=0"`

	// UserID is attached to every todo created from this client.
	UserID int `mapstructure:"user_id" yaml:"user_id" validate:"gt=0"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme              string `mapstructure:"theme" yaml:"theme" validate:"oneof=light dark"`
	PageSize           int    `mapstructure:"page_size" yaml:"page_size" validate:"gt=0"`
	RefreshIntervalSec int    `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec" validate:"gte=0"`
}

// LogConfig controls the slog logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/todoboard/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "todoboard", "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			TimeoutSec: 30,
			UserID:     1,
		},
		Display: DisplayConfig{
			Theme:              ThemeLight,
			PageSize:           10,
			RefreshIntervalSec: 0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := DefaultAppConfig()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("api.user_id", def.API.UserID)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("display.page_size", def.Display.PageSize)
	v.SetDefault("display.refresh_interval_sec", def.Display.RefreshIntervalSec)
	v.SetDefault("log.level", def.Log.Level)

	v.SetEnvPrefix("TODOBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field constraints declared in the struct tags.
func (c *AppConfig) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// Timeout returns the per-request transport deadline, zero for none.
func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// RefreshInterval returns the automatic refresh period, zero for none.
func (c *AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Display.RefreshIntervalSec) * time.Second
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
