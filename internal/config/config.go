// Package config loads the editor settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hkxedit/hkxedit/internal/logging"
)

// FileName is the settings file looked up in the working directory.
const FileName = ".hkxedit.yaml"

// Config holds the editor settings.
type Config struct {
	LogLevel        string `yaml:"log_level" validate:"loglevel"`
	LogFormat       string `yaml:"log_format" validate:"oneof=text json"`
	Workers         int    `yaml:"workers" validate:"gte=0,lte=256"`
	TemplatesFile   string `yaml:"templates_file,omitempty"`
	Backup          bool   `yaml:"backup"`
	WatchDebounceMS int    `yaml:"watch_debounce_ms" validate:"gte=0,lte=60000"`

	// Source is the file the settings came from, or "" for defaults.
	Source string `yaml:"-"`
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("loglevel", validateLogLevel)
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := logging.ParseLevel(fl.Field().String())
	return err == nil
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		LogLevel:        "warn",
		LogFormat:       "text",
		Workers:         0,
		Backup:          false,
		WatchDebounceMS: 100,
	}
}

// Load reads explicit when set, else rootPath/.hkxedit.yaml when it exists,
// else returns the defaults. An explicit path that does not exist is an error.
func Load(rootPath, explicit string) (Config, error) {
	path := explicit
	if path == "" {
		path = filepath.Join(rootPath, FileName)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	if cfg.TemplatesFile != "" && !filepath.IsAbs(cfg.TemplatesFile) {
		cfg.TemplatesFile = filepath.Join(filepath.Dir(path), cfg.TemplatesFile)
	}
	return cfg, nil
}

// Parse decodes settings over the defaults and validates them.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logging returns the logger settings for w.
func (c Config) Logging(w io.Writer) logging.Config {
	level, _ := logging.ParseLevel(c.LogLevel)
	return logging.Config{
		Level:  level,
		JSON:   c.LogFormat == "json",
		Writer: w,
	}
}

func (c Config) Debounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
