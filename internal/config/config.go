// Package config loads unidown settings from defaults, an optional TOML file
// and UNIDOWN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"unidown/internal/httputil"
)

const (
	// Name is the config file base name and the env prefix source.
	Name = "unidown"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "UNIDOWN"
)

// EnvKeyReplacer maps config keys onto environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Config is the fully resolved application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Extractors ExtractorsConfig `mapstructure:"extractors"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type HTTPConfig struct {
	Timeout     time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	Impersonate bool              `mapstructure:"impersonate"`
	ProxyURL    string            `mapstructure:"proxy_url" validate:"omitempty,url"`
	Headers     map[string]string `mapstructure:"headers"`
}

type DispatchConfig struct {
	ExtractorTimeout time.Duration `mapstructure:"extractor_timeout" validate:"gt=0"`
}

// ExtractorsConfig toggles individual extractors. Registration order is fixed.
type ExtractorsConfig struct {
	Bilibili  bool `mapstructure:"bilibili"`
	YouTube   bool `mapstructure:"youtube"`
	Direct    bool `mapstructure:"direct"`
	OpenGraph bool `mapstructure:"opengraph"`
	YtDlp     bool `mapstructure:"ytdlp"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	JSON  bool   `mapstructure:"json"`
}

// Load resolves the configuration. With an empty path it looks for
// unidown.toml in the working directory and the user config directory, and a
// missing file is not an error. An explicit path must exist.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(Name)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, Name))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer)
	v.AutomaticEnv()

	v.SetTypeByDefaultValue(true)
	for _, f := range Defaults {
		v.SetDefault(f.Key, f.Value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultHeaders returns the configured upstream headers with canonical names.
// Viper lowercases map keys, so they are restored here.
func (h HTTPConfig) DefaultHeaders() map[string]string {
	return httputil.MergeHeaders(h.Headers)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
