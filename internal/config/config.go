// Package config loads learnlog settings from the environment, an optional config file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys of settings that can also be set by flags
const (
	KeyInput             = "input"
	KeyModel             = "model"
	KeyCompletionTimeout = "completion_timeout"
	KeyCeiling           = "ceiling"
	KeyAppendBatch       = "append_batch"
	KeyDelay             = "delay"
	KeyFollowThread      = "follow_thread"
	KeyDryRun            = "dry_run"
	KeyOutDir            = "out_dir"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyTelemetryEnabled  = "telemetry.enabled"
	KeyTelemetryEndpoint = "telemetry.endpoint"
	KeyTelemetryInsecure = "telemetry.insecure"
)

// envPrefix applies to every setting without a dedicated environment variable
const envPrefix = "LEARNLOG"

var databaseIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

type Config struct {
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	NotionToken      string `mapstructure:"notion_token"`
	NotionDatabaseID string `mapstructure:"notion_db"`

	Input             string        `mapstructure:"input"`
	Model             string        `mapstructure:"model"`
	CompletionTimeout time.Duration `mapstructure:"completion_timeout"`
	Ceiling           int           `mapstructure:"ceiling"`
	AppendBatch       int           `mapstructure:"append_batch"`
	Delay             time.Duration `mapstructure:"delay"`
	FollowThread      bool          `mapstructure:"follow_thread"`
	DryRun            bool          `mapstructure:"dry_run"`
	OutDir            string        `mapstructure:"out_dir"`

	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// New returns a viper instance with defaults and environment bindings for every setting
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyInput, "inbox/conversations.json")
	v.SetDefault(KeyModel, "claude-3-5-haiku-latest")
	v.SetDefault(KeyCompletionTimeout, 30*time.Second)
	v.SetDefault(KeyCeiling, 1990)
	v.SetDefault(KeyAppendBatch, 50)
	v.SetDefault(KeyDelay, 500*time.Millisecond)
	v.SetDefault(KeyFollowThread, false)
	v.SetDefault(KeyDryRun, false)
	v.SetDefault(KeyOutDir, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyTelemetryEnabled, false)
	v.SetDefault(KeyTelemetryEndpoint, "")
	v.SetDefault(KeyTelemetryInsecure, false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials use their conventional names
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("notion_token", "NOTION_TOKEN")
	_ = v.BindEnv("notion_db", "NOTION_DB")

	return v
}

// Load reads the optional config file at path, then decodes all settings. Environment variables and bound flags
// take precedence over the file.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	c.NotionDatabaseID = NormalizeDatabaseID(c.NotionDatabaseID)
	return c, nil
}

// NormalizeDatabaseID lowercases id and drops the hyphens of the UUID form
func NormalizeDatabaseID(id string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(id)), "-", "")
}

// Validate checks that the configuration is usable for a sync run. The Notion settings are only required when
// requireStore is set.
func (c Config) Validate(requireStore bool) error {
	var errs []error
	if c.AnthropicAPIKey == "" {
		errs = append(errs, errors.New("missing required environment variable: ANTHROPIC_API_KEY"))
	}
	if requireStore {
		if c.NotionToken == "" {
			errs = append(errs, errors.New("missing required environment variable: NOTION_TOKEN"))
		}
		if c.NotionDatabaseID == "" {
			errs = append(errs, errors.New("missing required environment variable: NOTION_DB"))
		} else if !databaseIDPattern.MatchString(c.NotionDatabaseID) {
			errs = append(errs, fmt.Errorf("NOTION_DB '%s' is not a 32 character hexadecimal database id", c.NotionDatabaseID))
		}
	}
	if c.Input == "" {
		errs = append(errs, errors.New("input path is empty"))
	}
	if c.Ceiling <= 0 {
		errs = append(errs, fmt.Errorf("ceiling must be positive, got %d", c.Ceiling))
	}
	if c.AppendBatch <= 0 || c.AppendBatch > 50 {
		errs = append(errs, fmt.Errorf("append batch must be between 1 and 50, got %d", c.AppendBatch))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative, got %s", c.Delay))
	}
	if c.CompletionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("completion timeout must be positive, got %s", c.CompletionTimeout))
	}
	if c.DryRun && c.OutDir == "" {
		errs = append(errs, errors.New("dry run requires an output directory"))
	}
	return errors.Join(errs...)
}
