package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "inbox/conversations.json", c.Input)
	assert.Equal(t, "claude-3-5-haiku-latest", c.Model)
	assert.Equal(t, 30*time.Second, c.CompletionTimeout)
	assert.Equal(t, 1990, c.Ceiling)
	assert.Equal(t, 50, c.AppendBatch)
	assert.Equal(t, 500*time.Millisecond, c.Delay)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
	assert.False(t, c.Telemetry.Enabled)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("NOTION_TOKEN", "secret_test")
	t.Setenv("NOTION_DB", "0123456789ABCDEF0123456789ABCDEF")
	t.Setenv("LEARNLOG_DELAY", "2s")
	t.Setenv("LEARNLOG_CEILING", "100")
	t.Setenv("LEARNLOG_LOG_LEVEL", "debug")
	t.Setenv("LEARNLOG_TELEMETRY_ENABLED", "true")

	c, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", c.AnthropicAPIKey)
	assert.Equal(t, "secret_test", c.NotionToken)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", c.NotionDatabaseID)
	assert.Equal(t, 2*time.Second, c.Delay)
	assert.Equal(t, 100, c.Ceiling)
	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Telemetry.Enabled)
	require.NoError(t, c.Validate(true))
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learnlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: claude-sonnet-4-0\nappend_batch: 10\nlog:\n  format: json\n"), 0o644))
	t.Setenv("LEARNLOG_APPEND_BATCH", "20")

	c, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-0", c.Model)
	assert.Equal(t, 20, c.AppendBatch)
	assert.Equal(t, "json", c.Log.Format)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNormalizeDatabaseID(t *testing.T) {
	assert.Equal(t, "0123456789abcdef0123456789abcdef", NormalizeDatabaseID("0123456789ABCDEF0123456789ABCDEF"))
	assert.Equal(t, "0123456789abcdef0123456789abcdef", NormalizeDatabaseID("01234567-89ab-cdef-0123-456789abcdef"))
	assert.Equal(t, "", NormalizeDatabaseID("  "))
}

func validConfig() Config {
	return Config{
		AnthropicAPIKey:   "sk-test",
		NotionToken:       "secret_test",
		NotionDatabaseID:  "0123456789abcdef0123456789abcdef",
		Input:             "inbox/conversations.json",
		CompletionTimeout: 30 * time.Second,
		Ceiling:           1990,
		AppendBatch:       50,
		Delay:             500 * time.Millisecond,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(*Config)
		requireStore bool
		wantErr      string
	}{
		{name: "valid", modify: func(*Config) {}, requireStore: true},
		{name: "missing anthropic key", modify: func(c *Config) { c.AnthropicAPIKey = "" }, wantErr: "ANTHROPIC_API_KEY"},
		{name: "missing notion token", modify: func(c *Config) { c.NotionToken = "" }, requireStore: true, wantErr: "NOTION_TOKEN"},
		{name: "notion not required", modify: func(c *Config) { c.NotionToken = ""; c.NotionDatabaseID = "" }},
		{name: "missing database", modify: func(c *Config) { c.NotionDatabaseID = "" }, requireStore: true, wantErr: "NOTION_DB"},
		{name: "short database id", modify: func(c *Config) { c.NotionDatabaseID = "abc123" }, requireStore: true, wantErr: "32 character"},
		{name: "non-hex database id", modify: func(c *Config) { c.NotionDatabaseID = "0123456789abcdef0123456789abcdeg" }, requireStore: true, wantErr: "32 character"},
		{name: "zero ceiling", modify: func(c *Config) { c.Ceiling = 0 }, wantErr: "ceiling"},
		{name: "batch too large", modify: func(c *Config) { c.AppendBatch = 51 }, wantErr: "append batch"},
		{name: "negative delay", modify: func(c *Config) { c.Delay = -time.Second }, wantErr: "delay"},
		{name: "dry run without out dir", modify: func(c *Config) { c.DryRun = true }, wantErr: "output directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			err := c.Validate(tt.requireStore)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
