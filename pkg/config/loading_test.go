package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFileAppliesOverridesOnTopOfDefaults(t *testing.T) {
	path := writeConfigFile(t, `
loglevel: debug
validator:
  steplimit: 5
  maxtrackedkeys: 50
signing:
  algorithm: ecdsa
  ecdsacurve: P-384
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Validator.StepLimit)
	assert.Equal(t, 50, cfg.Validator.MaxTrackedKeys)
	assert.Equal(t, "ecdsa", cfg.Signing.Algorithm)
	assert.Equal(t, "P-384", cfg.Signing.ECDSACurve)
	// Fields the file doesn't mention keep their defaults.
	assert.Equal(t, time.Hour, cfg.CertCache.TTL)
}

func TestLoadFromFileEmptyFileUsesDefaults(t *testing.T) {
	path := writeConfigFile(t, "")
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestLoadFromFileInvalidYAMLFails(t *testing.T) {
	path := writeConfigFile(t, "invalid: [yaml\n  missing: bracket\n")
	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestLoadFromFileMissingPathFails(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadFromFileRejectsConfigThatFailsValidation(t *testing.T) {
	path := writeConfigFile(t, "loglevel: deafening\n")
	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("TRUSTSCHEMA_LOG_LEVEL", "warn")
	t.Setenv("TRUSTSCHEMA_STEP_LIMIT", "3")
	t.Setenv("TRUSTSCHEMA_FACE_INSECURE", "false")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Validator.StepLimit)
	assert.False(t, cfg.Face.Insecure)
}

func TestSaveToFileRoundTrips(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Validator.StepLimit = 7

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.LogLevel)
	assert.Equal(t, 7, loaded.Validator.StepLimit)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "deafening" }},
		{"non-positive step limit", func(c *Config) { c.Validator.StepLimit = 0 }},
		{"non-positive max tracked keys", func(c *Config) { c.Validator.MaxTrackedKeys = 0 }},
		{"negative max concurrent roots", func(c *Config) { c.Validator.MaxConcurrentRoots = -1 }},
		{"unknown signing algorithm", func(c *Config) { c.Signing.Algorithm = "dsa" }},
		{"rsa key too small", func(c *Config) { c.Signing.Algorithm = "rsa"; c.Signing.MinRSABits = 512 }},
		{"non-positive cache ttl", func(c *Config) { c.CertCache.TTL = 0 }},
		{"non-positive cache max entries", func(c *Config) { c.CertCache.MaxEntries = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())
}
