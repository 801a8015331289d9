package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"trustschema/pkg/helper/errors"
)

// LoadFromFile builds a Config from defaults, then an optional YAML file,
// then environment variables, validating the result before returning it.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := NewDefaultConfig()

	if configPath != "" {
		expandedPath := ExpandHomeDir(configPath)

		if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
			return nil, errors.NotFoundf("configuration file not found: %s", expandedPath)
		}

		data, err := os.ReadFile(expandedPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read configuration file")
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse configuration file")
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromEnv overlays TRUSTSCHEMA_*-prefixed environment variables onto
// an already-defaulted/file-loaded Config.
func loadFromEnv(cfg *Config) error {
	strVars := map[string]*string{
		"TRUSTSCHEMA_LOG_LEVEL":     &cfg.LogLevel,
		"TRUSTSCHEMA_SCHEMA_PATH":   &cfg.Schema.Path,
		"TRUSTSCHEMA_FACE_ADDRESS":  &cfg.Face.Address,
		"TRUSTSCHEMA_KEY_ALGORITHM": &cfg.Signing.Algorithm,
	}
	for env, field := range strVars {
		if value, exists := os.LookupEnv(env); exists && value != "" {
			*field = value
		}
	}

	if value, exists := os.LookupEnv("TRUSTSCHEMA_METRICS_ENABLED"); exists {
		cfg.Metrics.Enabled = strings.ToLower(value) == "true" || value == "1"
	}
	if value, exists := os.LookupEnv("TRUSTSCHEMA_FACE_INSECURE"); exists {
		cfg.Face.Insecure = strings.ToLower(value) == "true" || value == "1"
	}
	if value, exists := os.LookupEnv("TRUSTSCHEMA_STEP_LIMIT"); exists {
		if n, err := strconv.Atoi(value); err == nil {
			cfg.Validator.StepLimit = n
		}
	}
	if value, exists := os.LookupEnv("TRUSTSCHEMA_MAX_TRACKED_KEYS"); exists {
		if n, err := strconv.Atoi(value); err == nil {
			cfg.Validator.MaxTrackedKeys = n
		}
	}

	return nil
}

// SaveToFile writes cfg as YAML, creating the destination directory if
// necessary.
func (c *Config) SaveToFile(filePath string) error {
	expandedPath := ExpandHomeDir(filePath)

	if dir := filepath.Dir(expandedPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create directory")
		}
	}

	file, err := os.Create(expandedPath)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return errors.Wrap(err, "failed to encode configuration")
	}
	return encoder.Close()
}

// Validate checks that cfg describes a runnable engine.
func (c *Config) Validate() error {
	logLevel := strings.ToLower(c.LogLevel)
	if logLevel != "debug" && logLevel != "info" && logLevel != "warn" && logLevel != "error" && logLevel != "fatal" {
		return errors.InvalidInputf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", c.LogLevel)
	}

	if c.Validator.StepLimit <= 0 {
		return errors.InvalidInputf("validator step limit must be positive")
	}
	if c.Validator.MaxTrackedKeys <= 0 {
		return errors.InvalidInputf("validator max tracked keys must be positive")
	}
	if c.Validator.MaxConcurrentRoots < 0 {
		return errors.InvalidInputf("validator max concurrent roots must be non-negative")
	}

	algorithm := strings.ToLower(c.Signing.Algorithm)
	if algorithm != "rsa" && algorithm != "ecdsa" {
		return errors.InvalidInputf("invalid signing algorithm: %s (must be one of: rsa, ecdsa)", c.Signing.Algorithm)
	}
	if algorithm == "rsa" && c.Signing.MinRSABits < 2048 {
		return errors.InvalidInputf("rsa key size must be at least 2048 bits")
	}

	if c.CertCache.TTL <= 0 {
		return errors.InvalidInputf("certificate cache TTL must be positive")
	}
	if c.CertCache.MaxEntries <= 0 {
		return errors.InvalidInputf("certificate cache max entries must be positive")
	}

	return nil
}
