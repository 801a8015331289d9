package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultConfigMatchesEachSubPackagesOwnDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, 10, cfg.Validator.StepLimit)
	assert.Equal(t, 1000, cfg.Validator.MaxTrackedKeys)
	assert.Equal(t, time.Hour, cfg.Validator.KeyTimestampTTL)
	assert.Equal(t, 3*time.Second, cfg.Validator.GraceInterval)
	assert.Equal(t, 64, cfg.Validator.MaxConcurrentRoots)

	assert.Equal(t, time.Hour, cfg.CertCache.TTL)

	assert.Equal(t, "rsa", cfg.Signing.Algorithm)
	assert.Equal(t, 2048, cfg.Signing.MinRSABits)
	assert.Equal(t, 365*24*time.Hour, cfg.Signing.ValidityPeriod)

	assert.True(t, cfg.Face.Insecure)
	assert.Equal(t, 16*1024*1024, cfg.Face.MaxCallRecvMsgBytes)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":2112", cfg.Metrics.Address)

	assert.True(t, cfg.Resilience.Enabled)
}

func TestAddFlagsToCommandBindsGlobalFlags(t *testing.T) {
	cfg := NewDefaultConfig()
	cmd := &cobra.Command{Use: "test"}
	cfg.AddFlagsToCommand(cmd)

	flag := cmd.PersistentFlags().Lookup("log-level")
	assert.NotNil(t, flag)
	assert.Equal(t, "info", flag.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("schema"))
}

func TestAddValidatorFlagsBindsStepLimit(t *testing.T) {
	cfg := NewDefaultConfig()
	cmd := &cobra.Command{Use: "validate"}
	cfg.AddValidatorFlags(cmd)

	flag := cmd.Flags().Lookup("step-limit")
	assert.NotNil(t, flag)
	assert.Equal(t, "10", flag.DefValue)

	assert.NoError(t, cmd.Flags().Set("step-limit", "5"))
	assert.Equal(t, 5, cfg.Validator.StepLimit)
}

func TestAddSigningFlagsBindsAlgorithm(t *testing.T) {
	cfg := NewDefaultConfig()
	cmd := &cobra.Command{Use: "sign"}
	cfg.AddSigningFlags(cmd)

	assert.NoError(t, cmd.Flags().Set("key-algorithm", "ecdsa"))
	assert.Equal(t, "ecdsa", cfg.Signing.Algorithm)
}

func TestExpandHomeDirEmptyPathIsUnchanged(t *testing.T) {
	assert.Empty(t, ExpandHomeDir(""))
}

func TestExpandHomeDirAbsolutePathIsUnchanged(t *testing.T) {
	assert.Equal(t, "/etc/trustschema/schema.trust", ExpandHomeDir("/etc/trustschema/schema.trust"))
}

func TestExpandHomeDirResolvesHomeVariableAndTilde(t *testing.T) {
	expanded := ExpandHomeDir("${HOME}/.trustschema/schema.trust")
	assert.NotContains(t, expanded, "${HOME}")
	assert.Contains(t, expanded, "/.trustschema/schema.trust")

	tildeExpanded := ExpandHomeDir("~/schema.trust")
	assert.NotContains(t, tildeExpanded, "~")
	assert.Contains(t, tildeExpanded, "schema.trust")
}
