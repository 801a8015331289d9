// Package config holds the engine's tunables: one plain Go struct per
// concern, bound to cobra flags directly (no viper), mirroring the
// teacher's own configuration layer.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Config is the root configuration for the trust-schema engine.
type Config struct {
	LogLevel string

	Schema     SchemaConfig
	Validator  ValidatorConfig
	CertCache  CertCacheConfig
	Signing    SigningConfig
	Face       FaceConfig
	Anchor     AnchorConfig
	Metrics    MetricsConfig
	Resilience ResilienceConfig
}

// SchemaConfig locates the trust-schema document to load.
type SchemaConfig struct {
	Path string
}

// ValidatorConfig mirrors pkg/validator.Config (spec.md §4.6, §5).
type ValidatorConfig struct {
	StepLimit          int
	MaxTrackedKeys     int
	KeyTimestampTTL    time.Duration
	GraceInterval      time.Duration
	MaxConcurrentRoots int
}

// CertCacheConfig mirrors pkg/certcache's TTL and capacity knobs (spec.md
// C5). MaxEntries bounds worst-case memory independently of TTL: a burst of
// fetches inside one TTL window would otherwise grow the cache unboundedly
// until the timers catch up.
type CertCacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

// SigningConfig mirrors pkg/signing.Config (spec.md §4.7).
type SigningConfig struct {
	// Algorithm is "rsa" or "ecdsa".
	Algorithm      string
	MinRSABits     int
	ECDSACurve     string
	ValidityPeriod time.Duration
}

// FaceConfig mirrors pkg/face.DialOptions plus the address to dial.
type FaceConfig struct {
	Address             string
	Insecure            bool
	MaxCallRecvMsgBytes int
	MaxCallSendMsgBytes int
	KeepaliveTime       time.Duration
	KeepaliveTimeout    time.Duration
}

// AnchorConfig configures the optional cron-driven anchor refresh
// (pkg/anchor.Scheduler). An empty RefreshCron leaves the validator's
// lazy on-touch refresh (spec.md §4.3) as the only refresh path.
type AnchorConfig struct {
	RefreshCron string
}

// MetricsConfig controls whether a pkg/metrics.Registry is wired in.
// Address is carried in the config only: no command in this module
// starts an HTTP listener on it.
type MetricsConfig struct {
	Enabled bool
	Address string
}

// ResilienceConfig toggles whether certificate fetches go through
// pkg/resilience's circuit-breaker/bulkhead/retry/rate-limiter stack or
// straight to the Face.
type ResilienceConfig struct {
	Enabled bool
}

// NewDefaultConfig returns a Config with every sub-package's own stated
// defaults (spec.md §4.6's stepLimit=10/maxTrackedKeys=1000,
// pkg/signing.DefaultConfig's 365-day validity period, and so on), so
// constructing engine collaborators from a fresh Config never requires a
// caller to separately consult each package's own DefaultConfig.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Schema: SchemaConfig{
			Path: "",
		},
		Validator: ValidatorConfig{
			StepLimit:          10,
			MaxTrackedKeys:     1000,
			KeyTimestampTTL:    time.Hour,
			GraceInterval:      3 * time.Second,
			MaxConcurrentRoots: 64,
		},
		CertCache: CertCacheConfig{
			TTL:        time.Hour,
			MaxEntries: 10000,
		},
		Signing: SigningConfig{
			Algorithm:      "rsa",
			MinRSABits:     2048,
			ECDSACurve:     "P-256",
			ValidityPeriod: 365 * 24 * time.Hour,
		},
		Face: FaceConfig{
			Address:             "",
			Insecure:            true,
			MaxCallRecvMsgBytes: 16 * 1024 * 1024,
			MaxCallSendMsgBytes: 16 * 1024 * 1024,
			KeepaliveTime:       30 * time.Second,
			KeepaliveTimeout:    10 * time.Second,
		},
		Anchor: AnchorConfig{
			RefreshCron: "",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":2112",
		},
		Resilience: ResilienceConfig{
			Enabled: true,
		},
	}
}

// AddFlagsToCommand adds the global flags shared by every subcommand.
func (c *Config) AddFlagsToCommand(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error, fatal)")
	cmd.PersistentFlags().StringVar(&c.Schema.Path, "schema", c.Schema.Path, "Path to the trust-schema document")
}

// AddValidatorFlags adds flags for the validate subcommand.
func (c *Config) AddValidatorFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&c.Validator.StepLimit, "step-limit", c.Validator.StepLimit, "Maximum certificate chain length followed per validation root")
	cmd.Flags().IntVar(&c.Validator.MaxTrackedKeys, "max-tracked-keys", c.Validator.MaxTrackedKeys, "Maximum number of keys tracked for replay detection")
	cmd.Flags().DurationVar(&c.Validator.KeyTimestampTTL, "key-timestamp-ttl", c.Validator.KeyTimestampTTL, "How long a replay-tracking entry survives without being refreshed")
	cmd.Flags().DurationVar(&c.Validator.GraceInterval, "grace-interval", c.Validator.GraceInterval, "Replay window applied to a key's first-seen Interest timestamp")
	cmd.Flags().IntVar(&c.Validator.MaxConcurrentRoots, "max-concurrent-roots", c.Validator.MaxConcurrentRoots, "Maximum number of validation roots running concurrently (0 = unbounded)")
	cmd.Flags().DurationVar(&c.CertCache.TTL, "cert-cache-ttl", c.CertCache.TTL, "TTL applied to cached certificates")
	cmd.Flags().IntVar(&c.CertCache.MaxEntries, "cert-cache-max-entries", c.CertCache.MaxEntries, "Maximum number of certificates held in the cache regardless of TTL")
}

// AddSigningFlags adds flags for the sign subcommand.
func (c *Config) AddSigningFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Signing.Algorithm, "key-algorithm", c.Signing.Algorithm, "Key algorithm for freshly materialised identities (rsa, ecdsa)")
	cmd.Flags().IntVar(&c.Signing.MinRSABits, "rsa-bits", c.Signing.MinRSABits, "RSA key size in bits")
	cmd.Flags().StringVar(&c.Signing.ECDSACurve, "ecdsa-curve", c.Signing.ECDSACurve, "ECDSA curve name (P-256, P-384, P-521)")
	cmd.Flags().DurationVar(&c.Signing.ValidityPeriod, "validity-period", c.Signing.ValidityPeriod, "Validity period for freshly issued intermediate certificates")
}

// AddFaceFlags adds flags for subcommands that dial a certificate
// repository over gRPC.
func (c *Config) AddFaceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Face.Address, "face-address", c.Face.Address, "Address of the certificate repository gRPC service")
	cmd.Flags().BoolVar(&c.Face.Insecure, "face-insecure", c.Face.Insecure, "Dial the certificate repository without TLS")
}

// AddAnchorFlags adds flags controlling periodic anchor refresh.
func (c *Config) AddAnchorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Anchor.RefreshCron, "anchor-refresh-cron", c.Anchor.RefreshCron, "Cron schedule for periodic anchor refresh (empty disables it)")
}

// AddMetricsFlags adds flags controlling the Prometheus registry.
func (c *Config) AddMetricsFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&c.Metrics.Enabled, "metrics", c.Metrics.Enabled, "Enable Prometheus metrics")
	cmd.Flags().StringVar(&c.Metrics.Address, "metrics-address", c.Metrics.Address, "Address for a Prometheus metrics handler (no command starts a listener on it)")
}

// ExpandHomeDir expands a leading ~ or ${HOME} in path.
func ExpandHomeDir(path string) string {
	if path == "" {
		return path
	}

	if strings.Contains(path, "${HOME}") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "${HOME}", homeDir)
		}
	}

	if strings.HasPrefix(path, "~") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return path
}
