package cmd

import (
	"fmt"
	"os"

	"trustschema/pkg/anchor"
	"trustschema/pkg/certcache"
	"trustschema/pkg/keygen"
	"trustschema/pkg/metrics"
	"trustschema/pkg/resilience"
	"trustschema/pkg/schema"
	"trustschema/pkg/validator"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var certsDir string

	cmd := &cobra.Command{
		Use:   "validate <schema-file> <packet-file>",
		Short: "Validate a packet against a trust-schema document",
		Long:  `Loads a trust-schema document and checks whether a single packet's certificate chain authorises it, per the document's data/interest rules and trust anchors.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, ctx, cancel := setupCommand(cmd.Context())
			defer cancel()

			schemaPath, packetPath := args[0], args[1]

			schemaBytes, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("reading schema %q: %w", schemaPath, err)
			}

			anchors := anchor.NewContainer(logger, fileCertificateReader{})
			interp := schema.NewInterpreter(logger, anchors)
			if err := interp.Load(string(schemaBytes), schemaPath); err != nil {
				return fmt.Errorf("loading schema %q: %w", schemaPath, err)
			}

			pkt, err := loadPacket(packetPath)
			if err != nil {
				return err
			}

			cache := certcache.NewWithCapacity(cfg.CertCache.TTL, cfg.CertCache.MaxEntries)
			var resilienceMgr *resilience.Manager
			if cfg.Resilience.Enabled {
				resilienceMgr = resilience.NewManager(logger)
			}

			v := validator.New(logger, interp, anchors, cache, newDirectoryFace(certsDir), keygen.NewVerifier(), resilienceMgr, validatorConfigFrom(cfg))
			if cfg.Metrics.Enabled {
				reg := metrics.NewRegistry()
				v.SetMetrics(reg)
				cache.SetMetrics(reg)
			}

			req := validator.NewValidationRequest(pkt)

			var validateErr error
			var accepted bool
			v.ValidateRequest(ctx, req, func(validator.Packet) {
				accepted = true
			}, func(_ validator.Packet, err error) {
				validateErr = err
			})

			if accepted {
				fmt.Printf("accepted: %s\n", pkt.Name.String())
				return nil
			}
			fmt.Printf("rejected: %s\n", pkt.Name.String())
			return validateErr
		},
	}

	cmd.Flags().StringVar(&certsDir, "certs-dir", ".", "Directory of certDoc JSON files the validator may fetch from, keyed by key name")
	cfg.AddValidatorFlags(cmd)
	cfg.AddMetricsFlags(cmd)

	return cmd
}
