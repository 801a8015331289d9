package cmd

import (
	"fmt"
	"os"
	"time"

	"trustschema/pkg/anchor"
	"trustschema/pkg/cert"
	"trustschema/pkg/keygen"
	"trustschema/pkg/metrics"
	"trustschema/pkg/ndn"
	"trustschema/pkg/schema"
	"trustschema/pkg/signing"

	"github.com/spf13/cobra"
)

// persistingKeyGenerator adapts *keygen.KeyStore to also write every
// identity certificate the planner materialises to a directory, keyed
// the same way directoryFace looks certificates up — without this, a
// certificate signed by one `sign` invocation would only ever live in
// the in-process KeyStore and a later `validate` run could never fetch
// it back.
type persistingKeyGenerator struct {
	*keygen.KeyStore
	dir string
}

func (p *persistingKeyGenerator) AddCertificateAsIdentityDefault(c *cert.Certificate) error {
	if err := p.KeyStore.AddCertificateAsIdentityDefault(c); err != nil {
		return err
	}
	return writeCertFile(p.dir, c)
}

func newSignCmd() *cobra.Command {
	var certsDir, outPath, signerKeyPath, signerKeyName string

	cmd := &cobra.Command{
		Use:   "sign <schema-file> <name>",
		Short: "Sign a packet name under a trust-schema document",
		Long:  `Walks the schema's signer chain for name, materialising and signing any missing intermediate identities, then signs name itself with the resulting leaf key.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _, cancel := setupCommand(cmd.Context())
			defer cancel()

			schemaPath := args[0]
			schemaBytes, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("reading schema %q: %w", schemaPath, err)
			}

			anchors := anchor.NewContainer(logger, fileCertificateReader{})
			interp := schema.NewInterpreter(logger, anchors)
			if err := interp.Load(string(schemaBytes), schemaPath); err != nil {
				return fmt.Errorf("loading schema %q: %w", schemaPath, err)
			}

			name, err := ndn.ParseName(args[1])
			if err != nil {
				return fmt.Errorf("parsing name %q: %w", args[1], err)
			}

			keygenerator := &persistingKeyGenerator{KeyStore: keygen.NewKeyStore(), dir: certsDir}
			if signerKeyPath != "" {
				if signerKeyName == "" {
					return fmt.Errorf("--signer-key requires --signer-key-name")
				}
				keyName, err := ndn.ParseName(signerKeyName)
				if err != nil {
					return fmt.Errorf("parsing signer key name %q: %w", signerKeyName, err)
				}
				priv, err := loadSignerPrivateKey(signerKeyPath)
				if err != nil {
					return err
				}
				keygenerator.ImportPrivateKey(keyName, priv)
			}
			planner := signing.New(logger, interp, keygenerator, signingConfigFrom(cfg))
			if cfg.Metrics.Enabled {
				planner.SetMetrics(metrics.NewRegistry())
			}

			packet := &cert.Certificate{Name: name}
			now := time.Now()
			if err := planner.Sign(packet, now); err != nil {
				return fmt.Errorf("signing %q: %w", name.String(), err)
			}

			for _, n := range planner.ChainNames() {
				fmt.Printf("materialised: %s\n", n.String())
			}
			fmt.Printf("signed: %s\n", packet.Name.String())

			if err := writeCertFile(certsDir, packet); err != nil {
				return fmt.Errorf("storing signed certificate: %w", err)
			}
			if outPath != "" {
				doc, err := encodeCertificate(packet)
				if err != nil {
					return err
				}
				return writeCertDocFile(outPath, doc)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&certsDir, "certs-dir", ".", "Directory certificates materialised during signing are written to")
	cmd.Flags().StringVar(&outPath, "out", "", "Additionally write the signed certificate to this file")
	cmd.Flags().StringVar(&signerKeyPath, "signer-key", "", "PEM private key for an existing identity (e.g. a trust anchor) this invocation should sign with directly")
	cmd.Flags().StringVar(&signerKeyName, "signer-key-name", "", "NDN key name the --signer-key private key belongs to")
	cfg.AddSigningFlags(cmd)
	cfg.AddMetricsFlags(cmd)

	return cmd
}
