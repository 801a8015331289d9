package cmd

import (
	"fmt"
	"os"

	"trustschema/pkg/anchor"
	"trustschema/pkg/schema"

	"github.com/spf13/cobra"
)

func newAnchorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anchors <schema-file>",
		Short: "List the trust anchors loaded from a schema document",
		Args:  cobra.ExactArgs(1),
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

			all := anchors.All()
			if len(all) == 0 {
				fmt.Println("no trust anchors loaded")
				return nil
			}
			for _, a := range all {
				kind := "static"
				if a.Kind == anchor.Dynamic {
					kind = "dynamic"
				}
				fmt.Printf("%s\t%s\tkey=%s\n", a.ID, kind, a.KeyName.String())
				if a.Certificate != nil {
					fmt.Printf("\tvalid %s .. %s\n", a.Certificate.NotBefore.Format("2006-01-02"), a.Certificate.NotAfter.Format("2006-01-02"))
				}
			}
			return nil
		},
	}

	return cmd
}
