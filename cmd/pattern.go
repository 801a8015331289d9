package cmd

import (
	"fmt"

	"trustschema/pkg/ndn"
	"trustschema/pkg/pattern"

	"github.com/spf13/cobra"
)

func newPatternCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Inspect name-regex patterns",
	}
	cmd.AddCommand(newPatternTestCmd())
	return cmd
}

func newPatternTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <pattern> <name>",
		Short: "Check whether a name matches a name-regex pattern",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pattern.Compile(args[0])
			if err != nil {
				return fmt.Errorf("compiling pattern %q: %w", args[0], err)
			}
			name, err := ndn.ParseName(args[1])
			if err != nil {
				return fmt.Errorf("parsing name %q: %w", args[1], err)
			}

			bt, ok := p.MatchBindings(name)
			if !ok {
				fmt.Printf("no match: %s\n", args[1])
				return nil
			}
			fmt.Printf("match: %s\n", args[1])
			for i := 1; i <= p.Groups(); i++ {
				if bound, ok := bt.Get(i); ok {
					fmt.Printf("  $%d = %s\n", i, bound.String())
				}
			}
			return nil
		},
	}
}
