package main

import (
	"fmt"

	"github.com/alxayo/pipe/internal/pipeline/config"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "validate <topology.yaml>",
		Short: "Load and structurally validate a topology file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d stage(s), %d link(s)\n", len(top.Stages), len(top.Links))
			if dump {
				out, err := top.Dump()
				if err != nil {
					return fmt.Errorf("dump resolved topology: %w", err)
				}
				fmt.Print(string(out))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "echo the resolved topology back as canonical YAML")
	return cmd
}
