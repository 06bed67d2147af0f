package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Embed registry seed answers into the reference corpus",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		svc, err := startService(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = svc.Stop(ctx) }()

		n, err := svc.Seed(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "appended %d seed answers\n", n)
		return err
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
