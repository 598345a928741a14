package cmd

import (
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the version of gantry",
		Long:  "Prints the version of gantry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := map[string]string{
				"version": version,
				"commit":  commit,
				"date":    date,
			}

			return printJSON(cmd.OutOrStdout(), out, "")
		},
	}
}
