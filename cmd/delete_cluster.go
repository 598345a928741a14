package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newDeleteClusterCmd(f clients.Factory) *cobra.Command {
	var name string
	var region string
	var query string

	deleteCmd := &cobra.Command{
		Use:   "delete-cluster",
		Short: "Deletes a cluster",
		Long: `Deletes a cluster and all of its resources, the command returns as soon
as the stack deletion has been started.`,
		Example: `
  gantry delete-cluster --cluster-name mycluster
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := cluster.NewManager(c, version).Delete(cmd.Context(), name)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	deleteCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster to delete")
	deleteCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	deleteCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	deleteCmd.MarkFlagRequired("cluster-name")

	return deleteCmd
}
