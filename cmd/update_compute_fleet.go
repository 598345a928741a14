package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newUpdateComputeFleetCmd(f clients.Factory) *cobra.Command {
	var name string
	var status string
	var region string
	var query string

	updateCmd := &cobra.Command{
		Use:   "update-compute-fleet",
		Short: "Starts or stops the compute fleet of a cluster",
		Long: `Starts or stops the compute fleet of a cluster. Clusters using the slurm
scheduler accept START_REQUESTED and STOP_REQUESTED, clusters using the
awsbatch scheduler accept ENABLED and DISABLED.`,
		Example: `
  gantry update-compute-fleet --cluster-name mycluster --status STOP_REQUESTED
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := cluster.NewManager(c, version).UpdateComputeFleet(cmd.Context(), name, status)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	updateCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster")
	updateCmd.Flags().StringVar(&status, "status", "", "Requested fleet status, one of START_REQUESTED, STOP_REQUESTED, ENABLED, DISABLED")
	updateCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	updateCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	updateCmd.MarkFlagRequired("cluster-name")
	updateCmd.MarkFlagRequired("status")

	return updateCmd
}
