package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newDescribeComputeFleetCmd(f clients.Factory) *cobra.Command {
	var name string
	var region string
	var query string

	describeCmd := &cobra.Command{
		Use:   "describe-compute-fleet",
		Short: "Describes the compute fleet of a cluster",
		Long:  "Describes the status of the compute fleet of a cluster",
		Example: `
  gantry describe-compute-fleet --cluster-name mycluster
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := cluster.NewManager(c, version).DescribeComputeFleet(cmd.Context(), name)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	describeCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster")
	describeCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	describeCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	describeCmd.MarkFlagRequired("cluster-name")

	return describeCmd
}
