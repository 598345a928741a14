package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newDescribeClusterCmd(f clients.Factory) *cobra.Command {
	var name string
	var region string
	var query string

	describeCmd := &cobra.Command{
		Use:   "describe-cluster",
		Short: "Describes a cluster",
		Long: `Describes the state of a cluster including the head node, the compute
fleet status and any stack failures.`,
		Example: `
  gantry describe-cluster --cluster-name mycluster
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := cluster.NewManager(c, version).Describe(cmd.Context(), name)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	describeCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster to describe")
	describeCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	describeCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	describeCmd.MarkFlagRequired("cluster-name")

	return describeCmd
}
