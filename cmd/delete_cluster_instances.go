package cmd

import (
	"fmt"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newDeleteClusterInstancesCmd(f clients.Factory) *cobra.Command {
	var name string
	var region string
	var force bool
	var query string

	deleteCmd := &cobra.Command{
		Use:   "delete-cluster-instances",
		Short: "Terminates the compute instances of a cluster",
		Long: `Terminates the compute instances of a cluster so the scheduler replaces
them, the head node is not touched. Clusters using the awsbatch
scheduler manage their own fleet, pass --force to terminate anyway.`,
		Example: `
  gantry delete-cluster-instances --cluster-name mycluster
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			err = cluster.NewManager(c, version).DeleteInstances(cmd.Context(), name, force)
			if err != nil {
				return err
			}

			out := struct {
				Message string `json:"message"`
			}{Message: fmt.Sprintf("the compute instances of cluster %s are being terminated", name)}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	deleteCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster")
	deleteCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	deleteCmd.Flags().BoolVar(&force, "force", false, "Terminate the instances even when the fleet is managed by AWS Batch")
	deleteCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	deleteCmd.MarkFlagRequired("cluster-name")

	return deleteCmd
}
