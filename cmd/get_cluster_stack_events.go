package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newGetClusterStackEventsCmd(f clients.Factory) *cobra.Command {
	var name string
	var region string
	var nextToken string
	var query string

	eventsCmd := &cobra.Command{
		Use:   "get-cluster-stack-events",
		Short: "Gets the stack events of a cluster",
		Long:  "Gets the CloudFormation stack events of a cluster, newest first",
		Example: `
  gantry get-cluster-stack-events --cluster-name mycluster
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			events, token, err := cluster.NewManager(c, version).StackEvents(cmd.Context(), name, nextToken)
			if err != nil {
				return err
			}

			out := struct {
				Events    []cluster.StackEvent `json:"events"`
				NextToken string               `json:"nextToken,omitempty"`
			}{Events: events, NextToken: token}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	eventsCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster")
	eventsCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	eventsCmd.Flags().StringVar(&nextToken, "next-token", "", "Token for the next page of results")
	eventsCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	eventsCmd.MarkFlagRequired("cluster-name")

	return eventsCmd
}
