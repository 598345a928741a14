package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/logs"
	"github.com/spf13/cobra"
)

func newListClusterLogStreamsCmd(f clients.Factory) *cobra.Command {
	var name string
	var region string
	var nextToken string
	var filters []string
	var query string

	listCmd := &cobra.Command{
		Use:   "list-cluster-log-streams",
		Short: "Lists the log streams of a cluster",
		Long: `Lists the log streams of a cluster, most recently written first. The
stack events of the cluster appear as the cloudformation-stack-events
stream.`,
		Example: `
  gantry list-cluster-log-streams --cluster-name mycluster --filters 'ip-10-0-0-*'
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := logs.NewManager(c).ListStreams(cmd.Context(), logs.ListStreamsInput{
				Source:    logs.ClusterSource(name),
				Filters:   filters,
				NextToken: nextToken,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	listCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster")
	listCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	listCmd.Flags().StringVar(&nextToken, "next-token", "", "Token for the next page of results")
	listCmd.Flags().StringSliceVar(&filters, "filters", nil, "Only list streams whose name matches the given glob patterns")
	listCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	listCmd.MarkFlagRequired("cluster-name")

	return listCmd
}
