package cmd

import (
	"fmt"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newListClustersCmd(f clients.Factory) *cobra.Command {
	var region string
	var nextToken string
	var statuses []string
	var query string
	var output string

	listCmd := &cobra.Command{
		Use:   "list-clusters",
		Short: "Lists the clusters in a region",
		Long:  "Lists the clusters in a region, optionally filtered by cluster status",
		Example: `
  gantry list-clusters --cluster-status CREATE_COMPLETE
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			clusters, token, err := cluster.NewManager(c, version).List(cmd.Context(), statuses, nextToken)
			if err != nil {
				return err
			}

			if output == "table" {
				rows := [][]interface{}{}
				for _, cl := range clusters {
					rows = append(rows, []interface{}{cl.ClusterName, cl.ClusterStatus, cl.Scheduler, cl.Version})
				}

				printTable(cmd.OutOrStdout(), []interface{}{"NAME", "STATUS", "SCHEDULER", "VERSION"}, rows)
				return nil
			}

			if output != "json" {
				return fmt.Errorf("invalid output format %s, expected json or table", output)
			}

			out := struct {
				Clusters  []cluster.Info `json:"clusters"`
				NextToken string         `json:"nextToken,omitempty"`
			}{Clusters: clusters, NextToken: token}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	listCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to list the clusters of")
	listCmd.Flags().StringVar(&nextToken, "next-token", "", "Token for the next page of results")
	listCmd.Flags().StringSliceVar(&statuses, "cluster-status", nil, "Only list clusters with the given statuses, repeatable")
	listCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	listCmd.Flags().StringVarP(&output, "output", "o", "json", "Output format, one of json or table")

	return listCmd
}
