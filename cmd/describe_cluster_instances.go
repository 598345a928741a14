package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newDescribeClusterInstancesCmd(f clients.Factory) *cobra.Command {
	var name string
	var region string
	var nextToken string
	var nodeType string
	var queueName string
	var query string

	describeCmd := &cobra.Command{
		Use:   "describe-cluster-instances",
		Short: "Describes the instances of a cluster",
		Long: `Describes the instances of a cluster, optionally filtered by node type
and queue name.`,
		Example: `
  gantry describe-cluster-instances --cluster-name mycluster --node-type ComputeNode
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			instances, token, err := cluster.NewManager(c, version).Instances(cmd.Context(), cluster.InstancesInput{
				Name:      name,
				NodeType:  nodeType,
				QueueName: queueName,
				NextToken: nextToken,
			})
			if err != nil {
				return err
			}

			out := struct {
				Instances []cluster.Instance `json:"instances"`
				NextToken string             `json:"nextToken,omitempty"`
			}{Instances: instances, NextToken: token}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	describeCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster")
	describeCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	describeCmd.Flags().StringVar(&nextToken, "next-token", "", "Token for the next page of results")
	describeCmd.Flags().StringVar(&nodeType, "node-type", "", "Only describe instances of the given node type, HeadNode or ComputeNode")
	describeCmd.Flags().StringVar(&queueName, "queue-name", "", "Only describe instances belonging to the given queue")
	describeCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	describeCmd.MarkFlagRequired("cluster-name")

	return describeCmd
}
