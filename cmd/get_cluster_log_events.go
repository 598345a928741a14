package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/logs"
	"github.com/spf13/cobra"
)

func newGetClusterLogEventsCmd(f clients.Factory) *cobra.Command {
	var name string
	opts := &logEventsOptions{}

	eventsCmd := &cobra.Command{
		Use:   "get-cluster-log-events",
		Short: "Gets the events of a cluster log stream",
		Long: `Gets the events of a cluster log stream. The cloudformation-stack-events
stream returns the stack events of the cluster, --follow keeps polling
the stream for new events until interrupted.`,
		Example: `
  gantry get-cluster-log-events --cluster-name mycluster --log-stream-name ip-10-0-0-13.cfn-init --follow
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			return getLogEvents(cmd, f, logs.ClusterSource(name), opts)
		},
	}

	eventsCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster")
	registerLogEventsFlags(eventsCmd, opts)
	eventsCmd.MarkFlagRequired("cluster-name")
	eventsCmd.MarkFlagRequired("log-stream-name")

	return eventsCmd
}
