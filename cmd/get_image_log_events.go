package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/logs"
	"github.com/spf13/cobra"
)

func newGetImageLogEventsCmd(f clients.Factory) *cobra.Command {
	var id string
	opts := &logEventsOptions{}

	eventsCmd := &cobra.Command{
		Use:   "get-image-log-events",
		Short: "Gets the events of an image build log stream",
		Long: `Gets the events of an image build log stream. The
cloudformation-stack-events stream returns the stack events of the
build, --follow keeps polling the stream for new events until
interrupted.`,
		Example: `
  gantry get-image-log-events --image-id myimage --log-stream-name 1.0.0/1
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			return getLogEvents(cmd, f, logs.ImageSource(id), opts)
		},
	}

	eventsCmd.Flags().StringVarP(&id, "image-id", "i", "", "Id of the image")
	registerLogEventsFlags(eventsCmd, opts)
	eventsCmd.MarkFlagRequired("image-id")
	eventsCmd.MarkFlagRequired("log-stream-name")

	return eventsCmd
}
