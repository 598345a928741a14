package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/image"
	"github.com/spf13/cobra"
)

func newGetImageStackEventsCmd(f clients.Factory) *cobra.Command {
	var id string
	var region string
	var nextToken string
	var query string

	eventsCmd := &cobra.Command{
		Use:   "get-image-stack-events",
		Short: "Gets the stack events of an image build",
		Long:  "Gets the CloudFormation stack events of an image build, newest first",
		Example: `
  gantry get-image-stack-events --image-id myimage
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			events, token, err := image.NewManager(c, version).StackEvents(cmd.Context(), id, nextToken)
			if err != nil {
				return err
			}

			out := struct {
				Events    []image.StackEvent `json:"events"`
				NextToken string             `json:"nextToken,omitempty"`
			}{Events: events, NextToken: token}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	eventsCmd.Flags().StringVarP(&id, "image-id", "i", "", "Id of the image")
	eventsCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the image belongs to")
	eventsCmd.Flags().StringVar(&nextToken, "next-token", "", "Token for the next page of results")
	eventsCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	eventsCmd.MarkFlagRequired("image-id")

	return eventsCmd
}
