package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/logs"
	"github.com/spf13/cobra"
)

func newListImageLogStreamsCmd(f clients.Factory) *cobra.Command {
	var id string
	var region string
	var nextToken string
	var query string

	listCmd := &cobra.Command{
		Use:   "list-image-log-streams",
		Short: "Lists the log streams of an image build",
		Long: `Lists the log streams of an image build, most recently written first.
The stack events of the build appear as the cloudformation-stack-events
stream.`,
		Example: `
  gantry list-image-log-streams --image-id myimage
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := logs.NewManager(c).ListStreams(cmd.Context(), logs.ListStreamsInput{
				Source:    logs.ImageSource(id),
				NextToken: nextToken,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	listCmd.Flags().StringVarP(&id, "image-id", "i", "", "Id of the image")
	listCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the image belongs to")
	listCmd.Flags().StringVar(&nextToken, "next-token", "", "Token for the next page of results")
	listCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	listCmd.MarkFlagRequired("image-id")

	return listCmd
}
