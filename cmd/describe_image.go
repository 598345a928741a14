package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/image"
	"github.com/spf13/cobra"
)

func newDescribeImageCmd(f clients.Factory) *cobra.Command {
	var id string
	var region string
	var query string

	describeCmd := &cobra.Command{
		Use:   "describe-image",
		Short: "Describes an image",
		Long: `Describes the state of an image, either the AMI when the build has
completed or the build stack while it is in progress.`,
		Example: `
  gantry describe-image --image-id myimage
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := image.NewManager(c, version).Describe(cmd.Context(), id)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	describeCmd.Flags().StringVarP(&id, "image-id", "i", "", "Id of the image to describe")
	describeCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the image belongs to")
	describeCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	describeCmd.MarkFlagRequired("image-id")

	return describeCmd
}
