package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/image"
	"github.com/spf13/cobra"
)

func newDeleteImageCmd(f clients.Factory) *cobra.Command {
	var id string
	var region string
	var force bool
	var query string

	deleteCmd := &cobra.Command{
		Use:   "delete-image",
		Short: "Deletes an image",
		Long: `Deletes an image, deregistering the AMI and its snapshots or removing
the build stack. Images that are shared, in use, or still building are
only deleted when --force is passed.`,
		Example: `
  gantry delete-image --image-id myimage
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := image.NewManager(c, version).Delete(cmd.Context(), id, force)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	deleteCmd.Flags().StringVarP(&id, "image-id", "i", "", "Id of the image to delete")
	deleteCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the image belongs to")
	deleteCmd.Flags().BoolVar(&force, "force", false, "Delete the image even when it is shared, in use, or still building")
	deleteCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	deleteCmd.MarkFlagRequired("image-id")

	return deleteCmd
}
