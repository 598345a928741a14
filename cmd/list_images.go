package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/image"
	"github.com/spf13/cobra"
)

func newListImagesCmd(f clients.Factory) *cobra.Command {
	var status string
	var region string
	var nextToken string
	var query string

	listCmd := &cobra.Command{
		Use:   "list-images",
		Short: "Lists the images in a region",
		Long: `Lists the images in a region with the given build status, AVAILABLE
images are existing AMIs, PENDING and FAILED images are build stacks.`,
		Example: `
  gantry list-images --image-status AVAILABLE
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			images, token, err := image.NewManager(c, version).List(cmd.Context(), status, nextToken)
			if err != nil {
				return err
			}

			out := struct {
				Images    []image.Info `json:"images"`
				NextToken string       `json:"nextToken,omitempty"`
			}{Images: images, NextToken: token}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	listCmd.Flags().StringVar(&status, "image-status", "", "Status of the images to list, one of AVAILABLE, PENDING, FAILED")
	listCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to list the images of")
	listCmd.Flags().StringVar(&nextToken, "next-token", "", "Token for the next page of results")
	listCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	listCmd.MarkFlagRequired("image-status")

	return listCmd
}
