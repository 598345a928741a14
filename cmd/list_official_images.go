package cmd

import (
	"fmt"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/image"
	"github.com/spf13/cobra"
)

func newListOfficialImagesCmd(f clients.Factory) *cobra.Command {
	var region string
	var osName string
	var architecture string
	var query string
	var output string

	listCmd := &cobra.Command{
		Use:   "list-official-images",
		Short: "Lists the official gantry images",
		Long: `Lists the official gantry images available in a region, optionally
filtered by operating system and architecture.`,
		Example: `
  gantry list-official-images --os alinux2 --architecture x86_64
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			images, err := image.NewManager(c, version).ListOfficial(cmd.Context(), osName, architecture)
			if err != nil {
				return err
			}

			if output == "table" {
				rows := [][]interface{}{}
				for _, i := range images {
					rows = append(rows, []interface{}{i.AmiID, i.OS, i.Architecture, i.Version})
				}

				printTable(cmd.OutOrStdout(), []interface{}{"AMI", "OS", "ARCHITECTURE", "VERSION"}, rows)
				return nil
			}

			if output != "json" {
				return fmt.Errorf("invalid output format %s, expected json or table", output)
			}

			out := struct {
				Images []image.OfficialImage `json:"images"`
			}{Images: images}

			return printJSON(cmd.OutOrStdout(), out, query)
		},
	}

	listCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region to list the images of")
	listCmd.Flags().StringVar(&osName, "os", "", "Only list images for the given operating system")
	listCmd.Flags().StringVar(&architecture, "architecture", "", "Only list images for the given architecture")
	listCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	listCmd.Flags().StringVarP(&output, "output", "o", "json", "Output format, one of json or table")

	return listCmd
}
