package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/logs"
	"github.com/gantry-labs/gantry/pkg/utils"
	"github.com/spf13/cobra"
)

func newExportImageLogsCmd(f clients.Factory) *cobra.Command {
	var id string
	var region string
	var bucket string
	var bucketPrefix string
	var outputFile string
	var startTime string
	var endTime string

	exportCmd := &cobra.Command{
		Use:   "export-image-logs",
		Short: "Exports the logs of an image build to an archive",
		Long: `Exports the logs and stack events of an image build to a gzipped tar
archive. The logs are staged through an S3 bucket, by default the gantry
artifact bucket of the account.`,
		Example: `
  gantry export-image-logs --image-id myimage
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			in := logs.ExportInput{
				Source:       logs.ImageSource(id),
				Bucket:       bucket,
				BucketPrefix: bucketPrefix,
				OutputFile:   outputFile,
			}

			if startTime != "" {
				t, err := utils.ParseTimestamp(startTime)
				if err != nil {
					return err
				}

				in.StartTime = t
			}

			if endTime != "" {
				t, err := utils.ParseTimestamp(endTime)
				if err != nil {
					return err
				}

				in.EndTime = t
			}

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			out, err := logs.NewManager(c).Export(cmd.Context(), in)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), out, "")
		},
	}

	exportCmd.Flags().StringVarP(&id, "image-id", "i", "", "Id of the image")
	exportCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the image belongs to")
	exportCmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket the logs are staged through, defaults to the gantry artifact bucket")
	exportCmd.Flags().StringVar(&bucketPrefix, "bucket-prefix", "", "Key prefix used when staging the logs")
	exportCmd.Flags().StringVar(&outputFile, "output-file", "", "Path of the archive to write, defaults to the current directory")
	exportCmd.Flags().StringVar(&startTime, "start-time", "", "Only export events at or after this time, RFC3339 or milliseconds since the epoch")
	exportCmd.Flags().StringVar(&endTime, "end-time", "", "Only export events before this time, RFC3339 or milliseconds since the epoch")
	exportCmd.MarkFlagRequired("image-id")

	return exportCmd
}
