package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/getter"
	"github.com/gantry-labs/gantry/pkg/image"
	"github.com/gantry-labs/gantry/pkg/validators"
	"github.com/spf13/cobra"
)

func newBuildImageCmd(f clients.Factory, g getter.Getter) *cobra.Command {
	var id string
	var configPath string
	var region string
	var suppress []string
	var failureLevel string
	var dryrun bool
	var rollback bool
	var query string
	var configVars []string
	var configVarsFile string

	buildCmd := &cobra.Command{
		Use:   "build-image",
		Short: "Builds a custom machine image",
		Long: `Builds a custom machine image from an image configuration document. The
command returns as soon as the build stack has been created, use
describe-image to follow the progress.`,
		Example: `
  gantry build-image --image-id myimage --image-configuration image-config.yaml
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			doc, err := loadDocument(g, configPath, configVars, configVarsFile)
			if err != nil {
				return err
			}

			level, err := validators.ParseFailureLevel(failureLevel)
			if err != nil {
				return err
			}

			c, err := f(cmd.Context(), resolveRegion(region, doc))
			if err != nil {
				return err
			}

			out, err := image.NewManager(c, version).Build(cmd.Context(), image.BuildInput{
				ID:                     id,
				Config:                 doc,
				SuppressValidators:     suppress,
				ValidationFailureLevel: level,
				Dryrun:                 dryrun,
				RollbackOnFailure:      rollback,
			})

			// validation failures are reported alongside the error
			if out != nil {
				if perr := printJSON(cmd.OutOrStdout(), out, query); perr != nil {
					return perr
				}
			}

			return err
		},
	}

	buildCmd.Flags().StringVarP(&id, "image-id", "i", "", "Id of the image to build")
	buildCmd.Flags().StringVarP(&configPath, "image-configuration", "c", "", "Path or URL of the image configuration document")
	buildCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region the image is built in")
	buildCmd.Flags().StringSliceVar(&suppress, "suppress-validators", nil, "Suppress validators matching the given type:<glob> patterns, or ALL")
	buildCmd.Flags().StringVar(&failureLevel, "validation-failure-level", string(validators.FailureLevelError), "Minimum validation level that fails the operation, one of INFO, WARNING, ERROR")
	buildCmd.Flags().BoolVar(&dryrun, "dryrun", false, "Only validate the configuration, do not build the image")
	buildCmd.Flags().BoolVar(&rollback, "rollback-on-failure", true, "Roll back the stack when the image fails to build")
	buildCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	buildCmd.Flags().StringSliceVar(&configVars, "config-var", nil, "Substitution variable for the configuration document as name=value, repeatable")
	buildCmd.Flags().StringVar(&configVarsFile, "config-vars-file", "", "Path of a YAML file with substitution variables for the configuration document")
	buildCmd.MarkFlagRequired("image-id")
	buildCmd.MarkFlagRequired("image-configuration")

	return buildCmd
}
