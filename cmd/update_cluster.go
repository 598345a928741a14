package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/getter"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/gantry-labs/gantry/pkg/validators"
	"github.com/spf13/cobra"
)

func newUpdateClusterCmd(f clients.Factory, g getter.Getter) *cobra.Command {
	var name string
	var configPath string
	var region string
	var suppress []string
	var failureLevel string
	var dryrun bool
	var force bool
	var query string
	var configVars []string
	var configVarsFile string

	updateCmd := &cobra.Command{
		Use:   "update-cluster",
		Short: "Updates a running cluster",
		Long: `Updates a running cluster with a changed configuration document. The
compute fleet must be stopped before updating unless the update is
forced, use --dryrun to review the change set first.`,
		Example: `
  gantry update-cluster --cluster-name mycluster --cluster-configuration cluster-config.yaml --dryrun
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

			out, err := cluster.NewManager(c, version).Update(cmd.Context(), cluster.UpdateInput{
				Name:                   name,
				Config:                 doc,
				SuppressValidators:     suppress,
				ValidationFailureLevel: level,
				Dryrun:                 dryrun,
				ForceUpdate:            force,
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

	updateCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster to update")
	updateCmd.Flags().StringVarP(&configPath, "cluster-configuration", "c", "", "Path or URL of the cluster configuration document")
	updateCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	updateCmd.Flags().StringSliceVar(&suppress, "suppress-validators", nil, "Suppress validators matching the given type:<glob> patterns, or ALL")
	updateCmd.Flags().StringVar(&failureLevel, "validation-failure-level", string(validators.FailureLevelError), "Minimum validation level that fails the operation, one of INFO, WARNING, ERROR")
	updateCmd.Flags().BoolVar(&dryrun, "dryrun", false, "Only compute the change set, do not update the cluster")
	updateCmd.Flags().BoolVar(&force, "force-update", false, "Update the cluster even when the compute fleet is running or the versions differ")
	updateCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	updateCmd.Flags().StringSliceVar(&configVars, "config-var", nil, "Substitution variable for the configuration document as name=value, repeatable")
	updateCmd.Flags().StringVar(&configVarsFile, "config-vars-file", "", "Path of a YAML file with substitution variables for the configuration document")
	updateCmd.MarkFlagRequired("cluster-name")
	updateCmd.MarkFlagRequired("cluster-configuration")

	return updateCmd
}
