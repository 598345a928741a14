package cmd

import (
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/getter"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/gantry-labs/gantry/pkg/validators"
	"github.com/spf13/cobra"
)

func newCreateClusterCmd(f clients.Factory, g getter.Getter) *cobra.Command {
	var name string
	var configPath string
	var region string
	var suppress []string
	var failureLevel string
	var dryrun bool
	var rollback bool
	var query string
	var configVars []string
	var configVarsFile string

	createCmd := &cobra.Command{
		Use:   "create-cluster",
		Short: "Creates a new cluster",
		Long: `Creates a new cluster from a cluster configuration document. The command
returns as soon as the stack creation has been started, use
describe-cluster to follow the progress.`,
		Example: `
  gantry create-cluster --cluster-name mycluster --cluster-configuration cluster-config.yaml
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

			out, err := cluster.NewManager(c, version).Create(cmd.Context(), cluster.CreateInput{
				Name:                   name,
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

	createCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster to create")
	createCmd.Flags().StringVarP(&configPath, "cluster-configuration", "c", "", "Path or URL of the cluster configuration document")
	createCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region the cluster is created in")
	createCmd.Flags().StringSliceVar(&suppress, "suppress-validators", nil, "Suppress validators matching the given type:<glob> patterns, or ALL")
	createCmd.Flags().StringVar(&failureLevel, "validation-failure-level", string(validators.FailureLevelError), "Minimum validation level that fails the operation, one of INFO, WARNING, ERROR")
	createCmd.Flags().BoolVar(&dryrun, "dryrun", false, "Only validate the configuration, do not create the cluster")
	createCmd.Flags().BoolVar(&rollback, "rollback-on-failure", true, "Roll back the stack when the cluster fails to create")
	createCmd.Flags().StringVar(&query, "query", "", "JMESPath query to apply to the result")
	createCmd.Flags().StringSliceVar(&configVars, "config-var", nil, "Substitution variable for the configuration document as name=value, repeatable")
	createCmd.Flags().StringVar(&configVarsFile, "config-vars-file", "", "Path of a YAML file with substitution variables for the configuration document")
	createCmd.MarkFlagRequired("cluster-name")
	createCmd.MarkFlagRequired("cluster-configuration")

	return createCmd
}
