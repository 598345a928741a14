package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gantry-labs/gantry/cmd/view"
	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newConfigureCmd(f clients.Factory) *cobra.Command {
	var configPath string
	var region string

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Creates a cluster configuration interactively",
		Long: `Creates a cluster configuration document by answering a handful of
prompts, the key pairs and subnets of the chosen region are listed
live.`,
		Example: `
  gantry configure --config cluster-config.yaml
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if !isatty.IsTerminal(os.Stdin.Fd()) {
				return fmt.Errorf("configure needs an interactive terminal, write the configuration document by hand instead")
			}

			if utils.IsLocalFile(configPath) {
				fmt.Fprintf(os.Stderr, "%s already exists, overwrite? [y/N] ", configPath)

				var answer string
				fmt.Fscanln(os.Stdin, &answer)

				if strings.ToLower(strings.TrimSpace(answer)) != "y" {
					return fmt.Errorf("refusing to overwrite %s", configPath)
				}
			}

			cfg, err := view.NewWizard(f).Run(cmd.Context(), region)
			if err != nil {
				return err
			}

			d, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			if err := os.WriteFile(configPath, d, 0644); err != nil {
				return fmt.Errorf("unable to write the configuration document %s: %w", configPath, err)
			}

			fmt.Fprintln(os.Stderr, grayText.Render("Configuration written to ")+whiteText.Render(configPath))

			return nil
		},
	}

	configureCmd.Flags().StringVar(&configPath, "config", "cluster-config.yaml", "Path of the configuration document to write")
	configureCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region the cluster will be created in")

	return configureCmd
}
