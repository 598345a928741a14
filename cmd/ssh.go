package cmd

import (
	"fmt"
	"os"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/command"
	"github.com/gantry-labs/gantry/pkg/cluster"
	"github.com/spf13/cobra"
)

func newSSHCmd(f clients.Factory) *cobra.Command {
	var name string
	var region string
	var dryrun bool

	sshCmd := &cobra.Command{
		Use:   "ssh",
		Short: "Connects to the head node of a cluster",
		Long: `Connects to the head node of a cluster over ssh, the login user is
derived from the operating system of the cluster. Arguments after --
are passed to the ssh binary.`,
		Example: `
  gantry ssh --cluster-name mycluster -- -i ~/.ssh/mykey.pem
	`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			c, err := f(cmd.Context(), region)
			if err != nil {
				return err
			}

			conn, err := cluster.NewManager(c, version).HeadNodeConnection(cmd.Context(), name)
			if err != nil {
				return err
			}

			sshArgs := append([]string{fmt.Sprintf("%s@%s", conn.User, conn.Host)}, args...)

			if dryrun {
				out := struct {
					Command string   `json:"command"`
					Args    []string `json:"args"`
				}{Command: "ssh", Args: sshArgs}

				return printJSON(cmd.OutOrStdout(), out, "")
			}

			return c.Exec.Run(cmd.Context(), command.CommandConfig{
				Command: "ssh",
				Args:    sshArgs,
				Stdin:   os.Stdin,
				Stdout:  os.Stdout,
				Stderr:  os.Stderr,
			})
		},
	}

	sshCmd.Flags().StringVarP(&name, "cluster-name", "n", "", "Name of the cluster to connect to")
	sshCmd.Flags().StringVarP(&region, "region", "r", "", "AWS region that the cluster belongs to")
	sshCmd.Flags().BoolVar(&dryrun, "dryrun", false, "Print the ssh command instead of running it")

	sshCmd.MarkFlagRequired("cluster-name")

	return sshCmd
}
