package cmd

import (
	"fmt"
	"os"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/getter"
	"github.com/gantry-labs/gantry/pkg/clients/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "HPC clusters on AWS from declarative configuration",
	Long:  `Gantry creates and manages HPC clusters and custom machine images on AWS from declarative configuration documents`,
}

var l logger.Logger
var factory clients.Factory
var fetcher getter.Getter

var debug bool

var version string // set by build process
var date string    // set by build process
var commit string  // set by build process

func init() {

	// setup dependencies
	l = createLogger()
	factory = clients.DefaultFactory(l)
	fetcher = getter.NewGetter(true)

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug {
			l.SetLevel(logger.LogLevelDebug)
		}
	}

	rootCmd.AddCommand(newConfigureCmd(factory))
	rootCmd.AddCommand(newCreateClusterCmd(factory, fetcher))
	rootCmd.AddCommand(newUpdateClusterCmd(factory, fetcher))
	rootCmd.AddCommand(newDeleteClusterCmd(factory))
	rootCmd.AddCommand(newDescribeClusterCmd(factory))
	rootCmd.AddCommand(newListClustersCmd(factory))
	rootCmd.AddCommand(newDescribeClusterInstancesCmd(factory))
	rootCmd.AddCommand(newDeleteClusterInstancesCmd(factory))
	rootCmd.AddCommand(newDescribeComputeFleetCmd(factory))
	rootCmd.AddCommand(newUpdateComputeFleetCmd(factory))
	rootCmd.AddCommand(newGetClusterStackEventsCmd(factory))
	rootCmd.AddCommand(newListClusterLogStreamsCmd(factory))
	rootCmd.AddCommand(newGetClusterLogEventsCmd(factory))
	rootCmd.AddCommand(newExportClusterLogsCmd(factory))
	rootCmd.AddCommand(newSSHCmd(factory))

	// image build commands
	rootCmd.AddCommand(newBuildImageCmd(factory, fetcher))
	rootCmd.AddCommand(newDescribeImageCmd(factory))
	rootCmd.AddCommand(newListImagesCmd(factory))
	rootCmd.AddCommand(newDeleteImageCmd(factory))
	rootCmd.AddCommand(newListOfficialImagesCmd(factory))
	rootCmd.AddCommand(newGetImageStackEventsCmd(factory))
	rootCmd.AddCommand(newListImageLogStreamsCmd(factory))
	rootCmd.AddCommand(newGetImageLogEventsCmd(factory))
	rootCmd.AddCommand(newExportImageLogsCmd(factory))

	rootCmd.AddCommand(newVersionCmd())
}

func createLogger() logger.Logger {
	// set the log level
	if lev := os.Getenv("LOG_LEVEL"); lev != "" {
		return logger.NewLogger(os.Stderr, lev)
	}

	return logger.NewLogger(os.Stderr, logger.LogLevelInfo)
}

// Execute the root command
func Execute(v, c, d string) error {
	version = v
	commit = c
	date = d

	rootCmd.SilenceErrors = true

	err := rootCmd.Execute()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}

	return err
}
