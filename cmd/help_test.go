package cmd

import (
	"context"
	"fmt"
	"testing"

	"github.com/gantry-labs/gantry/pkg/clients"
	gettermocks "github.com/gantry-labs/gantry/pkg/clients/getter/mocks"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commandSurface struct {
	build    func() *cobra.Command
	required []string
	optional []string
}

// commandSurfaces documents the flag surface of every command
func commandSurfaces(t *testing.T) map[string]commandSurface {
	f, _ := testFactory(t)
	g := &gettermocks.MockGetter{}

	configOptions := []string{"region", "suppress-validators", "validation-failure-level", "dryrun", "query", "config-var", "config-vars-file"}
	eventOptions := []string{"region", "next-token", "start-time", "end-time", "limit", "head", "tail", "follow", "query"}
	exportOptions := []string{"region", "bucket", "bucket-prefix", "output-file", "start-time", "end-time"}

	return map[string]commandSurface{
		"create-cluster": {
			build:    func() *cobra.Command { return newCreateClusterCmd(f, g) },
			required: []string{"cluster-name", "cluster-configuration"},
			optional: append([]string{"rollback-on-failure"}, configOptions...),
		},
		"update-cluster": {
			build:    func() *cobra.Command { return newUpdateClusterCmd(f, g) },
			required: []string{"cluster-name", "cluster-configuration"},
			optional: append([]string{"force-update"}, configOptions...),
		},
		"delete-cluster": {
			build:    func() *cobra.Command { return newDeleteClusterCmd(f) },
			required: []string{"cluster-name"},
			optional: []string{"region", "query"},
		},
		"describe-cluster": {
			build:    func() *cobra.Command { return newDescribeClusterCmd(f) },
			required: []string{"cluster-name"},
			optional: []string{"region", "query"},
		},
		"list-clusters": {
			build:    func() *cobra.Command { return newListClustersCmd(f) },
			optional: []string{"region", "next-token", "cluster-status", "query", "output"},
		},
		"describe-cluster-instances": {
			build:    func() *cobra.Command { return newDescribeClusterInstancesCmd(f) },
			required: []string{"cluster-name"},
			optional: []string{"region", "next-token", "node-type", "queue-name", "query"},
		},
		"delete-cluster-instances": {
			build:    func() *cobra.Command { return newDeleteClusterInstancesCmd(f) },
			required: []string{"cluster-name"},
			optional: []string{"region", "force", "query"},
		},
		"describe-compute-fleet": {
			build:    func() *cobra.Command { return newDescribeComputeFleetCmd(f) },
			required: []string{"cluster-name"},
			optional: []string{"region", "query"},
		},
		"update-compute-fleet": {
			build:    func() *cobra.Command { return newUpdateComputeFleetCmd(f) },
			required: []string{"cluster-name", "status"},
			optional: []string{"region", "query"},
		},
		"get-cluster-stack-events": {
			build:    func() *cobra.Command { return newGetClusterStackEventsCmd(f) },
			required: []string{"cluster-name"},
			optional: []string{"region", "next-token", "query"},
		},
		"list-cluster-log-streams": {
			build:    func() *cobra.Command { return newListClusterLogStreamsCmd(f) },
			required: []string{"cluster-name"},
			optional: []string{"region", "next-token", "filters", "query"},
		},
		"get-cluster-log-events": {
			build:    func() *cobra.Command { return newGetClusterLogEventsCmd(f) },
			required: []string{"cluster-name", "log-stream-name"},
			optional: eventOptions,
		},
		"export-cluster-logs": {
			build:    func() *cobra.Command { return newExportClusterLogsCmd(f) },
			required: []string{"cluster-name"},
			optional: append([]string{"filters"}, exportOptions...),
		},
		"ssh": {
			build:    func() *cobra.Command { return newSSHCmd(f) },
			required: []string{"cluster-name"},
			optional: []string{"region", "dryrun"},
		},
		"build-image": {
			build:    func() *cobra.Command { return newBuildImageCmd(f, g) },
			required: []string{"image-id", "image-configuration"},
			optional: append([]string{"rollback-on-failure"}, configOptions...),
		},
		"describe-image": {
			build:    func() *cobra.Command { return newDescribeImageCmd(f) },
			required: []string{"image-id"},
			optional: []string{"region", "query"},
		},
		"list-images": {
			build:    func() *cobra.Command { return newListImagesCmd(f) },
			required: []string{"image-status"},
			optional: []string{"region", "next-token", "query"},
		},
		"delete-image": {
			build:    func() *cobra.Command { return newDeleteImageCmd(f) },
			required: []string{"image-id"},
			optional: []string{"region", "force", "query"},
		},
		"list-official-images": {
			build:    func() *cobra.Command { return newListOfficialImagesCmd(f) },
			optional: []string{"region", "os", "architecture", "query", "output"},
		},
		"get-image-stack-events": {
			build:    func() *cobra.Command { return newGetImageStackEventsCmd(f) },
			required: []string{"image-id"},
			optional: []string{"region", "next-token", "query"},
		},
		"list-image-log-streams": {
			build:    func() *cobra.Command { return newListImageLogStreamsCmd(f) },
			required: []string{"image-id"},
			optional: []string{"region", "next-token", "query"},
		},
		"get-image-log-events": {
			build:    func() *cobra.Command { return newGetImageLogEventsCmd(f) },
			required: []string{"image-id", "log-stream-name"},
			optional: eventOptions,
		},
		"export-image-logs": {
			build:    func() *cobra.Command { return newExportImageLogsCmd(f) },
			required: []string{"image-id"},
			optional: exportOptions,
		},
		"configure": {
			build:    func() *cobra.Command { return newConfigureCmd(f) },
			optional: []string{"config", "region"},
		},
		"version": {
			build: func() *cobra.Command { return newVersionCmd() },
		},
	}
}

func TestCommandsRegisterDocumentedFlags(t *testing.T) {
	for name, surface := range commandSurfaces(t) {
		t.Run(name, func(t *testing.T) {
			cmd := surface.build()
			require.Equal(t, name, cmd.Name())
			require.NotEmpty(t, cmd.Short)

			for _, flag := range surface.required {
				fl := cmd.Flags().Lookup(flag)
				require.NotNilf(t, fl, "flag %s is not registered", flag)
				assert.Containsf(t, fl.Annotations, cobra.BashCompOneRequiredFlag, "flag %s is not marked required", flag)
			}

			for _, flag := range surface.optional {
				fl := cmd.Flags().Lookup(flag)
				require.NotNilf(t, fl, "flag %s is not registered", flag)
				assert.NotContainsf(t, fl.Annotations, cobra.BashCompOneRequiredFlag, "flag %s must not be required", flag)
			}
		})
	}
}

func TestCommandsFailWithoutRequiredFlags(t *testing.T) {
	for name, surface := range commandSurfaces(t) {
		if len(surface.required) == 0 {
			continue
		}

		t.Run(name, func(t *testing.T) {
			stdout, stderr, err := executeCommand(surface.build())

			require.Error(t, err)
			assert.Contains(t, err.Error(), "required flag")
			assert.Contains(t, stderr, "Usage:")
			assert.Empty(t, stdout)
		})
	}
}

func TestCommandsSuppressUsageOnRuntimeErrors(t *testing.T) {
	failing := func(ctx context.Context, region string) (*clients.Clients, error) {
		return nil, fmt.Errorf("no credentials found")
	}

	stdout, stderr, err := executeCommand(newDeleteClusterCmd(failing), "--cluster-name", "demo")

	require.EqualError(t, err, "no credentials found")
	assert.NotContains(t, stderr, "Usage:")
	assert.Empty(t, stdout)
}

func TestRootRegistersAllCommands(t *testing.T) {
	names := []string{}
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for name := range commandSurfaces(t) {
		assert.Contains(t, names, name)
	}
}
