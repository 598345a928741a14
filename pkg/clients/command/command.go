package command

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// CommandConfig describes a local process to run, when Env is nil the
// process inherits the environment
type CommandConfig struct {
	Command          string
	Args             []string
	Env              []string
	WorkingDirectory string
	Stdin            io.Reader
	Stdout           io.Writer
	Stderr           io.Writer
}

// Command runs local processes attached to the given streams
type Command interface {
	// Run starts the process and blocks until it exits
	Run(ctx context.Context, config CommandConfig) error
}

// CommandImpl is a concrete implementation of the Command interface
type CommandImpl struct {
	log logger.Logger
}

// NewCommand creates a new command runner
func NewCommand(l logger.Logger) Command {
	return &CommandImpl{l}
}

// Run executes the configured process, the command is resolved against
// the PATH when not absolute
func (c *CommandImpl) Run(ctx context.Context, config CommandConfig) error {
	path, err := exec.LookPath(config.Command)
	if err != nil {
		return fmt.Errorf("unable to find %s on the path: %w", config.Command, err)
	}

	c.log.Debug("Running command", "cmd", path, "args", config.Args)

	cmd := exec.CommandContext(ctx, path, config.Args...)
	cmd.Env = config.Env
	cmd.Dir = config.WorkingDirectory
	cmd.Stdin = config.Stdin
	cmd.Stdout = config.Stdout
	cmd.Stderr = config.Stderr

	return cmd.Run()
}
