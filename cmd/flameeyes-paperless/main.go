// SPDX-License-Identifier: MIT

// Command flameeyes-paperless automates housekeeping of a Paperless-ngx
// instance.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/automation"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	// Create a context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line in args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newCLI(stdout, stderr)
	root := app.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if mErr := app.writeMetrics(); mErr != nil && err == nil {
		err = mErr
	}
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	var usage *automation.UsageError
	if errors.As(err, &usage) {
		fmt.Fprintf(stderr, "Error: %v\nRun 'flameeyes-paperless --help' for usage.\n", err)
		return exitUsage
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitError
}

// usageArgs turns positional argument failures into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &automation.UsageError{Msg: err.Error()}
		}
		return nil
	}
}

func usageErrorf(format string, args ...any) error {
	return &automation.UsageError{Msg: fmt.Sprintf(format, args...)}
}
