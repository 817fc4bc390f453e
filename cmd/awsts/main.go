// awsts is a diagnostic and auto-repair CLI for AWS CLI environments.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit is a sentinel error returned by cobra RunE functions to signal
// non-zero exit. The command has already written its own error to stderr.
var errExit = errors.New("exit")

// run executes the awsts CLI with the given args, writing output to
// stdout and errors to stderr. Returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

// newRootCmd creates the root cobra command with all subcommands.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "awsts",
		Short:         "awsts — diagnose and repair your AWS CLI environment",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			fmt.Fprintf(stderr, "awsts: unknown command %q\n", args[0]) //nolint:errcheck // best-effort stderr
			return errExit
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		newDoctorCmd(stdout, stderr),
		newEventsCmd(stdout, stderr),
		newVersionCmd(stdout),
	)
	return root
}

// resolveStorageDir returns the awsts state directory: $AWSTS_HOME when
// set, otherwise ~/.awsts. Holds config, the event log, backups, and the
// repair lock.
func resolveStorageDir() (string, error) {
	if dir := os.Getenv("AWSTS_HOME"); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".awsts"), nil
}

// resolveAwsDir returns the AWS configuration directory: $AWS_CONFIG_FILE's
// directory when set, otherwise ~/.aws.
func resolveAwsDir() (string, error) {
	if cf := os.Getenv("AWS_CONFIG_FILE"); cf != "" {
		return filepath.Dir(cf), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".aws"), nil
}
