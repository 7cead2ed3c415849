package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/sdejongh/bulkops/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(2)
}

func newRootCommand() *cobra.Command {
	cli.Version, cli.Commit, cli.BuildDate = version, commit, date

	rootCmd := &cobra.Command{
		Use:   "bulkops",
		Short: "Bulk filesystem operations with progress and cancellation",
		Long: `bulkops counts, measures, deletes, copies and moves whole directory trees.
Every path is processed independently: failures are collected and reported at
the end, and Ctrl-C stops running tasks at the next file boundary.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cli.AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(cli.NewCountCommand())
	rootCmd.AddCommand(cli.NewSizeCommand())
	rootCmd.AddCommand(cli.NewDeleteCommand())
	rootCmd.AddCommand(cli.NewCopyCommand())
	rootCmd.AddCommand(cli.NewMoveCommand())
	rootCmd.AddCommand(cli.NewBatchCommand())
	rootCmd.AddCommand(cli.NewConfigCommand())
	rootCmd.AddCommand(cli.NewVersionCommand())

	return rootCmd
}

// Run executes the command line next to a signal handler. A termination
// signal cancels the command's context, which cancels its running tasks.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command. Its error wins over the signal actor's, so an
	// interrupted run still reports the exit code of its cancelled tasks.
	var cmdErr error
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				cmdErr = rootCmd.ExecuteContext(ctx)
				return cmdErr
			},
			func(_ error) {
				cancel()
			},
		)
	}

	if err := g.Run(); cmdErr == nil && err != nil {
		return err
	}
	return cmdErr
}
