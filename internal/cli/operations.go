package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/bulkops/internal/platform"
	"github.com/sdejongh/bulkops/pkg/models"
)

// OperationFlags holds the flags shared by the operation commands
type OperationFlags struct {
	Dest            string
	Output          string
	Parallel        int
	Bandwidth       string
	Exclude         []string
	Sort            bool
	NoPreserveTimes bool
	Verify          bool
	FailureReport   string
	FailureFormat   string
}

var operationFlags OperationFlags

// NewCountCommand creates the count command
func NewCountCommand() *cobra.Command {
	return newOperationCommand(models.KindCount, "count PATH...",
		"Count files and directories",
		`Count every node below each path. Symbolic links are counted but never followed.`)
}

// NewSizeCommand creates the size command
func NewSizeCommand() *cobra.Command {
	return newOperationCommand(models.KindSize, "size PATH...",
		"Measure the size of files and directories",
		`Sum the sizes of every node below each path. Symbolic links are measured themselves, not their targets.`)
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	return newOperationCommand(models.KindDelete, "delete PATH...",
		"Delete files and directories recursively",
		`Delete each path and everything below it. Paths that cannot be removed are
reported at the end; the rest of the tree is still deleted.`)
}

// NewCopyCommand creates the copy command
func NewCopyCommand() *cobra.Command {
	return newOperationCommand(models.KindCopy, "copy PATH... --dest DIR",
		"Copy files and directories into a directory",
		`Copy each path into the destination directory. A name already taken in the
destination gets a numbered suffix ("photo 2.jpg").`)
}

// NewMoveCommand creates the move command
func NewMoveCommand() *cobra.Command {
	return newOperationCommand(models.KindMove, "move PATH... --dest DIR",
		"Move files and directories into a directory",
		`Move each path into the destination directory. Moves within a filesystem are
renames; across filesystems the path is copied, then deleted once fully copied.`)
}

func newOperationCommand(kind models.OperationKind, use, short, long string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, kind, args)
		},
	}

	if kind.IsPaste() {
		cmd.Flags().StringVarP(&operationFlags.Dest, "dest", "d", "", "destination directory path (required)")
		cmd.MarkFlagRequired("dest")
		cmd.Flags().StringVarP(&operationFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit per second (e.g., \"10M\", \"1GiB\")")
		cmd.Flags().BoolVar(&operationFlags.NoPreserveTimes, "no-preserve-times", false, "do not copy modification times")
		cmd.Flags().BoolVar(&operationFlags.Verify, "verify", false, "compare every copied file with its source (SHA-256)")
	}
	addCommonFlags(cmd)

	return cmd
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&operationFlags.Output, "output", "o", "", "output format: human, json")
	cmd.Flags().IntVarP(&operationFlags.Parallel, "parallel", "p", 0, "number of tasks running at once (default: 5)")
	cmd.Flags().StringSliceVar(&operationFlags.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().BoolVar(&operationFlags.Sort, "sort", false, "visit directory entries in name order")
	cmd.Flags().StringVar(&operationFlags.FailureReport, "failure-report", "", "write failed paths to file")
	cmd.Flags().StringVar(&operationFlags.FailureFormat, "failure-format", "human", "failure report format: human, json")
}

func runOperation(cmd *cobra.Command, kind models.OperationKind, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := buildRequest(kind, args, operationFlags.Dest)
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cmd, cfg); err != nil {
		return err
	}

	return runRequests(ctx, cfg, []models.Request{req}, cmd.OutOrStdout())
}

// buildRequest resolves the paths of a request and validates it
func buildRequest(kind models.OperationKind, roots []string, dest string) (models.Request, error) {
	req := models.Request{Kind: kind}
	for _, root := range roots {
		abs, err := platform.Abs(root)
		if err != nil {
			return req, err
		}
		req.Roots = append(req.Roots, abs)
	}

	if kind.IsPaste() {
		if err := validateDestination(dest); err != nil {
			return req, err
		}
		abs, err := platform.Abs(dest)
		if err != nil {
			return req, err
		}
		req.Destination = abs
	}

	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// validateDestination checks that dest is an existing directory
func validateDestination(dest string) error {
	if dest == "" {
		return &models.ValidationError{Field: "destination", Message: "is required"}
	}
	info, err := os.Stat(dest)
	if os.IsNotExist(err) {
		return fmt.Errorf("destination path does not exist: %s", dest)
	} else if err != nil {
		return fmt.Errorf("failed to access destination path: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("destination path exists but is not a directory: %s", dest)
	}
	return nil
}
