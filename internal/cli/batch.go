package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sdejongh/bulkops/pkg/models"
)

// BatchFile is a list of jobs submitted together
type BatchFile struct {
	Jobs []BatchJob `yaml:"jobs"`
}

// BatchJob describes one task of a batch file
type BatchJob struct {
	Operation   string   `yaml:"operation"`
	Roots       []string `yaml:"roots"`
	Destination string   `yaml:"destination,omitempty"`
}

// NewBatchCommand creates the batch command
func NewBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Run the jobs of a YAML file concurrently",
		Long: `Submit every job listed in a YAML file. Jobs run concurrently, up to
--parallel at a time; the others wait for a free slot.

Example:
  jobs:
    - operation: copy
      roots: [./photos, ./videos]
      destination: /mnt/backup
    - operation: size
      roots: [/var/log]`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().StringVarP(&operationFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit per task and second (e.g., \"10M\")")
	cmd.Flags().BoolVar(&operationFlags.NoPreserveTimes, "no-preserve-times", false, "do not copy modification times")
	cmd.Flags().BoolVar(&operationFlags.Verify, "verify", false, "compare every copied file with its source (SHA-256)")
	addCommonFlags(cmd)

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	requests, err := LoadBatchFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagsToConfig(cmd, cfg); err != nil {
		return err
	}

	return runRequests(ctx, cfg, requests, cmd.OutOrStdout())
}

// LoadBatchFile reads a batch file and turns its jobs into validated requests
func LoadBatchFile(path string) ([]models.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch BatchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(batch.Jobs) == 0 {
		return nil, &models.ValidationError{Field: "jobs", Message: "batch file lists no jobs"}
	}

	requests := make([]models.Request, 0, len(batch.Jobs))
	for i, job := range batch.Jobs {
		kind, err := models.ParseOperationKind(job.Operation)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		req, err := buildRequest(kind, job.Roots, job.Destination)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}
