package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sdejongh/bulkops/pkg/config"
	"github.com/sdejongh/bulkops/pkg/logging"
	"github.com/sdejongh/bulkops/pkg/models"
	"github.com/sdejongh/bulkops/pkg/output"
	"github.com/sdejongh/bulkops/pkg/ratelimit"
	"github.com/sdejongh/bulkops/pkg/task"
)

// ExitError carries the process exit code of a finished run
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// runRequests submits every request, waits for all of them and returns an
// ExitError when any task did not succeed.
func runRequests(ctx context.Context, cfg *config.Config, requests []models.Request, stdout io.Writer) error {
	logger, err := createLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	out := stdout
	if cfg.Output.Quiet {
		out = io.Discard
	}
	formatter, err := output.New(cfg.Output.Format, cfg.Output.Progress, out)
	if err != nil {
		return err
	}
	if err := formatter.Start(out); err != nil {
		return err
	}

	reports := make(chan *models.TaskReport, len(requests))
	mgr := task.NewManager(task.ManagerConfig{
		MaxConcurrent:    cfg.Tasks.MaxConcurrent,
		ProgressInterval: cfg.Tasks.ProgressInterval,
		Logger:           logger,
		BufferSize:       cfg.Copy.BufferSize,
		Limiter:          ratelimit.NewLimiter(cfg.Copy.BandwidthLimit),
		PreserveTimes:    cfg.Copy.PreserveTimes,
		Exclude:          cfg.Traversal.Exclude,
		SortByName:       cfg.Traversal.Sort,
		Verify:           cfg.Copy.Verify,
		OnReport: func(r *models.TaskReport) {
			formatter.Complete(r)
			reports <- r
		},
	})
	defer mgr.Shutdown(context.Background())

	unsubscribe := mgr.Subscribe(
		func(s models.TaskState) { formatter.Update(s) },
		func(nf models.TaskNotFound) { formatter.NotFound(nf) },
	)
	defer unsubscribe()

	submitted := 0
	for _, req := range requests {
		if _, err := mgr.Submit(ctx, req); err != nil {
			logger.Error(ctx, "failed to submit task", err, logging.Fields{"operation": req.Kind.String()})
			formatter.Error(err)
			continue
		}
		submitted++
	}

	collected := make([]*models.TaskReport, 0, submitted)
	for range submitted {
		collected = append(collected, <-reports)
	}

	if operationFlags.FailureReport != "" {
		for i, r := range collected {
			path := failureReportPath(operationFlags.FailureReport, i+1, len(collected) > 1)
			if err := output.WriteFailureReport(r, path, operationFlags.FailureFormat); err != nil {
				return fmt.Errorf("failed to write failure report: %w", err)
			}
		}
	}

	code := exitCode(collected)
	if submitted < len(requests) && code < 2 {
		code = 2
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// exitCode returns the most severe exit code: cancelled over failed over success
func exitCode(reports []*models.TaskReport) int {
	code := 0
	for _, r := range reports {
		if c := r.ExitCode(); c > code {
			code = c
		}
	}
	return code
}

// failureReportPath numbers the reports in completion order when several
// tasks ran, since task ids may be reused
func failureReportPath(path string, n int, perTask bool) string {
	if !perTask {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), n, ext)
}
