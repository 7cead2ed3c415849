package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/bulkops/pkg/compare"
	"github.com/sdejongh/bulkops/pkg/models"
)

// failureCategory groups failures in the human report
type failureCategory string

const (
	categoryNotFound   failureCategory = "Not Found"
	categoryPermission failureCategory = "Permission Denied"
	categoryExists     failureCategory = "Already Exists"
	categoryIntoSelf   failureCategory = "Pasted Into Itself"
	categoryMismatch   failureCategory = "Verification Mismatch"
	categoryOther      failureCategory = "Other Errors"
)

var categoryOrder = []failureCategory{
	categoryPermission,
	categoryNotFound,
	categoryExists,
	categoryIntoSelf,
	categoryMismatch,
	categoryOther,
}

func categorize(err error) failureCategory {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return categoryPermission
	case errors.Is(err, fs.ErrNotExist):
		return categoryNotFound
	case errors.Is(err, fs.ErrExist):
		return categoryExists
	case errors.Is(err, models.ErrPasteIntoSelf):
		return categoryIntoSelf
	case errors.Is(err, compare.ErrMismatch):
		return categoryMismatch
	default:
		return categoryOther
	}
}

// WriteFailureReport writes the failures of a task to a file
// Format can be "human" or "json"
func WriteFailureReport(report *models.TaskReport, path string, format string) error {
	if len(report.Failures) == 0 {
		// No failures - don't create empty file
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create failure report: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		return writeFailuresJSON(report, file)
	default: // "human"
		return writeFailuresHuman(report, file)
	}
}

// writeFailuresHuman writes failures in human-readable format
func writeFailuresHuman(report *models.TaskReport, w io.Writer) error {
	fmt.Fprintf(w, "Failure Report\n")
	fmt.Fprintf(w, "==============\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Run: %s\n", report.RunID)
	fmt.Fprintf(w, "Operation: %s\n", report.Operation)
	fmt.Fprintf(w, "Roots: %s\n", strings.Join(report.Roots, ", "))
	fmt.Fprintf(w, "Status: %s\n\n", report.Status)

	fmt.Fprintf(w, "Total Failures: %d\n\n", len(report.Failures))

	byCategory := make(map[failureCategory][]models.Failure)
	for _, failure := range report.Failures {
		c := categorize(failure.Err)
		byCategory[c] = append(byCategory[c], failure)
	}

	for _, category := range categoryOrder {
		failures := byCategory[category]
		if len(failures) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d paths)", category, len(failures))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))

		for _, failure := range failures {
			fmt.Fprintf(w, "  %s\n", failure.Path)
			if failure.Err != nil {
				fmt.Fprintf(w, "    Error: %v\n", failure.Err)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

// writeFailuresJSON writes failures in JSON format
func writeFailuresJSON(report *models.TaskReport, w io.Writer) error {
	output := struct {
		Generated  string               `json:"generated"`
		RunID      string               `json:"run_id"`
		Operation  models.OperationKind `json:"operation"`
		Roots      []string             `json:"roots"`
		Status     models.StateKind     `json:"status"`
		TotalCount int                  `json:"total_count"`
		Failures   []models.Failure     `json:"failures"`
	}{
		Generated:  time.Now().Format(time.RFC3339),
		RunID:      report.RunID,
		Operation:  report.Operation,
		Roots:      report.Roots,
		Status:     report.Status,
		TotalCount: len(report.Failures),
		Failures:   report.Failures,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
