package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bulkops/pkg/compare"
	"github.com/sdejongh/bulkops/pkg/models"
)

func init() {
	color.NoColor = true
}

func runningState(t *testing.T, id models.TaskID, processed int64) models.TaskState {
	t.Helper()
	clock := models.NewManualClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	target := models.NewTarget(models.KindCopy, []string{"/home/u/photos"}, "/mnt/backup")
	state := models.NewPendingState(id, models.KindCopy, target, clock.Now())
	items := models.NormalizeProgress(10, processed)
	state, err := state.Running(clock.Now(), items, models.NormalizeProgress(4096, processed*100))
	require.NoError(t, err)
	return state
}

func testReport() *models.TaskReport {
	return &models.TaskReport{
		Task:      1,
		RunID:     "run-1",
		Operation: models.KindCopy,
		Target:    models.Target{Source: "u", Destination: "backup"},
		Roots:     []string{"/home/u/photos"},
		Duration:  1500 * time.Millisecond,
		Items:     10,
		Bytes:     3 * 1024 * 1024,
		Failures: []models.Failure{
			{Path: "/home/u/photos/a", Err: &fs.PathError{Op: "open", Path: "/home/u/photos/a", Err: fs.ErrPermission}},
			{Path: "/home/u/photos/b", Err: fmt.Errorf("boom")},
		},
		Status: models.StateFailed,
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	f, err := New("json", true, &buf)
	require.NoError(t, err)
	assert.Equal(t, "json", f.Name())

	f, err = New("human", true, &buf)
	require.NoError(t, err)
	assert.Equal(t, "human", f.Name(), "a buffer is not a terminal")

	_, err = New("xml", false, &buf)
	assert.Error(t, err)
}

func TestHumanFormatter(t *testing.T) {
	t.Run("PrintsKindChangesOnly", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewHumanFormatter()
		require.NoError(t, f.Start(&buf))

		require.NoError(t, f.Update(runningState(t, 1, 1)))
		require.NoError(t, f.Update(runningState(t, 1, 5)))
		require.NoError(t, f.Update(runningState(t, 2, 1)))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "[1] copy u -> backup running"))
		assert.True(t, strings.HasPrefix(lines[1], "[2] copy u -> backup running"))
	})

	t.Run("Summary", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewHumanFormatter()
		require.NoError(t, f.Start(&buf))
		require.NoError(t, f.Complete(testReport()))

		out := buf.String()
		assert.Contains(t, out, "[1] copy u -> backup ✗ failed in 1.5s")
		assert.Contains(t, out, "Items:    10")
		assert.Contains(t, out, "Data:     3.0 MiB")
		assert.Contains(t, out, "Speed:    2.0 MiB/s")
		assert.Contains(t, out, "Failures: 2")
		assert.Contains(t, out, "/home/u/photos/b: boom")
	})

	t.Run("NotFound", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewHumanFormatter()
		require.NoError(t, f.Start(&buf))
		require.NoError(t, f.NotFound(models.TaskNotFound{Task: 7}))
		assert.Equal(t, "[7] no such task\n", buf.String())
	})
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()
	require.NoError(t, f.Start(&buf))

	require.NoError(t, f.Update(runningState(t, 1, 5)))
	require.NoError(t, f.NotFound(models.TaskNotFound{Task: 3}))
	require.NoError(t, f.Complete(testReport()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var state struct {
		Type string `json:"type"`
		Data struct {
			State     string `json:"state"`
			Task      int    `json:"task"`
			Operation string `json:"operation"`
			Items     struct {
				Total      int64   `json:"total"`
				Processed  int64   `json:"processed"`
				Percentage float64 `json:"percentage"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &state))
	assert.Equal(t, "state", state.Type)
	assert.Equal(t, "running", state.Data.State)
	assert.Equal(t, "copy", state.Data.Operation)
	assert.Equal(t, int64(5), state.Data.Items.Processed)
	assert.InDelta(t, 0.5, state.Data.Items.Percentage, 1e-9)

	assert.Contains(t, lines[1], `"type":"not_found"`)
	assert.Contains(t, lines[1], `"task":3`)

	var report struct {
		Type string `json:"type"`
		Data struct {
			RunID      string `json:"run_id"`
			Status     string `json:"status"`
			DurationMs int64  `json:"duration_ms"`
			Failures   []struct {
				Path  string `json:"path"`
				Error string `json:"error"`
			} `json:"failures"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &report))
	assert.Equal(t, "report", report.Type)
	assert.Equal(t, "run-1", report.Data.RunID)
	assert.Equal(t, "failed", report.Data.Status)
	assert.Equal(t, int64(1500), report.Data.DurationMs)
	require.Len(t, report.Data.Failures, 2)
	assert.Equal(t, "boom", report.Data.Failures[1].Error)
}

func TestProgressFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter()
	require.NoError(t, f.Start(&buf))

	require.NoError(t, f.Update(runningState(t, 1, 5)))
	assert.Contains(t, buf.String(), "[1] copy u -> backup")
	assert.Len(t, f.bars, 1)

	require.NoError(t, f.Complete(testReport()))
	assert.Empty(t, f.bars)
	assert.Empty(t, f.order)
	assert.Contains(t, buf.String(), "Failures: 2")
}

func TestWriteFailureReport(t *testing.T) {
	t.Run("NoFailuresNoFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "failures.txt")
		report := testReport()
		report.Failures = nil
		require.NoError(t, WriteFailureReport(report, path, "human"))
		_, err := os.Stat(path)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Human", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "failures.txt")
		require.NoError(t, WriteFailureReport(testReport(), path, "human"))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		out := string(data)
		assert.Contains(t, out, "Total Failures: 2")
		assert.Contains(t, out, "Permission Denied (1 paths)")
		assert.Contains(t, out, "Other Errors (1 paths)")
		assert.Less(t, strings.Index(out, "Permission Denied"), strings.Index(out, "Other Errors"))
	})

	t.Run("MismatchCategory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "failures.txt")
		report := testReport()
		cmp := &compare.Comparison{DestPath: "/dst/a", Result: compare.Different, Reason: "file hashes differ"}
		report.Failures = []models.Failure{{Path: "/src/a", Err: cmp.Err()}}
		require.NoError(t, WriteFailureReport(report, path, "human"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Verification Mismatch (1 paths)")
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "failures.json")
		require.NoError(t, WriteFailureReport(testReport(), path, "json"))
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var out struct {
			RunID      string `json:"run_id"`
			TotalCount int    `json:"total_count"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, "run-1", out.RunID)
		assert.Equal(t, 2, out.TotalCount)
	})
}
