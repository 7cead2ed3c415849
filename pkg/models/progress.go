package models

import "fmt"

// Progress is a (total, processed) pair. Processed never exceeds total.
type Progress struct {
	total     int64
	processed int64
}

// ProgressNone is the progress of an operation with nothing to do
var ProgressNone = Progress{}

// NewProgress validates and builds a Progress
func NewProgress(total, processed int64) (Progress, error) {
	if total < 0 || processed < 0 {
		return Progress{}, &ValidationError{
			Field:   "progress",
			Message: fmt.Sprintf("negative value (total=%d, processed=%d)", total, processed),
		}
	}
	if processed > total {
		return Progress{}, &ValidationError{
			Field:   "progress",
			Message: fmt.Sprintf("processed %d exceeds total %d", processed, total),
		}
	}
	return Progress{total: total, processed: processed}, nil
}

// NormalizeProgress builds a Progress, raising total to processed when the
// estimate turned out too small. Negative values are clamped to zero.
func NormalizeProgress(total, processed int64) Progress {
	if processed < 0 {
		processed = 0
	}
	if total < processed {
		total = processed
	}
	return Progress{total: total, processed: processed}
}

// Total returns the expected amount of work
func (p Progress) Total() int64 {
	return p.total
}

// Processed returns the amount of work done so far
func (p Progress) Processed() int64 {
	return p.processed
}

// Left returns the remaining amount of work
func (p Progress) Left() int64 {
	return p.total - p.processed
}

// IsDone reports whether all work has been processed
func (p Progress) IsDone() bool {
	return p.total == p.processed
}

// Percentage returns processed/total in [0, 1]; empty progress counts as complete
func (p Progress) Percentage() float64 {
	if p.total == 0 {
		return 1.0
	}
	return float64(p.processed) / float64(p.total)
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.processed, p.total)
}

// MarshalJSON renders the progress with its derived fields
func (p Progress) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"total":%d,"processed":%d,"percentage":%.4f}`,
		p.total, p.processed, p.Percentage())), nil
}
