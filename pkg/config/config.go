package config

import (
	"time"

	"github.com/sdejongh/bulkops/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Tasks     TasksConfig     `yaml:"tasks"`
	Copy      CopyConfig      `yaml:"copy"`
	Traversal TraversalConfig `yaml:"traversal"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TasksConfig holds scheduling settings
type TasksConfig struct {
	MaxConcurrent    int           `yaml:"max_concurrent"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
}

// CopyConfig holds settings used when copying file contents
type CopyConfig struct {
	BufferSize     int   `yaml:"buffer_size"`
	BandwidthLimit int64 `yaml:"bandwidth_limit"` // bytes per second, 0 = unlimited
	PreserveTimes  bool  `yaml:"preserve_times"`
	Verify         bool  `yaml:"verify"` // Hash-compare every copied file
}

// TraversalConfig holds settings applied while walking roots
type TraversalConfig struct {
	Sort    bool     `yaml:"sort"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"`      // "json" or "text"
	Level      string `yaml:"level"`       // "debug", "info", "warn", "error"
	File       string `yaml:"file"`        // Log file path (empty = stderr)
	MaxSize    int64  `yaml:"max_size"`    // Rotate after this many bytes (0 = never)
	MaxBackups int    `yaml:"max_backups"` // Rotated files to keep
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Tasks: TasksConfig{
			MaxConcurrent:    5,
			ProgressInterval: time.Second,
		},
		Copy: CopyConfig{
			BufferSize:     8192,
			BandwidthLimit: 0,
			PreserveTimes:  true,
		},
		Traversal: TraversalConfig{
			Sort:    false,
			Exclude: nil,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "text",
			Level:      "info",
			File:       "",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Tasks.MaxConcurrent < 1 {
		return &models.ValidationError{
			Field:   "tasks.max_concurrent",
			Message: "must be at least 1",
		}
	}

	if c.Tasks.ProgressInterval < 10*time.Millisecond {
		return &models.ValidationError{
			Field:   "tasks.progress_interval",
			Message: "must be at least 10ms",
		}
	}

	if c.Copy.BufferSize < 512 {
		return &models.ValidationError{
			Field:   "copy.buffer_size",
			Message: "must be at least 512 bytes",
		}
	}

	if c.Copy.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "copy.bandwidth_limit",
			Message: "must not be negative",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging.max_size",
			Message: "rotation settings must not be negative",
		}
	}

	return nil
}
