package logging

import "context"

// Noop discards everything. Components fall back to it when no logger is
// configured, and the CLI uses it when logging is disabled.
var Noop Logger = noop{}

type noop struct{}

func (noop) Debug(context.Context, string, Fields)        {}
func (noop) Info(context.Context, string, Fields)         {}
func (noop) Warn(context.Context, string, Fields)         {}
func (noop) Error(context.Context, string, error, Fields) {}
func (n noop) WithFields(Fields) Logger                   { return n }
func (noop) Close() error                                 { return nil }
