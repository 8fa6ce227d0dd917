// Package plugin defines the analysis plugin contract and the registry
// plugins are resolved from.
//
// Registration happens during initialisation. Once the registry is
// frozen it is read-only and lookups take no lock.
package plugin

import (
	"context"
	"errors"
	"fmt"
)

// RunContext is what a plugin learns about the run invoking it.
type RunContext struct {
	RunID string `json:"run_id"`
	Seed  int64  `json:"seed"`
}

// Plugin is an analysis step over an extracted dataset.
// Run must be deterministic for a given dataset and seed.
type Plugin interface {
	Name() string
	Version() string
	Run(ctx context.Context, ds *Dataset, rc RunContext) (map[string]any, error)
}

// Sentinel causes carried by PluginError.
var (
	ErrUnknown   = errors.New("plugin not found")
	ErrDuplicate = errors.New("plugin already registered")
)

// PluginError reports a plugin that could not be resolved, registered,
// or run.
type PluginError struct {
	Name  string
	Cause error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %q: %v", e.Name, e.Cause)
}

func (e *PluginError) Unwrap() error { return e.Cause }

// IsPluginError reports whether err is or wraps a *PluginError.
func IsPluginError(err error) bool {
	var pe *PluginError
	return errors.As(err, &pe)
}
