// Package flags provides feature flag support for controlled feature rollout.
// Flags are read-only after initialization. Known flags fall back to their
// built-in default, unknown flags are off.
package flags

import (
	"maps"

	"github.com/zjrosen/symtab/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagIdempotentCreate replays create responses for a repeated Idempotency-Key header.
	FlagIdempotentCreate = "idempotent-create"

	// FlagEventStream exposes registry lifecycle events on GET /events.
	FlagEventStream = "event-stream"

	// FlagConfigReload hot-reloads registry and memory settings when the config file changes.
	FlagConfigReload = "config-reload"
)

// Defaults returns the built-in flag values.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagIdempotentCreate: true,
		FlagEventStream:      true,
		FlagConfigReload:     true,
	}
}

// Registry holds feature flag state loaded from configuration.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map layered over Defaults.
func New(flags map[string]bool) *Registry {
	merged := Defaults()
	maps.Copy(merged, flags)
	r := &Registry{flags: merged}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(merged), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags and on a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags.
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
