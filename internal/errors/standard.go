// Package errors provides standardized error messaging for the OmniLisp
// memory substrate.
package errors

import (
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors.
type ErrorCategory string

const (
	CategoryMemory        ErrorCategory = "MEMORY"
	CategoryBounds        ErrorCategory = "BOUNDS"
	CategoryInvariant     ErrorCategory = "INVARIANT"
	CategoryConcurrency   ErrorCategory = "CONCURRENCY"
	CategoryTransmigrate  ErrorCategory = "TRANSMIGRATION"
	CategoryConfiguration ErrorCategory = "CONFIGURATION"
)

// StandardError provides a consistent error format.
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// NewStandardError creates a new standardized error.
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"

	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// Common error constructors used by the memory core.

// OutOfMemory reports an arena/region allocation failure. Per §7, this is
// always a return value, never a panic.
func OutOfMemory(size uintptr, context string) *StandardError {
	return NewStandardError(CategoryMemory, "OUT_OF_MEMORY",
		fmt.Sprintf("failed to allocate %d bytes in %s", size, context),
		map[string]interface{}{"size": size, "context": context})
}

// InvariantViolation reports an assertion failure: a negative counter, a
// LIFO violation, or use of a dead region. Callers panic with it in every
// build; there is no debug-only build tag.
func InvariantViolation(what, detail string) *StandardError {
	return NewStandardError(CategoryInvariant, "INVARIANT_VIOLATION",
		fmt.Sprintf("%s: %s", what, detail),
		map[string]interface{}{"what": what, "detail": detail})
}

// ScratchLIFOViolation reports scratch_begin/scratch_end calls that did not
// nest in LIFO order on the same arena (§4.4).
func ScratchLIFOViolation(arenaLabel string) *StandardError {
	return NewStandardError(CategoryInvariant, "SCRATCH_LIFO_VIOLATION",
		fmt.Sprintf("scratch frame on %s ended out of LIFO order", arenaLabel),
		map[string]interface{}{"arena": arenaLabel})
}

// TransmigrationPartialFailure reports a mid-graph OOM during transmigration
// (§7): the caller must treat this as an all-or-nothing failure.
func TransmigrationPartialFailure(copied, total int) *StandardError {
	return NewStandardError(CategoryTransmigrate, "PARTIAL_FAILURE",
		fmt.Sprintf("transmigration copied %d/%d reachable objects before failing", copied, total),
		map[string]interface{}{"copied": copied, "total": total})
}

// CycleMergeRace reports a component_union call observed to race with a
// concurrent dismantle; this is undefined behavior under the caller
// contract (§4.6), surfaced here only so debug builds can report it instead
// of corrupting memory silently.
func CycleMergeRace(componentID uint64) *StandardError {
	return NewStandardError(CategoryConcurrency, "CYCLE_MERGE_RACE",
		fmt.Sprintf("component %d union'd while a dismantle was in flight", componentID),
		map[string]interface{}{"component_id": componentID})
}

// InvalidConfiguration reports a rejected tuning value (e.g. from the
// fsnotify-backed hot-reload path).
func InvalidConfiguration(field string, value interface{}) *StandardError {
	return NewStandardError(CategoryConfiguration, "INVALID_CONFIGURATION",
		fmt.Sprintf("invalid value for %s: %v", field, value),
		map[string]interface{}{"field": field, "value": value})
}
