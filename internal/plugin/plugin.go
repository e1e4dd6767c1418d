// Package plugin implements the bounded plugin sandbox (C11): user-supplied
// pure text rewriters loaded dynamically from either an embedded Lua-like
// script or a WebAssembly module, both capability-stripped and resource
// metered per spec.md §4.10.
package plugin

import (
	"time"

	"gitlab.com/tozd/go/errors"
)

// FailureKind discriminates why a plugin call failed.
type FailureKind int

const (
	LoadFailed FailureKind = iota
	ExecutionFailed
	Timeout
	Sandboxed
	InvalidReturn
)

// Error wraps a plugin failure with its kind and the offending plugin's
// name, so a failing plugin can be logged and skipped without aborting the
// rest of the chain.
type Error struct {
	Kind   FailureKind
	Plugin string
	Cause  error
}

func (e *Error) Error() string {
	return e.Plugin + ": " + e.Kind.String() + ": " + errString(e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (k FailureKind) String() string {
	switch k {
	case LoadFailed:
		return "load failed"
	case ExecutionFailed:
		return "execution failed"
	case Timeout:
		return "timeout"
	case Sandboxed:
		return "sandboxed capability violation"
	case InvalidReturn:
		return "invalid return"
	default:
		return "unknown"
	}
}

// Plugin is a user-supplied pure text rewriter.
type Plugin interface {
	// Name identifies the plugin for logging.
	Name() string
	// Apply runs the plugin against text, returning the rewritten text or
	// a *Error describing the failure.
	Apply(text string) (string, error)
}

// Config carries the plugin resource bounds. The Lua backend enforces
// InstructionLimit, Timeout and MaxResultBytes; the WASM backend enforces
// MaxResultBytes only. MemoryLimitBytes and FuelBudget are not read by
// either backend.
type Config struct {
	MemoryLimitBytes int64
	InstructionLimit int64
	Timeout          time.Duration
	FuelBudget       uint64
	MaxResultBytes   int
}

// DefaultConfig matches spec.md §4.10's stated defaults.
func DefaultConfig() Config {
	return Config{
		MemoryLimitBytes: 16 << 20,
		InstructionLimit: 10_000_000,
		Timeout:          5 * time.Second,
		FuelBudget:       10_000_000,
		MaxResultBytes:   10 << 20,
	}
}

// Chain runs plugins in registration order, composing each result into the
// next. A failing plugin is logged via onError and skipped; subsequent
// plugins still run. A plugin returning its input unchanged is a no-op.
func Chain(text string, plugins []Plugin, onError func(err *Error)) string {
	current := text
	for _, p := range plugins {
		next, err := p.Apply(current)
		if err != nil {
			var pErr *Error
			if !errors.As(err, &pErr) {
				pErr = &Error{Kind: ExecutionFailed, Plugin: p.Name(), Cause: err}
			}
			if onError != nil {
				onError(pErr)
			}
			continue
		}
		current = next
	}
	return current
}
