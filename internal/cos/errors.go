// Package cos provides common low-level types used across the horus core:
// typed error kinds, run/attach identifiers, and small filesystem-name
// helpers. Adapted from the teacher's cmn/cos package.
package cos

import (
	"fmt"

	"github.com/pkg/errors"
)

// The five error kinds carried at the core surface (spec ERROR HANDLING
// DESIGN). ConfigError, TransportError and LifecycleError wrap an optional
// cause via github.com/pkg/errors so a caller can still errors.Cause() or
// errors.As() through to the root; CapacityError and PolicyError carry no
// cause.

type (
	ConfigError struct {
		Op    string // e.g. "load", "parse", "preset"
		Cause error
	}
	TransportError struct {
		Topic string
		Op    string // e.g. "attach", "bind", "handshake", "frame"
		Cause error
	}
	CapacityError struct {
		Topic string
	}
	LifecycleError struct {
		Node  string
		Phase string // "init", "tick", "shutdown"
		Cause error
	}
	PolicyError struct {
		Node   string
		Reason string // "circuit-open", "retry-budget", "deadline-missed", "watchdog-timeout"
	}
)

func NewConfigError(op string, cause error) *ConfigError {
	return &ConfigError{Op: op, Cause: errors.WithStack(cause)}
}

func (e *ConfigError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("config error: %s", e.Op)
	}
	return fmt.Sprintf("config error: %s: %v", e.Op, e.Cause)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

func NewTransportError(topic, op string, cause error) *TransportError {
	return &TransportError{Topic: topic, Op: op, Cause: errors.WithStack(cause)}
}

func (e *TransportError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("transport error: %s(%s)", e.Op, e.Topic)
	}
	return fmt.Sprintf("transport error: %s(%s): %v", e.Op, e.Topic, e.Cause)
}
func (e *TransportError) Unwrap() error { return e.Cause }

func NewCapacityError(topic string) *CapacityError { return &CapacityError{Topic: topic} }

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity error: %s is full", e.Topic)
}

func NewLifecycleError(node, phase string, cause error) *LifecycleError {
	return &LifecycleError{Node: node, Phase: phase, Cause: errors.WithStack(cause)}
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("lifecycle error: node %q failed in %s: %v", e.Node, e.Phase, e.Cause)
}
func (e *LifecycleError) Unwrap() error { return e.Cause }

func NewPolicyError(node, reason string) *PolicyError { return &PolicyError{Node: node, Reason: reason} }

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy error: node %q: %s", e.Node, e.Reason)
}

// ErrNotFound mirrors the teacher's cmn/cos.ErrNotFound: a typed "absence"
// error distinguishable from a generic one via IsErrNotFound.
type ErrNotFound struct{ what string }

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{what: fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

// Errs accumulates up to maxErrs distinct errors, deduplicated by message,
// adapted from the teacher's cmn/cos.Errs.
type Errs struct {
	errs []error
}

const maxErrs = 4

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Empty() bool { return len(e.errs) == 0 }

func (e *Errs) Error() string {
	if e.Empty() {
		return ""
	}
	s := fmt.Sprintf("%d error(s):", len(e.errs))
	for _, err := range e.errs {
		s += " [" + err.Error() + "]"
	}
	return s
}
