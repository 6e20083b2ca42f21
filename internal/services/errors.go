package services

import (
	"errors"
	"fmt"
)

// Kind classifies bootstrap failures.
type Kind int

const (
	// ConfigurationConflict means the running proxy disagrees with configuration.
	ConfigurationConflict Kind = iota + 1
	// ResourceUnavailable means a required host port is held by another process.
	ResourceUnavailable
	// ProvisioningFailure means a network or volume could not be created.
	ProvisioningFailure
	// StartupFailure means the engine failed to start a container.
	StartupFailure
)

func (k Kind) String() string {
	switch k {
	case ConfigurationConflict:
		return "configuration conflict"
	case ResourceUnavailable:
		return "resource unavailable"
	case ProvisioningFailure:
		return "provisioning failure"
	case StartupFailure:
		return "startup failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified bootstrap failure. Every Error is terminal for the
// invocation that produced it.
type Error struct {
	Kind Kind
	// Resource names the network, volume label, port or container involved.
	Resource string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	return errors.As(err, &target) && target.Kind == kind
}

func newError(kind Kind, resource string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Resource: resource, Message: fmt.Sprintf(format, args...), Err: err}
}
