package compositions

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProvision        = errors.New("provision failed")
	ErrInvalidTimeout   = errors.New("invalid timeout")
	ErrInjection        = errors.New("environment injection failed")
	ErrNotReady         = errors.New("bundle not ready")
	ErrRemoteInvocation = errors.New("remote invocation failed")
	ErrOutOfBand        = errors.New("uncaught exception in sandbox")
)

// ProvisionError means a sandbox, page, content server or asset cache could
// not be acquired.
type ProvisionError struct {
	Resource string // sandbox, page, server, cache
	Err      error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("failed to provision %s: %v", e.Resource, e.Err)
}

func (e *ProvisionError) Unwrap() error        { return e.Err }
func (e *ProvisionError) Is(target error) bool { return target == ErrProvision }

// InvalidTimeoutError rejects a timeout that is not a positive finite duration
type InvalidTimeoutError struct {
	Value string
}

func (e *InvalidTimeoutError) Error() string {
	return fmt.Sprintf("timeout must be a positive finite number of milliseconds, got %s", e.Value)
}

func (e *InvalidTimeoutError) Is(target error) bool { return target == ErrInvalidTimeout }

// InjectionError is returned once every injection attempt failed
type InjectionError struct {
	Attempts int
	Err      error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("failed to inject environment after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *InjectionError) Unwrap() error        { return e.Err }
func (e *InjectionError) Is(target error) bool { return target == ErrInjection }

// NotReadyError means the bundle reported a load failure or never became ready
type NotReadyError struct {
	Message string
	Stack   string
	Err     error
}

func (e *NotReadyError) Error() string {
	msg := "bundle failed to load"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotReadyError) Unwrap() error        { return e.Err }
func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// RemoteInvocationError carries an exception raised by an entry point, or
// the reason its result could not be used.
type RemoteInvocationError struct {
	EntryPoint string
	Frame      *int // nil for calls that are not frame-scoped
	Name       string
	Message    string
	Stack      string
	Err        error
}

func (e *RemoteInvocationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.EntryPoint)
	sb.WriteString("() failed")
	if e.Frame != nil {
		fmt.Fprintf(&sb, " at frame %d", *e.Frame)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		if e.Name != "" {
			sb.WriteString(e.Name)
			sb.WriteString(": ")
		}
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *RemoteInvocationError) Unwrap() error        { return e.Err }
func (e *RemoteInvocationError) Is(target error) bool { return target == ErrRemoteInvocation }

// OutOfBandError is the first uncaught exception the page reported outside
// the direct call path.
type OutOfBandError struct {
	Name    string
	Message string
	Stack   string
}

func (e *OutOfBandError) Error() string {
	if e.Name == "" {
		return "uncaught exception: " + e.Message
	}
	return "uncaught " + e.Name + ": " + e.Message
}

func (e *OutOfBandError) Is(target error) bool { return target == ErrOutOfBand }

// outcomeLabel names err for metrics
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidTimeout):
		return "invalid_timeout"
	case errors.Is(err, ErrProvision):
		return "provision"
	case errors.Is(err, ErrInjection):
		return "injection"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrRemoteInvocation):
		return "remote_invocation"
	case errors.Is(err, ErrOutOfBand):
		return "out_of_band"
	default:
		return "error"
	}
}
