// Package errors holds the error values shared across wifiecho.
//
// Link failures carry the operation and network name so the supervisor
// can log them usefully and decide whether another connect attempt can
// help.  Socket failures carry the operation and address.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

// Link driver.
var (
	ErrTimeout       = errors.New("operation timed out")
	ErrAuthFailed    = errors.New("authentication failed")
	ErrDriverClosed  = errors.New("link driver is closed")
	ErrDriverStopped = errors.New("link driver is not started")
	ErrUnknownDriver = errors.New("unknown link driver")
	ErrLinkLost      = errors.New("link lost before an address was assigned")
)

// Supervisor.
var (
	ErrSupervisorDone = errors.New("supervisor has entered its terminal run mode")
	ErrSupervisorBusy = errors.New("supervisor operation already in progress")
)

// Echo service and probe.
var (
	ErrCircuitOpen    = errors.New("circuit breaker is open")
	ErrHandlerSetFull = errors.New("connection handler set is full")
	ErrEchoMismatch   = errors.New("echoed bytes differ from the bytes sent")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError is a failed socket operation.
type NetworkError struct {
	Op        string // "listen", "accept", "dial", "read", "write"
	Addr      string
	Err       error
	Retryable bool
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// LinkError is a failure reported while driving the wireless link.
type LinkError struct {
	Op   string // "configure", "start", "connect", "wait"
	SSID string
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s %q: %v", e.Op, e.SSID, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// ConfigError is an invalid setting, named by its flag.
type ConfigError struct {
	Field   string      // flag name without dashes
	Value   interface{} // nil when the setting is missing
	Message string
	Hint    string // optional
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap returns a NetworkError whose Retryable flag is derived from err.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err, Retryable: isTemporary(err)}
}

// WrapLink returns a LinkError.
func WrapLink(op, ssid string, err error) *LinkError {
	return &LinkError{Op: op, SSID: ssid, Err: err}
}

// ── Classification ───────────────────────────────────────────────────

// IsTemporary reports whether err is a transient condition such as a
// timeout or descriptor exhaustion.
func IsTemporary(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return isTemporary(err)
}

// IsPermanentLink reports whether a link failure can never be cured by
// another connect attempt: rejected credentials or a closed driver.
func IsPermanentLink(err error) bool {
	return errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrDriverClosed) ||
		errors.Is(err, ErrDriverStopped)
}

func isTemporary(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // still the only EMFILE/ENFILE signal on accept
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }
