package noise

import (
	"errors"
	"fmt"
)

// Failure classes. Every error returned by a handshake or a secure channel
// wraps exactly one of these, so callers can tell a forged message from a
// dropped connection with errors.Is.
var (
	// ErrProtocolViolation marks malformed patterns, missing key material and
	// calls made out of order. It is never worth retrying.
	ErrProtocolViolation = errors.New("noise: protocol violation")

	// ErrAuthentication marks an AEAD tag mismatch.
	ErrAuthentication = errors.New("noise: authentication failed")

	// ErrTransport marks a failure of the underlying channel.
	ErrTransport = errors.New("noise: transport failure")

	// ErrDesync marks a stream that can no longer be parsed, such as a
	// terminator that never arrives.
	ErrDesync = errors.New("noise: stream desynchronized")
)

// ProtocolError reports a protocol violation detected by Op.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("noise: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() []error {
	return []error{ErrProtocolViolation, e.Err}
}

// AuthenticationError reports a message that failed tag verification.
type AuthenticationError struct {
	Op  string
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("noise: %s: authentication failed: %v", e.Op, e.Err)
}

func (e *AuthenticationError) Unwrap() []error {
	return []error{ErrAuthentication, e.Err}
}

// TransportError reports an I/O failure of the channel a handshake or secure
// channel runs over.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("noise: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// DesyncError reports a byte stream that lost its framing.
type DesyncError struct {
	Op  string
	Err error
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("noise: %s: stream desynchronized: %v", e.Op, e.Err)
}

func (e *DesyncError) Unwrap() []error {
	return []error{ErrDesync, e.Err}
}

func protocolError(op string, format string, args ...interface{}) error {
	return &ProtocolError{Op: op, Err: fmt.Errorf(format, args...)}
}

// IsAuthenticationFailure reports whether err is, or wraps, an AEAD failure.
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsProtocolViolation reports whether err is, or wraps, a protocol violation.
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}

// IsTransportFailure reports whether err is, or wraps, a channel I/O failure.
func IsTransportFailure(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsDesyncFailure reports whether err is, or wraps, a framing failure.
func IsDesyncFailure(err error) bool {
	return errors.Is(err, ErrDesync)
}
