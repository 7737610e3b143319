package types

import "errors"

// ErrorKind identifies a kind of error. It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrCurve is returned when a private scalar is zero or not less than
	// the group order, or when a derivation ends at the point at infinity.
	// The caller is expected to resample a fresh scalar.
	ErrCurve = ErrorKind("ErrCurve")

	// ErrEncoding is returned when an address fails to decode: bad base58
	// characters, a decoded length other than 25 bytes, a checksum mismatch
	// or an unexpected version byte.
	ErrEncoding = ErrorKind("ErrEncoding")

	// ErrInsufficientFunds is returned when the selected inputs cannot cover
	// the requested amount plus the estimated fee.
	ErrInsufficientFunds = ErrorKind("ErrInsufficientFunds")

	// ErrSigning is returned when no valid nonce could be derived within the
	// bounded number of deterministic nonce iterations.
	ErrSigning = ErrorKind("ErrSigning")

	// ErrEntropy is returned when the random source fails. No secure key can
	// be produced without it, so it is never retried.
	ErrEntropy = ErrorKind("ErrEntropy")

	// ErrInvalidRequest is returned when a build or sign request is
	// malformed, e.g. a zero fee rate, no inputs or an input index out of
	// range.
	ErrInvalidRequest = ErrorKind("ErrInvalidRequest")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error related to key derivation, address encoding or
// transaction construction. It has full support for errors.Is and errors.As,
// so the caller can ascertain the specific reason for the error by checking
// the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// MakeError creates an Error given a set of arguments.
func MakeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}

// IsRetryable reports whether a fresh attempt with a new scalar may succeed
// where err failed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCurve)
}
