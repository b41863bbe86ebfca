// Package errors defines the error taxonomy used across the proxy's
// request-handling pipeline. RPCError carries the JSON-RPC error code that
// the serving loop must emit to the client; CryptoError and ProtocolError
// wrap lower-level failures with operational context.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for cryptographic operations
var (
	// ErrInvalidKeySize indicates that a key has an incorrect size.
	// Session.Encrypt also returns it when the output buffer is shorter than
	// RequestCiphertextLength.
	ErrInvalidKeySize = errors.New("cipher: invalid key size")

	// ErrInvalidPublicKey indicates that a peer public key is malformed.
	ErrInvalidPublicKey = errors.New("cipher: invalid public key")

	// ErrCounterExhausted indicates the session's request counter wrapped to
	// zero; the session must not be used again.
	ErrCounterExhausted = errors.New("cipher: request counter exhausted")

	// ErrDecryptFailed indicates AEAD authentication or nonce validation
	// failed; no further detail is ever exposed to callers.
	ErrDecryptFailed = errors.New("cipher: decryption failed")
)

// Sentinel errors for arena operations
var (
	// ErrArenaTooSmall is returned by Arena.Get for a negative size. Sizes
	// above the largest class are served by a plain heap allocation.
	ErrArenaTooSmall = errors.New("arena: invalid buffer size")
)

// CryptoError wraps a cryptographic error with the operation that failed.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// ProtocolError wraps a protocol-phase error (attestation state machine,
// upstream envelope parsing) with the phase that produced it.
type ProtocolError struct {
	Phase string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol %s: %v", e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(phase string, err error) *ProtocolError {
	return &ProtocolError{Phase: phase, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// JSON-RPC 2.0 standard error codes plus the vendor codes this proxy uses.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeServerIsBusy is returned for upstream timeouts and rate limiting.
	CodeServerIsBusy = -32000

	// CodeOversizedRequest is returned when the declared body length exceeds
	// the configured maximum.
	CodeOversizedRequest = -32001

	// CodeBadGateway is ServerError(-1) in the taxonomy: non-timeout
	// transport failure reaching upstream.
	CodeBadGateway = -32603 - 1

	// CodeInternal is ServerError(-2): decrypt failure, response id
	// mismatch, or other invariant violation.
	CodeInternal = -32603 - 2
)

// Kind names the taxonomy entries from the error-handling design so the
// handler can attach context without stringly-typed comparisons.
type Kind int

const (
	KindTimeout Kind = iota
	KindRateLimited
	KindBadGateway
	KindMissingParams
	KindInvalidParams
	KindInvalidRequestData
	KindErrorResponse
	KindUnexpectedResponse
	KindInvalidResponseData
	KindUnexpectedResponseID
	KindInternal
	KindMethodNotFound
	KindOversizedRequest
	KindParseError
)

// RPCError is a well-formed JSON-RPC error carrying the code the client is
// shown. Message is safe to expose; it never includes response plaintext or
// key material.
type RPCError struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// codeFor maps a taxonomy Kind to its JSON-RPC code per the error handling
// design. Status-dependent kinds (ErrorResponse) pass status separately via
// NewRPCErrorf and are always mapped to InternalError.
func codeFor(k Kind) int {
	switch k {
	case KindTimeout, KindRateLimited:
		return CodeServerIsBusy
	case KindBadGateway:
		return CodeBadGateway
	case KindMissingParams, KindInvalidParams, KindInvalidRequestData:
		return CodeInvalidParams
	case KindErrorResponse, KindUnexpectedResponse, KindInvalidResponseData:
		return CodeInternalError
	case KindUnexpectedResponseID, KindInternal:
		return CodeInternal
	case KindMethodNotFound:
		return CodeMethodNotFound
	case KindOversizedRequest:
		return CodeOversizedRequest
	case KindParseError:
		return CodeParseError
	default:
		return CodeInternalError
	}
}

// NewRPCError builds an RPCError for the given taxonomy Kind with a fixed
// message.
func NewRPCError(k Kind, message string) *RPCError {
	return &RPCError{Kind: k, Code: codeFor(k), Message: message}
}

// NewRPCErrorf builds an RPCError for the given taxonomy Kind with a
// formatted message.
func NewRPCErrorf(k Kind, format string, args ...interface{}) *RPCError {
	return &RPCError{Kind: k, Code: codeFor(k), Message: fmt.Sprintf(format, args...)}
}
