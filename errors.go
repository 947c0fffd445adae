package canvas

import (
	"errors"
	"fmt"
)

// Error is a structured error carrying the operation, the worker and
// connection it happened on (when applicable), and a high-level category
// for programmatic matching via IsCode.
type Error struct {
	Op     string // operation that failed, e.g. "ring.arm", "quic.listen"
	Worker int    // worker id, -1 if not applicable
	Conn   string // connection id, "" if not applicable
	Code   ErrorCode
	Msg    string
	Inner  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Worker >= 0 {
		parts = append(parts, fmt.Sprintf("worker=%d", e.Worker))
	}
	if e.Conn != "" {
		parts = append(parts, fmt.Sprintf("conn=%s", e.Conn))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("canvas: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("canvas: %s", msg)
}

// Unwrap supports errors.Is/As against the wrapped error.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by error code.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is a high-level error category.
type ErrorCode string

const (
	ErrCodeRingInit       ErrorCode = "ring init failed"
	ErrCodeListenFailed   ErrorCode = "listen failed"
	ErrCodeTLSConfig      ErrorCode = "tls configuration invalid"
	ErrCodeInvalidPixel   ErrorCode = "invalid pixel datagram"
	ErrCodeCooldown       ErrorCode = "user on cooldown"
	ErrCodeAdmission      ErrorCode = "connection rejected at capacity"
	ErrCodeMergeOverflow  ErrorCode = "master merge queue full"
	ErrCodeShutdownFailed ErrorCode = "shutdown failed"
)

// NewError creates a structured Error with no worker/conn context.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Worker: -1, Code: code, Msg: msg}
}

// NewWorkerError creates a structured Error scoped to a worker.
func NewWorkerError(op string, worker int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Worker: worker, Code: code, Msg: msg}
}

// NewConnError creates a structured Error scoped to a connection.
func NewConnError(op string, worker int, conn string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Worker: worker, Conn: conn, Code: code, Msg: msg}
}

// WrapError wraps inner with operation context, preserving its code if it
// is already a structured Error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if e, ok := inner.(*Error); ok {
		return &Error{Op: op, Worker: e.Worker, Conn: e.Conn, Code: e.Code, Msg: e.Msg, Inner: e.Inner}
	}
	return &Error{Op: op, Worker: -1, Code: ErrCodeRingInit, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a structured Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
