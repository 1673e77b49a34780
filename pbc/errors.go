package pbc

import (
	"errors"
	"fmt"
)

// Error types for the Protocol Buffers transport.
// Each type reports whether the connection that produced it can be reused,
// so pools can decide between releasing and destroying a connection.

// ServerError is a well-formed ErrorResp frame sent by Riak.
// The frame was consumed completely, so the framing state is intact.
//
// Common causes:
//   - Invalid bucket properties
//   - Datatype operation on a bucket type without a datatype
//   - Precommit hook failure
//
// Connection handling: Connection can be REUSED
type ServerError struct {
	Message string
	Code    uint32
}

func (e *ServerError) Error() string {
	return "riak error: " + e.Message
}

// ShouldCloseConnection returns false - the error frame was fully consumed
func (e *ServerError) ShouldCloseConnection() bool {
	return false
}

// ProtocolError is a frame the client could not interpret.
//
// Common causes:
//   - Unknown message code
//   - Length prefix above MaxFrameLength, or zero
//   - Malformed protobuf body
//
// Connection handling: CLOSE connection, the byte stream is desynchronized
type ProtocolError struct {
	Message string
	Code    Code
	Err     error // Underlying error, if any
}

func (e *ProtocolError) Error() string {
	msg := "protocol error: " + e.Message
	if e.Code != 0 {
		msg += " (code " + e.Code.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - framing state is unknown
func (e *ProtocolError) ShouldCloseConnection() bool {
	return true
}

// UnexpectedResponseCodeError is returned when a complete frame carries a code
// other than the one the request expects.
//
// Connection handling: CLOSE connection, request and response are out of step
type UnexpectedResponseCodeError struct {
	Expected Code
	Actual   Code
}

func (e *UnexpectedResponseCodeError) Error() string {
	return fmt.Sprintf("unexpected response code %s, expected %s", e.Actual, e.Expected)
}

// ShouldCloseConnection returns true - the connection is desynchronized
func (e *UnexpectedResponseCodeError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps underlying I/O errors from connection operations.
//
// Common causes:
//   - Connection reset or closed by the server
//   - Deadline exceeded while a frame was partially read
//   - EOF in the middle of a frame
//
// Connection handling: Connection is already broken, CLOSE it
type ConnectionError struct {
	Op  string // Operation that failed (read, write, etc.)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection they came from is still usable.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns false for nil and for errors that declare the connection reusable
// (ServerError, or any error implementing ErrorWithConnectionState that says so).
// Unknown error types are treated conservatively and return true.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
