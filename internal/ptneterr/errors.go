// Package ptneterr defines the sentinel error kinds shared across the daemon's
// components, so callers can classify failures with errors.Is/errors.As instead
// of string matching.
package ptneterr

import "errors"

// Sentinel error kinds. Components wrap these with fmt.Errorf("...: %w", Kind)
// to attach context while preserving the kind for errors.Is.
var (
	// ErrIO covers socket, file, or database I/O failure.
	ErrIO = errors.New("io error")

	// ErrProtocol covers unknown magic, short read mid-frame, malformed ASDU.
	ErrProtocol = errors.New("protocol error")

	// ErrNotFound covers a store precondition violation: key absent.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists covers a store precondition violation: key present.
	ErrAlreadyExists = errors.New("already exists")

	// ErrVerify covers firmware header/payload integrity failures.
	ErrVerify = errors.New("verify error")

	// ErrTimeout covers a response wait that elapsed.
	ErrTimeout = errors.New("timeout")

	// ErrCancelled covers a task aborted by the supervisor.
	ErrCancelled = errors.New("cancelled")

	// ErrShortRead indicates the scanner ran out of bytes mid-group.
	ErrShortRead = errors.New("short read")

	// ErrInvalidPacket indicates a structurally invalid packet (e.g. VSQ.N == 0).
	ErrInvalidPacket = errors.New("invalid packet")
)
