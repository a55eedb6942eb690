package imap

import "time"

// AppendOptions specifies per-message options for the APPEND command.
type AppendOptions struct {
	// Flags is the list of flags to set on the message.
	Flags []Flag
	// HasFlags records that a flag list was present on the wire even if
	// empty, preserving "()" on round-trip.
	HasFlags bool
	// InternalDate is the internal date to set on the message.
	InternalDate time.Time
	// Binary indicates the message body uses binary literal notation
	// (~{N}, RFC 3516).
	Binary bool
}

// AppendData represents the result of an APPEND command.
type AppendData struct {
	// UIDValidity is the UID validity of the destination mailbox.
	UIDValidity uint32
	// UID is the UID assigned to the appended message (UIDPLUS).
	UID UID
}
