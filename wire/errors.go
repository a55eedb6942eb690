package wire

import (
	"errors"
	"fmt"
)

// ErrNeedMore reports that the buffer does not yet hold enough bytes to
// complete the current parse. It is not a failure: the caller supplies
// more data and retries. The read cursor is always restored before it is
// returned.
var ErrNeedMore = errors.New("imap: need more data")

// ErrMismatch reports a recoverable grammar mismatch: the input does not
// start with the attempted production. The read cursor is restored so the
// caller may try an alternative.
var ErrMismatch = errors.New("imap: parser mismatch")

// ErrorKind classifies fatal parse errors.
type ErrorKind int

const (
	// ProtocolViolation covers malformed framing: bad literal headers,
	// unclosed quoted strings, bare CR, unknown command names.
	ProtocolViolation ErrorKind = iota
	// GrammarConstraintViolation covers well-formed constructs whose
	// value is out of range: bad month, zone out of bounds, mod-seq
	// overflow.
	GrammarConstraintViolation
	// ExcessiveCommandSize reports unparsed non-literal lookahead past
	// the configured buffer limit.
	ExcessiveCommandSize
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ProtocolViolation:
		return "protocol violation"
	case GrammarConstraintViolation:
		return "grammar constraint violation"
	case ExcessiveCommandSize:
		return "excessive command size"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// maxErrorSnippet bounds the buffer slice attached to a ProtocolError.
const maxErrorSnippet = 64

// ProtocolError is a fatal parse error. The connection it occurred on is
// no longer usable.
type ProtocolError struct {
	Kind   ErrorKind
	Reason string
	// Snippet holds the offending bytes, bounded to a small window.
	Snippet []byte
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if len(e.Snippet) > 0 {
		return fmt.Sprintf("imap: %s: %s (at %q)", e.Kind, e.Reason, e.Snippet)
	}
	return fmt.Sprintf("imap: %s: %s", e.Kind, e.Reason)
}

func protocolErr(snippet []byte, format string, args ...interface{}) *ProtocolError {
	return newProtocolError(ProtocolViolation, snippet, format, args...)
}

func grammarErr(snippet []byte, format string, args ...interface{}) *ProtocolError {
	return newProtocolError(GrammarConstraintViolation, snippet, format, args...)
}

func newProtocolError(kind ErrorKind, snippet []byte, format string, args ...interface{}) *ProtocolError {
	if len(snippet) > maxErrorSnippet {
		snippet = snippet[:maxErrorSnippet]
	}
	cp := make([]byte, len(snippet))
	copy(cp, snippet)
	return &ProtocolError{
		Kind:    kind,
		Reason:  fmt.Sprintf(format, args...),
		Snippet: cp,
	}
}

// SemanticError reports a syntactically well-formed construct whose
// value is unacceptable, such as an empty mailbox name. It is not fatal
// at the codec layer: the decoder resynchronises on the next line and
// the caller decides session-level handling (typically a tagged NO or
// BAD).
type SemanticError struct {
	Reason string
}

// Error implements the error interface.
func (e *SemanticError) Error() string {
	return "imap: " + e.Reason
}

// IsFatal reports whether err ends the connection: anything other than
// ErrNeedMore, ErrMismatch and semantic errors.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNeedMore) || errors.Is(err, ErrMismatch) {
		return false
	}
	var serr *SemanticError
	return !errors.As(err, &serr)
}
