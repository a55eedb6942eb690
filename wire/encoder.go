package wire

import (
	"strconv"
	"time"

	imap "github.com/meszmate/imap-codec"
)

// nonSyncLiteralLimit is the largest literal the LITERAL- capability
// allows in non-synchronising form (RFC 7888).
const nonSyncLiteralLimit = 4096

// Chunk is one run of encoded bytes. WaitsForContinuation marks a stop
// point after a synchronising literal header: the driver must await a
// continuation request before sending the next chunk.
type Chunk struct {
	Bytes                []byte
	WaitsForContinuation bool
}

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	// Caps holds the peer's advertised capabilities. LITERAL+/LITERAL-
	// enable non-synchronising literals; BINARY enables ~{n} literals.
	Caps *imap.CapSet
}

// Encoder serialises typed values to wire bytes. It has two modes:
// inline (all bytes contiguous, used by the server channel and tests)
// and chunked (used by the client channel, which must break the stream
// at synchronising-literal boundaries).
//
// Every write appends to an in-memory buffer and cannot fail; misuse of
// the chunked API is a programmer error and panics.
type Encoder struct {
	buf     []byte
	chunked bool
	chunks  []Chunk
	nextIdx int
	caps    *imap.CapSet
}

// NewEncoder creates an inline encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// NewClientEncoder creates a chunked encoder for the client channel.
func NewClientEncoder(opts EncoderOptions) *Encoder {
	return &Encoder{chunked: true, caps: opts.Caps}
}

// Bytes returns the encoded bytes of an inline encoder.
func (e *Encoder) Bytes() []byte {
	if e.chunked {
		panic("wire: Bytes called on a chunked encoder")
	}
	return e.buf
}

// Reset discards all encoded output.
func (e *Encoder) Reset() {
	e.buf = nil
	e.chunks = nil
	e.nextIdx = 0
}

// NextChunk returns the next chunk of a chunked encoder, and false when
// the output is exhausted. The final chunk never waits.
func (e *Encoder) NextChunk() (Chunk, bool) {
	if !e.chunked {
		panic("wire: NextChunk called on an inline encoder")
	}
	e.flushChunk(false)
	if e.nextIdx >= len(e.chunks) {
		return Chunk{}, false
	}
	c := e.chunks[e.nextIdx]
	e.nextIdx++
	return c, true
}

// Chunks returns all chunks of a chunked encoder.
func (e *Encoder) Chunks() []Chunk {
	if !e.chunked {
		panic("wire: Chunks called on an inline encoder")
	}
	e.flushChunk(false)
	return e.chunks
}

func (e *Encoder) flushChunk(waits bool) {
	if len(e.buf) == 0 && !waits {
		return
	}
	e.chunks = append(e.chunks, Chunk{Bytes: e.buf, WaitsForContinuation: waits})
	e.buf = nil
}

// --- primitive writers ---

// Raw appends bytes verbatim.
func (e *Encoder) Raw(data []byte) *Encoder {
	e.buf = append(e.buf, data...)
	return e
}

// Atom appends a bare atom.
func (e *Encoder) Atom(s string) *Encoder {
	e.buf = append(e.buf, s...)
	return e
}

// SP appends a space.
func (e *Encoder) SP() *Encoder {
	e.buf = append(e.buf, ' ')
	return e
}

// CRLF appends a line terminator.
func (e *Encoder) CRLF() *Encoder {
	e.buf = append(e.buf, '\r', '\n')
	return e
}

// Tag appends a command tag.
func (e *Encoder) Tag(tag string) *Encoder {
	return e.Atom(tag)
}

// Star appends the untagged response prefix.
func (e *Encoder) Star() *Encoder {
	e.buf = append(e.buf, '*', ' ')
	return e
}

// Plus appends the continuation request prefix.
func (e *Encoder) Plus() *Encoder {
	e.buf = append(e.buf, '+')
	return e
}

// Nil appends NIL.
func (e *Encoder) Nil() *Encoder {
	return e.Atom("NIL")
}

// Number appends an unsigned 32-bit number.
func (e *Encoder) Number(n uint32) *Encoder {
	e.buf = strconv.AppendUint(e.buf, uint64(n), 10)
	return e
}

// Number64 appends an unsigned 64-bit number.
func (e *Encoder) Number64(n uint64) *Encoder {
	e.buf = strconv.AppendUint(e.buf, n, 10)
	return e
}

// BeginList appends an opening parenthesis.
func (e *Encoder) BeginList() *Encoder {
	e.buf = append(e.buf, '(')
	return e
}

// EndList appends a closing parenthesis.
func (e *Encoder) EndList() *Encoder {
	e.buf = append(e.buf, ')')
	return e
}

// Quoted appends a quoted string, escaping backslash and double quote.
func (e *Encoder) Quoted(s string) *Encoder {
	e.buf = append(e.buf, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			e.buf = append(e.buf, '\\')
		}
		e.buf = append(e.buf, s[i])
	}
	e.buf = append(e.buf, '"')
	return e
}

// needsLiteral reports whether s cannot be carried in a quoted string.
func needsLiteral(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\r' || s[i] == '\n' || s[i] == 0 || s[i] > 0x7e {
			return true
		}
	}
	return false
}

// isAtomString reports whether s is a non-empty run of atom characters.
func isAtomString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsAtomChar(s[i]) {
			return false
		}
	}
	return true
}

// String appends a string value in its canonical form: quoted, or a
// literal when the content cannot be quoted.
func (e *Encoder) String(s string) *Encoder {
	if needsLiteral(s) {
		return e.Literal([]byte(s), false)
	}
	return e.Quoted(s)
}

// NString appends NIL for absent values and a string otherwise.
func (e *Encoder) NString(s *string) *Encoder {
	if s == nil {
		return e.Nil()
	}
	return e.String(*s)
}

// Mailbox appends a mailbox name: INBOX and other atom-safe names as
// bare atoms, anything else as a string.
func (e *Encoder) Mailbox(m imap.MailboxName) *Encoder {
	s := string(m)
	if isAtomString(s) {
		return e.Atom(s)
	}
	return e.String(s)
}

// ListMailbox appends a LIST pattern, which may contain wildcards.
func (e *Encoder) ListMailbox(s string) *Encoder {
	clean := s != ""
	for i := 0; i < len(s); i++ {
		if !IsAtomChar(s[i]) && !IsListWildcard(s[i]) {
			clean = false
			break
		}
	}
	if clean {
		return e.Atom(s)
	}
	return e.String(s)
}

// Flag appends one flag.
func (e *Encoder) Flag(f imap.Flag) *Encoder {
	return e.Atom(string(f))
}

// Flags appends a parenthesised flag list.
func (e *Encoder) Flags(flags []imap.Flag) *Encoder {
	e.BeginList()
	for i, f := range flags {
		if i > 0 {
			e.SP()
		}
		e.Flag(f)
	}
	return e.EndList()
}

// Date appends an unquoted date (search keys).
func (e *Encoder) Date(t time.Time) *Encoder {
	return e.Atom(imap.FormatDate(t))
}

// DateTime appends a quoted date-time.
func (e *Encoder) DateTime(t time.Time) *Encoder {
	e.buf = append(e.buf, '"')
	e.Atom(imap.FormatDateTime(t))
	e.buf = append(e.buf, '"')
	return e
}

// NumSet appends a number set.
func (e *Encoder) NumSet(set imap.NumSet) *Encoder {
	return e.Atom(set.String())
}

// allowNonSync reports whether the peer accepts a non-synchronising
// literal of the given size.
func (e *Encoder) allowNonSync(size int) bool {
	if e.caps.Has(imap.CapLiteralPlus) {
		return true
	}
	return e.caps.Has(imap.CapLiteralMinus) && size <= nonSyncLiteralLimit
}

// Literal appends a literal. In chunked mode a synchronising literal
// closes the current chunk after its header so the driver can await the
// continuation request; with LITERAL+ (or LITERAL- for small bodies) the
// non-synchronising form is used and no stop point is inserted. The
// binary form ~{n} is used when requested and the peer supports BINARY.
func (e *Encoder) Literal(data []byte, binary bool) *Encoder {
	if binary && e.caps.Has(imap.CapBinary) {
		e.buf = append(e.buf, '~')
	}
	e.buf = append(e.buf, '{')
	e.buf = strconv.AppendInt(e.buf, int64(len(data)), 10)
	if e.chunked && e.allowNonSync(len(data)) {
		e.buf = append(e.buf, '+')
		e.buf = append(e.buf, '}')
		e.CRLF()
		e.buf = append(e.buf, data...)
		return e
	}
	e.buf = append(e.buf, '}')
	e.CRLF()
	if e.chunked {
		e.flushChunk(true)
	}
	e.buf = append(e.buf, data...)
	return e
}

// LiteralHeader appends only a literal header, for callers that stream
// the body themselves (server-side section data).
func (e *Encoder) LiteralHeader(size int64, binary, nonSync bool) *Encoder {
	if binary {
		e.buf = append(e.buf, '~')
	}
	e.buf = append(e.buf, '{')
	e.buf = strconv.AppendInt(e.buf, size, 10)
	if nonSync {
		e.buf = append(e.buf, '+')
	}
	e.buf = append(e.buf, '}')
	return e.CRLF()
}
