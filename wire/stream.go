package wire

import (
	"bytes"
	"errors"
	"strings"

	imap "github.com/meszmate/imap-codec"
)

// DefaultBufferLimit bounds the unparsed non-literal lookahead of a
// decoder. Exceeding it is a fatal ExcessiveCommandSize error; literal
// bodies are exempt because they stream.
const DefaultBufferLimit = 1000

// DefaultContinuationText is the text of generated continuation requests.
const DefaultContinuationText = "ready"

// --- response events ---

// ResponseEvent is one event emitted by the ResponseParser.
type ResponseEvent interface {
	responseEvent()
}

// GreetingEvent carries the greeting that opens a session.
type GreetingEvent struct {
	Greeting *imap.Greeting
}

// ResponseBegin opens a response group.
type ResponseBegin struct {
	Data imap.ResponseData
}

// ResponseEnd closes a response group. For a tagged completion Done is
// set and no group preceded it.
type ResponseEnd struct {
	Done *imap.ResponseDone
}

// AttributesStart opens the attribute list of a FETCH group.
type AttributesStart struct{}

// SimpleAttribute carries one non-streamed FETCH attribute.
type SimpleAttribute struct {
	Attr imap.FetchAttr
}

// StreamingAttributeBegin announces a streamed section attribute of the
// given total size.
type StreamingAttributeBegin struct {
	Attr imap.FetchAttr
	Size int64
}

// StreamingAttributeBytes carries one chunk of a streamed attribute.
// The slice is only valid until the next parser call.
type StreamingAttributeBytes struct {
	Data []byte
}

// StreamingAttributeEnd closes a streamed attribute.
type StreamingAttributeEnd struct{}

// AttributesFinish closes the attribute list of a FETCH group.
type AttributesFinish struct{}

// ContinuationReceived is a server continuation request line.
type ContinuationReceived struct {
	Text string
}

func (GreetingEvent) responseEvent()           {}
func (ResponseBegin) responseEvent()           {}
func (ResponseEnd) responseEvent()             {}
func (AttributesStart) responseEvent()         {}
func (SimpleAttribute) responseEvent()         {}
func (StreamingAttributeBegin) responseEvent() {}
func (StreamingAttributeBytes) responseEvent() {}
func (StreamingAttributeEnd) responseEvent()   {}
func (AttributesFinish) responseEvent()        {}
func (ContinuationReceived) responseEvent()    {}

type respMode int

const (
	modeGreeting respMode = iota
	modeResponse
	modeAttrsHead
	modeAttrsAttribute
	modeAttrsSeparator
	modeAttrBytes
)

// ResponseParserOptions configures a ResponseParser.
type ResponseParserOptions struct {
	// BufferLimit bounds unparsed non-literal head data; 0 means
	// DefaultBufferLimit.
	BufferLimit int
	// MaxBodyStructureDepth bounds body structure nesting; 0 means
	// DefaultMaxBodyStructureDepth.
	MaxBodyStructureDepth int
}

// ResponseParser is the streaming server-to-client parser. Feed bytes
// with Feed and pull events with Next; Next returns ErrNeedMore when the
// buffer runs dry mid-construct, leaving all state unchanged.
type ResponseParser struct {
	buf       []byte
	mode      respMode
	remaining int64
	pending   []ResponseEvent
	scanner   LiteralScanner
	limit     int
	maxDepth  int
}

// NewResponseParser creates a parser in the Greeting state.
func NewResponseParser() *ResponseParser {
	return NewResponseParserOptions(ResponseParserOptions{})
}

// NewResponseParserOptions creates a parser with explicit options.
func NewResponseParserOptions(opts ResponseParserOptions) *ResponseParser {
	limit := opts.BufferLimit
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	maxDepth := opts.MaxBodyStructureDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxBodyStructureDepth
	}
	return &ResponseParser{limit: limit, maxDepth: maxDepth}
}

// Feed appends bytes received from the server.
func (p *ResponseParser) Feed(data []byte) {
	p.buf = append(p.buf, data...)
}

// Buffered returns the number of unparsed bytes.
func (p *ResponseParser) Buffered() int { return len(p.buf) }

// consume drops n parsed bytes from the front of the buffer.
func (p *ResponseParser) consume(n int) {
	p.buf = p.buf[n:]
	p.scanner.Advance(n)
}

// Next parses and returns the next response event.
func (p *ResponseParser) Next() (ResponseEvent, error) {
	if len(p.pending) > 0 {
		ev := p.pending[0]
		p.pending = p.pending[1:]
		return ev, nil
	}

	switch p.mode {
	case modeGreeting:
		r := NewReader(p.buf)
		g, err := parseGreeting(r)
		if err != nil {
			return nil, p.checkLimit(err)
		}
		p.consume(r.Pos())
		p.mode = modeResponse
		return GreetingEvent{Greeting: g}, nil

	case modeResponse:
		return p.nextResponse()

	case modeAttrsHead:
		r := NewReader(p.buf)
		if err := r.ExpectByte('('); err != nil {
			return nil, p.checkLimit(commitErr(r, err, "expected attribute list"))
		}
		p.consume(r.Pos())
		p.mode = modeAttrsAttribute
		return AttributesStart{}, nil

	case modeAttrsAttribute:
		return p.nextAttribute()

	case modeAttrsSeparator:
		r := NewReader(p.buf)
		b, err := r.PeekByte()
		if err != nil {
			return nil, p.checkLimit(err)
		}
		switch b {
		case ' ':
			r.Consume(1)
			p.consume(r.Pos())
			p.mode = modeAttrsAttribute
			return p.nextAttribute()
		case ')':
			r.Consume(1)
			if err := r.ReadCRLF(); err != nil {
				return nil, p.checkLimit(commitErr(r, err, "malformed fetch response"))
			}
			p.consume(r.Pos())
			p.mode = modeResponse
			p.pending = append(p.pending, ResponseEnd{})
			return AttributesFinish{}, nil
		}
		return nil, protocolErr(p.buf, "expected attribute separator")

	case modeAttrBytes:
		if p.remaining == 0 {
			p.mode = modeAttrsSeparator
			return StreamingAttributeEnd{}, nil
		}
		if len(p.buf) == 0 {
			return nil, ErrNeedMore
		}
		n := int64(len(p.buf))
		if n > p.remaining {
			n = p.remaining
		}
		chunk := make([]byte, n)
		copy(chunk, p.buf[:n])
		p.consume(int(n))
		p.remaining -= n
		return StreamingAttributeBytes{Data: chunk}, nil
	}
	return nil, protocolErr(nil, "invalid parser mode")
}

func (p *ResponseParser) nextResponse() (ResponseEvent, error) {
	r := NewReader(p.buf)
	b, err := r.PeekByte()
	if err != nil {
		return nil, err
	}
	switch {
	case b == '+':
		r.Consume(1)
		text := ""
		if err := r.ReadSP(); err == nil {
			text, err = r.readAtomWhile(IsTextChar)
			if err != nil && err != ErrMismatch {
				return nil, p.checkLimit(err)
			}
		} else if err != ErrMismatch {
			return nil, p.checkLimit(err)
		}
		if err := r.ReadCRLF(); err != nil {
			return nil, p.checkLimit(commitErr(r, err, "malformed continuation request"))
		}
		p.consume(r.Pos())
		return ContinuationReceived{Text: text}, nil

	case b == '*':
		r.Consume(1)
		if err := r.ReadSP(); err != nil {
			return nil, p.checkLimit(commitErr(r, err, "expected response"))
		}
		data, isFetch, err := parseUntagged(r)
		if err != nil {
			return nil, p.checkLimit(err)
		}
		p.consume(r.Pos())
		if isFetch {
			p.mode = modeAttrsHead
		} else {
			p.pending = append(p.pending, ResponseEnd{})
		}
		return ResponseBegin{Data: data}, nil

	default:
		tag, err := r.ReadTag()
		if err != nil {
			return nil, p.checkLimit(commitErr(r, err, "expected tagged response"))
		}
		done, err := parseTagged(r, tag)
		if err != nil {
			return nil, p.checkLimit(err)
		}
		p.consume(r.Pos())
		return ResponseEnd{Done: done}, nil
	}
}

func (p *ResponseParser) nextAttribute() (ResponseEvent, error) {
	r := NewReader(p.buf)
	attr, stream, err := parseFetchAttr(r, p.maxDepth)
	if err != nil {
		return nil, p.checkLimit(err)
	}
	p.consume(r.Pos())
	if stream == nil {
		p.mode = modeAttrsSeparator
		return SimpleAttribute{Attr: attr}, nil
	}
	if stream.Inline != nil {
		// Quoted section data: the bytes are already in hand.
		p.mode = modeAttrsSeparator
		if stream.Size > 0 {
			p.pending = append(p.pending, StreamingAttributeBytes{Data: stream.Inline})
		}
		p.pending = append(p.pending, StreamingAttributeEnd{})
		return StreamingAttributeBegin{Attr: stream.Attr, Size: stream.Size}, nil
	}
	p.mode = modeAttrBytes
	p.remaining = stream.Size
	return StreamingAttributeBegin{Attr: stream.Attr, Size: stream.Size}, nil
}

// checkLimit upgrades ErrNeedMore to an ExcessiveCommandSize error when
// the unparsed head has outgrown the configured bound. A literal body in
// progress is exempt.
func (p *ResponseParser) checkLimit(err error) error {
	if err != ErrNeedMore {
		return err
	}
	p.scanner.Scan(p.buf)
	if p.scanner.InLiteralBody() {
		return err
	}
	if len(p.buf) > p.limit {
		return newProtocolError(ExcessiveCommandSize, p.buf,
			"unparsed data exceeds %d bytes", p.limit)
	}
	return err
}

// --- command events ---

// CommandEvent is one event emitted by the CommandDecoder.
type CommandEvent interface {
	commandEvent()
}

// CommandComplete carries a fully decoded command.
type CommandComplete struct {
	Command *imap.Command
}

// ContinuationRequest instructs the driver to send a continuation
// request line to the client.
type ContinuationRequest struct {
	Text string
}

// AppendStart opens an APPEND command.
type AppendStart struct {
	Tag     string
	Mailbox imap.MailboxName
}

// AppendMessageBegin announces one message of Size octets within an
// APPEND command.
type AppendMessageBegin struct {
	Options *imap.AppendOptions
	Size    int64
	// Binary is true when the message used the ~{n} literal form.
	Binary bool
}

// AppendMessageBytes carries one chunk of an APPEND message body.
// The slice is only valid until the next decoder call.
type AppendMessageBytes struct {
	Data []byte
}

// AppendMessageEnd closes one APPEND message.
type AppendMessageEnd struct{}

// AppendEnd closes the whole APPEND command.
type AppendEnd struct {
	Tag string
}

// IdleDone reports the DONE line that ends an IDLE command.
type IdleDone struct{}

func (CommandComplete) commandEvent()     {}
func (ContinuationRequest) commandEvent() {}
func (AppendStart) commandEvent()         {}
func (AppendMessageBegin) commandEvent()  {}
func (AppendMessageBytes) commandEvent()  {}
func (AppendMessageEnd) commandEvent()    {}
func (AppendEnd) commandEvent()           {}
func (IdleDone) commandEvent()            {}

type cmdState int

const (
	cmdStateLine cmdState = iota
	cmdStateAppendMessage
	cmdStateAppendBody
)

// CommandDecoderOptions configures a CommandDecoder.
type CommandDecoderOptions struct {
	// BufferLimit bounds unparsed non-literal head data; 0 means
	// DefaultBufferLimit.
	BufferLimit int
	// ContinuationText is the text of emitted continuation requests;
	// empty means DefaultContinuationText.
	ContinuationText string
}

// CommandDecoder is the streaming client-to-server decoder. It consults
// the synchronising-literal scanner before each parse and emits one
// ContinuationRequest per outstanding {n} literal, so the driver can
// prompt the client at the right byte offsets.
type CommandDecoder struct {
	buf     []byte
	scanner LiteralScanner
	emitted int

	state     cmdState
	idling    bool
	appendTag string
	remaining int64

	limit    int
	contText string
}

// NewCommandDecoder creates a decoder with default options.
func NewCommandDecoder() *CommandDecoder {
	return NewCommandDecoderOptions(CommandDecoderOptions{})
}

// NewCommandDecoderOptions creates a decoder with explicit options.
func NewCommandDecoderOptions(opts CommandDecoderOptions) *CommandDecoder {
	limit := opts.BufferLimit
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	text := opts.ContinuationText
	if text == "" {
		text = DefaultContinuationText
	}
	return &CommandDecoder{limit: limit, contText: text}
}

// Feed appends bytes received from the client.
func (d *CommandDecoder) Feed(data []byte) {
	d.buf = append(d.buf, data...)
}

// Buffered returns the number of unparsed bytes.
func (d *CommandDecoder) Buffered() int { return len(d.buf) }

func (d *CommandDecoder) consume(n int) {
	d.buf = d.buf[n:]
	d.scanner.Advance(n)
}

// Next decodes and returns the next command-stream event.
func (d *CommandDecoder) Next() (CommandEvent, error) {
	if d.state == cmdStateAppendBody {
		return d.nextAppendBody()
	}

	res := d.scanner.Scan(d.buf)
	if res.SynchronisingLiteralCount > d.emitted {
		d.emitted++
		return ContinuationRequest{Text: d.contText}, nil
	}

	switch d.state {
	case cmdStateLine:
		return d.nextLine(res)
	case cmdStateAppendMessage:
		return d.nextAppendMessage()
	}
	return nil, protocolErr(nil, "invalid decoder state")
}

func (d *CommandDecoder) nextLine(res ScanResult) (CommandEvent, error) {
	if d.idling {
		r := NewReader(d.buf[:res.MaximumValidBytes])
		atom, err := r.ReadAtom()
		if err != nil {
			return nil, d.checkLimit(err, res)
		}
		if !strings.EqualFold(atom, "DONE") {
			return nil, protocolErr(d.buf, "expected DONE to end IDLE")
		}
		if err := r.ReadCRLF(); err != nil {
			return nil, d.checkLimit(commitErr(r, err, "malformed DONE"), res)
		}
		d.consume(r.Pos())
		d.idling = false
		return IdleDone{}, nil
	}

	// The tag and command name always precede any literal, so they are
	// parsed against the full buffer: APPEND must be recognised before
	// its message bodies arrive.
	r := NewReader(d.buf)
	tag, err := r.ReadTag()
	if err != nil {
		return nil, d.checkLimit(commitErr(r, err, "expected command tag"), res)
	}
	if err := r.ReadSP(); err != nil {
		return nil, d.checkLimit(commitErr(r, err, "expected command name"), res)
	}
	name, err := r.ReadAtom()
	if err != nil {
		return nil, d.checkLimit(commitErr(r, err, "expected command name"), res)
	}
	upper := strings.ToUpper(name)

	if upper == "APPEND" {
		mbox, err := spMailbox(r)
		if err != nil {
			return nil, d.checkLimit(d.recoverSemantic(err), res)
		}
		d.consume(r.Pos())
		d.state = cmdStateAppendMessage
		d.appendTag = tag
		return AppendStart{Tag: tag, Mailbox: mbox}, nil
	}

	// Everything else parses within the scanner's validated prefix, so
	// every literal body the grammar touches is present in full.
	r = NewReader(d.buf[:res.MaximumValidBytes])
	if _, err := r.ReadTag(); err != nil {
		return nil, d.checkLimit(err, res)
	}
	if err := r.ReadSP(); err != nil {
		return nil, d.checkLimit(err, res)
	}
	if _, err := r.ReadAtom(); err != nil {
		return nil, d.checkLimit(err, res)
	}
	cmd, err := parseCommandBody(r, tag, upper)
	if err != nil {
		return nil, d.checkLimit(d.recoverSemantic(err), res)
	}
	d.consume(r.Pos())
	if _, ok := cmd.Data.(imap.IdleCommand); ok {
		d.idling = true
	}
	return CommandComplete{Command: cmd}, nil
}

// nextAppendMessage parses either the terminating CRLF of the APPEND
// command or the options and literal header of the next message.
func (d *CommandDecoder) nextAppendMessage() (CommandEvent, error) {
	r := NewReader(d.buf)

	if err := r.ReadCRLF(); err == nil {
		d.consume(r.Pos())
		d.state = cmdStateLine
		tag := d.appendTag
		d.appendTag = ""
		return AppendEnd{Tag: tag}, nil
	} else if err != ErrMismatch {
		return nil, err
	}

	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed APPEND")
	}
	opts := &imap.AppendOptions{}

	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '(' {
		flags, err := r.ReadFlagList()
		if err != nil {
			return nil, commitErr(r, err, "malformed flag list")
		}
		opts.Flags = flags
		opts.HasFlags = true
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "expected APPEND message")
		}
	}

	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '"' {
		t, err := r.ReadDateTime()
		if err != nil {
			return nil, commitErr(r, err, "expected internal date")
		}
		opts.InternalDate = t
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "expected APPEND message")
		}
	}

	info, err := r.ReadLiteralHeader()
	if err != nil {
		return nil, commitErr(r, err, "expected message literal")
	}
	opts.Binary = info.Binary
	d.consume(r.Pos())
	d.state = cmdStateAppendBody
	d.remaining = info.Size
	return AppendMessageBegin{Options: opts, Size: info.Size, Binary: info.Binary}, nil
}

func (d *CommandDecoder) nextAppendBody() (CommandEvent, error) {
	if d.remaining == 0 {
		d.state = cmdStateAppendMessage
		return AppendMessageEnd{}, nil
	}
	if len(d.buf) == 0 {
		return nil, ErrNeedMore
	}
	n := int64(len(d.buf))
	if n > d.remaining {
		n = d.remaining
	}
	chunk := make([]byte, n)
	copy(chunk, d.buf[:n])
	d.consume(int(n))
	d.remaining -= n
	return AppendMessageBytes{Data: chunk}, nil
}

// recoverSemantic discards the offending line for non-fatal semantic
// errors so the decoder can continue with the next command. Other
// errors pass through untouched.
func (d *CommandDecoder) recoverSemantic(err error) error {
	var serr *SemanticError
	if !errors.As(err, &serr) {
		return err
	}
	if i := bytes.IndexByte(d.buf, '\n'); i >= 0 {
		d.consume(i + 1)
	}
	return err
}

// checkLimit upgrades ErrNeedMore to an ExcessiveCommandSize error when
// the unparsed non-literal head exceeds the configured bound.
func (d *CommandDecoder) checkLimit(err error, res ScanResult) error {
	if err != ErrNeedMore {
		return err
	}
	if d.scanner.InLiteralBody() {
		return err
	}
	if len(d.buf)-res.MaximumValidBytes > d.limit {
		return newProtocolError(ExcessiveCommandSize, d.buf,
			"command line exceeds %d bytes", d.limit)
	}
	return err
}
