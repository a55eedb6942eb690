package wire

import (
	"errors"
	"testing"

	imap "github.com/meszmate/imap-codec"
)

// nextCommand drains continuation requests and returns the first other
// event.
func nextCommand(t *testing.T, d *CommandDecoder) CommandEvent {
	t.Helper()
	for {
		ev, err := d.Next()
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if _, ok := ev.(ContinuationRequest); ok {
			continue
		}
		return ev
	}
}

func TestCommandDecoder_Login(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a1 LOGIN \"user\" \"pass\"\r\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatal(err)
	}
	cc, ok := ev.(CommandComplete)
	if !ok {
		t.Fatalf("event = %T, want CommandComplete", ev)
	}
	if cc.Command.Tag != "a1" {
		t.Errorf("tag = %q", cc.Command.Tag)
	}
	login, ok := cc.Command.Data.(imap.LoginCommand)
	if !ok {
		t.Fatalf("data = %T, want LoginCommand", cc.Command.Data)
	}
	if login.Username != "user" || login.Password != "pass" {
		t.Errorf("login = %+v", login)
	}
	if d.Buffered() != 0 {
		t.Errorf("buffered = %d bytes after full parse", d.Buffered())
	}
}

// Synchronising literal handshake: one continuation request per {n}
// literal, interleaved with NeedMore until the bytes arrive.
func TestCommandDecoder_SyncLiteralHandshake(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a2 LOGIN {4}\r\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ev.(ContinuationRequest); !ok {
		t.Fatalf("first event = %T, want ContinuationRequest", ev)
	}

	if _, err := d.Next(); err != ErrNeedMore {
		t.Fatalf("after continuation: err = %v, want ErrNeedMore", err)
	}

	d.Feed([]byte("user {4}\r\npass\r\n"))

	ev, err = d.Next()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ev.(ContinuationRequest); !ok {
		t.Fatalf("event = %T, want second ContinuationRequest", ev)
	}

	ev, err = d.Next()
	if err != nil {
		t.Fatal(err)
	}
	cc, ok := ev.(CommandComplete)
	if !ok {
		t.Fatalf("event = %T, want CommandComplete", ev)
	}
	login := cc.Command.Data.(imap.LoginCommand)
	if cc.Command.Tag != "a2" || login.Username != "user" || login.Password != "pass" {
		t.Errorf("command = %+v %+v", cc.Command, login)
	}
}

// Non-synchronising literals require no continuation requests.
func TestCommandDecoder_NonSyncLiteral(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a3 LOGIN {4+}\r\nuser {4+}\r\npass\r\n"))

	ev, err := d.Next()
	if err != nil {
		t.Fatal(err)
	}
	cc, ok := ev.(CommandComplete)
	if !ok {
		t.Fatalf("event = %T, want CommandComplete (no continuations)", ev)
	}
	login := cc.Command.Data.(imap.LoginCommand)
	if cc.Command.Tag != "a3" || login.Username != "user" || login.Password != "pass" {
		t.Errorf("command = %+v %+v", cc.Command, login)
	}
}

func TestCommandDecoder_Pipelined(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a1 NOOP\r\na2 CAPABILITY\r\n"))

	ev := nextCommand(t, d)
	if cc := ev.(CommandComplete); cc.Command.Data.Name() != "NOOP" {
		t.Errorf("first = %s", cc.Command.Data.Name())
	}
	ev = nextCommand(t, d)
	if cc := ev.(CommandComplete); cc.Command.Data.Name() != "CAPABILITY" {
		t.Errorf("second = %s", cc.Command.Data.Name())
	}
	if _, err := d.Next(); err != ErrNeedMore {
		t.Errorf("drained decoder: %v", err)
	}
}

func TestCommandDecoder_AppendStream(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a4 APPEND saved (\\Seen) {5+}\r\nhel"))

	ev := nextCommand(t, d)
	start, ok := ev.(AppendStart)
	if !ok {
		t.Fatalf("event = %T, want AppendStart", ev)
	}
	if start.Tag != "a4" || start.Mailbox != "saved" {
		t.Errorf("start = %+v", start)
	}

	ev = nextCommand(t, d)
	begin, ok := ev.(AppendMessageBegin)
	if !ok {
		t.Fatalf("event = %T, want AppendMessageBegin", ev)
	}
	if begin.Size != 5 || begin.Binary {
		t.Errorf("begin = %+v", begin)
	}
	if len(begin.Options.Flags) != 1 || begin.Options.Flags[0] != imap.FlagSeen {
		t.Errorf("options = %+v", begin.Options)
	}

	// Partial body streams immediately.
	ev = nextCommand(t, d)
	chunk, ok := ev.(AppendMessageBytes)
	if !ok {
		t.Fatalf("event = %T, want AppendMessageBytes", ev)
	}
	if string(chunk.Data) != "hel" {
		t.Errorf("chunk = %q", chunk.Data)
	}

	d.Feed([]byte("lo\r\n"))
	ev = nextCommand(t, d)
	if chunk := ev.(AppendMessageBytes); string(chunk.Data) != "lo" {
		t.Errorf("chunk = %q", chunk.Data)
	}
	ev = nextCommand(t, d)
	if _, ok := ev.(AppendMessageEnd); !ok {
		t.Fatalf("event = %T, want AppendMessageEnd", ev)
	}
	ev = nextCommand(t, d)
	end, ok := ev.(AppendEnd)
	if !ok {
		t.Fatalf("event = %T, want AppendEnd", ev)
	}
	if end.Tag != "a4" {
		t.Errorf("end tag = %q", end.Tag)
	}
}

func TestCommandDecoder_MultiAppend(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a5 APPEND m {1+}\r\nA {1+}\r\nB\r\n"))

	if _, ok := nextCommand(t, d).(AppendStart); !ok {
		t.Fatal("want AppendStart")
	}
	for msg := 0; msg < 2; msg++ {
		if _, ok := nextCommand(t, d).(AppendMessageBegin); !ok {
			t.Fatalf("message %d: want AppendMessageBegin", msg)
		}
		if _, ok := nextCommand(t, d).(AppendMessageBytes); !ok {
			t.Fatalf("message %d: want AppendMessageBytes", msg)
		}
		if _, ok := nextCommand(t, d).(AppendMessageEnd); !ok {
			t.Fatalf("message %d: want AppendMessageEnd", msg)
		}
	}
	if _, ok := nextCommand(t, d).(AppendEnd); !ok {
		t.Fatal("want AppendEnd")
	}
}

func TestCommandDecoder_IdleDone(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a6 IDLE\r\nDONE\r\n"))

	ev := nextCommand(t, d)
	if cc := ev.(CommandComplete); cc.Command.Data.Name() != "IDLE" {
		t.Fatalf("first = %s", cc.Command.Data.Name())
	}
	ev = nextCommand(t, d)
	if _, ok := ev.(IdleDone); !ok {
		t.Fatalf("event = %T, want IdleDone", ev)
	}
}

func TestCommandDecoder_UnknownCommand(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a7 FROBNICATE\r\n"))
	_, err := d.Next()
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want ProtocolError", err)
	}
}

func TestCommandDecoder_ExcessiveLine(t *testing.T) {
	d := NewCommandDecoderOptions(CommandDecoderOptions{BufferLimit: 32})
	line := make([]byte, 64)
	for i := range line {
		line[i] = 'x'
	}
	d.Feed(line)
	_, err := d.Next()
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Kind != ExcessiveCommandSize {
		t.Fatalf("error = %v, want ExcessiveCommandSize", err)
	}
}

// Literal bodies are exempt from the lookahead bound.
func TestCommandDecoder_LiteralBodyExempt(t *testing.T) {
	d := NewCommandDecoderOptions(CommandDecoderOptions{BufferLimit: 32})
	d.Feed([]byte("a8 LOGIN {100+}\r\n"))
	body := make([]byte, 60)
	for i := range body {
		body[i] = 'y'
	}
	d.Feed(body)
	if _, err := d.Next(); err != ErrNeedMore {
		t.Fatalf("error = %v, want ErrNeedMore (literal bodies stream)", err)
	}
}

// An empty mailbox name is well formed on the wire but semantically
// void: the decoder reports it without killing the connection and
// resynchronises on the next line.
func TestCommandDecoder_EmptyMailboxSemanticError(t *testing.T) {
	d := NewCommandDecoder()
	d.Feed([]byte("a1 SELECT \"\"\r\na2 NOOP\r\n"))

	_, err := d.Next()
	var serr *SemanticError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *SemanticError", err)
	}
	if IsFatal(err) {
		t.Error("IsFatal(SemanticError) = true, want false")
	}

	ev := nextCommand(t, d)
	cc, ok := ev.(CommandComplete)
	if !ok {
		t.Fatalf("event after recovery = %T, want CommandComplete", ev)
	}
	if cc.Command.Tag != "a2" || cc.Command.Data.Name() != "NOOP" {
		t.Errorf("recovered command = %s %s", cc.Command.Tag, cc.Command.Data.Name())
	}
}

// ---------- response parser ----------

func nextResponse(t *testing.T, p *ResponseParser) ResponseEvent {
	t.Helper()
	ev, err := p.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	return ev
}

func TestResponseParser_GreetingAndTagged(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK IMAP4rev1 Service Ready\r\na1 OK LOGIN completed\r\n"))

	ev := nextResponse(t, p)
	g, ok := ev.(GreetingEvent)
	if !ok {
		t.Fatalf("event = %T, want GreetingEvent", ev)
	}
	if g.Greeting.Status.Type != imap.StatusResponseTypeOK {
		t.Errorf("greeting type = %s", g.Greeting.Status.Type)
	}
	if g.Greeting.Status.Text != "IMAP4rev1 Service Ready" {
		t.Errorf("greeting text = %q", g.Greeting.Status.Text)
	}

	ev = nextResponse(t, p)
	end, ok := ev.(ResponseEnd)
	if !ok {
		t.Fatalf("event = %T, want ResponseEnd", ev)
	}
	if end.Done == nil || end.Done.Tag != "a1" {
		t.Fatalf("done = %+v", end.Done)
	}
	if end.Done.Status.Type != imap.StatusResponseTypeOK || end.Done.Status.Text != "LOGIN completed" {
		t.Errorf("status = %+v", end.Done.Status)
	}
}

func TestResponseParser_UntaggedGroup(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK ready\r\n* 3 EXISTS\r\n"))

	nextResponse(t, p) // greeting

	ev := nextResponse(t, p)
	begin, ok := ev.(ResponseBegin)
	if !ok {
		t.Fatalf("event = %T, want ResponseBegin", ev)
	}
	if exists := begin.Data.(imap.ExistsData); exists.Count != 3 {
		t.Errorf("exists = %+v", exists)
	}
	ev = nextResponse(t, p)
	if end := ev.(ResponseEnd); end.Done != nil {
		t.Errorf("group end must not carry a tagged status")
	}
}

// Streamed FETCH body, the spec's core scenario.
func TestResponseParser_FetchStream(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK hi\r\n* 1 FETCH (UID 42 BODY[TEXT] {11}\r\nHello world)\r\n"))

	nextResponse(t, p) // greeting

	ev := nextResponse(t, p)
	begin := ev.(ResponseBegin)
	if fetch := begin.Data.(imap.FetchData); fetch.SeqNum != 1 {
		t.Fatalf("fetch = %+v", fetch)
	}

	if _, ok := nextResponse(t, p).(AttributesStart); !ok {
		t.Fatal("want AttributesStart")
	}

	ev = nextResponse(t, p)
	simple := ev.(SimpleAttribute)
	if uid := simple.Attr.(imap.FetchAttrUID); uid.UID != 42 {
		t.Fatalf("uid = %+v", uid)
	}

	ev = nextResponse(t, p)
	sb := ev.(StreamingAttributeBegin)
	if sb.Size != 11 {
		t.Fatalf("stream size = %d", sb.Size)
	}
	section := sb.Attr.(imap.FetchAttrBodySection)
	if section.Section.Specifier != "TEXT" {
		t.Errorf("specifier = %q", section.Section.Specifier)
	}

	ev = nextResponse(t, p)
	if chunk := ev.(StreamingAttributeBytes); string(chunk.Data) != "Hello world" {
		t.Fatalf("chunk = %q", chunk.Data)
	}
	if _, ok := nextResponse(t, p).(StreamingAttributeEnd); !ok {
		t.Fatal("want StreamingAttributeEnd")
	}
	if _, ok := nextResponse(t, p).(AttributesFinish); !ok {
		t.Fatal("want AttributesFinish")
	}
	if end := nextResponse(t, p).(ResponseEnd); end.Done != nil {
		t.Error("fetch group end must not be tagged")
	}
}

// The streamed body arrives across arbitrary buffer top-ups.
func TestResponseParser_FetchStreamSplit(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* PREAUTH hi\r\n"))
	nextResponse(t, p)

	p.Feed([]byte("* 2 FETCH (BODY[] {10}\r\nabc"))
	if _, ok := nextResponse(t, p).(ResponseBegin); !ok {
		t.Fatal("want ResponseBegin")
	}
	if _, ok := nextResponse(t, p).(AttributesStart); !ok {
		t.Fatal("want AttributesStart")
	}
	sb := nextResponse(t, p).(StreamingAttributeBegin)
	if sb.Size != 10 {
		t.Fatalf("size = %d", sb.Size)
	}
	chunk := nextResponse(t, p).(StreamingAttributeBytes)
	if string(chunk.Data) != "abc" {
		t.Fatalf("chunk = %q", chunk.Data)
	}
	if _, err := p.Next(); err != ErrNeedMore {
		t.Fatalf("mid-body: %v", err)
	}

	p.Feed([]byte("defghij)\r\n"))
	chunk = nextResponse(t, p).(StreamingAttributeBytes)
	if string(chunk.Data) != "defghij" {
		t.Fatalf("chunk = %q", chunk.Data)
	}
	if _, ok := nextResponse(t, p).(StreamingAttributeEnd); !ok {
		t.Fatal("want StreamingAttributeEnd")
	}
	if _, ok := nextResponse(t, p).(AttributesFinish); !ok {
		t.Fatal("want AttributesFinish")
	}
	if _, ok := nextResponse(t, p).(ResponseEnd); !ok {
		t.Fatal("want ResponseEnd")
	}
}

// Event pairing: StreamingAttributeBegin and End counts match within a
// group, and Begin/End bracket every group.
func TestResponseParser_EventPairing(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK hi\r\n" +
		"* 1 FETCH (BODY[1] {2}\r\nAB UID 7 BODY[2] {0}\r\n)\r\n" +
		"a1 OK done\r\n"))

	begins, ends := 0, 0
	groupOpen := false
	for {
		ev, err := p.Next()
		if err == ErrNeedMore {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		switch ev.(type) {
		case ResponseBegin:
			if groupOpen {
				t.Fatal("nested response group")
			}
			groupOpen = true
		case ResponseEnd:
			groupOpen = false
		case StreamingAttributeBegin:
			begins++
		case StreamingAttributeEnd:
			ends++
		}
	}
	if begins != 2 || ends != 2 {
		t.Errorf("begin/end = %d/%d, want 2/2", begins, ends)
	}
	if groupOpen {
		t.Error("unclosed response group")
	}
}

func TestResponseParser_NeedMoreLeavesStateUnchanged(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK hi\r\n* 1 FET"))
	nextResponse(t, p)

	for i := 0; i < 3; i++ {
		if _, err := p.Next(); err != ErrNeedMore {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	p.Feed([]byte("CH (UID 9)\r\n"))
	if _, ok := nextResponse(t, p).(ResponseBegin); !ok {
		t.Fatal("want ResponseBegin after top-up")
	}
}

func TestResponseParser_ContinuationLine(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK hi\r\n+ send literal\r\n"))
	nextResponse(t, p)
	ev := nextResponse(t, p)
	cont, ok := ev.(ContinuationReceived)
	if !ok {
		t.Fatalf("event = %T, want ContinuationReceived", ev)
	}
	if cont.Text != "send literal" {
		t.Errorf("text = %q", cont.Text)
	}
}

func TestResponseParser_ESearch(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK hi\r\n* ESEARCH (TAG \"A1\") UID MIN 2 MAX 47 COUNT 25\r\n"))
	nextResponse(t, p)

	begin := nextResponse(t, p).(ResponseBegin)
	data := begin.Data.(imap.SearchData)
	if data.Tag != "A1" || !data.UID {
		t.Errorf("correlator = %+v", data)
	}
	if !data.HasMin || data.Min != 2 || !data.HasMax || data.Max != 47 || !data.HasCount || data.Count != 25 {
		t.Errorf("data = %+v", data)
	}
}

func TestResponseParser_Vanished(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK hi\r\n* VANISHED (EARLIER) 41,43:116\r\n"))
	nextResponse(t, p)

	begin := nextResponse(t, p).(ResponseBegin)
	data := begin.Data.(imap.VanishedData)
	if !data.Earlier || data.UIDs.String() != "41,43:116" {
		t.Errorf("vanished = %+v", data)
	}
}

// Body structure nesting past the configured bound is a fatal grammar
// constraint violation, not a stack overflow.
func TestResponseParser_BodyStructureDepthLimit(t *testing.T) {
	p := NewResponseParserOptions(ResponseParserOptions{MaxBodyStructureDepth: 4})
	p.Feed([]byte("* OK hi\r\n"))
	nextResponse(t, p)

	p.Feed([]byte("* 1 FETCH (BODYSTRUCTURE ((((((("))
	if _, ok := nextResponse(t, p).(ResponseBegin); !ok {
		t.Fatal("want ResponseBegin")
	}
	if _, ok := nextResponse(t, p).(AttributesStart); !ok {
		t.Fatal("want AttributesStart")
	}
	_, err := p.Next()
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Kind != GrammarConstraintViolation {
		t.Fatalf("error = %v, want GrammarConstraintViolation", err)
	}
}

func TestResponseParser_Status(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("* OK hi\r\n* STATUS blurdybloop (MESSAGES 231 UIDNEXT 44292 SIZE 1024)\r\n"))
	nextResponse(t, p)

	begin := nextResponse(t, p).(ResponseBegin)
	data := begin.Data.(imap.StatusData)
	if data.Mailbox != "blurdybloop" {
		t.Errorf("mailbox = %q", data.Mailbox)
	}
	if data.NumMessages == nil || *data.NumMessages != 231 {
		t.Error("MESSAGES missing")
	}
	if data.UIDNext == nil || *data.UIDNext != 44292 {
		t.Error("UIDNEXT missing")
	}
	if data.Size == nil || *data.Size != 1024 {
		t.Error("SIZE missing")
	}
	if data.NumUnseen != nil {
		t.Error("UNSEEN must be absent")
	}
}
