package wire

import (
	"strings"

	imap "github.com/meszmate/imap-codec"
)

// DefaultMaxBodyStructureDepth bounds body structure nesting so a
// malicious peer cannot exhaust the stack. ResponseParserOptions can
// lower or raise it per parser.
const DefaultMaxBodyStructureDepth = 1024

// parseEnvelope parses the ten positional envelope fields.
func parseEnvelope(r *Reader) (*imap.Envelope, error) {
	if err := r.ExpectByte('('); err != nil {
		return nil, commitErr(r, err, "expected envelope")
	}
	env := &imap.Envelope{}
	var err error
	if env.Date, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected envelope date")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed envelope")
	}
	if env.Subject, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected envelope subject")
	}
	addrFields := []*[]*imap.Address{
		&env.From, &env.Sender, &env.ReplyTo, &env.To, &env.Cc, &env.Bcc,
	}
	for _, field := range addrFields {
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "malformed envelope")
		}
		if *field, err = parseAddressList(r); err != nil {
			return nil, err
		}
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed envelope")
	}
	if env.InReplyTo, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected In-Reply-To")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed envelope")
	}
	if env.MessageID, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected Message-ID")
	}
	if err := r.ExpectByte(')'); err != nil {
		return nil, commitErr(r, err, "unclosed envelope")
	}
	return env, nil
}

// parseAddressList parses NIL or a parenthesised non-empty sequence of
// address 4-tuples. The tuples are juxtaposed without separators.
func parseAddressList(r *Reader) ([]*imap.Address, error) {
	if r.atNIL() {
		r.Consume(3)
		return nil, nil
	}
	if err := r.ExpectByte('('); err != nil {
		return nil, commitErr(r, err, "expected address list")
	}
	var addrs []*imap.Address
	for {
		b, err := r.PeekByte()
		if err != nil {
			return nil, err
		}
		if b == ')' {
			r.Consume(1)
			break
		}
		if b == ' ' {
			// Tolerated: some servers separate tuples with spaces.
			r.Consume(1)
			continue
		}
		addr, err := parseAddress(r)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, protocolErr(r.rest(), "empty address list")
	}
	return addrs, nil
}

func parseAddress(r *Reader) (*imap.Address, error) {
	if err := r.ExpectByte('('); err != nil {
		return nil, commitErr(r, err, "expected address")
	}
	addr := &imap.Address{}
	var err error
	if addr.Name, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected address name")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed address")
	}
	if addr.ADL, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected address route")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed address")
	}
	if addr.Mailbox, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected address mailbox")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed address")
	}
	if addr.Host, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected address host")
	}
	if err := r.ExpectByte(')'); err != nil {
		return nil, commitErr(r, err, "unclosed address")
	}
	return addr, nil
}

// parseBodyStructure parses a body or bodystructure value. A leading
// parenthesis followed by another parenthesis marks a multipart body;
// a parenthesis followed by a string marks a single part. Nesting past
// maxDepth is a grammar constraint violation.
func parseBodyStructure(r *Reader, depth, maxDepth int) (*imap.BodyStructure, error) {
	if depth > maxDepth {
		return nil, grammarErr(nil, "body structure nested deeper than %d", maxDepth)
	}
	if err := r.ExpectByte('('); err != nil {
		return nil, commitErr(r, err, "expected body structure")
	}
	b, err := r.PeekByte()
	if err != nil {
		return nil, err
	}
	if b == '(' {
		return parseMultipartBody(r, depth, maxDepth)
	}
	return parseSinglepartBody(r, depth, maxDepth)
}

func parseMultipartBody(r *Reader, depth, maxDepth int) (*imap.BodyStructure, error) {
	bs := &imap.BodyStructure{Type: "multipart"}
	for {
		child, err := parseBodyStructure(r, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		bs.Children = append(bs.Children, *child)
		b, err := r.PeekByte()
		if err != nil {
			return nil, err
		}
		if b != '(' {
			break
		}
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "expected multipart subtype")
	}
	subtype, err := r.ReadString()
	if err != nil {
		return nil, commitErr(r, err, "expected multipart subtype")
	}
	bs.Subtype = subtype

	// Optional extension data, consumed greedily until the close paren.
	if err := r.ReadSP(); err == nil {
		if bs.Params, err = parseBodyParams(r); err != nil {
			return nil, err
		}
		if err := parseBodyExtDsp(r, bs); err != nil {
			return nil, err
		}
	} else if err != ErrMismatch {
		return nil, err
	}
	if err := r.ExpectByte(')'); err != nil {
		return nil, commitErr(r, err, "unclosed body structure")
	}
	return bs, nil
}

func parseSinglepartBody(r *Reader, depth, maxDepth int) (*imap.BodyStructure, error) {
	bs := &imap.BodyStructure{}
	var err error
	var ok bool
	if bs.Type, ok, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected body type")
	} else if !ok {
		return nil, protocolErr(r.rest(), "NIL body type")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed body structure")
	}
	if bs.Subtype, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected body subtype")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed body structure")
	}
	if bs.Params, err = parseBodyParams(r); err != nil {
		return nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed body structure")
	}
	if bs.ID, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected Content-ID")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed body structure")
	}
	if bs.Description, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected Content-Description")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed body structure")
	}
	if bs.Encoding, _, err = r.ReadNString(); err != nil {
		return nil, commitErr(r, err, "expected Content-Transfer-Encoding")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "malformed body structure")
	}
	if bs.Size, err = r.ReadNumber(); err != nil {
		return nil, commitErr(r, err, "expected body size")
	}

	isMessage := strings.EqualFold(bs.Type, "message") && strings.EqualFold(bs.Subtype, "rfc822")
	isText := strings.EqualFold(bs.Type, "text")
	if isMessage {
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "malformed message body")
		}
		if bs.Envelope, err = parseEnvelope(r); err != nil {
			return nil, err
		}
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "malformed message body")
		}
		if bs.BodyStructure, err = parseBodyStructure(r, depth+1, maxDepth); err != nil {
			return nil, err
		}
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "malformed message body")
		}
		if bs.Lines, err = r.ReadNumber(); err != nil {
			return nil, commitErr(r, err, "expected line count")
		}
	} else if isText {
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "malformed text body")
		}
		if bs.Lines, err = r.ReadNumber(); err != nil {
			return nil, commitErr(r, err, "expected line count")
		}
	}

	// Optional extension data: md5, then disposition and friends.
	if err := r.ReadSP(); err == nil {
		if bs.MD5, _, err = r.ReadNString(); err != nil {
			return nil, commitErr(r, err, "expected body MD5")
		}
		if err := parseBodyExtDsp(r, bs); err != nil {
			return nil, err
		}
	} else if err != ErrMismatch {
		return nil, err
	}
	if err := r.ExpectByte(')'); err != nil {
		return nil, commitErr(r, err, "unclosed body structure")
	}
	return bs, nil
}

// parseBodyExtDsp parses the optional disposition, language and location
// extension fields shared by both body forms.
func parseBodyExtDsp(r *Reader, bs *imap.BodyStructure) error {
	if err := r.ReadSP(); err != nil {
		if err == ErrMismatch {
			return nil
		}
		return err
	}
	// Disposition: NIL or (name params).
	if r.atNIL() {
		r.Consume(3)
	} else {
		if err := r.ExpectByte('('); err != nil {
			return commitErr(r, err, "expected body disposition")
		}
		name, err := r.ReadString()
		if err != nil {
			return commitErr(r, err, "expected disposition name")
		}
		bs.Disposition = name
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "malformed disposition")
		}
		if bs.DispositionParams, err = parseBodyParams(r); err != nil {
			return err
		}
		if err := r.ExpectByte(')'); err != nil {
			return commitErr(r, err, "unclosed disposition")
		}
	}

	if err := r.ReadSP(); err != nil {
		if err == ErrMismatch {
			return nil
		}
		return err
	}
	// Language: nstring or a parenthesised list of strings.
	if b, err := r.PeekByte(); err != nil {
		return err
	} else if b == '(' {
		err := r.ReadList(func() error {
			lang, err := r.ReadString()
			if err != nil {
				return err
			}
			bs.Language = append(bs.Language, lang)
			return nil
		})
		if err != nil {
			return commitErr(r, err, "malformed body language")
		}
	} else {
		lang, ok, err := r.ReadNString()
		if err != nil {
			return commitErr(r, err, "expected body language")
		}
		if ok {
			bs.Language = []string{lang}
		}
	}

	if err := r.ReadSP(); err != nil {
		if err == ErrMismatch {
			return nil
		}
		return err
	}
	loc, _, err := r.ReadNString()
	if err != nil {
		return commitErr(r, err, "expected body location")
	}
	bs.Location = loc
	return nil
}

// parseBodyParams parses NIL or a parenthesised list of key/value string
// pairs.
func parseBodyParams(r *Reader) (map[string]string, error) {
	if r.atNIL() {
		r.Consume(3)
		return nil, nil
	}
	params := make(map[string]string)
	var key string
	haveKey := false
	err := r.ReadList(func() error {
		s, err := r.ReadString()
		if err != nil {
			return err
		}
		if !haveKey {
			key, haveKey = s, true
		} else {
			params[key] = s
			haveKey = false
		}
		return nil
	})
	if err != nil {
		return nil, commitErr(r, err, "malformed body parameters")
	}
	if haveKey {
		return nil, protocolErr(r.rest(), "body parameter without value")
	}
	return params, nil
}

// fetchAttrStream describes a fetch attribute whose octet run is
// streamed rather than carried in the attribute value.
type fetchAttrStream struct {
	// Attr is the streaming descriptor (FetchAttrBodySection or
	// FetchAttrBinarySection).
	Attr imap.FetchAttr
	// Size is the total octet count.
	Size int64
	// Inline holds the bytes when the data arrived as a quoted string;
	// nil means the bytes follow in the buffer as a literal body.
	Inline []byte
}

// parseFetchAttr parses one message attribute within a FETCH response
// group. Section data items return a stream descriptor instead of a
// simple attribute. maxDepth bounds body structure nesting.
func parseFetchAttr(r *Reader, maxDepth int) (imap.FetchAttr, *fetchAttrStream, error) {
	name, err := r.readAtomWhile(func(b byte) bool {
		return IsAtomChar(b) && b != '['
	})
	if err != nil {
		return nil, nil, commitErr(r, err, "expected fetch attribute")
	}
	switch strings.ToUpper(name) {
	case "UID":
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected UID value")
		}
		n, err := r.ReadNumber()
		if err != nil {
			return nil, nil, commitErr(r, err, "expected UID value")
		}
		return imap.FetchAttrUID{UID: imap.UID(n)}, nil, nil
	case "FLAGS":
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected flag list")
		}
		flags, err := r.ReadFlagList()
		if err != nil {
			return nil, nil, commitErr(r, err, "malformed flag list")
		}
		return imap.FetchAttrFlags{Flags: flags}, nil, nil
	case "INTERNALDATE":
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected internal date")
		}
		t, err := r.ReadDateTime()
		if err != nil {
			return nil, nil, commitErr(r, err, "expected internal date")
		}
		return imap.FetchAttrInternalDate{Time: t}, nil, nil
	case "RFC822.SIZE":
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected size")
		}
		n, err := r.ReadNumber64()
		if err != nil {
			return nil, nil, commitErr(r, err, "expected size")
		}
		return imap.FetchAttrRFC822Size{Size: int64(n)}, nil, nil
	case "MODSEQ":
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected mod-sequence")
		}
		if err := r.ExpectByte('('); err != nil {
			return nil, nil, commitErr(r, err, "expected mod-sequence")
		}
		n, err := r.ReadModSeq()
		if err != nil {
			return nil, nil, commitErr(r, err, "expected mod-sequence")
		}
		if err := r.ExpectByte(')'); err != nil {
			return nil, nil, commitErr(r, err, "unclosed mod-sequence")
		}
		return imap.FetchAttrModSeq{ModSeq: n}, nil, nil
	case "ENVELOPE":
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected envelope")
		}
		env, err := parseEnvelope(r)
		if err != nil {
			return nil, nil, err
		}
		return imap.FetchAttrEnvelope{Envelope: env}, nil, nil
	case "BODYSTRUCTURE":
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected body structure")
		}
		bs, err := parseBodyStructure(r, 0, maxDepth)
		if err != nil {
			return nil, nil, err
		}
		return imap.FetchAttrBodyStructure{Structure: bs}, nil, nil
	case "BODY":
		if b, err := r.PeekByte(); err != nil {
			return nil, nil, err
		} else if b == '[' {
			return parseBodySectionAttr(r)
		}
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected body")
		}
		bs, err := parseBodyStructure(r, 0, maxDepth)
		if err != nil {
			return nil, nil, err
		}
		return imap.FetchAttrBody{Structure: bs}, nil, nil
	case "BINARY":
		return parseBinarySectionAttr(r)
	case "BINARY.SIZE":
		part, err := parseSectionPart(r)
		if err != nil {
			return nil, nil, err
		}
		if err := r.ReadSP(); err != nil {
			return nil, nil, commitErr(r, err, "expected size")
		}
		n, err := r.ReadNumber()
		if err != nil {
			return nil, nil, commitErr(r, err, "expected size")
		}
		return imap.FetchAttrBinarySize{Part: part, Size: n}, nil, nil
	}
	return nil, nil, protocolErr(r.rest(), "unknown fetch attribute %q", name)
}

func parseBodySectionAttr(r *Reader) (imap.FetchAttr, *fetchAttrStream, error) {
	section, err := parseBodySection(r, false)
	if err != nil {
		return nil, nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, nil, commitErr(r, err, "expected section data")
	}
	attr := imap.FetchAttrBodySection{Section: section}
	return parseSectionData(r, func(size int64, nilData bool) imap.FetchAttr {
		attr.Size = size
		attr.NIL = nilData
		return attr
	})
}

func parseBinarySectionAttr(r *Reader) (imap.FetchAttr, *fetchAttrStream, error) {
	section, err := parseBinarySection(r, false)
	if err != nil {
		return nil, nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, nil, commitErr(r, err, "expected section data")
	}
	attr := imap.FetchAttrBinarySection{Section: section}
	return parseSectionData(r, func(size int64, nilData bool) imap.FetchAttr {
		attr.Size = size
		attr.NIL = nilData
		return attr
	})
}

// parseSectionData parses the nstring data of a section attribute. A
// literal header yields a stream whose body follows in the buffer; a
// quoted string yields an inline stream; NIL yields a simple attribute.
func parseSectionData(r *Reader, build func(size int64, nilData bool) imap.FetchAttr) (imap.FetchAttr, *fetchAttrStream, error) {
	if r.atNIL() {
		r.Consume(3)
		return build(0, true), nil, nil
	}
	b, err := r.PeekByte()
	if err != nil {
		return nil, nil, err
	}
	switch b {
	case '"':
		s, err := r.ReadQuoted()
		if err != nil {
			return nil, nil, commitErr(r, err, "expected section data")
		}
		return nil, &fetchAttrStream{
			Attr:   build(int64(len(s)), false),
			Size:   int64(len(s)),
			Inline: []byte(s),
		}, nil
	case '{', '~':
		info, err := r.ReadLiteralHeader()
		if err != nil {
			return nil, nil, commitErr(r, err, "expected section data")
		}
		return nil, &fetchAttrStream{
			Attr: build(info.Size, false),
			Size: info.Size,
		}, nil
	}
	return nil, nil, protocolErr(r.rest(), "expected section data")
}
