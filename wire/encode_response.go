package wire

import (
	"fmt"
	"sort"

	imap "github.com/meszmate/imap-codec"
)

// EncodeGreeting serialises the session-opening greeting.
func (e *Encoder) EncodeGreeting(g *imap.Greeting) error {
	e.Star()
	e.encodeStatus(g.Status)
	e.CRLF()
	return nil
}

// EncodeContinuationRequest serialises a continuation request line.
func (e *Encoder) EncodeContinuationRequest(text string) error {
	e.Plus()
	if text != "" {
		e.SP().Atom(text)
	}
	e.CRLF()
	return nil
}

// EncodeResponseDone serialises a tagged completion.
func (e *Encoder) EncodeResponseDone(done *imap.ResponseDone) error {
	e.Tag(done.Tag).SP()
	e.encodeStatus(done.Status)
	e.CRLF()
	return nil
}

// encodeStatus writes the condition, the optional bracketed code and the
// text of a status response.
func (e *Encoder) encodeStatus(s *imap.StatusResponse) {
	e.Atom(string(s.Type))
	if s.Code != "" {
		e.SP().Atom("[").Atom(string(s.Code))
		if s.CodeArg != "" {
			e.SP().Atom(s.CodeArg)
		}
		e.Atom("]")
	}
	if s.Text != "" {
		e.SP().Atom(s.Text)
	}
}

// FetchAttrValue pairs a FETCH attribute with its section bytes. Data is
// only consulted for section attributes, whose octet runs follow their
// literal header.
type FetchAttrValue struct {
	Attr imap.FetchAttr
	Data []byte
}

// EncodeFetch serialises a complete FETCH response group with the given
// attributes.
func (e *Encoder) EncodeFetch(seqNum uint32, attrs []FetchAttrValue) error {
	e.Star().Number(seqNum).SP().Atom("FETCH").SP().BeginList()
	for i, av := range attrs {
		if i > 0 {
			e.SP()
		}
		if err := e.encodeFetchAttr(av); err != nil {
			return err
		}
	}
	e.EndList().CRLF()
	return nil
}

func (e *Encoder) encodeFetchAttr(av FetchAttrValue) error {
	switch a := av.Attr.(type) {
	case imap.FetchAttrUID:
		e.Atom("UID").SP().Number(uint32(a.UID))
	case imap.FetchAttrFlags:
		e.Atom("FLAGS").SP().Flags(a.Flags)
	case imap.FetchAttrInternalDate:
		e.Atom("INTERNALDATE").SP().DateTime(a.Time)
	case imap.FetchAttrRFC822Size:
		e.Atom("RFC822.SIZE").SP().Number64(uint64(a.Size))
	case imap.FetchAttrModSeq:
		e.Atom("MODSEQ").SP().BeginList().Number64(a.ModSeq).EndList()
	case imap.FetchAttrEnvelope:
		e.Atom("ENVELOPE").SP()
		e.encodeEnvelope(a.Envelope)
	case imap.FetchAttrBody:
		e.Atom("BODY").SP()
		e.encodeBodyStructure(a.Structure, false)
	case imap.FetchAttrBodyStructure:
		e.Atom("BODYSTRUCTURE").SP()
		e.encodeBodyStructure(a.Structure, true)
	case imap.FetchAttrBinarySize:
		e.Atom("BINARY.SIZE")
		e.encodeSectionPart(a.Part)
		e.SP().Number(a.Size)
	case imap.FetchAttrBodySection:
		e.encodeSectionSpecNamed(a.Section)
		e.SP()
		if a.NIL {
			e.Nil()
		} else {
			e.LiteralHeader(int64(len(av.Data)), false, false)
			e.Raw(av.Data)
		}
	case imap.FetchAttrBinarySection:
		e.Atom("BINARY")
		e.encodeSectionPart(a.Section.Part)
		e.SP()
		if a.NIL {
			e.Nil()
		} else {
			e.LiteralHeader(int64(len(av.Data)), true, false)
			e.Raw(av.Data)
		}
	default:
		return fmt.Errorf("imap: cannot encode fetch attribute %T", av.Attr)
	}
	return nil
}

// encodeSectionSpecNamed writes BODY[...] for a response attribute;
// responses never carry the .PEEK suffix.
func (e *Encoder) encodeSectionSpecNamed(s *imap.FetchItemBodySection) {
	e.Atom("BODY")
	plain := *s
	plain.Peek = false
	plain.Partial = nil
	e.encodeSectionSpec(&plain)
	if s.Partial != nil {
		e.Atom("<").Number64(uint64(s.Partial.Offset)).Atom(">")
	}
}

// encodeEnvelope writes the ten positional envelope fields.
func (e *Encoder) encodeEnvelope(env *imap.Envelope) {
	e.BeginList()
	e.envString(env.Date).SP()
	e.envString(env.Subject).SP()
	e.encodeAddressList(env.From).SP()
	e.encodeAddressList(env.Sender).SP()
	e.encodeAddressList(env.ReplyTo).SP()
	e.encodeAddressList(env.To).SP()
	e.encodeAddressList(env.Cc).SP()
	e.encodeAddressList(env.Bcc).SP()
	e.envString(env.InReplyTo).SP()
	e.envString(env.MessageID)
	e.EndList()
}

// envString writes an envelope string field, NIL when empty.
func (e *Encoder) envString(s string) *Encoder {
	if s == "" {
		return e.Nil()
	}
	return e.String(s)
}

func (e *Encoder) encodeAddressList(addrs []*imap.Address) *Encoder {
	if len(addrs) == 0 {
		return e.Nil()
	}
	e.BeginList()
	for _, a := range addrs {
		e.BeginList()
		e.envString(a.Name).SP()
		e.envString(a.ADL).SP()
		e.envString(a.Mailbox).SP()
		e.envString(a.Host)
		e.EndList()
	}
	return e.EndList()
}

// encodeBodyStructure writes a body or bodystructure value. Extension
// fields are emitted only in the extensible form and only when present.
func (e *Encoder) encodeBodyStructure(bs *imap.BodyStructure, extended bool) {
	e.BeginList()
	if bs.IsMultipart() {
		for i := range bs.Children {
			e.encodeBodyStructure(&bs.Children[i], extended)
		}
		e.SP().String(bs.Subtype)
		if extended && (bs.Params != nil || bs.Disposition != "" || bs.Language != nil || bs.Location != "") {
			e.SP()
			e.encodeBodyParams(bs.Params)
			e.encodeBodyExt(bs)
		}
	} else {
		e.String(bs.Type).SP().String(bs.Subtype).SP()
		e.encodeBodyParams(bs.Params)
		e.SP().envString(bs.ID).SP().envString(bs.Description).SP()
		e.envString(bs.Encoding).SP().Number(bs.Size)
		if bs.Envelope != nil && bs.BodyStructure != nil {
			e.SP()
			e.encodeEnvelope(bs.Envelope)
			e.SP()
			e.encodeBodyStructure(bs.BodyStructure, extended)
			e.SP().Number(bs.Lines)
		} else if bs.Lines > 0 {
			e.SP().Number(bs.Lines)
		}
		if extended && (bs.MD5 != "" || bs.Disposition != "" || bs.Language != nil || bs.Location != "") {
			e.SP().envString(bs.MD5)
			e.encodeBodyExt(bs)
		}
	}
	e.EndList()
}

// encodeBodyExt writes the shared disposition, language and location
// tail, stopping at the last populated field.
func (e *Encoder) encodeBodyExt(bs *imap.BodyStructure) {
	if bs.Disposition == "" && bs.Language == nil && bs.Location == "" {
		return
	}
	e.SP()
	if bs.Disposition == "" {
		e.Nil()
	} else {
		e.BeginList().String(bs.Disposition).SP()
		e.encodeBodyParams(bs.DispositionParams)
		e.EndList()
	}
	if bs.Language == nil && bs.Location == "" {
		return
	}
	e.SP()
	switch len(bs.Language) {
	case 0:
		e.Nil()
	case 1:
		e.String(bs.Language[0])
	default:
		e.BeginList()
		for i, lang := range bs.Language {
			if i > 0 {
				e.SP()
			}
			e.String(lang)
		}
		e.EndList()
	}
	if bs.Location == "" {
		return
	}
	e.SP().String(bs.Location)
}

func (e *Encoder) encodeBodyParams(params map[string]string) {
	if len(params) == 0 {
		e.Nil()
		return
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.BeginList()
	for i, k := range keys {
		if i > 0 {
			e.SP()
		}
		e.String(k).SP().String(params[k])
	}
	e.EndList()
}

// EncodeResponseData serialises one non-FETCH untagged response. FETCH
// groups carry streamed attributes and use EncodeFetch instead.
func (e *Encoder) EncodeResponseData(data imap.ResponseData) error {
	e.Star()
	switch d := data.(type) {
	case imap.UntaggedStatus:
		e.encodeStatus(d.Status)
	case imap.CapabilityData:
		e.Atom("CAPABILITY")
		for _, c := range d.Caps {
			e.SP().Atom(string(c))
		}
	case imap.EnabledData:
		e.Atom("ENABLED")
		for _, c := range d.Caps {
			e.SP().Atom(string(c))
		}
	case imap.FlagsData:
		e.Atom("FLAGS").SP().Flags(d.Flags)
	case imap.ExistsData:
		e.Number(d.Count).SP().Atom("EXISTS")
	case imap.RecentData:
		e.Number(d.Count).SP().Atom("RECENT")
	case imap.ExpungeData:
		e.Number(d.SeqNum).SP().Atom("EXPUNGE")
	case imap.VanishedData:
		e.Atom("VANISHED").SP()
		if d.Earlier {
			e.BeginList().Atom("EARLIER").EndList().SP()
		}
		e.NumSet(d.UIDs)
	case imap.ListData:
		e.encodeListData(d)
	case imap.StatusData:
		e.encodeStatusData(d)
	case imap.SearchData:
		e.encodeSearchData(d)
	case imap.SortData:
		e.Atom("SORT")
		for _, n := range d.Nums {
			e.SP().Number(n)
		}
	case imap.ThreadData:
		e.Atom("THREAD")
		if len(d.Threads) > 0 {
			e.SP()
			for i := range d.Threads {
				e.encodeThread(&d.Threads[i])
			}
		}
	case imap.NamespaceData:
		e.Atom("NAMESPACE").SP()
		e.encodeNamespaceList(d.Personal).SP()
		e.encodeNamespaceList(d.Other).SP()
		e.encodeNamespaceList(d.Shared)
	case imap.QuotaData:
		e.Atom("QUOTA").SP().String(d.Root).SP().BeginList()
		for i, res := range d.Resources {
			if i > 0 {
				e.SP()
			}
			e.Atom(string(res.Name)).SP().
				Number64(uint64(res.Usage)).SP().
				Number64(uint64(res.Limit))
		}
		e.EndList()
	case imap.QuotaRootData:
		e.Atom("QUOTAROOT").SP().Mailbox(d.Mailbox)
		for _, root := range d.Roots {
			e.SP().String(root)
		}
	case imap.ACLData:
		e.Atom("ACL").SP().Mailbox(d.Mailbox)
		for _, ir := range d.Rights {
			e.SP().String(ir.Identifier).SP().Atom(string(ir.Rights))
		}
	case imap.ListRightsData:
		e.Atom("LISTRIGHTS").SP().Mailbox(d.Mailbox).SP().
			String(d.Identifier).SP().Atom(string(d.Required))
		for _, opt := range d.Optional {
			e.SP().Atom(string(opt))
		}
	case imap.MyRightsData:
		e.Atom("MYRIGHTS").SP().Mailbox(d.Mailbox).SP().Atom(string(d.Rights))
	case imap.MetadataData:
		e.Atom("METADATA").SP().Mailbox(d.Mailbox).SP().BeginList()
		for i, entry := range d.Entries {
			if i > 0 {
				e.SP()
			}
			e.String(entry.Name).SP()
			if entry.Value == nil {
				e.Nil()
			} else {
				e.Literal(entry.Value, false)
			}
		}
		e.EndList()
	case imap.GenURLAuthData:
		e.Atom("GENURLAUTH")
		for _, url := range d.URLs {
			e.SP().String(url)
		}
	case imap.URLFetchData:
		e.Atom("URLFETCH")
		for _, item := range d.Items {
			e.SP().String(item.URL).SP()
			if item.Data == nil {
				e.Nil()
			} else {
				e.Literal(item.Data, false)
			}
		}
	case imap.IDData:
		e.Atom("ID").SP()
		e.encodeIDParams(d)
	case imap.FetchData:
		return fmt.Errorf("imap: FETCH groups are encoded with EncodeFetch")
	default:
		return fmt.Errorf("imap: cannot encode response %T", data)
	}
	e.CRLF()
	return nil
}

func (e *Encoder) encodeListData(d imap.ListData) {
	if d.Lsub {
		e.Atom("LSUB")
	} else {
		e.Atom("LIST")
	}
	e.SP().BeginList()
	for i, attr := range d.Attrs {
		if i > 0 {
			e.SP()
		}
		e.Atom(string(attr))
	}
	e.EndList().SP()
	if d.Delim == 0 {
		e.Nil()
	} else {
		e.Quoted(string(d.Delim))
	}
	e.SP().Mailbox(d.Mailbox)
	if len(d.ChildInfo) > 0 {
		e.SP().BeginList().Quoted("CHILDINFO").SP().BeginList()
		for i, ci := range d.ChildInfo {
			if i > 0 {
				e.SP()
			}
			e.Quoted(ci)
		}
		e.EndList().EndList()
	}
}

func (e *Encoder) encodeStatusData(d imap.StatusData) {
	e.Atom("STATUS").SP().Mailbox(d.Mailbox).SP().BeginList()
	first := true
	item := func(name string, write func()) {
		if !first {
			e.SP()
		}
		e.Atom(name).SP()
		write()
		first = false
	}
	if d.NumMessages != nil {
		item("MESSAGES", func() { e.Number(*d.NumMessages) })
	}
	if d.NumRecent != nil {
		item("RECENT", func() { e.Number(*d.NumRecent) })
	}
	if d.UIDNext != nil {
		item("UIDNEXT", func() { e.Number(uint32(*d.UIDNext)) })
	}
	if d.UIDValidity != nil {
		item("UIDVALIDITY", func() { e.Number(*d.UIDValidity) })
	}
	if d.NumUnseen != nil {
		item("UNSEEN", func() { e.Number(*d.NumUnseen) })
	}
	if d.NumDeleted != nil {
		item("DELETED", func() { e.Number(*d.NumDeleted) })
	}
	if d.Size != nil {
		item("SIZE", func() { e.Number64(uint64(*d.Size)) })
	}
	if d.HighestModSeq != nil {
		item("HIGHESTMODSEQ", func() { e.Number64(*d.HighestModSeq) })
	}
	e.EndList()
}

func (e *Encoder) encodeSearchData(d imap.SearchData) {
	if !d.UID && d.Tag == "" && !d.HasMin && !d.HasMax && !d.HasCount &&
		d.AllSet == nil && d.ModSeq == 0 {
		// Plain RFC 3501 SEARCH response.
		e.Atom("SEARCH")
		for _, n := range d.All {
			e.SP().Number(n)
		}
		return
	}
	e.Atom("ESEARCH")
	if d.Tag != "" {
		e.SP().BeginList().Atom("TAG").SP().Quoted(d.Tag).EndList()
	}
	if d.UID {
		e.SP().Atom("UID")
	}
	if d.HasMin {
		e.SP().Atom("MIN").SP().Number(d.Min)
	}
	if d.HasMax {
		e.SP().Atom("MAX").SP().Number(d.Max)
	}
	if d.AllSet != nil {
		e.SP().Atom("ALL").SP().NumSet(d.AllSet)
	}
	if d.HasCount {
		e.SP().Atom("COUNT").SP().Number(d.Count)
	}
	if d.ModSeq != 0 {
		e.SP().Atom("MODSEQ").SP().Number64(d.ModSeq)
	}
}

// encodeThread writes one parenthesised thread node. A single child
// continues the chain inline; multiple children branch as nested
// threads.
func (e *Encoder) encodeThread(t *imap.Thread) {
	e.BeginList()
	e.encodeThreadBody(t)
	e.EndList()
}

func (e *Encoder) encodeThreadBody(t *imap.Thread) {
	e.Number(t.Num)
	if len(t.Children) == 1 {
		e.SP()
		e.encodeThreadBody(&t.Children[0])
		return
	}
	for i := range t.Children {
		if i == 0 {
			e.SP()
		}
		e.encodeThread(&t.Children[i])
	}
}

func (e *Encoder) encodeNamespaceList(descs []imap.NamespaceDescriptor) *Encoder {
	if len(descs) == 0 {
		return e.Nil()
	}
	e.BeginList()
	for _, d := range descs {
		e.BeginList().Quoted(d.Prefix).SP()
		if d.Delim == 0 {
			e.Nil()
		} else {
			e.Quoted(string(d.Delim))
		}
		e.EndList()
	}
	return e.EndList()
}
