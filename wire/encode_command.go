package wire

import (
	"fmt"
	"strconv"
	"strings"

	imap "github.com/meszmate/imap-codec"
)

// EncodeCommand serialises a complete command, terminating CRLF
// included. The dispatch below is the single source of truth for the
// wire form of every command variant; the parser mirrors it.
func (e *Encoder) EncodeCommand(cmd *imap.Command) error {
	e.Tag(cmd.Tag).SP()
	return e.encodeCommandData(cmd.Data, true)
}

func (e *Encoder) encodeCommandData(data imap.CommandData, crlf bool) error {
	switch c := data.(type) {
	case imap.CapabilityCommand, imap.NoopCommand, imap.CheckCommand,
		imap.LogoutCommand, imap.StartTLSCommand, imap.IdleCommand,
		imap.CloseCommand, imap.UnselectCommand, imap.NamespaceCommand,
		imap.XForceUIDCommand:
		e.Atom(data.Name())
	case imap.ExpungeCommand:
		e.Atom("EXPUNGE")
		if c.UIDs != nil {
			e.SP().NumSet(c.UIDs)
		}
	case imap.LoginCommand:
		e.Atom("LOGIN").SP().String(c.Username).SP().String(c.Password)
	case imap.AuthenticateCommand:
		e.Atom("AUTHENTICATE").SP().Atom(c.Mechanism)
		if c.InitialResponse != nil {
			e.SP()
			if len(c.InitialResponse) == 0 {
				e.Atom("=")
			} else {
				e.Raw(c.InitialResponse)
			}
		}
	case imap.EnableCommand:
		e.Atom("ENABLE")
		for _, cap := range c.Caps {
			e.SP().Atom(string(cap))
		}
	case imap.SelectCommand:
		e.Atom(c.Name()).SP().Mailbox(c.Mailbox)
		e.encodeSelectParams(c.Options)
	case imap.CreateCommand:
		e.Atom("CREATE").SP().Mailbox(c.Mailbox)
		if c.Options != nil && c.Options.SpecialUse != "" {
			e.SP().BeginList().Atom("USE").SP().
				BeginList().Atom(string(c.Options.SpecialUse)).EndList().
				EndList()
		}
	case imap.DeleteCommand:
		e.Atom("DELETE").SP().Mailbox(c.Mailbox)
	case imap.RenameCommand:
		e.Atom("RENAME").SP().Mailbox(c.Mailbox).SP().Mailbox(c.NewName)
	case imap.SubscribeCommand:
		e.Atom("SUBSCRIBE").SP().Mailbox(c.Mailbox)
	case imap.UnsubscribeCommand:
		e.Atom("UNSUBSCRIBE").SP().Mailbox(c.Mailbox)
	case imap.ListCommand:
		e.encodeList(c)
	case imap.LsubCommand:
		e.Atom("LSUB").SP().Mailbox(c.Ref).SP().ListMailbox(c.Pattern)
	case imap.StatusCommand:
		e.Atom("STATUS").SP().Mailbox(c.Mailbox).SP()
		e.encodeStatusItems(c.Options)
	case imap.AppendCommand:
		e.encodeAppend(c)
	case imap.SearchCommand:
		e.Atom("SEARCH")
		e.encodeSearchArgs(c.ReturnOptions, c.Charset, c.Criteria)
	case imap.ExtendedSearchCommand:
		e.Atom("ESEARCH")
		if len(c.SourceOptions) > 0 {
			e.SP().Atom("IN").SP().BeginList()
			for i, opt := range c.SourceOptions {
				if i > 0 {
					e.SP()
				}
				e.Atom(opt)
			}
			e.EndList()
		}
		e.encodeSearchArgs(c.ReturnOptions, c.Charset, c.Criteria)
	case imap.FetchCommand:
		e.encodeFetch(c)
	case imap.StoreCommand:
		e.encodeStore(c)
	case imap.CopyCommand:
		e.Atom("COPY").SP().NumSet(c.NumSet).SP().Mailbox(c.Mailbox)
	case imap.MoveCommand:
		e.Atom("MOVE").SP().NumSet(c.NumSet).SP().Mailbox(c.Mailbox)
	case imap.UIDCommand:
		e.Atom("UID").SP()
		return e.encodeCommandData(c.Inner, crlf)
	case imap.SortCommand:
		e.Atom("SORT").SP().BeginList()
		for i, crit := range c.Criteria {
			if i > 0 {
				e.SP()
			}
			if crit.Reverse {
				e.Atom("REVERSE").SP()
			}
			e.Atom(string(crit.Key))
		}
		e.EndList().SP()
		e.encodeCharset(c.Charset)
		e.SP()
		e.encodeSearchCriteria(c.Search)
	case imap.ThreadCommand:
		e.Atom("THREAD").SP().Atom(string(c.Algorithm)).SP()
		e.encodeCharset(c.Charset)
		e.SP()
		e.encodeSearchCriteria(c.Search)
	case imap.GetQuotaCommand:
		e.Atom("GETQUOTA").SP().String(c.Root)
	case imap.GetQuotaRootCommand:
		e.Atom("GETQUOTAROOT").SP().Mailbox(c.Mailbox)
	case imap.SetQuotaCommand:
		e.Atom("SETQUOTA").SP().String(c.Root).SP().BeginList()
		for i, l := range c.Limits {
			if i > 0 {
				e.SP()
			}
			e.Atom(string(l.Name)).SP().Number64(uint64(l.Limit))
		}
		e.EndList()
	case imap.GetACLCommand:
		e.Atom("GETACL").SP().Mailbox(c.Mailbox)
	case imap.SetACLCommand:
		e.Atom("SETACL").SP().Mailbox(c.Mailbox).SP().String(c.Identifier).SP()
		rights := string(c.Rights)
		if c.Modification != 0 {
			rights = string(c.Modification) + rights
		}
		e.String(rights)
	case imap.DeleteACLCommand:
		e.Atom("DELETEACL").SP().Mailbox(c.Mailbox).SP().String(c.Identifier)
	case imap.ListRightsCommand:
		e.Atom("LISTRIGHTS").SP().Mailbox(c.Mailbox).SP().String(c.Identifier)
	case imap.MyRightsCommand:
		e.Atom("MYRIGHTS").SP().Mailbox(c.Mailbox)
	case imap.GetMetadataCommand:
		e.Atom("GETMETADATA")
		if c.Options != nil {
			e.SP().BeginList()
			first := true
			if c.Options.MaxSize != nil {
				e.Atom("MAXSIZE").SP().Number64(uint64(*c.Options.MaxSize))
				first = false
			}
			if c.Options.Depth != "" {
				if !first {
					e.SP()
				}
				e.Atom("DEPTH").SP().Atom(c.Options.Depth)
			}
			e.EndList()
		}
		e.SP().Mailbox(c.Mailbox).SP()
		if len(c.Entries) == 1 {
			e.String(c.Entries[0])
		} else {
			e.BeginList()
			for i, entry := range c.Entries {
				if i > 0 {
					e.SP()
				}
				e.String(entry)
			}
			e.EndList()
		}
	case imap.SetMetadataCommand:
		e.Atom("SETMETADATA").SP().Mailbox(c.Mailbox).SP().BeginList()
		for i, entry := range c.Entries {
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
	case imap.GenURLAuthCommand:
		e.Atom("GENURLAUTH")
		for _, item := range c.Items {
			e.SP().String(item.URL).SP().Atom(string(item.Mechanism))
		}
	case imap.ResetKeyCommand:
		e.Atom("RESETKEY")
		if c.Mailbox != "" {
			e.SP().Mailbox(c.Mailbox)
			for _, mech := range c.Mechanisms {
				e.SP().Atom(mech)
			}
		}
	case imap.URLFetchCommand:
		e.Atom("URLFETCH")
		for _, url := range c.URLs {
			e.SP().String(url)
		}
	case imap.IDCommand:
		e.Atom("ID").SP()
		e.encodeIDParams(c.Params)
	default:
		return fmt.Errorf("imap: cannot encode command %T", data)
	}
	if crlf {
		e.CRLF()
	}
	return nil
}

// encodeCharset writes a charset name: bare when atom-safe, quoted
// otherwise.
func (e *Encoder) encodeCharset(charset string) {
	if isAtomString(charset) {
		e.Atom(charset)
		return
	}
	e.String(charset)
}

func (e *Encoder) encodeSelectParams(opts *imap.SelectOptions) {
	if opts == nil || (!opts.CondStore && opts.QResync == nil) {
		return
	}
	e.SP().BeginList()
	first := true
	if opts.CondStore {
		e.Atom("CONDSTORE")
		first = false
	}
	if q := opts.QResync; q != nil {
		if !first {
			e.SP()
		}
		e.Atom("QRESYNC").SP().BeginList()
		e.Number(q.UIDValidity).SP().Number64(q.ModSeq)
		if q.KnownUIDs != nil {
			e.SP().NumSet(q.KnownUIDs)
		}
		if q.SeqMatch != nil {
			e.SP().BeginList()
			e.NumSet(q.SeqMatch.SeqNums).SP().NumSet(q.SeqMatch.UIDs)
			e.EndList()
		}
		e.EndList()
	}
	e.EndList()
}

func (e *Encoder) encodeList(c imap.ListCommand) {
	e.Atom("LIST")
	opts := c.Options
	if opts != nil && (opts.SelectSubscribed || opts.SelectRemote || opts.SelectRecursiveMatch) {
		e.SP().BeginList()
		first := true
		sel := func(name string, on bool) {
			if !on {
				return
			}
			if !first {
				e.SP()
			}
			e.Atom(name)
			first = false
		}
		sel("SUBSCRIBED", opts.SelectSubscribed)
		sel("REMOTE", opts.SelectRemote)
		sel("RECURSIVEMATCH", opts.SelectRecursiveMatch)
		e.EndList()
	}
	e.SP().Mailbox(c.Ref).SP()
	if len(c.Patterns) == 1 {
		e.ListMailbox(c.Patterns[0])
	} else {
		e.BeginList()
		for i, pat := range c.Patterns {
			if i > 0 {
				e.SP()
			}
			e.ListMailbox(pat)
		}
		e.EndList()
	}
	if opts != nil && (opts.ReturnSubscribed || opts.ReturnChildren || opts.ReturnStatus != nil) {
		e.SP().Atom("RETURN").SP().BeginList()
		first := true
		ret := func(name string, on bool) {
			if !on {
				return
			}
			if !first {
				e.SP()
			}
			e.Atom(name)
			first = false
		}
		ret("SUBSCRIBED", opts.ReturnSubscribed)
		ret("CHILDREN", opts.ReturnChildren)
		if opts.ReturnStatus != nil {
			if !first {
				e.SP()
			}
			e.Atom("STATUS").SP()
			e.encodeStatusItems(opts.ReturnStatus)
		}
		e.EndList()
	}
}

func (e *Encoder) encodeStatusItems(opts *imap.StatusOptions) {
	e.BeginList()
	first := true
	item := func(name string, on bool) {
		if !on {
			return
		}
		if !first {
			e.SP()
		}
		e.Atom(name)
		first = false
	}
	item("MESSAGES", opts.NumMessages)
	item("RECENT", opts.NumRecent)
	item("UIDNEXT", opts.UIDNext)
	item("UIDVALIDITY", opts.UIDValidity)
	item("UNSEEN", opts.NumUnseen)
	item("DELETED", opts.NumDeleted)
	item("SIZE", opts.Size)
	item("HIGHESTMODSEQ", opts.HighestModSeq)
	e.EndList()
}

// encodeAppend serialises a whole APPEND command, MULTIAPPEND included.
// In chunked mode each synchronising message literal becomes a stop
// point awaiting a continuation request.
func (e *Encoder) encodeAppend(c imap.AppendCommand) {
	e.Atom("APPEND").SP().Mailbox(c.Mailbox)
	for _, msg := range c.Messages {
		e.SP()
		opts := msg.Options
		if opts != nil {
			if opts.HasFlags || len(opts.Flags) > 0 {
				e.Flags(opts.Flags).SP()
			}
			if !opts.InternalDate.IsZero() {
				e.DateTime(opts.InternalDate).SP()
			}
		}
		binary := opts != nil && opts.Binary
		e.Literal(msg.Data, binary)
	}
}

func (e *Encoder) encodeSearchArgs(opts *imap.SearchOptions, charset string, criteria *imap.SearchCriteria) {
	if opts != nil {
		e.SP().Atom("RETURN").SP().BeginList()
		for i, ret := range opts.Return {
			if i > 0 {
				e.SP()
			}
			e.Atom(string(ret))
		}
		e.EndList()
	}
	e.SP()
	if charset != "" {
		e.Atom("CHARSET").SP()
		e.encodeCharset(charset)
		e.SP()
	}
	e.encodeSearchCriteria(criteria)
}

// searchKeyWriter collects the individual key writers of a criteria
// value so single keys can be emitted bare and groups parenthesised.
type searchKeyWriter func(e *Encoder)

func searchCriteriaKeys(c *imap.SearchCriteria) []searchKeyWriter {
	var keys []searchKeyWriter
	add := func(w searchKeyWriter) { keys = append(keys, w) }

	if c.SeqNum != nil {
		set := c.SeqNum
		add(func(e *Encoder) { e.NumSet(set) })
	}
	if c.UID != nil {
		set := c.UID
		add(func(e *Encoder) { e.Atom("UID").SP().NumSet(set) })
	}
	bools := []struct {
		name string
		on   bool
	}{
		{"ALL", c.All},
		{"ANSWERED", c.Answered},
		{"DELETED", c.Deleted},
		{"DRAFT", c.Draft},
		{"FLAGGED", c.Flagged},
		{"NEW", c.New},
		{"OLD", c.Old},
		{"RECENT", c.Recent},
		{"SEEN", c.Seen},
		{"UNANSWERED", c.Unanswered},
		{"UNDELETED", c.Undeleted},
		{"UNDRAFT", c.Undraft},
		{"UNFLAGGED", c.Unflagged},
		{"UNSEEN", c.Unseen},
	}
	for _, b := range bools {
		if b.on {
			name := b.name
			add(func(e *Encoder) { e.Atom(name) })
		}
	}
	for _, kw := range c.Keyword {
		kw := kw
		add(func(e *Encoder) { e.Atom("KEYWORD").SP().Flag(kw) })
	}
	for _, kw := range c.Unkeyword {
		kw := kw
		add(func(e *Encoder) { e.Atom("UNKEYWORD").SP().Flag(kw) })
	}
	if !c.Before.IsZero() {
		t := c.Before
		add(func(e *Encoder) { e.Atom("BEFORE").SP().Date(t) })
	}
	if !c.On.IsZero() {
		t := c.On
		add(func(e *Encoder) { e.Atom("ON").SP().Date(t) })
	}
	if !c.Since.IsZero() {
		t := c.Since
		add(func(e *Encoder) { e.Atom("SINCE").SP().Date(t) })
	}
	if !c.SentBefore.IsZero() {
		t := c.SentBefore
		add(func(e *Encoder) { e.Atom("SENTBEFORE").SP().Date(t) })
	}
	if !c.SentOn.IsZero() {
		t := c.SentOn
		add(func(e *Encoder) { e.Atom("SENTON").SP().Date(t) })
	}
	if !c.SentSince.IsZero() {
		t := c.SentSince
		add(func(e *Encoder) { e.Atom("SENTSINCE").SP().Date(t) })
	}
	strKeys := []struct {
		name   string
		values []string
	}{
		{"BCC", c.Bcc},
		{"CC", c.Cc},
		{"FROM", c.From},
		{"SUBJECT", c.Subject},
		{"TO", c.To},
		{"BODY", c.Body},
		{"TEXT", c.Text},
	}
	for _, sk := range strKeys {
		name := sk.name
		for _, v := range sk.values {
			v := v
			add(func(e *Encoder) { e.Atom(name).SP().String(v) })
		}
	}
	for _, h := range c.Header {
		h := h
		add(func(e *Encoder) { e.Atom("HEADER").SP().String(h.Key).SP().String(h.Value) })
	}
	if c.Larger != 0 {
		n := c.Larger
		add(func(e *Encoder) { e.Atom("LARGER").SP().Number64(uint64(n)) })
	}
	if c.Smaller != 0 {
		n := c.Smaller
		add(func(e *Encoder) { e.Atom("SMALLER").SP().Number64(uint64(n)) })
	}
	if c.ModSeq != nil {
		ms := c.ModSeq
		add(func(e *Encoder) {
			e.Atom("MODSEQ").SP()
			if ms.MetadataName != "" {
				e.Quoted(ms.MetadataName).SP().Atom(ms.MetadataType).SP()
			}
			e.Number64(ms.ModSeq)
		})
	}
	if c.Younger != 0 {
		n := c.Younger
		add(func(e *Encoder) { e.Atom("YOUNGER").SP().Number64(uint64(n)) })
	}
	if c.Older != 0 {
		n := c.Older
		add(func(e *Encoder) { e.Atom("OLDER").SP().Number64(uint64(n)) })
	}
	for _, pair := range c.Or {
		pair := pair
		add(func(e *Encoder) {
			e.Atom("OR").SP()
			e.encodeSearchKeyGroup(&pair[0])
			e.SP()
			e.encodeSearchKeyGroup(&pair[1])
		})
	}
	for _, not := range c.Not {
		not := not
		add(func(e *Encoder) {
			e.Atom("NOT").SP()
			e.encodeSearchKeyGroup(&not)
		})
	}
	return keys
}

// encodeSearchCriteria writes criteria as juxtaposed keys. Empty
// criteria degrade to ALL, the weakest key.
func (e *Encoder) encodeSearchCriteria(c *imap.SearchCriteria) {
	keys := searchCriteriaKeys(c)
	if len(keys) == 0 {
		e.Atom("ALL")
		return
	}
	for i, w := range keys {
		if i > 0 {
			e.SP()
		}
		w(e)
	}
}

// encodeSearchKeyGroup writes criteria as a single key, parenthesising
// when more than one key is present (OR and NOT operands).
func (e *Encoder) encodeSearchKeyGroup(c *imap.SearchCriteria) {
	keys := searchCriteriaKeys(c)
	switch len(keys) {
	case 0:
		e.Atom("ALL")
	case 1:
		keys[0](e)
	default:
		e.BeginList()
		for i, w := range keys {
			if i > 0 {
				e.SP()
			}
			w(e)
		}
		e.EndList()
	}
}

func (e *Encoder) encodeFetch(c imap.FetchCommand) {
	e.Atom("FETCH").SP().NumSet(c.NumSet).SP()
	opts := c.Options

	if opts.Macro != imap.FetchMacroNone {
		e.Atom(string(opts.Macro))
	} else {
		var items []searchKeyWriter
		add := func(w searchKeyWriter) { items = append(items, w) }
		simple := func(name string, on bool) {
			if on {
				add(func(e *Encoder) { e.Atom(name) })
			}
		}
		simple("ENVELOPE", opts.Envelope)
		simple("FLAGS", opts.Flags)
		simple("INTERNALDATE", opts.InternalDate)
		simple("RFC822", opts.RFC822)
		simple("RFC822.HEADER", opts.RFC822Header)
		simple("RFC822.TEXT", opts.RFC822Text)
		simple("RFC822.SIZE", opts.RFC822Size)
		simple("BODY", opts.Body)
		simple("BODYSTRUCTURE", opts.BodyStructure)
		simple("UID", opts.UID)
		simple("MODSEQ", opts.ModSeq)
		for _, section := range opts.BodySection {
			section := section
			add(func(e *Encoder) { e.encodeBodySection(section) })
		}
		for _, section := range opts.BinarySection {
			section := section
			add(func(e *Encoder) { e.encodeBinarySection(section) })
		}
		for _, part := range opts.BinarySizeSection {
			part := part
			add(func(e *Encoder) {
				e.Atom("BINARY.SIZE")
				e.encodeSectionPart(part)
			})
		}
		switch len(items) {
		case 0:
			e.Atom("ALL")
		case 1:
			items[0](e)
		default:
			e.BeginList()
			for i, w := range items {
				if i > 0 {
					e.SP()
				}
				w(e)
			}
			e.EndList()
		}
	}

	if opts.ChangedSince != 0 || opts.Vanished {
		e.SP().BeginList()
		first := true
		if opts.ChangedSince != 0 {
			e.Atom("CHANGEDSINCE").SP().Number64(opts.ChangedSince)
			first = false
		}
		if opts.Vanished {
			if !first {
				e.SP()
			}
			e.Atom("VANISHED")
		}
		e.EndList()
	}
}

// encodeBodySection writes a BODY[...] fetch item.
func (e *Encoder) encodeBodySection(s *imap.FetchItemBodySection) {
	if s.Peek {
		e.Atom("BODY.PEEK")
	} else {
		e.Atom("BODY")
	}
	e.encodeSectionSpec(s)
	e.encodePartial(s.Partial)
}

// encodePartial writes <offset.count>, or <offset> when the count is
// absent (response form).
func (e *Encoder) encodePartial(p *imap.SectionPartial) {
	if p == nil {
		return
	}
	e.Atom("<").Number64(uint64(p.Offset))
	if p.Count >= 0 {
		e.Atom(".").Number64(uint64(p.Count))
	}
	e.Atom(">")
}

// encodeSectionSpec writes the bracketed section of a body section item.
func (e *Encoder) encodeSectionSpec(s *imap.FetchItemBodySection) {
	e.buf = append(e.buf, '[')
	for i, part := range s.Part {
		if i > 0 {
			e.buf = append(e.buf, '.')
		}
		e.buf = strconv.AppendInt(e.buf, int64(part), 10)
	}
	if s.Specifier != "" {
		if len(s.Part) > 0 {
			e.buf = append(e.buf, '.')
		}
		spec := strings.ToUpper(s.Specifier)
		if spec == "HEADER.FIELDS" && s.NotFields {
			spec = "HEADER.FIELDS.NOT"
		}
		e.Atom(spec)
		if len(s.Fields) > 0 {
			e.SP().BeginList()
			for i, f := range s.Fields {
				if i > 0 {
					e.SP()
				}
				e.String(f)
			}
			e.EndList()
		}
	}
	e.buf = append(e.buf, ']')
}

func (e *Encoder) encodeBinarySection(s *imap.FetchItemBinarySection) {
	if s.Peek {
		e.Atom("BINARY.PEEK")
	} else {
		e.Atom("BINARY")
	}
	e.encodeSectionPart(s.Part)
	e.encodePartial(s.Partial)
}

func (e *Encoder) encodeSectionPart(part []int) {
	e.buf = append(e.buf, '[')
	for i, p := range part {
		if i > 0 {
			e.buf = append(e.buf, '.')
		}
		e.buf = strconv.AppendInt(e.buf, int64(p), 10)
	}
	e.buf = append(e.buf, ']')
}

func (e *Encoder) encodeStore(c imap.StoreCommand) {
	e.Atom("STORE").SP().NumSet(c.NumSet).SP()
	if c.Options != nil && c.Options.UnchangedSince != 0 {
		e.BeginList().Atom("UNCHANGEDSINCE").SP().
			Number64(c.Options.UnchangedSince).EndList().SP()
	}
	e.Atom(c.Flags.Action.String())
	if c.Flags.Silent {
		e.Atom(".SILENT")
	}
	e.SP().Flags(c.Flags.Flags)
}

func (e *Encoder) encodeIDParams(params imap.IDData) {
	if params == nil {
		e.Nil()
		return
	}
	e.BeginList()
	for i, p := range params {
		if i > 0 {
			e.SP()
		}
		e.String(p.Key).SP().NString(p.Value)
	}
	e.EndList()
}
