package wire

import (
	"strings"

	imap "github.com/meszmate/imap-codec"
)

// parseGreeting parses the untagged status line that opens a session.
func parseGreeting(r *Reader) (*imap.Greeting, error) {
	sp := r.Savepoint()
	if err := r.ExpectByte('*'); err != nil {
		return nil, commitErr(r, err, "expected greeting")
	}
	if err := r.ReadSP(); err != nil {
		r.Restore(sp)
		return nil, commitErr(r, err, "expected greeting")
	}
	atom, err := r.ReadAtom()
	if err != nil {
		if err == ErrNeedMore {
			r.Restore(sp)
		}
		return nil, commitErr(r, err, "expected greeting condition")
	}
	var typ imap.StatusResponseType
	switch strings.ToUpper(atom) {
	case "OK":
		typ = imap.StatusResponseTypeOK
	case "PREAUTH":
		typ = imap.StatusResponseTypePREAUTH
	case "BYE":
		typ = imap.StatusResponseTypeBYE
	default:
		return nil, protocolErr(r.rest(), "invalid greeting condition %q", atom)
	}
	status, err := parseRespText(r, typ)
	if err != nil {
		if err == ErrNeedMore {
			r.Restore(sp)
		}
		return nil, err
	}
	if err := r.ReadCRLF(); err != nil {
		if err == ErrNeedMore {
			r.Restore(sp)
		}
		return nil, commitErr(r, err, "malformed greeting")
	}
	return &imap.Greeting{Status: status}, nil
}

// parseRespText parses [SP ["[" resp-code "]" SP] text] up to CRLF.
func parseRespText(r *Reader, typ imap.StatusResponseType) (*imap.StatusResponse, error) {
	status := &imap.StatusResponse{Type: typ}
	if err := r.ReadSP(); err != nil {
		if err == ErrMismatch {
			return status, nil
		}
		return nil, err
	}
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '[' {
		r.Consume(1)
		code, err := r.ReadAtom()
		if err != nil {
			return nil, commitErr(r, err, "expected response code")
		}
		status.Code = imap.ResponseCode(strings.ToUpper(code))
		if b, err := r.PeekByte(); err != nil {
			return nil, err
		} else if b == ' ' {
			r.Consume(1)
			arg, err := r.readAtomWhile(func(b byte) bool {
				return IsTextChar(b) && b != ']'
			})
			if err != nil {
				return nil, commitErr(r, err, "expected response code argument")
			}
			status.CodeArg = arg
		}
		if err := r.ExpectByte(']'); err != nil {
			return nil, commitErr(r, err, "unclosed response code")
		}
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				return status, nil
			}
			return nil, err
		}
	}
	text, err := r.readAtomWhile(IsTextChar)
	if err != nil {
		if err == ErrMismatch {
			return status, nil
		}
		return nil, err
	}
	status.Text = text
	return status, nil
}

// parseTagged parses a tagged completion line after the tag has been
// consumed.
func parseTagged(r *Reader, tag string) (*imap.ResponseDone, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "expected condition after tag")
	}
	atom, err := r.ReadAtom()
	if err != nil {
		return nil, commitErr(r, err, "expected condition after tag")
	}
	var typ imap.StatusResponseType
	switch strings.ToUpper(atom) {
	case "OK":
		typ = imap.StatusResponseTypeOK
	case "NO":
		typ = imap.StatusResponseTypeNO
	case "BAD":
		typ = imap.StatusResponseTypeBAD
	default:
		return nil, protocolErr(r.rest(), "invalid tagged condition %q", atom)
	}
	status, err := parseRespText(r, typ)
	if err != nil {
		return nil, err
	}
	if err := r.ReadCRLF(); err != nil {
		return nil, commitErr(r, err, "malformed tagged response")
	}
	return &imap.ResponseDone{Tag: tag, Status: status}, nil
}

// parseUntagged parses one untagged response after "* ". For FETCH it
// stops before the attribute list and reports isFetch; the stream
// machine takes over from there.
func parseUntagged(r *Reader) (data imap.ResponseData, isFetch bool, err error) {
	b, err := r.PeekByte()
	if err != nil {
		return nil, false, err
	}
	if IsDigit(b) {
		return parseNumbered(r)
	}

	atom, err := r.ReadAtom()
	if err != nil {
		return nil, false, commitErr(r, err, "expected response name")
	}
	switch strings.ToUpper(atom) {
	case "OK":
		return parseUntaggedStatus(r, imap.StatusResponseTypeOK)
	case "NO":
		return parseUntaggedStatus(r, imap.StatusResponseTypeNO)
	case "BAD":
		return parseUntaggedStatus(r, imap.StatusResponseTypeBAD)
	case "BYE":
		return parseUntaggedStatus(r, imap.StatusResponseTypeBYE)
	case "CAPABILITY":
		caps, err := parseCapList(r)
		return imap.CapabilityData{Caps: caps}, false, err
	case "ENABLED":
		caps, err := parseCapList(r)
		return imap.EnabledData{Caps: caps}, false, err
	case "FLAGS":
		if err := r.ReadSP(); err != nil {
			return nil, false, commitErr(r, err, "expected flag list")
		}
		flags, err := r.ReadFlagList()
		if err != nil {
			return nil, false, commitErr(r, err, "malformed flag list")
		}
		data := imap.FlagsData{Flags: flags}
		return data, false, lineEnd(r)
	case "LIST":
		return parseListResponse(r, false)
	case "LSUB":
		return parseListResponse(r, true)
	case "STATUS":
		return parseStatusResponse(r)
	case "SEARCH":
		return parseSearchResponse(r)
	case "ESEARCH":
		return parseESearchResponse(r)
	case "SORT":
		return parseSortResponse(r)
	case "THREAD":
		return parseThreadResponse(r)
	case "NAMESPACE":
		return parseNamespaceResponse(r)
	case "QUOTA":
		return parseQuotaResponse(r)
	case "QUOTAROOT":
		return parseQuotaRootResponse(r)
	case "ACL":
		return parseACLResponse(r)
	case "LISTRIGHTS":
		return parseListRightsResponse(r)
	case "MYRIGHTS":
		return parseMyRightsResponse(r)
	case "METADATA":
		return parseMetadataResponse(r)
	case "VANISHED":
		return parseVanishedResponse(r)
	case "GENURLAUTH":
		return parseGenURLAuthResponse(r)
	case "URLFETCH":
		return parseURLFetchResponse(r)
	case "ID":
		if err := r.ReadSP(); err != nil {
			return nil, false, commitErr(r, err, "expected ID parameters")
		}
		params, err := parseIDParams(r)
		if err != nil {
			return nil, false, err
		}
		return params, false, lineEnd(r)
	}
	return nil, false, protocolErr(r.rest(), "unknown response %q", atom)
}

// lineEnd consumes the terminating CRLF of a one-line response.
func lineEnd(r *Reader) error {
	if err := r.ReadCRLF(); err != nil {
		return commitErr(r, err, "trailing garbage in response")
	}
	return nil
}

func parseNumbered(r *Reader) (imap.ResponseData, bool, error) {
	n, err := r.ReadNumber()
	if err != nil {
		return nil, false, commitErr(r, err, "expected message number")
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected response name")
	}
	atom, err := r.ReadAtom()
	if err != nil {
		return nil, false, commitErr(r, err, "expected response name")
	}
	switch strings.ToUpper(atom) {
	case "EXISTS":
		return imap.ExistsData{Count: n}, false, lineEnd(r)
	case "RECENT":
		return imap.RecentData{Count: n}, false, lineEnd(r)
	case "EXPUNGE":
		return imap.ExpungeData{SeqNum: n}, false, lineEnd(r)
	case "FETCH":
		// The attribute list is streamed; the caller switches modes.
		if err := r.ReadSP(); err != nil {
			return nil, false, commitErr(r, err, "expected attribute list")
		}
		return imap.FetchData{SeqNum: n}, true, nil
	}
	return nil, false, protocolErr(r.rest(), "unknown numbered response %q", atom)
}

func parseUntaggedStatus(r *Reader, typ imap.StatusResponseType) (imap.ResponseData, bool, error) {
	status, err := parseRespText(r, typ)
	if err != nil {
		return nil, false, err
	}
	if err := r.ReadCRLF(); err != nil {
		return nil, false, commitErr(r, err, "malformed status response")
	}
	return imap.UntaggedStatus{Status: status}, false, nil
}

func parseCapList(r *Reader) ([]imap.Cap, error) {
	var caps []imap.Cap
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, err
		}
		atom, err := r.ReadAtom()
		if err != nil {
			return nil, commitErr(r, err, "expected capability name")
		}
		caps = append(caps, imap.CanonicalCap(atom))
	}
	return caps, lineEnd(r)
}

func parseListResponse(r *Reader, lsub bool) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected mailbox attributes")
	}
	data := imap.ListData{Lsub: lsub}
	err := r.ReadList(func() error {
		f, err := r.ReadFlag()
		if err != nil {
			return err
		}
		data.Attrs = append(data.Attrs, imap.MailboxAttr(f))
		return nil
	})
	if err != nil {
		return nil, false, commitErr(r, err, "malformed mailbox attributes")
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected hierarchy delimiter")
	}
	delim, ok, err := r.ReadNString()
	if err != nil {
		return nil, false, commitErr(r, err, "expected hierarchy delimiter")
	}
	if ok {
		if len(delim) != 1 {
			return nil, false, grammarErr([]byte(delim), "delimiter must be a single character")
		}
		data.Delim = rune(delim[0])
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	data.Mailbox = mbox

	// Extended data (RFC 5258): only CHILDINFO is produced by servers we
	// model; anything else is a violation.
	if err := r.ReadSP(); err == nil {
		err := r.ReadList(func() error {
			atom, err := r.ReadAString()
			if err != nil {
				return err
			}
			if !strings.EqualFold(atom, "CHILDINFO") {
				return protocolErr(r.rest(), "unknown LIST extended item %q", atom)
			}
			if err := r.ReadSP(); err != nil {
				return err
			}
			return r.ReadList(func() error {
				opt, err := r.ReadAString()
				if err != nil {
					return err
				}
				data.ChildInfo = append(data.ChildInfo, opt)
				return nil
			})
		})
		if err != nil {
			return nil, false, commitErr(r, err, "malformed LIST extended data")
		}
	} else if err != ErrMismatch {
		return nil, false, err
	}
	return data, false, lineEnd(r)
}

func parseStatusResponse(r *Reader) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected status items")
	}
	data := imap.StatusData{Mailbox: mbox}
	err = r.ReadList(func() error {
		atom, err := r.ReadAtom()
		if err != nil {
			return err
		}
		if err := r.ReadSP(); err != nil {
			return err
		}
		switch strings.ToUpper(atom) {
		case "MESSAGES":
			n, err := r.ReadNumber()
			if err != nil {
				return err
			}
			data.NumMessages = &n
		case "RECENT":
			n, err := r.ReadNumber()
			if err != nil {
				return err
			}
			data.NumRecent = &n
		case "UIDNEXT":
			n, err := r.ReadNumber()
			if err != nil {
				return err
			}
			uid := imap.UID(n)
			data.UIDNext = &uid
		case "UIDVALIDITY":
			n, err := r.ReadNumber()
			if err != nil {
				return err
			}
			data.UIDValidity = &n
		case "UNSEEN":
			n, err := r.ReadNumber()
			if err != nil {
				return err
			}
			data.NumUnseen = &n
		case "DELETED":
			n, err := r.ReadNumber()
			if err != nil {
				return err
			}
			data.NumDeleted = &n
		case "SIZE":
			n, err := r.ReadNumber64()
			if err != nil {
				return err
			}
			size := int64(n)
			data.Size = &size
		case "HIGHESTMODSEQ":
			n, err := r.ReadModSeq()
			if err != nil {
				return err
			}
			data.HighestModSeq = &n
		default:
			return protocolErr(r.rest(), "unknown status item %q", atom)
		}
		return nil
	})
	if err != nil {
		return nil, false, commitErr(r, err, "malformed status items")
	}
	return data, false, lineEnd(r)
}

func parseSearchResponse(r *Reader) (imap.ResponseData, bool, error) {
	data := imap.SearchData{}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, false, err
		}
		n, err := r.ReadNumber()
		if err != nil {
			return nil, false, commitErr(r, err, "expected message number")
		}
		data.All = append(data.All, n)
	}
	return data, false, lineEnd(r)
}

func parseESearchResponse(r *Reader) (imap.ResponseData, bool, error) {
	data := imap.SearchData{}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, false, err
		}
		if b, err := r.PeekByte(); err != nil {
			return nil, false, err
		} else if b == '(' {
			// Search correlator: (TAG "tag").
			err := r.ReadList(func() error {
				atom, err := r.ReadAtom()
				if err != nil {
					return err
				}
				if !strings.EqualFold(atom, "TAG") {
					return protocolErr(r.rest(), "unknown search correlator %q", atom)
				}
				if err := r.ReadSP(); err != nil {
					return err
				}
				tag, err := r.ReadString()
				if err != nil {
					return err
				}
				data.Tag = tag
				return nil
			})
			if err != nil {
				return nil, false, commitErr(r, err, "malformed search correlator")
			}
			continue
		}
		atom, err := r.ReadAtom()
		if err != nil {
			return nil, false, commitErr(r, err, "expected search return item")
		}
		switch strings.ToUpper(atom) {
		case "UID":
			data.UID = true
		case "MIN":
			n, err := spNumber(r)
			if err != nil {
				return nil, false, err
			}
			data.Min, data.HasMin = n, true
		case "MAX":
			n, err := spNumber(r)
			if err != nil {
				return nil, false, err
			}
			data.Max, data.HasMax = n, true
		case "COUNT":
			n, err := spNumber(r)
			if err != nil {
				return nil, false, err
			}
			data.Count, data.HasCount = n, true
		case "ALL":
			if err := r.ReadSP(); err != nil {
				return nil, false, commitErr(r, err, "ALL requires a set")
			}
			kind := imap.NumKindSeq
			if data.UID {
				kind = imap.NumKindUID
			}
			set, err := r.ReadNumSet(kind)
			if err != nil {
				return nil, false, commitErr(r, err, "expected number set")
			}
			data.AllSet = set
		case "MODSEQ":
			if err := r.ReadSP(); err != nil {
				return nil, false, commitErr(r, err, "MODSEQ requires a value")
			}
			n, err := r.ReadModSeq()
			if err != nil {
				return nil, false, commitErr(r, err, "expected mod-sequence")
			}
			data.ModSeq = n
		default:
			return nil, false, protocolErr(r.rest(), "unknown search return item %q", atom)
		}
	}
	return data, false, lineEnd(r)
}

func spNumber(r *Reader) (uint32, error) {
	if err := r.ReadSP(); err != nil {
		return 0, commitErr(r, err, "expected number")
	}
	n, err := r.ReadNumber()
	if err != nil {
		return 0, commitErr(r, err, "expected number")
	}
	return n, nil
}

func parseSortResponse(r *Reader) (imap.ResponseData, bool, error) {
	data := imap.SortData{}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, false, err
		}
		n, err := r.ReadNumber()
		if err != nil {
			return nil, false, commitErr(r, err, "expected message number")
		}
		data.Nums = append(data.Nums, n)
	}
	return data, false, lineEnd(r)
}

func parseThreadResponse(r *Reader) (imap.ResponseData, bool, error) {
	data := imap.ThreadData{}
	for {
		if b, err := r.PeekByte(); err != nil {
			return nil, false, err
		} else if b == ' ' {
			r.Consume(1)
			continue
		} else if b != '(' {
			break
		}
		thread, err := parseThreadNode(r)
		if err != nil {
			return nil, false, err
		}
		data.Threads = append(data.Threads, thread)
	}
	return data, false, lineEnd(r)
}

// parseThreadNode parses one parenthesised thread: a run of message
// numbers followed by nested sibling threads.
func parseThreadNode(r *Reader) (imap.Thread, error) {
	var root imap.Thread
	if err := r.ExpectByte('('); err != nil {
		return root, commitErr(r, err, "expected thread")
	}
	node := &root
	first := true
	for {
		b, err := r.PeekByte()
		if err != nil {
			return root, err
		}
		switch {
		case b == ')':
			r.Consume(1)
			return root, nil
		case b == ' ':
			r.Consume(1)
		case b == '(':
			// Nested sibling threads branch from the current node.
			for {
				child, err := parseThreadNode(r)
				if err != nil {
					return root, err
				}
				node.Children = append(node.Children, child)
				if b, err := r.PeekByte(); err != nil {
					return root, err
				} else if b != '(' {
					break
				}
			}
		case IsDigit(b):
			n, err := r.ReadNumber()
			if err != nil {
				return root, err
			}
			if first {
				node.Num = n
				first = false
			} else {
				child := imap.Thread{Num: n}
				node.Children = append(node.Children, child)
				node = &node.Children[len(node.Children)-1]
			}
		default:
			return root, protocolErr(r.rest(), "malformed thread")
		}
	}
}

func parseNamespaceResponse(r *Reader) (imap.ResponseData, bool, error) {
	data := imap.NamespaceData{}
	var err error
	if data.Personal, err = parseNamespaceList(r); err != nil {
		return nil, false, err
	}
	if data.Other, err = parseNamespaceList(r); err != nil {
		return nil, false, err
	}
	if data.Shared, err = parseNamespaceList(r); err != nil {
		return nil, false, err
	}
	return data, false, lineEnd(r)
}

func parseNamespaceList(r *Reader) ([]imap.NamespaceDescriptor, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "expected namespace list")
	}
	if r.atNIL() {
		r.Consume(3)
		return nil, nil
	}
	// The groups inside a namespace list are juxtaposed without spaces:
	// ((prefix delim)(prefix delim)).
	if err := r.ExpectByte('('); err != nil {
		return nil, commitErr(r, err, "expected namespace list")
	}
	var descs []imap.NamespaceDescriptor
	for {
		b, err := r.PeekByte()
		if err != nil {
			return nil, err
		}
		if b == ')' {
			r.Consume(1)
			break
		}
		if err := r.ExpectByte('('); err != nil {
			return nil, commitErr(r, err, "malformed namespace list")
		}
		prefix, err := r.ReadString()
		if err != nil {
			return nil, commitErr(r, err, "expected namespace prefix")
		}
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "expected namespace delimiter")
		}
		desc := imap.NamespaceDescriptor{Prefix: prefix}
		delim, ok, err := r.ReadNString()
		if err != nil {
			return nil, commitErr(r, err, "expected namespace delimiter")
		}
		if ok {
			if len(delim) != 1 {
				return nil, grammarErr([]byte(delim), "delimiter must be a single character")
			}
			desc.Delim = rune(delim[0])
		}
		if err := r.ExpectByte(')'); err != nil {
			return nil, commitErr(r, err, "unclosed namespace descriptor")
		}
		descs = append(descs, desc)
	}
	if len(descs) == 0 {
		return nil, protocolErr(r.rest(), "empty namespace list")
	}
	return descs, nil
}

func parseQuotaResponse(r *Reader) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected quota root")
	}
	root, err := r.ReadAString()
	if err != nil {
		return nil, false, commitErr(r, err, "expected quota root")
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected quota resources")
	}
	data := imap.QuotaData{Root: root}
	err = r.ReadList(func() error {
		name, err := r.ReadAtom()
		if err != nil {
			return err
		}
		if err := r.ReadSP(); err != nil {
			return err
		}
		usage, err := r.ReadNumber64()
		if err != nil {
			return err
		}
		if err := r.ReadSP(); err != nil {
			return err
		}
		limit, err := r.ReadNumber64()
		if err != nil {
			return err
		}
		data.Resources = append(data.Resources, imap.QuotaResourceData{
			Name:  imap.QuotaResource(strings.ToUpper(name)),
			Usage: int64(usage),
			Limit: int64(limit),
		})
		return nil
	})
	if err != nil {
		return nil, false, commitErr(r, err, "malformed quota resources")
	}
	return data, false, lineEnd(r)
}

func parseQuotaRootResponse(r *Reader) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	data := imap.QuotaRootData{Mailbox: mbox}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, false, err
		}
		root, err := r.ReadAString()
		if err != nil {
			return nil, false, commitErr(r, err, "expected quota root")
		}
		data.Roots = append(data.Roots, root)
	}
	return data, false, lineEnd(r)
}

func parseACLResponse(r *Reader) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	data := imap.ACLData{Mailbox: mbox}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, false, err
		}
		ident, err := r.ReadAString()
		if err != nil {
			return nil, false, commitErr(r, err, "expected identifier")
		}
		if err := r.ReadSP(); err != nil {
			return nil, false, commitErr(r, err, "expected rights")
		}
		rights, err := r.ReadAString()
		if err != nil {
			return nil, false, commitErr(r, err, "expected rights")
		}
		data.Rights = append(data.Rights, imap.ACLIdentifierRights{
			Identifier: ident,
			Rights:     imap.ACLRights(rights),
		})
	}
	return data, false, lineEnd(r)
}

func parseListRightsResponse(r *Reader) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected identifier")
	}
	ident, err := r.ReadAString()
	if err != nil {
		return nil, false, commitErr(r, err, "expected identifier")
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected required rights")
	}
	required, err := r.ReadAString()
	if err != nil {
		return nil, false, commitErr(r, err, "expected required rights")
	}
	data := imap.ListRightsData{
		Mailbox:    mbox,
		Identifier: ident,
		Required:   imap.ACLRights(required),
	}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, false, err
		}
		opt, err := r.ReadAString()
		if err != nil {
			return nil, false, commitErr(r, err, "expected optional rights")
		}
		data.Optional = append(data.Optional, imap.ACLRights(opt))
	}
	return data, false, lineEnd(r)
}

func parseMyRightsResponse(r *Reader) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected rights")
	}
	rights, err := r.ReadAString()
	if err != nil {
		return nil, false, commitErr(r, err, "expected rights")
	}
	return imap.MyRightsData{Mailbox: mbox, Rights: imap.ACLRights(rights)}, false, lineEnd(r)
}

func parseMetadataResponse(r *Reader) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, false, commitErr(r, err, "expected mailbox name")
	}
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected metadata entries")
	}
	data := imap.MetadataData{Mailbox: mbox}
	if b, err := r.PeekByte(); err != nil {
		return nil, false, err
	} else if b == '(' {
		// Solicited form: (entry value ...).
		err := r.ReadList(func() error {
			name, err := r.ReadAString()
			if err != nil {
				return err
			}
			if err := r.ReadSP(); err != nil {
				return err
			}
			entry := imap.MetadataEntry{Name: name}
			val, ok, err := r.ReadNString()
			if err != nil {
				return err
			}
			if ok {
				entry.Value = []byte(val)
			}
			data.Entries = append(data.Entries, entry)
			return nil
		})
		if err != nil {
			return nil, false, commitErr(r, err, "malformed metadata entries")
		}
	} else {
		// Unsolicited form: entry names only.
		for {
			name, err := r.ReadAString()
			if err != nil {
				return nil, false, commitErr(r, err, "expected entry name")
			}
			data.Entries = append(data.Entries, imap.MetadataEntry{Name: name})
			if err := r.ReadSP(); err != nil {
				if err == ErrMismatch {
					break
				}
				return nil, false, err
			}
		}
	}
	return data, false, lineEnd(r)
}

func parseVanishedResponse(r *Reader) (imap.ResponseData, bool, error) {
	if err := r.ReadSP(); err != nil {
		return nil, false, commitErr(r, err, "expected UID set")
	}
	data := imap.VanishedData{}
	if b, err := r.PeekByte(); err != nil {
		return nil, false, err
	} else if b == '(' {
		err := r.ReadList(func() error {
			atom, err := r.ReadAtom()
			if err != nil {
				return err
			}
			if !strings.EqualFold(atom, "EARLIER") {
				return protocolErr(r.rest(), "unknown VANISHED modifier %q", atom)
			}
			data.Earlier = true
			return nil
		})
		if err != nil {
			return nil, false, commitErr(r, err, "malformed VANISHED modifier")
		}
		if err := r.ReadSP(); err != nil {
			return nil, false, commitErr(r, err, "expected UID set")
		}
	}
	set, err := r.ReadNumSet(imap.NumKindUID)
	if err != nil {
		return nil, false, commitErr(r, err, "expected UID set")
	}
	data.UIDs = set.(*imap.UIDSet)
	return data, false, lineEnd(r)
}

func parseGenURLAuthResponse(r *Reader) (imap.ResponseData, bool, error) {
	data := imap.GenURLAuthData{}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, false, err
		}
		url, err := r.ReadAString()
		if err != nil {
			return nil, false, commitErr(r, err, "expected URL")
		}
		data.URLs = append(data.URLs, url)
	}
	if len(data.URLs) == 0 {
		return nil, false, protocolErr(r.rest(), "GENURLAUTH response without URLs")
	}
	return data, false, lineEnd(r)
}

func parseURLFetchResponse(r *Reader) (imap.ResponseData, bool, error) {
	data := imap.URLFetchData{}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, false, err
		}
		url, err := r.ReadAString()
		if err != nil {
			return nil, false, commitErr(r, err, "expected URL")
		}
		if err := r.ReadSP(); err != nil {
			return nil, false, commitErr(r, err, "expected URL data")
		}
		item := imap.URLFetchItem{URL: url}
		val, ok, err := r.ReadNString()
		if err != nil {
			return nil, false, commitErr(r, err, "expected URL data")
		}
		if ok {
			item.Data = []byte(val)
		}
		data.Items = append(data.Items, item)
	}
	if len(data.Items) == 0 {
		return nil, false, protocolErr(r.rest(), "URLFETCH response without URLs")
	}
	return data, false, lineEnd(r)
}
