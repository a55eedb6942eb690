package wire

import (
	"strings"
	"time"

	imap "github.com/meszmate/imap-codec"
)

// parseCommandBody parses the arguments and terminating CRLF of every
// command except APPEND, whose literal bodies are streamed by the
// CommandDecoder. The tag and the command name atom have already been
// consumed; name is upper-cased.
//
// The name atom is the commit point: a mismatch past it is a protocol
// violation, reported by the caller via commitErr.
func parseCommandBody(r *Reader, tag, name string) (*imap.Command, error) {
	data, err := parseCommandData(r, name, false)
	if err != nil {
		return nil, err
	}
	if err := r.ReadCRLF(); err != nil {
		return nil, commitErr(r, err, "trailing garbage after %s", name)
	}
	return &imap.Command{Tag: tag, Data: data}, nil
}

func parseCommandData(r *Reader, name string, inUID bool) (imap.CommandData, error) {
	switch name {
	case "CAPABILITY":
		return imap.CapabilityCommand{}, nil
	case "NOOP":
		return imap.NoopCommand{}, nil
	case "CHECK":
		return imap.CheckCommand{}, nil
	case "LOGOUT":
		return imap.LogoutCommand{}, nil
	case "STARTTLS":
		return imap.StartTLSCommand{}, nil
	case "IDLE":
		return imap.IdleCommand{}, nil
	case "CLOSE":
		return imap.CloseCommand{}, nil
	case "UNSELECT":
		return imap.UnselectCommand{}, nil
	case "NAMESPACE":
		return imap.NamespaceCommand{}, nil
	case "XFORCEUID":
		return imap.XForceUIDCommand{}, nil
	case "EXPUNGE":
		return parseExpunge(r, inUID)
	case "LOGIN":
		return parseLogin(r)
	case "AUTHENTICATE":
		return parseAuthenticate(r)
	case "ENABLE":
		return parseEnable(r)
	case "SELECT":
		return parseSelect(r, false)
	case "EXAMINE":
		return parseSelect(r, true)
	case "CREATE":
		return parseCreate(r)
	case "DELETE":
		mbox, err := spMailbox(r)
		return imap.DeleteCommand{Mailbox: mbox}, err
	case "SUBSCRIBE":
		mbox, err := spMailbox(r)
		return imap.SubscribeCommand{Mailbox: mbox}, err
	case "UNSUBSCRIBE":
		mbox, err := spMailbox(r)
		return imap.UnsubscribeCommand{Mailbox: mbox}, err
	case "RENAME":
		return parseRename(r)
	case "LIST":
		return parseList(r)
	case "LSUB":
		return parseLsub(r)
	case "STATUS":
		return parseStatus(r)
	case "SEARCH":
		return parseSearch(r)
	case "ESEARCH":
		return parseExtendedSearch(r)
	case "FETCH":
		return parseFetch(r)
	case "STORE":
		return parseStore(r)
	case "COPY":
		return parseCopyMove(r, false)
	case "MOVE":
		return parseCopyMove(r, true)
	case "SORT":
		return parseSort(r)
	case "THREAD":
		return parseThread(r)
	case "GETQUOTA":
		return parseGetQuota(r)
	case "GETQUOTAROOT":
		mbox, err := spMailbox(r)
		return imap.GetQuotaRootCommand{Mailbox: mbox}, err
	case "SETQUOTA":
		return parseSetQuota(r)
	case "GETACL":
		mbox, err := spMailbox(r)
		return imap.GetACLCommand{Mailbox: mbox}, err
	case "SETACL":
		return parseSetACL(r)
	case "DELETEACL":
		return parseDeleteACL(r)
	case "LISTRIGHTS":
		return parseListRights(r)
	case "MYRIGHTS":
		mbox, err := spMailbox(r)
		return imap.MyRightsCommand{Mailbox: mbox}, err
	case "GETMETADATA":
		return parseGetMetadata(r)
	case "SETMETADATA":
		return parseSetMetadata(r)
	case "GENURLAUTH":
		return parseGenURLAuth(r)
	case "RESETKEY":
		return parseResetKey(r)
	case "URLFETCH":
		return parseURLFetch(r)
	case "ID":
		return parseID(r)
	case "UID":
		if inUID {
			return nil, protocolErr(r.rest(), "nested UID prefix")
		}
		return parseUID(r)
	}
	return nil, protocolErr(r.rest(), "unknown command %q", name)
}

// commitErr converts a recoverable mismatch into a fatal protocol
// violation. Once a command keyword has been recognised, its argument
// grammar is committed: there is no alternative to fall back to.
func commitErr(r *Reader, err error, format string, args ...interface{}) error {
	if err == ErrMismatch {
		return protocolErr(r.rest(), format, args...)
	}
	return err
}

// spMailbox parses a mandatory mailbox argument. An empty name is well
// formed on the wire (an empty quoted string or {0} literal) but never
// names a mailbox, so it is reported as a non-fatal semantic error.
// LIST references and server-level GETMETADATA, where the empty string
// is legitimate, read the mailbox directly instead.
func spMailbox(r *Reader) (imap.MailboxName, error) {
	if err := r.ReadSP(); err != nil {
		return "", commitErr(r, err, "expected mailbox argument")
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return "", commitErr(r, err, "expected mailbox name")
	}
	if mbox == "" {
		return "", &SemanticError{Reason: "empty mailbox name"}
	}
	return mbox, nil
}

func parseExpunge(r *Reader, inUID bool) (imap.CommandData, error) {
	if !inUID {
		return imap.ExpungeCommand{}, nil
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "UID EXPUNGE requires a UID set")
	}
	set, err := r.ReadNumSet(imap.NumKindUID)
	if err != nil {
		return nil, commitErr(r, err, "expected UID set")
	}
	return imap.ExpungeCommand{UIDs: set.(*imap.UIDSet)}, nil
}

func parseLogin(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "LOGIN requires arguments")
	}
	user, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected userid")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "LOGIN requires a password")
	}
	pass, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected password")
	}
	return imap.LoginCommand{Username: user, Password: pass}, nil
}

func parseAuthenticate(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "AUTHENTICATE requires a mechanism")
	}
	mech, err := r.ReadAtom()
	if err != nil {
		return nil, commitErr(r, err, "expected mechanism name")
	}
	cmd := imap.AuthenticateCommand{Mechanism: strings.ToUpper(mech)}
	if err := r.ReadSP(); err != nil {
		if err == ErrMismatch {
			return cmd, nil
		}
		return nil, err
	}
	// SASL-IR initial response: base64 or "=" for empty (RFC 4959).
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '=' && !func() bool {
		nxt, err := r.Peek(2)
		return err == nil && IsBase64Char(nxt[1]) && nxt[1] != '='
	}() {
		r.Consume(1)
		cmd.InitialResponse = []byte{}
		return cmd, nil
	}
	ir, err := r.readAtomWhile(IsBase64Char)
	if err != nil {
		return nil, commitErr(r, err, "expected initial response")
	}
	cmd.InitialResponse = []byte(ir)
	return cmd, nil
}

func parseEnable(r *Reader) (imap.CommandData, error) {
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
	if len(caps) == 0 {
		return nil, protocolErr(r.rest(), "ENABLE requires at least one capability")
	}
	return imap.EnableCommand{Caps: caps}, nil
}

func parseSelect(r *Reader, readOnly bool) (imap.CommandData, error) {
	mbox, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	opts := &imap.SelectOptions{ReadOnly: readOnly}
	cmd := imap.SelectCommand{Mailbox: mbox, Options: opts}
	if err := r.ReadSP(); err != nil {
		if err == ErrMismatch {
			return cmd, nil
		}
		return nil, err
	}
	err = r.ReadList(func() error {
		atom, err := r.ReadAtom()
		if err != nil {
			return err
		}
		switch strings.ToUpper(atom) {
		case "CONDSTORE":
			opts.CondStore = true
			return nil
		case "QRESYNC":
			return parseQResync(r, opts)
		}
		return protocolErr(r.rest(), "unknown select parameter %q", atom)
	})
	if err != nil {
		return nil, commitErr(r, err, "malformed select parameters")
	}
	return cmd, nil
}

func parseQResync(r *Reader, opts *imap.SelectOptions) error {
	if err := r.ReadSP(); err != nil {
		return err
	}
	if err := r.ExpectByte('('); err != nil {
		return commitErr(r, err, "QRESYNC requires parameters")
	}
	q := &imap.SelectQResync{}
	var err error
	if q.UIDValidity, err = r.ReadNumber(); err != nil {
		return commitErr(r, err, "expected QRESYNC uidvalidity")
	}
	if err := r.ReadSP(); err != nil {
		return commitErr(r, err, "expected QRESYNC mod-sequence")
	}
	if q.ModSeq, err = r.ReadModSeq(); err != nil {
		return commitErr(r, err, "expected QRESYNC mod-sequence")
	}
	if err := r.ReadSP(); err == nil {
		if b, perr := r.PeekByte(); perr == nil && b != '(' {
			set, err := r.ReadNumSet(imap.NumKindUID)
			if err != nil {
				return commitErr(r, err, "expected known-UIDs set")
			}
			q.KnownUIDs = set.(*imap.UIDSet)
			if err := r.ReadSP(); err != nil {
				if err != ErrMismatch {
					return err
				}
				goto done
			}
		} else if perr != nil {
			return perr
		}
		if err := r.ExpectByte('('); err != nil {
			return commitErr(r, err, "expected seq-match data")
		}
		match := &imap.QResyncSeqMatch{}
		seqs, err := r.ReadNumSet(imap.NumKindSeq)
		if err != nil {
			return commitErr(r, err, "expected known sequence set")
		}
		match.SeqNums = seqs.(*imap.SeqSet)
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "expected known UID set")
		}
		uids, err := r.ReadNumSet(imap.NumKindUID)
		if err != nil {
			return commitErr(r, err, "expected known UID set")
		}
		match.UIDs = uids.(*imap.UIDSet)
		if err := r.ExpectByte(')'); err != nil {
			return commitErr(r, err, "unclosed seq-match data")
		}
		q.SeqMatch = match
	} else if err != ErrMismatch {
		return err
	}
done:
	if err := r.ExpectByte(')'); err != nil {
		return commitErr(r, err, "unclosed QRESYNC parameters")
	}
	opts.QResync = q
	return nil
}

func parseCreate(r *Reader) (imap.CommandData, error) {
	mbox, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	cmd := imap.CreateCommand{Mailbox: mbox}
	if err := r.ReadSP(); err != nil {
		if err == ErrMismatch {
			return cmd, nil
		}
		return nil, err
	}
	opts := &imap.CreateOptions{}
	err = r.ReadList(func() error {
		atom, err := r.ReadAtom()
		if err != nil {
			return err
		}
		if !strings.EqualFold(atom, "USE") {
			return protocolErr(r.rest(), "unknown create parameter %q", atom)
		}
		if err := r.ReadSP(); err != nil {
			return err
		}
		return r.ReadList(func() error {
			flag, err := r.ReadFlag()
			if err != nil {
				return err
			}
			opts.SpecialUse = imap.MailboxAttr(flag)
			return nil
		})
	})
	if err != nil {
		return nil, commitErr(r, err, "malformed create parameters")
	}
	cmd.Options = opts
	return cmd, nil
}

func parseRename(r *Reader) (imap.CommandData, error) {
	from, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	to, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	return imap.RenameCommand{Mailbox: from, NewName: to}, nil
}

func parseList(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "LIST requires arguments")
	}
	cmd := imap.ListCommand{}
	var opts imap.ListOptions
	haveOpts := false

	// Extended form: optional selection options first (RFC 5258).
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '(' {
		haveOpts = true
		err := r.ReadList(func() error {
			atom, err := r.ReadAtom()
			if err != nil {
				return err
			}
			switch strings.ToUpper(atom) {
			case "SUBSCRIBED":
				opts.SelectSubscribed = true
			case "REMOTE":
				opts.SelectRemote = true
			case "RECURSIVEMATCH":
				opts.SelectRecursiveMatch = true
			default:
				return protocolErr(r.rest(), "unknown LIST selection option %q", atom)
			}
			return nil
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed LIST selection options")
		}
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "expected LIST reference")
		}
	}

	ref, err := r.ReadMailbox()
	if err != nil {
		return nil, commitErr(r, err, "expected LIST reference")
	}
	cmd.Ref = ref
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "expected LIST pattern")
	}

	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '(' {
		haveOpts = true
		err := r.ReadList(func() error {
			pat, err := r.ReadListMailbox()
			if err != nil {
				return err
			}
			cmd.Patterns = append(cmd.Patterns, pat)
			return nil
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed LIST pattern list")
		}
		if len(cmd.Patterns) == 0 {
			return nil, protocolErr(r.rest(), "empty LIST pattern list")
		}
	} else {
		pat, err := r.ReadListMailbox()
		if err != nil {
			return nil, commitErr(r, err, "expected LIST pattern")
		}
		cmd.Patterns = []string{pat}
	}

	// Optional RETURN options.
	if err := r.ReadSP(); err == nil {
		atom, err := r.ReadAtom()
		if err != nil || !strings.EqualFold(atom, "RETURN") {
			return nil, commitErr(r, ErrMismatch, "expected RETURN after LIST patterns")
		}
		haveOpts = true
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "expected RETURN options")
		}
		err = r.ReadList(func() error {
			atom, err := r.ReadAtom()
			if err != nil {
				return err
			}
			switch strings.ToUpper(atom) {
			case "SUBSCRIBED":
				opts.ReturnSubscribed = true
			case "CHILDREN":
				opts.ReturnChildren = true
			case "STATUS":
				if err := r.ReadSP(); err != nil {
					return err
				}
				status := &imap.StatusOptions{}
				if err := parseStatusItems(r, status); err != nil {
					return err
				}
				opts.ReturnStatus = status
			default:
				return protocolErr(r.rest(), "unknown LIST return option %q", atom)
			}
			return nil
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed LIST return options")
		}
	} else if err != ErrMismatch {
		return nil, err
	}

	if haveOpts {
		cmd.Options = &opts
	}
	return cmd, nil
}

func parseLsub(r *Reader) (imap.CommandData, error) {
	ref, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "expected LSUB pattern")
	}
	pat, err := r.ReadListMailbox()
	if err != nil {
		return nil, commitErr(r, err, "expected LSUB pattern")
	}
	return imap.LsubCommand{Ref: ref, Pattern: pat}, nil
}

func parseStatus(r *Reader) (imap.CommandData, error) {
	mbox, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "expected status items")
	}
	opts := &imap.StatusOptions{}
	if err := parseStatusItems(r, opts); err != nil {
		return nil, commitErr(r, err, "malformed status items")
	}
	return imap.StatusCommand{Mailbox: mbox, Options: opts}, nil
}

func parseStatusItems(r *Reader, opts *imap.StatusOptions) error {
	return r.ReadList(func() error {
		atom, err := r.ReadAtom()
		if err != nil {
			return err
		}
		switch strings.ToUpper(atom) {
		case "MESSAGES":
			opts.NumMessages = true
		case "RECENT":
			opts.NumRecent = true
		case "UIDNEXT":
			opts.UIDNext = true
		case "UIDVALIDITY":
			opts.UIDValidity = true
		case "UNSEEN":
			opts.NumUnseen = true
		case "DELETED":
			opts.NumDeleted = true
		case "SIZE":
			opts.Size = true
		case "HIGHESTMODSEQ":
			opts.HighestModSeq = true
		default:
			return protocolErr(r.rest(), "unknown status item %q", atom)
		}
		return nil
	})
}

func parseSearch(r *Reader) (imap.CommandData, error) {
	cmd := imap.SearchCommand{}
	opts, charset, criteria, err := parseSearchArgs(r)
	if err != nil {
		return nil, err
	}
	cmd.ReturnOptions = opts
	cmd.Charset = charset
	cmd.Criteria = criteria
	return cmd, nil
}

func parseExtendedSearch(r *Reader) (imap.CommandData, error) {
	cmd := imap.ExtendedSearchCommand{}

	sp := r.Savepoint()
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "ESEARCH requires search criteria")
	}
	if atom, err := r.ReadAtom(); err == nil && strings.EqualFold(atom, "IN") {
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "expected source options")
		}
		err := r.ReadList(func() error {
			atom, err := r.ReadAtom()
			if err != nil {
				return err
			}
			cmd.SourceOptions = append(cmd.SourceOptions, atom)
			return nil
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed source options")
		}
	} else if err != nil && err != ErrMismatch {
		return nil, err
	} else {
		r.Restore(sp)
	}

	opts, charset, criteria, err := parseSearchArgs(r)
	if err != nil {
		return nil, err
	}
	cmd.ReturnOptions = opts
	cmd.Charset = charset
	cmd.Criteria = criteria
	return cmd, nil
}

// parseSearchArgs parses [SP RETURN (...)] SP [CHARSET name SP] 1*key.
func parseSearchArgs(r *Reader) (*imap.SearchOptions, string, *imap.SearchCriteria, error) {
	var opts *imap.SearchOptions
	charset := ""

	if err := r.ReadSP(); err != nil {
		return nil, "", nil, commitErr(r, err, "search requires criteria")
	}

	sp := r.Savepoint()
	if atom, err := r.ReadAtom(); err == nil && strings.EqualFold(atom, "RETURN") {
		if err := r.ReadSP(); err != nil {
			return nil, "", nil, commitErr(r, err, "expected return options")
		}
		opts = &imap.SearchOptions{}
		err := r.ReadList(func() error {
			atom, err := r.ReadAtom()
			if err != nil {
				return err
			}
			switch strings.ToUpper(atom) {
			case "MIN":
				opts.Return = append(opts.Return, imap.SearchReturnMin)
			case "MAX":
				opts.Return = append(opts.Return, imap.SearchReturnMax)
			case "ALL":
				opts.Return = append(opts.Return, imap.SearchReturnAll)
			case "COUNT":
				opts.Return = append(opts.Return, imap.SearchReturnCount)
			case "SAVE":
				opts.Return = append(opts.Return, imap.SearchReturnSave)
			default:
				return protocolErr(r.rest(), "unknown search return option %q", atom)
			}
			return nil
		})
		if err != nil {
			return nil, "", nil, commitErr(r, err, "malformed return options")
		}
		if err := r.ReadSP(); err != nil {
			return nil, "", nil, commitErr(r, err, "search requires criteria")
		}
	} else if err != nil && err != ErrMismatch {
		return nil, "", nil, err
	} else {
		r.Restore(sp)
	}

	sp = r.Savepoint()
	if atom, err := r.ReadAtom(); err == nil && strings.EqualFold(atom, "CHARSET") {
		if err := r.ReadSP(); err != nil {
			return nil, "", nil, commitErr(r, err, "expected charset name")
		}
		charset, err = r.ReadAString()
		if err != nil {
			return nil, "", nil, commitErr(r, err, "expected charset name")
		}
		if err := r.ReadSP(); err != nil {
			return nil, "", nil, commitErr(r, err, "search requires criteria")
		}
	} else if err != nil && err != ErrMismatch {
		return nil, "", nil, err
	} else {
		r.Restore(sp)
	}

	criteria := &imap.SearchCriteria{}
	if err := parseSearchKeys(r, criteria); err != nil {
		return nil, "", nil, err
	}
	return opts, charset, criteria, nil
}

// parseSearchKeys parses one or more space-separated search keys into
// criteria, stopping before CRLF or a closing parenthesis.
func parseSearchKeys(r *Reader, c *imap.SearchCriteria) error {
	first := true
	for {
		if !first {
			sp := r.Savepoint()
			if err := r.ReadSP(); err != nil {
				if err == ErrMismatch {
					return nil
				}
				return err
			}
			if b, err := r.PeekByte(); err != nil {
				r.Restore(sp)
				return err
			} else if b == ')' || b == '\r' {
				r.Restore(sp)
				return nil
			}
		}
		if err := parseSearchKey(r, c); err != nil {
			return err
		}
		first = false
		if b, err := r.PeekByte(); err != nil {
			return err
		} else if b == ')' || b == '\r' {
			return nil
		}
	}
}

func parseSearchKey(r *Reader, c *imap.SearchCriteria) error {
	if b, err := r.PeekByte(); err != nil {
		return err
	} else if b == '(' {
		r.Consume(1)
		nested := imap.SearchCriteria{}
		if err := parseSearchKeys(r, &nested); err != nil {
			return err
		}
		if err := r.ExpectByte(')'); err != nil {
			return commitErr(r, err, "unclosed search key list")
		}
		// A parenthesised list is an AND of its keys, like juxtaposition.
		mergeCriteria(c, &nested)
		return nil
	} else if b == '$' || IsDigit(b) || b == '*' {
		set, err := r.ReadNumSet(imap.NumKindSeq)
		if err != nil {
			return commitErr(r, err, "invalid sequence set key")
		}
		c.SeqNum = mergeSeqSet(c.SeqNum, set.(*imap.SeqSet))
		return nil
	}

	atom, err := r.ReadAtom()
	if err != nil {
		return commitErr(r, err, "expected search key")
	}
	switch strings.ToUpper(atom) {
	case "ALL":
		c.All = true
	case "ANSWERED":
		c.Answered = true
	case "DELETED":
		c.Deleted = true
	case "DRAFT":
		c.Draft = true
	case "FLAGGED":
		c.Flagged = true
	case "NEW":
		c.New = true
	case "OLD":
		c.Old = true
	case "RECENT":
		c.Recent = true
	case "SEEN":
		c.Seen = true
	case "UNANSWERED":
		c.Unanswered = true
	case "UNDELETED":
		c.Undeleted = true
	case "UNDRAFT":
		c.Undraft = true
	case "UNFLAGGED":
		c.Unflagged = true
	case "UNSEEN":
		c.Unseen = true
	case "KEYWORD":
		flag, err := spFlag(r)
		if err != nil {
			return err
		}
		c.Keyword = append(c.Keyword, flag)
	case "UNKEYWORD":
		flag, err := spFlag(r)
		if err != nil {
			return err
		}
		c.Unkeyword = append(c.Unkeyword, flag)
	case "BEFORE":
		return spDate(r, &c.Before)
	case "ON":
		return spDate(r, &c.On)
	case "SINCE":
		return spDate(r, &c.Since)
	case "SENTBEFORE":
		return spDate(r, &c.SentBefore)
	case "SENTON":
		return spDate(r, &c.SentOn)
	case "SENTSINCE":
		return spDate(r, &c.SentSince)
	case "BCC":
		return spString(r, &c.Bcc)
	case "CC":
		return spString(r, &c.Cc)
	case "FROM":
		return spString(r, &c.From)
	case "SUBJECT":
		return spString(r, &c.Subject)
	case "TO":
		return spString(r, &c.To)
	case "BODY":
		return spString(r, &c.Body)
	case "TEXT":
		return spString(r, &c.Text)
	case "HEADER":
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "HEADER requires a field name")
		}
		key, err := r.ReadAString()
		if err != nil {
			return commitErr(r, err, "expected header field name")
		}
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "HEADER requires a value")
		}
		val, err := r.ReadAString()
		if err != nil {
			return commitErr(r, err, "expected header value")
		}
		c.Header = append(c.Header, imap.SearchCriteriaHeaderField{Key: key, Value: val})
	case "LARGER":
		n, err := spNumber64(r)
		if err != nil {
			return err
		}
		c.Larger = int64(n)
	case "SMALLER":
		n, err := spNumber64(r)
		if err != nil {
			return err
		}
		c.Smaller = int64(n)
	case "YOUNGER":
		n, err := spNumber64(r)
		if err != nil {
			return err
		}
		c.Younger = int64(n)
	case "OLDER":
		n, err := spNumber64(r)
		if err != nil {
			return err
		}
		c.Older = int64(n)
	case "MODSEQ":
		return parseModSeqKey(r, c)
	case "UID":
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "UID requires a set")
		}
		set, err := r.ReadNumSet(imap.NumKindUID)
		if err != nil {
			return commitErr(r, err, "expected UID set")
		}
		c.UID = mergeUIDSet(c.UID, set.(*imap.UIDSet))
	case "NOT":
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "NOT requires a key")
		}
		nested := imap.SearchCriteria{}
		if err := parseSearchKey(r, &nested); err != nil {
			return err
		}
		c.Not = append(c.Not, nested)
	case "OR":
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "OR requires two keys")
		}
		var left, right imap.SearchCriteria
		if err := parseSearchKey(r, &left); err != nil {
			return err
		}
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "OR requires two keys")
		}
		if err := parseSearchKey(r, &right); err != nil {
			return err
		}
		c.Or = append(c.Or, [2]imap.SearchCriteria{left, right})
	default:
		return protocolErr(r.rest(), "unknown search key %q", atom)
	}
	return nil
}

func parseModSeqKey(r *Reader, c *imap.SearchCriteria) error {
	if err := r.ReadSP(); err != nil {
		return commitErr(r, err, "MODSEQ requires a value")
	}
	key := &imap.SearchCriteriaModSeq{}
	if b, err := r.PeekByte(); err != nil {
		return err
	} else if b == '"' {
		name, err := r.ReadQuoted()
		if err != nil {
			return commitErr(r, err, "expected metadata entry name")
		}
		key.MetadataName = name
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "expected metadata entry type")
		}
		typ, err := r.ReadAtom()
		if err != nil {
			return commitErr(r, err, "expected metadata entry type")
		}
		key.MetadataType = strings.ToLower(typ)
		if err := r.ReadSP(); err != nil {
			return commitErr(r, err, "expected mod-sequence value")
		}
	}
	n, err := r.ReadModSeq()
	if err != nil {
		return commitErr(r, err, "expected mod-sequence value")
	}
	key.ModSeq = n
	c.ModSeq = key
	return nil
}

func spFlag(r *Reader) (imap.Flag, error) {
	if err := r.ReadSP(); err != nil {
		return "", commitErr(r, err, "expected flag keyword")
	}
	atom, err := r.ReadAtom()
	if err != nil {
		return "", commitErr(r, err, "expected flag keyword")
	}
	return imap.CanonicalFlag(atom), nil
}

func spDate(r *Reader, out *time.Time) error {
	if err := r.ReadSP(); err != nil {
		return commitErr(r, err, "expected date")
	}
	t, err := r.ReadDate()
	if err != nil {
		return commitErr(r, err, "expected date")
	}
	*out = t
	return nil
}

func spString(r *Reader, out *[]string) error {
	if err := r.ReadSP(); err != nil {
		return commitErr(r, err, "expected string argument")
	}
	s, err := r.ReadAString()
	if err != nil {
		return commitErr(r, err, "expected string argument")
	}
	*out = append(*out, s)
	return nil
}

func spNumber64(r *Reader) (uint64, error) {
	if err := r.ReadSP(); err != nil {
		return 0, commitErr(r, err, "expected number")
	}
	n, err := r.ReadNumber64()
	if err != nil {
		return 0, commitErr(r, err, "expected number")
	}
	return n, nil
}

// mergeCriteria folds src into dst with AND semantics.
func mergeCriteria(dst, src *imap.SearchCriteria) {
	dst.SeqNum = mergeSeqSet(dst.SeqNum, src.SeqNum)
	dst.UID = mergeUIDSet(dst.UID, src.UID)

	dst.All = dst.All || src.All
	dst.Answered = dst.Answered || src.Answered
	dst.Deleted = dst.Deleted || src.Deleted
	dst.Draft = dst.Draft || src.Draft
	dst.Flagged = dst.Flagged || src.Flagged
	dst.New = dst.New || src.New
	dst.Old = dst.Old || src.Old
	dst.Recent = dst.Recent || src.Recent
	dst.Seen = dst.Seen || src.Seen
	dst.Unanswered = dst.Unanswered || src.Unanswered
	dst.Undeleted = dst.Undeleted || src.Undeleted
	dst.Undraft = dst.Undraft || src.Undraft
	dst.Unflagged = dst.Unflagged || src.Unflagged
	dst.Unseen = dst.Unseen || src.Unseen

	dst.Keyword = append(dst.Keyword, src.Keyword...)
	dst.Unkeyword = append(dst.Unkeyword, src.Unkeyword...)

	if dst.Before.IsZero() {
		dst.Before = src.Before
	}
	if dst.On.IsZero() {
		dst.On = src.On
	}
	if dst.Since.IsZero() {
		dst.Since = src.Since
	}
	if dst.SentBefore.IsZero() {
		dst.SentBefore = src.SentBefore
	}
	if dst.SentOn.IsZero() {
		dst.SentOn = src.SentOn
	}
	if dst.SentSince.IsZero() {
		dst.SentSince = src.SentSince
	}

	dst.Bcc = append(dst.Bcc, src.Bcc...)
	dst.Cc = append(dst.Cc, src.Cc...)
	dst.From = append(dst.From, src.From...)
	dst.Subject = append(dst.Subject, src.Subject...)
	dst.To = append(dst.To, src.To...)
	dst.Header = append(dst.Header, src.Header...)
	dst.Body = append(dst.Body, src.Body...)
	dst.Text = append(dst.Text, src.Text...)

	if src.Larger != 0 {
		dst.Larger = src.Larger
	}
	if src.Smaller != 0 {
		dst.Smaller = src.Smaller
	}
	if src.ModSeq != nil {
		dst.ModSeq = src.ModSeq
	}
	if src.Younger != 0 {
		dst.Younger = src.Younger
	}
	if src.Older != 0 {
		dst.Older = src.Older
	}

	dst.Or = append(dst.Or, src.Or...)
	dst.Not = append(dst.Not, src.Not...)
}

func mergeSeqSet(dst, src *imap.SeqSet) *imap.SeqSet {
	if src == nil {
		return dst
	}
	if dst == nil {
		return src
	}
	dst.Set = append(dst.Set, src.Set...)
	dst.SearchRes = dst.SearchRes || src.SearchRes
	return dst
}

func mergeUIDSet(dst, src *imap.UIDSet) *imap.UIDSet {
	if src == nil {
		return dst
	}
	if dst == nil {
		return src
	}
	dst.Set = append(dst.Set, src.Set...)
	dst.SearchRes = dst.SearchRes || src.SearchRes
	return dst
}

func parseFetch(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "FETCH requires a sequence set")
	}
	set, err := r.ReadNumSet(imap.NumKindSeq)
	if err != nil {
		return nil, commitErr(r, err, "expected sequence set")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "FETCH requires data items")
	}

	opts := &imap.FetchOptions{}
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '(' {
		err := r.ReadList(func() error {
			return parseFetchItem(r, opts)
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed fetch items")
		}
	} else {
		// A single item or a macro.
		sp := r.Savepoint()
		atom, err := r.readAtomWhile(func(b byte) bool {
			return IsAtomChar(b) && b != '['
		})
		if err != nil {
			return nil, commitErr(r, err, "expected fetch item")
		}
		switch strings.ToUpper(atom) {
		case "ALL":
			opts.Macro = imap.FetchMacroAll
			opts.Flags, opts.InternalDate, opts.RFC822Size, opts.Envelope = true, true, true, true
		case "FAST":
			opts.Macro = imap.FetchMacroFast
			opts.Flags, opts.InternalDate, opts.RFC822Size = true, true, true
		case "FULL":
			opts.Macro = imap.FetchMacroFull
			opts.Flags, opts.InternalDate, opts.RFC822Size, opts.Envelope, opts.Body = true, true, true, true, true
		default:
			r.Restore(sp)
			if err := parseFetchItem(r, opts); err != nil {
				return nil, commitErr(r, err, "malformed fetch item")
			}
		}
	}

	// Optional fetch modifiers: (CHANGEDSINCE modseq [VANISHED]).
	if err := r.ReadSP(); err == nil {
		err := r.ReadList(func() error {
			atom, err := r.ReadAtom()
			if err != nil {
				return err
			}
			switch strings.ToUpper(atom) {
			case "CHANGEDSINCE":
				if err := r.ReadSP(); err != nil {
					return err
				}
				n, err := r.ReadModSeq()
				if err != nil {
					return err
				}
				opts.ChangedSince = n
			case "VANISHED":
				opts.Vanished = true
			default:
				return protocolErr(r.rest(), "unknown fetch modifier %q", atom)
			}
			return nil
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed fetch modifiers")
		}
	} else if err != ErrMismatch {
		return nil, err
	}

	return imap.FetchCommand{NumSet: set, Options: opts}, nil
}

// parseFetchItem parses a single fetch data item, resolving ambiguous
// prefixes (BODY vs BODYSTRUCTURE vs BODY[...], RFC822 vs RFC822.SIZE)
// by longest match.
func parseFetchItem(r *Reader, opts *imap.FetchOptions) error {
	name, err := r.readAtomWhile(func(b byte) bool {
		return IsAtomChar(b) && b != '['
	})
	if err != nil {
		return err
	}
	switch strings.ToUpper(name) {
	case "ENVELOPE":
		opts.Envelope = true
	case "FLAGS":
		opts.Flags = true
	case "INTERNALDATE":
		opts.InternalDate = true
	case "RFC822":
		opts.RFC822 = true
	case "RFC822.HEADER":
		opts.RFC822Header = true
	case "RFC822.TEXT":
		opts.RFC822Text = true
	case "RFC822.SIZE":
		opts.RFC822Size = true
	case "UID":
		opts.UID = true
	case "MODSEQ":
		opts.ModSeq = true
	case "BODYSTRUCTURE":
		opts.BodyStructure = true
	case "BODY", "BODY.PEEK":
		peek := strings.EqualFold(name, "BODY.PEEK")
		if b, err := r.PeekByte(); err != nil {
			return err
		} else if b != '[' {
			if peek {
				return protocolErr(r.rest(), "BODY.PEEK requires a section")
			}
			opts.Body = true
			return nil
		}
		section, err := parseBodySection(r, peek)
		if err != nil {
			return err
		}
		opts.BodySection = append(opts.BodySection, section)
	case "BINARY", "BINARY.PEEK":
		section, err := parseBinarySection(r, strings.EqualFold(name, "BINARY.PEEK"))
		if err != nil {
			return err
		}
		opts.BinarySection = append(opts.BinarySection, section)
	case "BINARY.SIZE":
		part, err := parseSectionPart(r)
		if err != nil {
			return err
		}
		opts.BinarySizeSection = append(opts.BinarySizeSection, part)
	default:
		return protocolErr(r.rest(), "unknown fetch item %q", name)
	}
	return nil
}

// parseBodySection parses "[section]" plus an optional partial range.
func parseBodySection(r *Reader, peek bool) (*imap.FetchItemBodySection, error) {
	if err := r.ExpectByte('['); err != nil {
		return nil, commitErr(r, err, "expected body section")
	}
	section := &imap.FetchItemBodySection{Peek: peek}

	// Optional part number: 1.2.3 optionally followed by .SPECIFIER
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if IsDigit(b) {
		for {
			n, err := r.ReadNumber()
			if err != nil {
				return nil, err
			}
			section.Part = append(section.Part, int(n))
			if b, err := r.PeekByte(); err != nil {
				return nil, err
			} else if b != '.' {
				break
			}
			r.Consume(1)
			if b, err := r.PeekByte(); err != nil {
				return nil, err
			} else if !IsDigit(b) {
				// The dot introduced a specifier, not another part.
				break
			}
		}
	}

	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b != ']' {
		spec, err := r.readAtomWhile(func(b byte) bool {
			return IsAtomChar(b) && b != '['
		})
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(spec) {
		case "HEADER":
			section.Specifier = "HEADER"
		case "TEXT":
			section.Specifier = "TEXT"
		case "MIME":
			section.Specifier = "MIME"
		case "HEADER.FIELDS", "HEADER.FIELDS.NOT":
			section.Specifier = "HEADER.FIELDS"
			section.NotFields = strings.EqualFold(spec, "HEADER.FIELDS.NOT")
			if err := r.ReadSP(); err != nil {
				return nil, commitErr(r, err, "HEADER.FIELDS requires a field list")
			}
			err := r.ReadList(func() error {
				field, err := r.ReadAString()
				if err != nil {
					return err
				}
				section.Fields = append(section.Fields, field)
				return nil
			})
			if err != nil {
				return nil, commitErr(r, err, "malformed header field list")
			}
			if len(section.Fields) == 0 {
				return nil, protocolErr(r.rest(), "empty header field list")
			}
		default:
			return nil, protocolErr(r.rest(), "unknown section specifier %q", spec)
		}
	}
	if err := r.ExpectByte(']'); err != nil {
		return nil, commitErr(r, err, "unclosed body section")
	}

	partial, err := parsePartial(r)
	if err != nil {
		return nil, err
	}
	section.Partial = partial
	return section, nil
}

func parseBinarySection(r *Reader, peek bool) (*imap.FetchItemBinarySection, error) {
	part, err := parseSectionPart(r)
	if err != nil {
		return nil, err
	}
	partial, err := parsePartial(r)
	if err != nil {
		return nil, err
	}
	return &imap.FetchItemBinarySection{Part: part, Peek: peek, Partial: partial}, nil
}

func parseSectionPart(r *Reader) ([]int, error) {
	if err := r.ExpectByte('['); err != nil {
		return nil, commitErr(r, err, "expected section part")
	}
	var part []int
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if IsDigit(b) {
		for {
			n, err := r.ReadNumber()
			if err != nil {
				return nil, err
			}
			part = append(part, int(n))
			if b, err := r.PeekByte(); err != nil {
				return nil, err
			} else if b != '.' {
				break
			}
			r.Consume(1)
		}
	}
	if err := r.ExpectByte(']'); err != nil {
		return nil, commitErr(r, err, "unclosed section part")
	}
	return part, nil
}

// parsePartial parses an optional partial suffix: <offset.count> in
// commands, <offset> in responses. An absent count is stored as -1.
func parsePartial(r *Reader) (*imap.SectionPartial, error) {
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b != '<' {
		return nil, nil
	}
	r.Consume(1)
	offset, err := r.ReadNumber64()
	if err != nil {
		return nil, commitErr(r, err, "expected partial offset")
	}
	partial := &imap.SectionPartial{Offset: int64(offset), Count: -1}
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '.' {
		r.Consume(1)
		count, err := r.ReadNumber64()
		if err != nil {
			return nil, commitErr(r, err, "expected partial count")
		}
		partial.Count = int64(count)
	}
	if err := r.ExpectByte('>'); err != nil {
		return nil, commitErr(r, err, "unclosed partial range")
	}
	return partial, nil
}

func parseStore(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "STORE requires a sequence set")
	}
	set, err := r.ReadNumSet(imap.NumKindSeq)
	if err != nil {
		return nil, commitErr(r, err, "expected sequence set")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "STORE requires flags")
	}

	cmd := imap.StoreCommand{NumSet: set}

	// Optional store modifiers: (UNCHANGEDSINCE modseq).
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '(' {
		opts := &imap.StoreOptions{}
		err := r.ReadList(func() error {
			atom, err := r.ReadAtom()
			if err != nil {
				return err
			}
			if !strings.EqualFold(atom, "UNCHANGEDSINCE") {
				return protocolErr(r.rest(), "unknown store modifier %q", atom)
			}
			if err := r.ReadSP(); err != nil {
				return err
			}
			n, err := r.ReadModSeq()
			if err != nil {
				return err
			}
			opts.UnchangedSince = n
			return nil
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed store modifiers")
		}
		cmd.Options = opts
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "STORE requires flags")
		}
	}

	verb, err := r.readAtomWhile(func(b byte) bool {
		return IsAtomChar(b)
	})
	if err != nil {
		return nil, commitErr(r, err, "expected store action")
	}
	flags := &imap.StoreFlags{}
	upper := strings.ToUpper(verb)
	if strings.HasSuffix(upper, ".SILENT") {
		flags.Silent = true
		upper = strings.TrimSuffix(upper, ".SILENT")
	}
	switch upper {
	case "FLAGS":
		flags.Action = imap.StoreFlagsSet
	case "+FLAGS":
		flags.Action = imap.StoreFlagsAdd
	case "-FLAGS":
		flags.Action = imap.StoreFlagsDel
	default:
		return nil, protocolErr(r.rest(), "unknown store action %q", verb)
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "expected flag list")
	}

	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '(' {
		flags.Flags, err = r.ReadFlagList()
		if err != nil {
			return nil, commitErr(r, err, "malformed flag list")
		}
	} else {
		// Unparenthesised flags, space separated.
		for {
			f, err := r.ReadFlag()
			if err != nil {
				return nil, commitErr(r, err, "expected flag")
			}
			flags.Flags = append(flags.Flags, f)
			if err := r.ReadSP(); err != nil {
				if err == ErrMismatch {
					break
				}
				return nil, err
			}
		}
	}
	cmd.Flags = flags
	return cmd, nil
}

func parseCopyMove(r *Reader, move bool) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "expected sequence set")
	}
	set, err := r.ReadNumSet(imap.NumKindSeq)
	if err != nil {
		return nil, commitErr(r, err, "expected sequence set")
	}
	mbox, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	if move {
		return imap.MoveCommand{NumSet: set, Mailbox: mbox}, nil
	}
	return imap.CopyCommand{NumSet: set, Mailbox: mbox}, nil
}

func parseUID(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "UID requires a command")
	}
	name, err := r.ReadAtom()
	if err != nil {
		return nil, commitErr(r, err, "expected command after UID")
	}
	upper := strings.ToUpper(name)
	switch upper {
	case "FETCH", "STORE", "SEARCH", "COPY", "MOVE", "EXPUNGE":
	default:
		return nil, protocolErr(r.rest(), "command %q cannot follow UID", name)
	}
	inner, err := parseCommandData(r, upper, true)
	if err != nil {
		return nil, err
	}
	// UID FETCH/STORE/COPY/MOVE operate on UID sets.
	switch cmd := inner.(type) {
	case imap.FetchCommand:
		cmd.NumSet = seqToUIDSet(cmd.NumSet)
		inner = cmd
	case imap.StoreCommand:
		cmd.NumSet = seqToUIDSet(cmd.NumSet)
		inner = cmd
	case imap.CopyCommand:
		cmd.NumSet = seqToUIDSet(cmd.NumSet)
		inner = cmd
	case imap.MoveCommand:
		cmd.NumSet = seqToUIDSet(cmd.NumSet)
		inner = cmd
	}
	return imap.UIDCommand{Inner: inner}, nil
}

func seqToUIDSet(set imap.NumSet) imap.NumSet {
	ss, ok := set.(*imap.SeqSet)
	if !ok {
		return set
	}
	return &imap.UIDSet{Set: ss.Set, SearchRes: ss.SearchRes}
}

func parseSort(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "SORT requires criteria")
	}
	cmd := imap.SortCommand{}
	err := r.ReadList(func() error {
		atom, err := r.ReadAtom()
		if err != nil {
			return err
		}
		crit := imap.SortCriterion{}
		if strings.EqualFold(atom, "REVERSE") {
			crit.Reverse = true
			if err := r.ReadSP(); err != nil {
				return err
			}
			if atom, err = r.ReadAtom(); err != nil {
				return err
			}
		}
		switch strings.ToUpper(atom) {
		case "ARRIVAL", "CC", "DATE", "FROM", "SIZE", "SUBJECT", "TO":
			crit.Key = imap.SortKey(strings.ToUpper(atom))
		default:
			return protocolErr(r.rest(), "unknown sort key %q", atom)
		}
		cmd.Criteria = append(cmd.Criteria, crit)
		return nil
	})
	if err != nil {
		return nil, commitErr(r, err, "malformed sort criteria")
	}
	if len(cmd.Criteria) == 0 {
		return nil, protocolErr(r.rest(), "empty sort criteria")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "SORT requires a charset")
	}
	charset, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected charset name")
	}
	cmd.Charset = charset
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "SORT requires search criteria")
	}
	criteria := &imap.SearchCriteria{}
	if err := parseSearchKeys(r, criteria); err != nil {
		return nil, err
	}
	cmd.Search = criteria
	return cmd, nil
}

func parseThread(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "THREAD requires an algorithm")
	}
	algo, err := r.ReadAtom()
	if err != nil {
		return nil, commitErr(r, err, "expected threading algorithm")
	}
	cmd := imap.ThreadCommand{}
	switch strings.ToUpper(algo) {
	case "ORDEREDSUBJECT":
		cmd.Algorithm = imap.ThreadAlgorithmOrderedSubject
	case "REFERENCES":
		cmd.Algorithm = imap.ThreadAlgorithmReferences
	default:
		return nil, protocolErr(r.rest(), "unknown threading algorithm %q", algo)
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "THREAD requires a charset")
	}
	charset, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected charset name")
	}
	cmd.Charset = charset
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "THREAD requires search criteria")
	}
	criteria := &imap.SearchCriteria{}
	if err := parseSearchKeys(r, criteria); err != nil {
		return nil, err
	}
	cmd.Search = criteria
	return cmd, nil
}

func parseGetQuota(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "GETQUOTA requires a root")
	}
	root, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected quota root")
	}
	return imap.GetQuotaCommand{Root: root}, nil
}

func parseSetQuota(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "SETQUOTA requires a root")
	}
	root, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected quota root")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "SETQUOTA requires limits")
	}
	cmd := imap.SetQuotaCommand{Root: root}
	err = r.ReadList(func() error {
		name, err := r.ReadAtom()
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
		cmd.Limits = append(cmd.Limits, imap.QuotaResourceLimit{
			Name:  imap.QuotaResource(strings.ToUpper(name)),
			Limit: int64(limit),
		})
		return nil
	})
	if err != nil {
		return nil, commitErr(r, err, "malformed quota limits")
	}
	return cmd, nil
}

func parseSetACL(r *Reader) (imap.CommandData, error) {
	mbox, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "SETACL requires an identifier")
	}
	ident, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected identifier")
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "SETACL requires rights")
	}
	rights, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected rights")
	}
	cmd := imap.SetACLCommand{Mailbox: mbox, Identifier: ident}
	if len(rights) > 0 && (rights[0] == '+' || rights[0] == '-') {
		cmd.Modification = rights[0]
		rights = rights[1:]
	}
	cmd.Rights = imap.ACLRights(rights)
	return cmd, nil
}

func parseDeleteACL(r *Reader) (imap.CommandData, error) {
	mbox, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "DELETEACL requires an identifier")
	}
	ident, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected identifier")
	}
	return imap.DeleteACLCommand{Mailbox: mbox, Identifier: ident}, nil
}

func parseListRights(r *Reader) (imap.CommandData, error) {
	mbox, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "LISTRIGHTS requires an identifier")
	}
	ident, err := r.ReadAString()
	if err != nil {
		return nil, commitErr(r, err, "expected identifier")
	}
	return imap.ListRightsCommand{Mailbox: mbox, Identifier: ident}, nil
}

func parseGetMetadata(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "GETMETADATA requires a mailbox")
	}
	cmd := imap.GetMetadataCommand{}

	// Optional options list precedes the mailbox (RFC 5464 §4.2).
	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '(' {
		opts := &imap.MetadataOptions{}
		err := r.ReadList(func() error {
			atom, err := r.ReadAtom()
			if err != nil {
				return err
			}
			switch strings.ToUpper(atom) {
			case "MAXSIZE":
				if err := r.ReadSP(); err != nil {
					return err
				}
				n, err := r.ReadNumber64()
				if err != nil {
					return err
				}
				size := int64(n)
				opts.MaxSize = &size
			case "DEPTH":
				if err := r.ReadSP(); err != nil {
					return err
				}
				depth, err := r.ReadAtom()
				if err != nil {
					return err
				}
				switch strings.ToLower(depth) {
				case "0", "1", "infinity":
					opts.Depth = strings.ToLower(depth)
				default:
					return grammarErr([]byte(depth), "invalid DEPTH %q", depth)
				}
			default:
				return protocolErr(r.rest(), "unknown metadata option %q", atom)
			}
			return nil
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed metadata options")
		}
		cmd.Options = opts
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "expected mailbox")
		}
	}

	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, commitErr(r, err, "expected mailbox")
	}
	cmd.Mailbox = mbox
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "GETMETADATA requires entries")
	}

	if b, err := r.PeekByte(); err != nil {
		return nil, err
	} else if b == '(' {
		err := r.ReadList(func() error {
			entry, err := r.ReadAString()
			if err != nil {
				return err
			}
			cmd.Entries = append(cmd.Entries, entry)
			return nil
		})
		if err != nil {
			return nil, commitErr(r, err, "malformed entry list")
		}
	} else {
		entry, err := r.ReadAString()
		if err != nil {
			return nil, commitErr(r, err, "expected entry name")
		}
		cmd.Entries = []string{entry}
	}
	return cmd, nil
}

func parseSetMetadata(r *Reader) (imap.CommandData, error) {
	mbox, err := spMailbox(r)
	if err != nil {
		return nil, err
	}
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "SETMETADATA requires entries")
	}
	cmd := imap.SetMetadataCommand{Mailbox: mbox}
	err = r.ReadList(func() error {
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
		cmd.Entries = append(cmd.Entries, entry)
		return nil
	})
	if err != nil {
		return nil, commitErr(r, err, "malformed metadata entries")
	}
	return cmd, nil
}

func parseGenURLAuth(r *Reader) (imap.CommandData, error) {
	cmd := imap.GenURLAuthCommand{}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, err
		}
		url, err := r.ReadAString()
		if err != nil {
			return nil, commitErr(r, err, "expected rump URL")
		}
		if err := r.ReadSP(); err != nil {
			return nil, commitErr(r, err, "expected URLAUTH mechanism")
		}
		mech, err := r.ReadAtom()
		if err != nil {
			return nil, commitErr(r, err, "expected URLAUTH mechanism")
		}
		cmd.Items = append(cmd.Items, imap.URLAuthItem{
			URL:       url,
			Mechanism: imap.URLAuthMechanism(strings.ToUpper(mech)),
		})
	}
	if len(cmd.Items) == 0 {
		return nil, protocolErr(r.rest(), "GENURLAUTH requires a URL")
	}
	return cmd, nil
}

func parseResetKey(r *Reader) (imap.CommandData, error) {
	cmd := imap.ResetKeyCommand{}
	if err := r.ReadSP(); err != nil {
		if err == ErrMismatch {
			return cmd, nil
		}
		return nil, err
	}
	mbox, err := r.ReadMailbox()
	if err != nil {
		return nil, commitErr(r, err, "expected mailbox")
	}
	cmd.Mailbox = mbox
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, err
		}
		mech, err := r.ReadAtom()
		if err != nil {
			return nil, commitErr(r, err, "expected mechanism name")
		}
		cmd.Mechanisms = append(cmd.Mechanisms, strings.ToUpper(mech))
	}
	return cmd, nil
}

func parseURLFetch(r *Reader) (imap.CommandData, error) {
	cmd := imap.URLFetchCommand{}
	for {
		if err := r.ReadSP(); err != nil {
			if err == ErrMismatch {
				break
			}
			return nil, err
		}
		url, err := r.ReadAString()
		if err != nil {
			return nil, commitErr(r, err, "expected URL")
		}
		cmd.URLs = append(cmd.URLs, url)
	}
	if len(cmd.URLs) == 0 {
		return nil, protocolErr(r.rest(), "URLFETCH requires a URL")
	}
	return cmd, nil
}

func parseID(r *Reader) (imap.CommandData, error) {
	if err := r.ReadSP(); err != nil {
		return nil, commitErr(r, err, "ID requires a parameter list")
	}
	params, err := parseIDParams(r)
	if err != nil {
		return nil, err
	}
	return imap.IDCommand{Params: params}, nil
}

// parseIDParams parses the ID parameter list: NIL or a parenthesised
// sequence of string/nstring pairs (RFC 2971).
func parseIDParams(r *Reader) (imap.IDData, error) {
	if r.atNIL() {
		r.Consume(3)
		return nil, nil
	}
	params := imap.IDData{}
	err := r.ReadList(func() error {
		key, err := r.ReadString()
		if err != nil {
			return err
		}
		if err := r.ReadSP(); err != nil {
			return err
		}
		val, ok, err := r.ReadNString()
		if err != nil {
			return err
		}
		p := imap.IDParam{Key: key}
		if ok {
			v := val
			p.Value = &v
		}
		params = append(params, p)
		return nil
	})
	if err != nil {
		return nil, commitErr(r, err, "malformed ID parameters")
	}
	return params, nil
}
