package wire

import (
	"bytes"
	"testing"
	"time"

	imap "github.com/meszmate/imap-codec"
)

func encodeCommand(t *testing.T, cmd *imap.Command) string {
	t.Helper()
	e := NewEncoder()
	if err := e.EncodeCommand(cmd); err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	return string(e.Bytes())
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  *imap.Command
		want string
	}{
		{
			"login",
			&imap.Command{Tag: "a1", Data: imap.LoginCommand{Username: "user", Password: "pass"}},
			"a1 LOGIN \"user\" \"pass\"\r\n",
		},
		{
			"noop",
			&imap.Command{Tag: "a2", Data: imap.NoopCommand{}},
			"a2 NOOP\r\n",
		},
		{
			"select inbox folds",
			&imap.Command{Tag: "a3", Data: imap.SelectCommand{Mailbox: imap.NewMailboxName("inbox")}},
			"a3 SELECT INBOX\r\n",
		},
		{
			"examine with condstore",
			&imap.Command{Tag: "a4", Data: imap.SelectCommand{
				Mailbox: "Drafts",
				Options: &imap.SelectOptions{ReadOnly: true, CondStore: true},
			}},
			"a4 EXAMINE Drafts (CONDSTORE)\r\n",
		},
		{
			"fetch single item",
			&imap.Command{Tag: "a5", Data: imap.FetchCommand{
				NumSet:  mustSeqSet(t, "1:10"),
				Options: &imap.FetchOptions{Flags: true},
			}},
			"a5 FETCH 1:10 FLAGS\r\n",
		},
		{
			"fetch items with changedsince",
			&imap.Command{Tag: "a6", Data: imap.FetchCommand{
				NumSet: mustSeqSet(t, "1:*"),
				Options: &imap.FetchOptions{
					Flags: true, UID: true, ChangedSince: 12345,
				},
			}},
			"a6 FETCH 1:* (FLAGS UID) (CHANGEDSINCE 12345)\r\n",
		},
		{
			"fetch body section partial",
			&imap.Command{Tag: "a7", Data: imap.FetchCommand{
				NumSet: mustSeqSet(t, "7"),
				Options: &imap.FetchOptions{
					BodySection: []*imap.FetchItemBodySection{{
						Specifier: "HEADER.FIELDS",
						Fields:    []string{"From", "To"},
						Peek:      true,
						Partial:   &imap.SectionPartial{Offset: 0, Count: 100},
					}},
				},
			}},
			"a7 FETCH 7 BODY.PEEK[HEADER.FIELDS (\"From\" \"To\")]<0.100>\r\n",
		},
		{
			"store add silent",
			&imap.Command{Tag: "a8", Data: imap.StoreCommand{
				NumSet: mustSeqSet(t, "2:4"),
				Flags: &imap.StoreFlags{
					Action: imap.StoreFlagsAdd,
					Silent: true,
					Flags:  []imap.Flag{imap.FlagDeleted},
				},
			}},
			"a8 STORE 2:4 +FLAGS.SILENT (\\Deleted)\r\n",
		},
		{
			"store unchangedsince",
			&imap.Command{Tag: "a9", Data: imap.StoreCommand{
				NumSet:  mustSeqSet(t, "1"),
				Options: &imap.StoreOptions{UnchangedSince: 320162338},
				Flags: &imap.StoreFlags{
					Action: imap.StoreFlagsSet,
					Flags:  []imap.Flag{imap.FlagSeen},
				},
			}},
			"a9 STORE 1 (UNCHANGEDSINCE 320162338) FLAGS (\\Seen)\r\n",
		},
		{
			"uid move",
			&imap.Command{Tag: "b1", Data: imap.UIDCommand{
				Inner: imap.MoveCommand{NumSet: mustUIDSet(t, "42:69"), Mailbox: "Archive"},
			}},
			"b1 UID MOVE 42:69 Archive\r\n",
		},
		{
			"uid expunge saved result",
			&imap.Command{Tag: "b2", Data: imap.UIDCommand{
				Inner: imap.ExpungeCommand{UIDs: imap.SearchResUIDSet()},
			}},
			"b2 UID EXPUNGE $\r\n",
		},
		{
			"extended search",
			&imap.Command{Tag: "A", Data: imap.ExtendedSearchCommand{
				SourceOptions: []string{"inboxes"},
				ReturnOptions: &imap.SearchOptions{Return: []imap.SearchReturnOption{
					imap.SearchReturnMin, imap.SearchReturnMax, imap.SearchReturnCount,
				}},
				Charset:  "UTF-8",
				Criteria: &imap.SearchCriteria{From: []string{"alice"}},
			}},
			"A ESEARCH IN (inboxes) RETURN (MIN MAX COUNT) CHARSET UTF-8 FROM \"alice\"\r\n",
		},
		{
			"search or and not",
			&imap.Command{Tag: "b3", Data: imap.SearchCommand{
				Criteria: &imap.SearchCriteria{
					Or: [][2]imap.SearchCriteria{{
						{Seen: true},
						{From: []string{"bob"}, Unseen: true},
					}},
					Not: []imap.SearchCriteria{{Deleted: true}},
				},
			}},
			"b3 SEARCH OR SEEN (UNSEEN FROM \"bob\") NOT DELETED\r\n",
		},
		{
			"search since",
			&imap.Command{Tag: "b4", Data: imap.SearchCommand{
				Criteria: &imap.SearchCriteria{
					Since: time.Date(1994, time.February, 1, 0, 0, 0, 0, time.UTC),
				},
			}},
			"b4 SEARCH SINCE 1-Feb-1994\r\n",
		},
		{
			"status",
			&imap.Command{Tag: "b5", Data: imap.StatusCommand{
				Mailbox: "blurdybloop",
				Options: &imap.StatusOptions{NumMessages: true, UIDNext: true, Size: true},
			}},
			"b5 STATUS blurdybloop (MESSAGES UIDNEXT SIZE)\r\n",
		},
		{
			"enable",
			&imap.Command{Tag: "b6", Data: imap.EnableCommand{
				Caps: []imap.Cap{imap.CapCondStore, imap.CapQResync},
			}},
			"b6 ENABLE CONDSTORE QRESYNC\r\n",
		},
		{
			"list extended",
			&imap.Command{Tag: "b7", Data: imap.ListCommand{
				Ref:      "",
				Patterns: []string{"%"},
				Options: &imap.ListOptions{
					SelectSubscribed: true,
					ReturnStatus:     &imap.StatusOptions{NumMessages: true},
				},
			}},
			"b7 LIST (SUBSCRIBED) \"\" % RETURN (STATUS (MESSAGES))\r\n",
		},
		{
			"getquota",
			&imap.Command{Tag: "b8", Data: imap.GetQuotaCommand{Root: ""}},
			"b8 GETQUOTA \"\"\r\n",
		},
		{
			"setquota",
			&imap.Command{Tag: "b9", Data: imap.SetQuotaCommand{
				Root: "",
				Limits: []imap.QuotaResourceLimit{{Name: imap.QuotaResourceStorage, Limit: 512}},
			}},
			"b9 SETQUOTA \"\" (STORAGE 512)\r\n",
		},
		{
			"setacl",
			&imap.Command{Tag: "c1", Data: imap.SetACLCommand{
				Mailbox: "INBOX", Identifier: "fred",
				Modification: '+', Rights: "rswi",
			}},
			"c1 SETACL INBOX \"fred\" \"+rswi\"\r\n",
		},
		{
			"getmetadata with options",
			&imap.Command{Tag: "c2", Data: imap.GetMetadataCommand{
				Mailbox: "INBOX",
				Entries: []string{"/shared/comment"},
				Options: &imap.MetadataOptions{Depth: "infinity"},
			}},
			"c2 GETMETADATA (DEPTH infinity) INBOX \"/shared/comment\"\r\n",
		},
		{
			"genurlauth",
			&imap.Command{Tag: "c3", Data: imap.GenURLAuthCommand{
				Items: []imap.URLAuthItem{{
					URL:       "imap://joe@example.com/INBOX/;uid=20/;urlauth=anonymous",
					Mechanism: imap.URLAuthMechanismInternal,
				}},
			}},
			"c3 GENURLAUTH \"imap://joe@example.com/INBOX/;uid=20/;urlauth=anonymous\" INTERNAL\r\n",
		},
		{
			"id nil",
			&imap.Command{Tag: "c4", Data: imap.IDCommand{}},
			"c4 ID NIL\r\n",
		},
		{
			"xforceuid",
			&imap.Command{Tag: "c5", Data: imap.XForceUIDCommand{}},
			"c5 XFORCEUID\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeCommand(t, tt.cmd)
			if got != tt.want {
				t.Errorf("encode = %q\n        want %q", got, tt.want)
			}
		})
	}
}

func mustSeqSet(t *testing.T, s string) *imap.SeqSet {
	t.Helper()
	set, err := imap.ParseSeqSet(s)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func mustUIDSet(t *testing.T, s string) *imap.UIDSet {
	t.Helper()
	set, err := imap.ParseUIDSet(s)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

// Inline literals use the synchronising form.
func TestEncodeCommand_LiteralString(t *testing.T) {
	got := encodeCommand(t, &imap.Command{
		Tag:  "a1",
		Data: imap.LoginCommand{Username: "user", Password: "pa\nss"},
	})
	want := "a1 LOGIN \"user\" {5}\r\npa\nss\r\n"
	if got != want {
		t.Errorf("encode = %q, want %q", got, want)
	}
}

// Chunked encoding stops after each synchronising literal header.
func TestClientEncoder_ChunkedSyncLiteral(t *testing.T) {
	e := NewClientEncoder(EncoderOptions{})
	err := e.EncodeCommand(&imap.Command{
		Tag:  "a1",
		Data: imap.LoginCommand{Username: "us\ner", Password: "pa\nss"},
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := e.Chunks()
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if !chunks[0].WaitsForContinuation || !chunks[1].WaitsForContinuation {
		t.Error("literal header chunks must wait for continuation")
	}
	if chunks[2].WaitsForContinuation {
		t.Error("final chunk must not wait")
	}
	if !bytes.HasSuffix(chunks[0].Bytes, []byte("{5}\r\n")) {
		t.Errorf("chunk[0] = %q", chunks[0].Bytes)
	}
	joined := append(append(append([]byte{}, chunks[0].Bytes...), chunks[1].Bytes...), chunks[2].Bytes...)
	want := "a1 LOGIN {5}\r\nus\ner {5}\r\npa\nss\r\n"
	if string(joined) != want {
		t.Errorf("joined = %q, want %q", joined, want)
	}
}

// With LITERAL+ the client emits non-synchronising literals and no stop
// points.
func TestClientEncoder_LiteralPlus(t *testing.T) {
	e := NewClientEncoder(EncoderOptions{Caps: imap.NewCapSet(imap.CapLiteralPlus)})
	err := e.EncodeCommand(&imap.Command{
		Tag:  "a1",
		Data: imap.LoginCommand{Username: "user", Password: "pa\nss"},
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := e.Chunks()
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	want := "a1 LOGIN \"user\" {5+}\r\npa\nss\r\n"
	if string(chunks[0].Bytes) != want {
		t.Errorf("chunk = %q, want %q", chunks[0].Bytes, want)
	}
}

// LITERAL- allows the non-synchronising form only up to 4096 octets.
func TestClientEncoder_LiteralMinus(t *testing.T) {
	small := make([]byte, 10)
	big := make([]byte, nonSyncLiteralLimit+1)

	e := NewClientEncoder(EncoderOptions{Caps: imap.NewCapSet(imap.CapLiteralMinus)})
	e.Literal(small, false)
	if got := e.Chunks(); len(got) != 1 {
		t.Errorf("small literal chunks = %d, want 1", len(got))
	}

	e = NewClientEncoder(EncoderOptions{Caps: imap.NewCapSet(imap.CapLiteralMinus)})
	e.Literal(big, false)
	if got := e.Chunks(); len(got) != 2 || !got[0].WaitsForContinuation {
		t.Errorf("big literal must fall back to the synchronising form")
	}
}

// Binary APPEND literals use ~{n} when the peer advertises BINARY.
func TestClientEncoder_BinaryAppend(t *testing.T) {
	e := NewClientEncoder(EncoderOptions{
		Caps: imap.NewCapSet(imap.CapBinary, imap.CapLiteralPlus),
	})
	err := e.EncodeCommand(&imap.Command{
		Tag: "a1",
		Data: imap.AppendCommand{
			Mailbox: "INBOX",
			Messages: []imap.AppendMessage{{
				Options: &imap.AppendOptions{Binary: true},
				Data:    []byte{0x00, 0x01, 0x02},
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := e.Chunks()
	want := "a1 APPEND INBOX ~{3+}\r\n\x00\x01\x02\r\n"
	if len(chunks) != 1 || string(chunks[0].Bytes) != want {
		t.Fatalf("chunks = %v, want %q", chunks, want)
	}
}

// ---------- response encoding ----------

func encodeResponse(t *testing.T, data imap.ResponseData) string {
	t.Helper()
	e := NewEncoder()
	if err := e.EncodeResponseData(data); err != nil {
		t.Fatalf("EncodeResponseData: %v", err)
	}
	return string(e.Bytes())
}

func TestEncodeResponseData(t *testing.T) {
	tests := []struct {
		name string
		data imap.ResponseData
		want string
	}{
		{
			"exists",
			imap.ExistsData{Count: 23},
			"* 23 EXISTS\r\n",
		},
		{
			"expunge",
			imap.ExpungeData{SeqNum: 44},
			"* 44 EXPUNGE\r\n",
		},
		{
			"flags",
			imap.FlagsData{Flags: []imap.Flag{imap.FlagAnswered, imap.FlagFlagged}},
			"* FLAGS (\\Answered \\Flagged)\r\n",
		},
		{
			"capability",
			imap.CapabilityData{Caps: []imap.Cap{imap.CapIMAP4rev1, imap.CapIdle}},
			"* CAPABILITY IMAP4rev1 IDLE\r\n",
		},
		{
			"enabled",
			imap.EnabledData{Caps: []imap.Cap{imap.CapCondStore}},
			"* ENABLED CONDSTORE\r\n",
		},
		{
			"list",
			imap.ListData{
				Attrs:   []imap.MailboxAttr{imap.MailboxAttrNoSelect},
				Delim:   '/',
				Mailbox: "foo",
			},
			"* LIST (\\Noselect) \"/\" foo\r\n",
		},
		{
			"lsub nil delim",
			imap.ListData{Lsub: true, Mailbox: "bar"},
			"* LSUB () NIL bar\r\n",
		},
		{
			"search",
			imap.SearchData{All: []uint32{2, 3, 6}},
			"* SEARCH 2 3 6\r\n",
		},
		{
			"esearch",
			imap.SearchData{Tag: "A1", UID: true, HasMin: true, Min: 7, HasCount: true, Count: 25},
			"* ESEARCH (TAG \"A1\") UID MIN 7 COUNT 25\r\n",
		},
		{
			"sort",
			imap.SortData{Nums: []uint32{5, 3, 4}},
			"* SORT 5 3 4\r\n",
		},
		{
			"vanished earlier",
			imap.VanishedData{Earlier: true, UIDs: mustUIDSet(t, "41,43:116")},
			"* VANISHED (EARLIER) 41,43:116\r\n",
		},
		{
			"quota",
			imap.QuotaData{
				Root: "",
				Resources: []imap.QuotaResourceData{
					{Name: imap.QuotaResourceStorage, Usage: 10, Limit: 512},
				},
			},
			"* QUOTA \"\" (STORAGE 10 512)\r\n",
		},
		{
			"quotaroot",
			imap.QuotaRootData{Mailbox: "INBOX", Roots: []string{""}},
			"* QUOTAROOT INBOX \"\"\r\n",
		},
		{
			"acl",
			imap.ACLData{
				Mailbox: "INBOX",
				Rights:  []imap.ACLIdentifierRights{{Identifier: "fred", Rights: "rwipslxcda"}},
			},
			"* ACL INBOX \"fred\" rwipslxcda\r\n",
		},
		{
			"myrights",
			imap.MyRightsData{Mailbox: "INBOX", Rights: "lrswi"},
			"* MYRIGHTS INBOX lrswi\r\n",
		},
		{
			"namespace",
			imap.NamespaceData{
				Personal: []imap.NamespaceDescriptor{{Prefix: "", Delim: '/'}},
			},
			"* NAMESPACE ((\"\" \"/\")) NIL NIL\r\n",
		},
		{
			"thread",
			imap.ThreadData{Threads: []imap.Thread{
				{Num: 2},
				{Num: 3, Children: []imap.Thread{
					{Num: 6, Children: []imap.Thread{
						{Num: 4, Children: []imap.Thread{{Num: 23}}},
						{Num: 44, Children: []imap.Thread{
							{Num: 7, Children: []imap.Thread{{Num: 96}}},
						}},
					}},
				}},
			}},
			"* THREAD (2)(3 6 (4 23)(44 7 96))\r\n",
		},
		{
			"untagged ok with code",
			imap.UntaggedStatus{Status: &imap.StatusResponse{
				Type:    imap.StatusResponseTypeOK,
				Code:    imap.ResponseCodeUnseen,
				CodeArg: "12",
				Text:    "Message 12 is first unseen",
			}},
			"* OK [UNSEEN 12] Message 12 is first unseen\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeResponse(t, tt.data)
			if got != tt.want {
				t.Errorf("encode = %q\n        want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeGreetingAndDone(t *testing.T) {
	e := NewEncoder()
	if err := e.EncodeGreeting(&imap.Greeting{Status: &imap.StatusResponse{
		Type: imap.StatusResponseTypeOK,
		Text: "IMAP4rev1 Service Ready",
	}}); err != nil {
		t.Fatal(err)
	}
	if err := e.EncodeResponseDone(&imap.ResponseDone{
		Tag: "a1",
		Status: &imap.StatusResponse{
			Type: imap.StatusResponseTypeOK,
			Text: "LOGIN completed",
		},
	}); err != nil {
		t.Fatal(err)
	}
	want := "* OK IMAP4rev1 Service Ready\r\na1 OK LOGIN completed\r\n"
	if got := string(e.Bytes()); got != want {
		t.Errorf("encode = %q, want %q", got, want)
	}
}

func TestEncodeContinuationRequest(t *testing.T) {
	e := NewEncoder()
	if err := e.EncodeContinuationRequest("ready"); err != nil {
		t.Fatal(err)
	}
	if got := string(e.Bytes()); got != "+ ready\r\n" {
		t.Errorf("encode = %q", got)
	}
}

func TestEncodeFetch(t *testing.T) {
	e := NewEncoder()
	err := e.EncodeFetch(1, []FetchAttrValue{
		{Attr: imap.FetchAttrUID{UID: 42}},
		{
			Attr: imap.FetchAttrBodySection{
				Section: &imap.FetchItemBodySection{Specifier: "TEXT"},
			},
			Data: []byte("Hello world"),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "* 1 FETCH (UID 42 BODY[TEXT] {11}\r\nHello world)\r\n"
	if got := string(e.Bytes()); got != want {
		t.Errorf("encode = %q\n     want %q", got, want)
	}
}

// A zero-length section literal round-trips as {0}.
func TestEncodeFetch_EmptyLiteral(t *testing.T) {
	e := NewEncoder()
	err := e.EncodeFetch(2, []FetchAttrValue{
		{Attr: imap.FetchAttrBodySection{Section: &imap.FetchItemBodySection{}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "* 2 FETCH (BODY[] {0}\r\n)\r\n"
	if got := string(e.Bytes()); got != want {
		t.Errorf("encode = %q, want %q", got, want)
	}
}

func TestEncodeEnvelopeAttr(t *testing.T) {
	e := NewEncoder()
	err := e.EncodeFetch(12, []FetchAttrValue{
		{Attr: imap.FetchAttrEnvelope{Envelope: &imap.Envelope{
			Date:    "Wed, 17 Jul 1996 02:23:25 -0700 (PDT)",
			Subject: "IMAP4rev1 WG mtg summary and minutes",
			From: []*imap.Address{{
				Name: "Terry Gray", Mailbox: "gray", Host: "cac.washington.edu",
			}},
			Sender: []*imap.Address{{
				Name: "Terry Gray", Mailbox: "gray", Host: "cac.washington.edu",
			}},
			ReplyTo: []*imap.Address{{
				Name: "Terry Gray", Mailbox: "gray", Host: "cac.washington.edu",
			}},
			To: []*imap.Address{{Mailbox: "imap", Host: "cac.washington.edu"}},
			MessageID: "<B27397-0100000@cac.washington.edu>",
		}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := string(e.Bytes())
	want := "* 12 FETCH (ENVELOPE (\"Wed, 17 Jul 1996 02:23:25 -0700 (PDT)\" " +
		"\"IMAP4rev1 WG mtg summary and minutes\" " +
		"((\"Terry Gray\" NIL \"gray\" \"cac.washington.edu\")) " +
		"((\"Terry Gray\" NIL \"gray\" \"cac.washington.edu\")) " +
		"((\"Terry Gray\" NIL \"gray\" \"cac.washington.edu\")) " +
		"((NIL NIL \"imap\" \"cac.washington.edu\")) NIL NIL NIL " +
		"\"<B27397-0100000@cac.washington.edu>\"))\r\n"
	if got != want {
		t.Errorf("encode = %q\n     want %q", got, want)
	}
}
