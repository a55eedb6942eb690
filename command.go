package imap

// Command is a complete client command: a tag plus the typed command data.
type Command struct {
	// Tag is the client-chosen command tag.
	Tag string
	// Data carries the command-specific parameters.
	Data CommandData
}

// CommandData is implemented by every command variant.
//
// Name returns the canonical command keyword as it appears on the wire
// (e.g. "LOGIN", "FETCH"). The UID variant reports the name of the inner
// command prefixed with "UID ".
type CommandData interface {
	Name() string
}

// CapabilityCommand is the CAPABILITY command.
type CapabilityCommand struct{}

// Name implements CommandData.
func (CapabilityCommand) Name() string { return "CAPABILITY" }

// NoopCommand is the NOOP command.
type NoopCommand struct{}

func (NoopCommand) Name() string { return "NOOP" }

// CheckCommand is the CHECK command.
type CheckCommand struct{}

func (CheckCommand) Name() string { return "CHECK" }

// LogoutCommand is the LOGOUT command.
type LogoutCommand struct{}

func (LogoutCommand) Name() string { return "LOGOUT" }

// StartTLSCommand is the STARTTLS command.
type StartTLSCommand struct{}

func (StartTLSCommand) Name() string { return "STARTTLS" }

// AuthenticateCommand is the AUTHENTICATE command. The mechanism atom and
// the optional SASL initial response (RFC 4959) are carried opaquely;
// mechanism negotiation is not a codec concern.
type AuthenticateCommand struct {
	Mechanism string
	// InitialResponse is the base64 initial response, nil if absent.
	// An empty response is sent as "=".
	InitialResponse []byte
}

func (AuthenticateCommand) Name() string { return "AUTHENTICATE" }

// LoginCommand is the LOGIN command.
type LoginCommand struct {
	Username string
	Password string
}

func (LoginCommand) Name() string { return "LOGIN" }

// EnableCommand is the ENABLE command (RFC 5161).
type EnableCommand struct {
	Caps []Cap
}

func (EnableCommand) Name() string { return "ENABLE" }

// SelectCommand is the SELECT or EXAMINE command. ReadOnly in the options
// selects the EXAMINE form.
type SelectCommand struct {
	Mailbox MailboxName
	Options *SelectOptions
}

func (c SelectCommand) Name() string {
	if c.Options != nil && c.Options.ReadOnly {
		return "EXAMINE"
	}
	return "SELECT"
}

// CreateCommand is the CREATE command.
type CreateCommand struct {
	Mailbox MailboxName
	Options *CreateOptions
}

func (CreateCommand) Name() string { return "CREATE" }

// DeleteCommand is the DELETE command.
type DeleteCommand struct {
	Mailbox MailboxName
}

func (DeleteCommand) Name() string { return "DELETE" }

// RenameCommand is the RENAME command.
type RenameCommand struct {
	Mailbox MailboxName
	NewName MailboxName
}

func (RenameCommand) Name() string { return "RENAME" }

// SubscribeCommand is the SUBSCRIBE command.
type SubscribeCommand struct {
	Mailbox MailboxName
}

func (SubscribeCommand) Name() string { return "SUBSCRIBE" }

// UnsubscribeCommand is the UNSUBSCRIBE command.
type UnsubscribeCommand struct {
	Mailbox MailboxName
}

func (UnsubscribeCommand) Name() string { return "UNSUBSCRIBE" }

// ListCommand is the LIST command, including the extended form (RFC 5258).
type ListCommand struct {
	Ref MailboxName
	// Patterns holds one or more list-mailbox patterns. The basic form
	// has exactly one; the extended form allows a parenthesised set.
	Patterns []string
	Options  *ListOptions
}

func (ListCommand) Name() string { return "LIST" }

// LsubCommand is the LSUB command.
type LsubCommand struct {
	Ref     MailboxName
	Pattern string
}

func (LsubCommand) Name() string { return "LSUB" }

// NamespaceCommand is the NAMESPACE command (RFC 2342).
type NamespaceCommand struct{}

func (NamespaceCommand) Name() string { return "NAMESPACE" }

// StatusCommand is the STATUS command.
type StatusCommand struct {
	Mailbox MailboxName
	Options *StatusOptions
}

func (StatusCommand) Name() string { return "STATUS" }

// AppendMessage is a single message within an APPEND command.
type AppendMessage struct {
	Options *AppendOptions
	Data    []byte
}

// AppendCommand is the APPEND command, including MULTIAPPEND (RFC 3502).
// The command decoder streams message bodies; this value form carries
// them whole for encoding and for callers that buffer.
type AppendCommand struct {
	Mailbox  MailboxName
	Messages []AppendMessage
}

func (AppendCommand) Name() string { return "APPEND" }

// IdleCommand is the IDLE command (RFC 2177). The terminating DONE line
// is a separate decoder event, not part of the command value.
type IdleCommand struct{}

func (IdleCommand) Name() string { return "IDLE" }

// CloseCommand is the CLOSE command.
type CloseCommand struct{}

func (CloseCommand) Name() string { return "CLOSE" }

// UnselectCommand is the UNSELECT command (RFC 3691).
type UnselectCommand struct{}

func (UnselectCommand) Name() string { return "UNSELECT" }

// ExpungeCommand is the EXPUNGE command. Under the UID prefix it carries
// the UID set to expunge (UIDPLUS, RFC 4315).
type ExpungeCommand struct {
	// UIDs is only valid inside a UIDCommand.
	UIDs *UIDSet
}

func (ExpungeCommand) Name() string { return "EXPUNGE" }

// SearchCommand is the SEARCH command, covering the basic RFC 3501 form
// and the RETURN options extension (ESEARCH, RFC 4731).
type SearchCommand struct {
	// ReturnOptions requests the ESEARCH response form when non-nil.
	ReturnOptions *SearchOptions
	Charset       string
	Criteria      *SearchCriteria
}

func (SearchCommand) Name() string { return "SEARCH" }

// ExtendedSearchCommand is the ESEARCH command (RFC 7377), which adds an
// IN (...) source selector to the extended-search form.
type ExtendedSearchCommand struct {
	// SourceOptions is the IN (...) source selector; nil means the
	// selected mailbox.
	SourceOptions []string
	// ReturnOptions requests specific ESEARCH return data items.
	ReturnOptions *SearchOptions
	Charset       string
	Criteria      *SearchCriteria
}

func (ExtendedSearchCommand) Name() string { return "ESEARCH" }

// FetchCommand is the FETCH command.
type FetchCommand struct {
	NumSet  NumSet
	Options *FetchOptions
}

func (FetchCommand) Name() string { return "FETCH" }

// StoreCommand is the STORE command.
type StoreCommand struct {
	NumSet  NumSet
	Flags   *StoreFlags
	Options *StoreOptions
}

func (StoreCommand) Name() string { return "STORE" }

// CopyCommand is the COPY command.
type CopyCommand struct {
	NumSet  NumSet
	Mailbox MailboxName
}

func (CopyCommand) Name() string { return "COPY" }

// MoveCommand is the MOVE command (RFC 6851).
type MoveCommand struct {
	NumSet  NumSet
	Mailbox MailboxName
}

func (MoveCommand) Name() string { return "MOVE" }

// UIDCommand wraps FETCH, STORE, SEARCH, COPY, MOVE or EXPUNGE with the
// UID prefix.
type UIDCommand struct {
	Inner CommandData
}

func (c UIDCommand) Name() string { return "UID " + c.Inner.Name() }

// SortCommand is the SORT command (RFC 5256).
type SortCommand struct {
	Criteria []SortCriterion
	Charset  string
	Search   *SearchCriteria
}

func (SortCommand) Name() string { return "SORT" }

// ThreadCommand is the THREAD command (RFC 5256).
type ThreadCommand struct {
	Algorithm ThreadAlgorithm
	Charset   string
	Search    *SearchCriteria
}

func (ThreadCommand) Name() string { return "THREAD" }

// GetQuotaCommand is the GETQUOTA command (RFC 2087).
type GetQuotaCommand struct {
	Root string
}

func (GetQuotaCommand) Name() string { return "GETQUOTA" }

// GetQuotaRootCommand is the GETQUOTAROOT command (RFC 2087).
type GetQuotaRootCommand struct {
	Mailbox MailboxName
}

func (GetQuotaRootCommand) Name() string { return "GETQUOTAROOT" }

// SetQuotaCommand is the SETQUOTA command (RFC 2087).
type SetQuotaCommand struct {
	Root   string
	Limits []QuotaResourceLimit
}

func (SetQuotaCommand) Name() string { return "SETQUOTA" }

// GetACLCommand is the GETACL command (RFC 4314).
type GetACLCommand struct {
	Mailbox MailboxName
}

func (GetACLCommand) Name() string { return "GETACL" }

// SetACLCommand is the SETACL command (RFC 4314).
type SetACLCommand struct {
	Mailbox    MailboxName
	Identifier string
	// Modification is '+', '-' or 0 for replacement.
	Modification byte
	Rights       ACLRights
}

func (SetACLCommand) Name() string { return "SETACL" }

// DeleteACLCommand is the DELETEACL command (RFC 4314).
type DeleteACLCommand struct {
	Mailbox    MailboxName
	Identifier string
}

func (DeleteACLCommand) Name() string { return "DELETEACL" }

// ListRightsCommand is the LISTRIGHTS command (RFC 4314).
type ListRightsCommand struct {
	Mailbox    MailboxName
	Identifier string
}

func (ListRightsCommand) Name() string { return "LISTRIGHTS" }

// MyRightsCommand is the MYRIGHTS command (RFC 4314).
type MyRightsCommand struct {
	Mailbox MailboxName
}

func (MyRightsCommand) Name() string { return "MYRIGHTS" }

// GetMetadataCommand is the GETMETADATA command (RFC 5464).
type GetMetadataCommand struct {
	Mailbox MailboxName
	Entries []string
	Options *MetadataOptions
}

func (GetMetadataCommand) Name() string { return "GETMETADATA" }

// SetMetadataCommand is the SETMETADATA command (RFC 5464).
type SetMetadataCommand struct {
	Mailbox MailboxName
	Entries []MetadataEntry
}

func (SetMetadataCommand) Name() string { return "SETMETADATA" }

// GenURLAuthCommand is the GENURLAUTH command (RFC 4467).
type GenURLAuthCommand struct {
	Items []URLAuthItem
}

func (GenURLAuthCommand) Name() string { return "GENURLAUTH" }

// ResetKeyCommand is the RESETKEY command (RFC 4467).
type ResetKeyCommand struct {
	// Mailbox is empty to reset all mailbox keys.
	Mailbox    MailboxName
	Mechanisms []string
}

func (ResetKeyCommand) Name() string { return "RESETKEY" }

// URLFetchCommand is the URLFETCH command (RFC 4467).
type URLFetchCommand struct {
	URLs []string
}

func (URLFetchCommand) Name() string { return "URLFETCH" }

// IDCommand is the ID command (RFC 2971). A nil Params slice sends NIL.
type IDCommand struct {
	Params IDData
}

func (IDCommand) Name() string { return "ID" }

// XForceUIDCommand is the vendor XFORCEUID command. It takes no
// arguments; servers that support it renumber UIDs on next access.
type XForceUIDCommand struct{}

func (XForceUIDCommand) Name() string { return "XFORCEUID" }
