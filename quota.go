package imap

// QuotaResource represents a quota resource type (RFC 2087).
type QuotaResource string

const (
	QuotaResourceStorage QuotaResource = "STORAGE"
	QuotaResourceMessage QuotaResource = "MESSAGE"
	QuotaResourceMailbox QuotaResource = "MAILBOX"
)

// QuotaResourceLimit is one resource/limit pair in a SETQUOTA command.
type QuotaResourceLimit struct {
	Name  QuotaResource
	Limit int64
}

// QuotaResourceData contains usage and limit for a single resource.
type QuotaResourceData struct {
	Name  QuotaResource
	Usage int64
	Limit int64
}

// QuotaData represents an untagged QUOTA response.
type QuotaData struct {
	// Root is the quota root name.
	Root string
	// Resources lists the resource limits and usage.
	Resources []QuotaResourceData
}

// QuotaRootData represents an untagged QUOTAROOT response.
type QuotaRootData struct {
	// Mailbox is the mailbox name.
	Mailbox MailboxName
	// Roots is the list of quota root names.
	Roots []string
}
