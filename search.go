package imap

import (
	"time"
)

// SearchCriteria represents the criteria for SEARCH commands.
//
// All populated fields are ANDed together, matching the wire form where
// search keys are juxtaposed.
type SearchCriteria struct {
	SeqNum *SeqSet
	UID    *UIDSet

	// Flag-derived keys. All and New mirror the ALL and NEW keys.
	All      bool
	Answered bool
	Deleted  bool
	Draft    bool
	Flagged  bool
	New      bool
	Old      bool
	Recent   bool
	Seen     bool
	Unanswered bool
	Undeleted  bool
	Undraft    bool
	Unflagged  bool
	Unseen     bool

	// Keyword holds KEYWORD keys; Unkeyword holds UNKEYWORD keys.
	Keyword   []Flag
	Unkeyword []Flag

	// Date-based keys (internal date unless Sent-prefixed).
	Before     time.Time
	On         time.Time
	Since      time.Time
	SentBefore time.Time
	SentOn     time.Time
	SentSince  time.Time

	// Addressing and subject keys.
	Bcc     []string
	Cc      []string
	From    []string
	Subject []string
	To      []string

	// Header holds HEADER field-name string keys.
	Header []SearchCriteriaHeaderField

	// Body and full-text keys.
	Body []string
	Text []string

	// Size keys.
	Larger  int64
	Smaller int64

	// ModSeq is the MODSEQ key (CONDSTORE, RFC 7162).
	ModSeq *SearchCriteriaModSeq

	// Nested criteria.
	Or  [][2]SearchCriteria
	Not []SearchCriteria

	// Within keys (RFC 5032), in seconds.
	Younger int64
	Older   int64
}

// SearchCriteriaHeaderField is a HEADER search key.
type SearchCriteriaHeaderField struct {
	// Key is the header field name.
	Key string
	// Value is the string to search for.
	Value string
}

// SearchCriteriaModSeq is the MODSEQ search key.
type SearchCriteriaModSeq struct {
	ModSeq uint64
	// MetadataName and MetadataType carry the optional entry-name and
	// entry-type-req parameters.
	MetadataName string
	MetadataType string // "shared", "priv", "all"
}

// SearchReturnOption is a single ESEARCH RETURN option (RFC 4731).
type SearchReturnOption string

const (
	SearchReturnMin   SearchReturnOption = "MIN"
	SearchReturnMax   SearchReturnOption = "MAX"
	SearchReturnAll   SearchReturnOption = "ALL"
	SearchReturnCount SearchReturnOption = "COUNT"
	SearchReturnSave  SearchReturnOption = "SAVE" // SEARCHRES, RFC 5182
)

// SearchOptions specifies the RETURN options of an extended SEARCH.
// The order of Return is preserved for round-trip fidelity; an empty
// slice means "RETURN ()" which is equivalent to RETURN (ALL).
type SearchOptions struct {
	Return []SearchReturnOption
}

// Has reports whether the given return option was requested.
func (o *SearchOptions) Has(opt SearchReturnOption) bool {
	for _, r := range o.Return {
		if r == opt {
			return true
		}
	}
	return false
}

// SearchData represents the result of a SEARCH command.
type SearchData struct {
	// All contains all matching numbers (untagged SEARCH response).
	All []uint32

	// ESEARCH response fields (RFC 4731).
	// Tag is the command correlator from the ESEARCH response.
	Tag string
	// UID is true if the ESEARCH results are UIDs.
	UID bool
	// Min, Max and Count carry the corresponding return data items;
	// the Has* flags record which were present.
	Min      uint32
	HasMin   bool
	Max      uint32
	HasMax   bool
	Count    uint32
	HasCount bool
	// AllSet carries the ALL return data item.
	AllSet NumSet
	// ModSeq is the highest mod-sequence of the matched messages.
	ModSeq uint64
}
