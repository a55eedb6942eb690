package imap

import (
	"sort"
	"strings"
)

// Cap represents an IMAP capability.
//
// Capability names are case-insensitive on the wire; CanonicalCap folds
// known names to the forms below while preserving unknown names.
type Cap string

// Capabilities understood by the codec.
const (
	CapIMAP4rev1 Cap = "IMAP4rev1"

	CapStartTLS       Cap = "STARTTLS"
	CapLoginDisabled  Cap = "LOGINDISABLED"
	CapSASLIR         Cap = "SASL-IR"
	CapIdle           Cap = "IDLE"
	CapNamespace      Cap = "NAMESPACE"
	CapID             Cap = "ID"
	CapChildren       Cap = "CHILDREN"
	CapMultiAppend    Cap = "MULTIAPPEND"
	CapBinary         Cap = "BINARY"
	CapUnselect       Cap = "UNSELECT"
	CapACL            Cap = "ACL"
	CapUIDPlus        Cap = "UIDPLUS"
	CapURLAuth        Cap = "URLAUTH"
	CapESearch        Cap = "ESEARCH"
	CapWithin         Cap = "WITHIN"
	CapEnable         Cap = "ENABLE"
	CapSearchRes      Cap = "SEARCHRES"
	CapSort           Cap = "SORT"
	CapThreadOrderedSubject Cap = "THREAD=ORDEREDSUBJECT"
	CapThreadReferences     Cap = "THREAD=REFERENCES"
	CapListExtended   Cap = "LIST-EXTENDED"
	CapMetadata       Cap = "METADATA"
	CapMetadataServer Cap = "METADATA-SERVER"
	CapListStatus     Cap = "LIST-STATUS"
	CapSpecialUse     Cap = "SPECIAL-USE"
	CapMove           Cap = "MOVE"
	CapUTF8Accept     Cap = "UTF8=ACCEPT"
	CapCondStore      Cap = "CONDSTORE"
	CapQResync        Cap = "QRESYNC"
	CapLiteralPlus    Cap = "LITERAL+"
	CapLiteralMinus   Cap = "LITERAL-"
	CapStatusSize     Cap = "STATUS=SIZE"
	CapQuota          Cap = "QUOTA"
	CapMultiSearch    Cap = "MULTISEARCH"
)

var knownCaps = []Cap{
	CapIMAP4rev1, CapStartTLS, CapLoginDisabled, CapSASLIR, CapIdle,
	CapNamespace, CapID, CapChildren, CapMultiAppend, CapBinary,
	CapUnselect, CapACL, CapUIDPlus, CapURLAuth, CapESearch, CapWithin,
	CapEnable, CapSearchRes, CapSort, CapThreadOrderedSubject,
	CapThreadReferences, CapListExtended, CapMetadata, CapMetadataServer,
	CapListStatus, CapSpecialUse, CapMove, CapUTF8Accept, CapCondStore,
	CapQResync, CapLiteralPlus, CapLiteralMinus, CapStatusSize, CapQuota,
	CapMultiSearch,
}

// CanonicalCap folds a capability name to its canonical form. Unknown
// names are preserved byte-for-byte.
func CanonicalCap(raw string) Cap {
	for _, c := range knownCaps {
		if strings.EqualFold(raw, string(c)) {
			return c
		}
	}
	return Cap(raw)
}

// CapSet is a set of IMAP capabilities. The zero value is empty.
type CapSet struct {
	caps map[Cap]bool
}

// NewCapSet creates a new CapSet with the given capabilities.
func NewCapSet(caps ...Cap) *CapSet {
	cs := &CapSet{caps: make(map[Cap]bool, len(caps))}
	for _, c := range caps {
		cs.caps[c] = true
	}
	return cs
}

// Has returns true if the set contains the given capability.
func (cs *CapSet) Has(c Cap) bool {
	if cs == nil {
		return false
	}
	return cs.caps[c]
}

// HasAuth returns true if the set contains an AUTH= capability for the
// given mechanism name.
func (cs *CapSet) HasAuth(mechanism string) bool {
	return cs.Has(Cap("AUTH=" + strings.ToUpper(mechanism)))
}

// Add adds capabilities to the set.
func (cs *CapSet) Add(caps ...Cap) {
	if cs.caps == nil {
		cs.caps = make(map[Cap]bool, len(caps))
	}
	for _, c := range caps {
		cs.caps[c] = true
	}
}

// Remove removes capabilities from the set.
func (cs *CapSet) Remove(caps ...Cap) {
	for _, c := range caps {
		delete(cs.caps, c)
	}
}

// All returns all capabilities in the set, sorted.
func (cs *CapSet) All() []Cap {
	if cs == nil {
		return nil
	}
	result := make([]Cap, 0, len(cs.caps))
	for c := range cs.caps {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Len returns the number of capabilities in the set.
func (cs *CapSet) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.caps)
}

// String returns the capabilities as a space-separated string.
func (cs *CapSet) String() string {
	caps := cs.All()
	strs := make([]string, len(caps))
	for i, c := range caps {
		strs[i] = string(c)
	}
	return strings.Join(strs, " ")
}

// Clone returns a copy of the capability set.
func (cs *CapSet) Clone() *CapSet {
	clone := NewCapSet()
	if cs != nil {
		for c := range cs.caps {
			clone.caps[c] = true
		}
	}
	return clone
}
