package imap

// NamespaceData represents an untagged NAMESPACE response (RFC 2342).
type NamespaceData struct {
	Personal []NamespaceDescriptor
	Other    []NamespaceDescriptor
	Shared   []NamespaceDescriptor
}

// NamespaceDescriptor describes a single namespace.
type NamespaceDescriptor struct {
	// Prefix is the namespace prefix.
	Prefix string
	// Delim is the hierarchy delimiter character (0 if none).
	Delim rune
}
