package imap

import (
	"fmt"
	"strings"
)

// StatusResponseType represents the condition of a status response.
type StatusResponseType string

const (
	StatusResponseTypeOK      StatusResponseType = "OK"
	StatusResponseTypeNO      StatusResponseType = "NO"
	StatusResponseTypeBAD     StatusResponseType = "BAD"
	StatusResponseTypeBYE     StatusResponseType = "BYE"
	StatusResponseTypePREAUTH StatusResponseType = "PREAUTH"
)

// ResponseCode represents a response code in brackets.
type ResponseCode string

// Standard response codes.
const (
	ResponseCodeAlert          ResponseCode = "ALERT"
	ResponseCodeBadCharset     ResponseCode = "BADCHARSET"
	ResponseCodeCapability     ResponseCode = "CAPABILITY"
	ResponseCodeParse          ResponseCode = "PARSE"
	ResponseCodePermanentFlags ResponseCode = "PERMANENTFLAGS"
	ResponseCodeReadOnly       ResponseCode = "READ-ONLY"
	ResponseCodeReadWrite      ResponseCode = "READ-WRITE"
	ResponseCodeTryCreate      ResponseCode = "TRYCREATE"
	ResponseCodeUIDNext        ResponseCode = "UIDNEXT"
	ResponseCodeUIDValidity    ResponseCode = "UIDVALIDITY"
	ResponseCodeUnseen         ResponseCode = "UNSEEN"

	// UIDPLUS (RFC 4315)
	ResponseCodeAppendUID    ResponseCode = "APPENDUID"
	ResponseCodeCopyUID      ResponseCode = "COPYUID"
	ResponseCodeUIDNotSticky ResponseCode = "UIDNOTSTICKY"

	// CONDSTORE/QRESYNC (RFC 7162)
	ResponseCodeHighestModSeq ResponseCode = "HIGHESTMODSEQ"
	ResponseCodeModified      ResponseCode = "MODIFIED"
	ResponseCodeNoModSeq      ResponseCode = "NOMODSEQ"
	ResponseCodeClosed        ResponseCode = "CLOSED"

	// SEARCHRES (RFC 5182)
	ResponseCodeNotSaved ResponseCode = "NOTSAVED"

	// QUOTA (RFC 2087)
	ResponseCodeOverQuota ResponseCode = "OVERQUOTA"

	// URLAUTH (RFC 4467)
	ResponseCodeURLMech ResponseCode = "URLMECH"

	// METADATA (RFC 5464)
	ResponseCodeMetadata ResponseCode = "METADATA"

	ResponseCodeAlreadyExists ResponseCode = "ALREADYEXISTS"
	ResponseCodeNonExistent   ResponseCode = "NONEXISTENT"
	ResponseCodeContactAdmin  ResponseCode = "CONTACTADMIN"
	ResponseCodeNoPerm        ResponseCode = "NOPERM"
	ResponseCodeInUse         ResponseCode = "INUSE"
	ResponseCodeExpungeIssued ResponseCode = "EXPUNGEISSUED"
	ResponseCodeCorruption    ResponseCode = "CORRUPTION"
	ResponseCodeServerBug     ResponseCode = "SERVERBUG"
	ResponseCodeClientBug     ResponseCode = "CLIENTBUG"
	ResponseCodeCannot        ResponseCode = "CANNOT"
	ResponseCodeLimit         ResponseCode = "LIMIT"
)

// StatusResponse represents the condition part of a greeting, an untagged
// status response, or a tagged completion.
type StatusResponse struct {
	// Type is the response condition (OK, NO, BAD, BYE, PREAUTH).
	Type StatusResponseType
	// Code is the optional bracketed response code.
	Code ResponseCode
	// CodeArg is the optional argument of the response code, already
	// formatted in its wire form (e.g. "4 3:5" for COPYUID data).
	CodeArg string
	// Text is the human-readable text.
	Text string
}

// Error returns the status response as an error string.
func (r *StatusResponse) Error() string {
	var b strings.Builder
	b.WriteString(string(r.Type))
	if r.Code != "" {
		b.WriteString(" [")
		b.WriteString(string(r.Code))
		if r.CodeArg != "" {
			b.WriteString(" ")
			b.WriteString(r.CodeArg)
		}
		b.WriteString("]")
	}
	if r.Text != "" {
		b.WriteString(" ")
		b.WriteString(r.Text)
	}
	return b.String()
}

// IMAPError is an error type that wraps an IMAP status response.
type IMAPError struct {
	*StatusResponse
}

// Error implements the error interface.
func (e *IMAPError) Error() string {
	return e.StatusResponse.Error()
}

// ErrNo creates a NO error with the given text.
func ErrNo(text string) *IMAPError {
	return &IMAPError{&StatusResponse{Type: StatusResponseTypeNO, Text: text}}
}

// ErrBad creates a BAD error with the given text.
func ErrBad(text string) *IMAPError {
	return &IMAPError{&StatusResponse{Type: StatusResponseTypeBAD, Text: text}}
}

// ErrBye creates a BYE response.
func ErrBye(text string) *IMAPError {
	return &IMAPError{&StatusResponse{Type: StatusResponseTypeBYE, Text: text}}
}

// Greeting is the single untagged status line that opens a session.
// Type is OK, PREAUTH or BYE.
type Greeting struct {
	Status *StatusResponse
}

// ResponseDone is the tagged completion of a command.
type ResponseDone struct {
	Tag    string
	Status *StatusResponse
}

// ContinuationRequest is a server line beginning with "+".
type ContinuationRequest struct {
	Text string
}

// ResponseData is implemented by every untagged response payload.
type ResponseData interface {
	responseData()
}

// UntaggedStatus is an untagged OK/NO/BAD/BYE line.
type UntaggedStatus struct {
	Status *StatusResponse
}

// CapabilityData is an untagged CAPABILITY response.
type CapabilityData struct {
	Caps []Cap
}

// EnabledData is an untagged ENABLED response (RFC 5161).
type EnabledData struct {
	Caps []Cap
}

// FlagsData is an untagged FLAGS response.
type FlagsData struct {
	Flags []Flag
}

// ExistsData is an untagged EXISTS response.
type ExistsData struct {
	Count uint32
}

// RecentData is an untagged RECENT response.
type RecentData struct {
	Count uint32
}

// ExpungeData is an untagged EXPUNGE response.
type ExpungeData struct {
	SeqNum uint32
}

// VanishedData is an untagged VANISHED response (QRESYNC, RFC 7162).
type VanishedData struct {
	Earlier bool
	UIDs    *UIDSet
}

// FetchData announces a FETCH response group. The attributes follow as
// streamed parser events rather than fields here.
type FetchData struct {
	SeqNum uint32
}

// GenURLAuthData is an untagged GENURLAUTH response (RFC 4467).
type GenURLAuthData struct {
	URLs []string
}

// URLFetchItem is one URL/data pair of an untagged URLFETCH response.
type URLFetchItem struct {
	URL string
	// Data is nil when the server returned NIL for this URL.
	Data []byte
}

// URLFetchData is an untagged URLFETCH response (RFC 4467).
type URLFetchData struct {
	Items []URLFetchItem
}

func (UntaggedStatus) responseData()  {}
func (CapabilityData) responseData()  {}
func (EnabledData) responseData()     {}
func (FlagsData) responseData()       {}
func (ExistsData) responseData()      {}
func (RecentData) responseData()      {}
func (ExpungeData) responseData()     {}
func (VanishedData) responseData()    {}
func (FetchData) responseData()       {}
func (GenURLAuthData) responseData()  {}
func (URLFetchData) responseData()    {}
func (ListData) responseData()        {}
func (NamespaceData) responseData()   {}
func (StatusData) responseData()      {}
func (SearchData) responseData()      {}
func (SortData) responseData()        {}
func (ThreadData) responseData()      {}
func (QuotaData) responseData()       {}
func (QuotaRootData) responseData()   {}
func (ACLData) responseData()         {}
func (ListRightsData) responseData()  {}
func (MyRightsData) responseData()    {}
func (MetadataData) responseData()    {}
func (IDData) responseData()          {}

var (
	_ error = (*IMAPError)(nil)
	_ error = (*StatusResponse)(nil)
)

// String returns the wire keyword of the response type.
func (t StatusResponseType) String() string { return string(t) }

// GoString aids test failure output.
func (r *StatusResponse) GoString() string {
	return fmt.Sprintf("StatusResponse{%s [%s %s] %q}", r.Type, r.Code, r.CodeArg, r.Text)
}
