package sigv2

import (
	"net/http"
	"time"
)

// Request is the descriptor of the HTTP request being signed: the method, the
// path (which may carry a query component), and the header mapping. It is
// deliberately decoupled from http.Request so callers can sign before a
// transport-level request exists.
//
// Header gives the case-insensitive lookups canonicalization requires.
// Canonicalization may insert default Date and Host values; callers that
// introspect headers after signing must account for that.
type Request struct {
	// Method is the HTTP verb (http.MethodGet, http.MethodPut, ...).
	Method string

	// Path is the request path, optionally including a query string.
	Path string

	// Header holds the request headers. A nil map is treated as empty and
	// replaced on first default insertion.
	Header http.Header
}

// NewRequest creates a Request with an empty header map.
func NewRequest(method, path string) *Request {
	return &Request{
		Method: method,
		Path:   path,
		Header: make(http.Header),
	}
}

// header returns the header map, allocating it if nil so default insertion
// has somewhere to write.
func (r *Request) header() http.Header {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r.Header
}

// Credentials is an access key pair. The secret never appears in any produced
// artifact, log, or error message.
type Credentials struct {
	// AccessKeyID is the public key identifier.
	AccessKeyID string

	// SecretAccessKey keys the HMAC.
	SecretAccessKey string
}

// Options controls query-string (presigned URL) signing.
//
// At most one of Expires and ExpiresIn is meaningful per call: Expires takes
// precedence over ExpiresIn, which takes precedence over DefaultExpiresIn.
type Options struct {
	// Expires is an absolute expiration time in epoch seconds. Zero means
	// unset.
	Expires int64

	// ExpiresIn is a lifetime relative to the request date. Zero means unset.
	ExpiresIn time.Duration
}
