package sigv2

import "errors"

// Signing errors.
var (
	// ErrMalformedDateHeader indicates the request's Date header is present
	// but not a valid HTTP date. It is surfaced rather than silently replaced
	// with the current time, which would sign a string the caller does not
	// expect.
	ErrMalformedDateHeader = errors.New("malformed Date header")

	// ErrSigningUnavailable indicates the underlying hash primitive could not
	// be initialized. This is the only fatal condition internal to signing.
	ErrSigningUnavailable = errors.New("signing unavailable: hash primitive failed to initialize")
)
