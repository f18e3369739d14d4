package sigv2

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HeaderValue signs req and returns the literal value to place in the
// Authorization header: "AWS accessKeyID:signature".
//
// Empty credentials are not rejected; the result is syntactically valid but
// unverifiable, and credential well-formedness belongs to the caller.
func (s *Signer) HeaderValue(req *Request) (string, error) {
	canonical := CanonicalString(req, "", s.clock())
	sig, err := s.Sign(canonical, false)
	if err != nil {
		return "", err
	}
	return SignV2Algorithm + " " + s.Credentials.AccessKeyID + ":" + sig, nil
}

// QueryString signs req for presentation as presigned URL parameters:
// "AWSAccessKeyId=...&Expires=...&Signature=...", in that fixed order.
//
// The expiration is signed in place of the request date. It is computed with
// the precedence opts.Expires, then request date + opts.ExpiresIn, then
// request date + DefaultExpiresIn, where the request date is the descriptor's
// Date header when present and parseable, else the current time. A Date
// header that is present but unparseable yields ErrMalformedDateHeader.
func (s *Signer) QueryString(req *Request, opts Options) (string, error) {
	expires, err := s.expiryEpoch(req, opts)
	if err != nil {
		return "", err
	}

	canonical := CanonicalString(req, strconv.FormatInt(expires, 10), s.clock())
	sig, err := s.Sign(canonical, true)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s=%s&%s=%d&%s=%s",
		QueryAccessKeyID, s.Credentials.AccessKeyID,
		QueryExpires, expires,
		QuerySignature, sig,
	), nil
}

// ParseDate parses a Date header value: every format http.ParseTime accepts,
// plus RFC 1123 with a numeric zone offset, which legacy clients commonly
// send in place of the named GMT zone.
func ParseDate(value string) (time.Time, error) {
	if t, err := http.ParseTime(value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC1123Z, value)
}

// expiryEpoch resolves the absolute expiration in epoch seconds.
func (s *Signer) expiryEpoch(req *Request, opts Options) (int64, error) {
	if opts.Expires > 0 {
		return opts.Expires, nil
	}

	base := s.clock()()
	if raw := strings.TrimSpace(req.header().Get("Date")); raw != "" {
		t, err := ParseDate(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedDateHeader, raw)
		}
		base = t
	}

	lifetime := opts.ExpiresIn
	if lifetime <= 0 {
		lifetime = DefaultExpiresIn
	}
	return base.Unix() + int64(lifetime.Seconds()), nil
}

// MakeHeaderSignature signs req with creds for the Authorization header.
// It is shorthand for New(creds).HeaderValue(req).
func MakeHeaderSignature(req *Request, creds Credentials) (string, error) {
	return New(creds).HeaderValue(req)
}

// MakeQueryStringSignature signs req with creds for URL-embedded auth
// parameters. It is shorthand for New(creds).QueryString(req, opts).
func MakeQueryStringSignature(req *Request, creds Credentials, opts Options) (string, error) {
	return New(creds).QueryString(req, opts)
}
