// Package auth provides legacy S3 signature authentication for the gateway.
package auth

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alanjrogers/aws-s3/sigv2"
)

// =============================================================================
// Authorization Header Parsing
// =============================================================================

// signV2Regex matches "AWS accessKeyID:base64signature".
var signV2Regex = regexp.MustCompile(`^AWS ([^:]+):([A-Za-z0-9+/]+={0,2})$`)

// GetAuthType determines the authentication type from a request.
func GetAuthType(r *http.Request) AuthType {
	// Check Authorization header
	authHeader := r.Header.Get(AuthorizationHeader)

	if authHeader != "" {
		if strings.HasPrefix(authHeader, sigv2.SignV2Algorithm+" ") {
			return AuthTypeSigned
		}
		return AuthTypeUnknown
	}

	// Check for presigned URL
	query := r.URL.Query()
	if query.Get(sigv2.QueryAccessKeyID) != "" && query.Get(sigv2.QuerySignature) != "" {
		return AuthTypePresigned
	}

	return AuthTypeAnonymous
}

// ParseSigned parses an "AWS accessKeyID:signature" Authorization header.
func ParseSigned(authHeader string) (*SignedValues, error) {
	match := signV2Regex.FindStringSubmatch(authHeader)
	if match == nil {
		return nil, fmt.Errorf("%w: expected %q format", ErrInvalidAuthorizationHeader, "AWS accessKeyID:signature")
	}

	return &SignedValues{
		AccessKeyID: match[1],
		Signature:   match[2],
	}, nil
}

// ParsePresigned parses presigned URL query parameters.
// The signature arrives percent-decoded through url.Values, so it compares
// directly against a raw base64 signature.
func ParsePresigned(r *http.Request) (*SignedValues, error) {
	query := r.URL.Query()

	accessKeyID := query.Get(sigv2.QueryAccessKeyID)
	if accessKeyID == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPresignedURL, sigv2.QueryAccessKeyID)
	}

	signature := query.Get(sigv2.QuerySignature)
	if signature == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPresignedURL, sigv2.QuerySignature)
	}

	expiresStr := query.Get(sigv2.QueryExpires)
	if expiresStr == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPresignedURL, sigv2.QueryExpires)
	}
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s value", ErrInvalidPresignedURL, sigv2.QueryExpires)
	}

	return &SignedValues{
		AccessKeyID: accessKeyID,
		Signature:   signature,
		Expires:     expires,
	}, nil
}

// GetRequestTime extracts the signed request time from the Date header, or
// from X-Amz-Date when a client could not set Date. A missing date is
// ErrMissingSecurityHeader; a present but unparseable one is
// ErrMalformedDateHeader.
func GetRequestTime(r *http.Request) (time.Time, error) {
	dateStr := r.Header.Get(DateHeader)
	if dateStr == "" {
		dateStr = r.Header.Get(AmzDateHeader)
	}
	if dateStr == "" {
		return time.Time{}, ErrMissingSecurityHeader
	}

	t, err := sigv2.ParseDate(dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDateHeader, dateStr)
	}
	return t, nil
}
