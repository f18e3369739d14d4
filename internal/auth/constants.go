// Package auth provides legacy S3 signature authentication for the gateway.
// Requests are verified against the canonical-string scheme implemented by
// the sigv2 package, presented either in the Authorization header or as
// presigned URL query parameters.
package auth

import "time"

// =============================================================================
// Constants
// =============================================================================

const (
	// AuthorizationHeader is the HTTP header carrying header-style signatures.
	AuthorizationHeader = "Authorization"

	// DateHeader is the standard HTTP date header the signature covers.
	DateHeader = "Date"

	// AmzDateHeader stands in for Date when a client cannot set the Date header.
	AmzDateHeader = "X-Amz-Date"

	// MaxSkewTime is the maximum allowed clock skew for header-signed requests.
	MaxSkewTime = 15 * time.Minute

	// PresignedURLMaxExpiry is the maximum accepted presigned URL lifetime (7 days).
	PresignedURLMaxExpiry = 7 * 24 * time.Hour

	// PresignedURLMinExpiry is the minimum accepted presigned URL lifetime (1 second).
	PresignedURLMinExpiry = 1 * time.Second
)
