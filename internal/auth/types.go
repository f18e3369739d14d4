// Package auth provides legacy S3 signature authentication for the gateway.
package auth

import (
	"time"
)

// =============================================================================
// Signature Types
// =============================================================================

// SignedValues represents the components parsed from a signed request:
// either the Authorization header ("AWS accessKeyID:signature") or the
// presigned query parameters (AWSAccessKeyId, Expires, Signature).
type SignedValues struct {
	// AccessKeyID is the public key identifier the request was signed with.
	AccessKeyID string

	// Signature is the base64-encoded HMAC from the request.
	Signature string

	// Expires is the absolute expiration in epoch seconds.
	// Only set for presigned requests.
	Expires int64
}

// AuthType represents the type of authentication used in a request.
type AuthType int

const (
	// AuthTypeUnknown indicates an unrecognized auth presentation.
	AuthTypeUnknown AuthType = iota

	// AuthTypeAnonymous indicates no authentication.
	AuthTypeAnonymous

	// AuthTypeSigned indicates a signature in the Authorization header.
	AuthTypeSigned

	// AuthTypePresigned indicates a signature in the query parameters.
	AuthTypePresigned
)

// String returns the string representation of the auth type.
func (at AuthType) String() string {
	switch at {
	case AuthTypeAnonymous:
		return "Anonymous"
	case AuthTypeSigned:
		return "Signed"
	case AuthTypePresigned:
		return "Presigned"
	default:
		return "Unknown"
	}
}

// =============================================================================
// Context Types
// =============================================================================

// AuthContext contains authentication information attached to a request.
// This is set by the auth middleware after successful authentication.
type AuthContext struct {
	// UserID is the authenticated user's ID.
	UserID int64

	// Username is the authenticated user's name.
	Username string

	// AccessKeyID is the access key used for authentication.
	AccessKeyID string

	// AuthType is the presentation the request authenticated with.
	AuthType AuthType

	// RequestTime is the time the request was signed.
	RequestTime time.Time
}

// authContextKey is the context key for AuthContext.
type authContextKey struct{}

// AuthContextKey is the key used to store AuthContext in request context.
var AuthContextKey = authContextKey{}
