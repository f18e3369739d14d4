package sigv2

import "time"

const (
	// SignV2Algorithm is the scheme identifier used in the Authorization
	// header ("AWS accessKeyID:signature").
	SignV2Algorithm = "AWS"

	// DefaultHost is the virtual host assumed when a request carries no Host
	// header. The signature must reflect the host even when the transport
	// fills it in later.
	DefaultHost = "s3.amazonaws.com"

	// AmzHeaderPrefix marks vendor metadata headers that are always included
	// in the canonical string, matched case-insensitively.
	AmzHeaderPrefix = "x-amz-"

	// DefaultExpiresIn is the presigned URL lifetime applied when the caller
	// supplies neither an absolute nor a relative expiry.
	DefaultExpiresIn = 300 * time.Second
)

// Query-string parameter names of the presigned URL presentation, in their
// required output order.
const (
	QueryAccessKeyID = "AWSAccessKeyId"
	QueryExpires     = "Expires"
	QuerySignature   = "Signature"
)

// interestingHeaders are the non-vendor headers that participate in signing.
// Content-MD5 and Content-Type are always serialized, as empty placeholders
// when absent from the request.
var interestingHeaders = map[string]bool{
	"content-md5":  true,
	"content-type": true,
	"date":         true,
}

// significantParams are the sub-resource query parameter names whose mere
// presence changes the signed path. Order matters: the first one found in the
// query wins, mirroring the server's matching order.
var significantParams = []string{"acl", "torrent", "logging"}
