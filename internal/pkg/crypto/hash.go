// Package crypto provides cryptographic utilities for the aws-s3 gateway.
package crypto

import (
	"crypto/md5"
	"encoding/base64"
)

// ContentMD5 computes the base64-encoded MD5 digest of a payload in the
// format expected by the Content-MD5 request header.
func ContentMD5(data []byte) string {
	sum := md5.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}
