// Package auth provides legacy S3 signature authentication for the gateway.
package auth

import (
	"crypto/hmac"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alanjrogers/aws-s3/sigv2"
)

// =============================================================================
// Canonical Reconstruction
// =============================================================================

// Descriptor rebuilds the sigv2 request descriptor for an inbound request.
// The header map is cloned so canonicalization's default insertion never
// mutates the live request. For presigned requests the auth parameters are
// stripped from the query before canonicalization, since the client signed
// the URL without them.
func Descriptor(r *http.Request, presigned bool) *sigv2.Request {
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	// Go promotes the Host header onto http.Request.Host server-side.
	if header.Get("Host") == "" && r.Host != "" {
		header.Set("Host", r.Host)
	}

	path := r.URL.Path
	query := r.URL.RawQuery
	if presigned {
		query = stripAuthParams(query)
	}
	if query != "" {
		path += "?" + query
	}

	return &sigv2.Request{
		Method: r.Method,
		Path:   path,
		Header: header,
	}
}

// stripAuthParams removes the presigned auth parameters from a raw query
// string, preserving the order of everything else.
func stripAuthParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	kept := make([]string, 0, 4)
	for _, param := range strings.Split(rawQuery, "&") {
		name, _, _ := strings.Cut(param, "=")
		switch name {
		case sigv2.QueryAccessKeyID, sigv2.QueryExpires, sigv2.QuerySignature:
			continue
		}
		kept = append(kept, param)
	}
	return strings.Join(kept, "&")
}

// =============================================================================
// Signature Verification
// =============================================================================

// VerifySignature verifies a header-signed request against the secret key.
// Returns nil if the signature is valid.
func VerifySignature(r *http.Request, secretKey string, signedValues SignedValues) error {
	canonical := sigv2.CanonicalString(Descriptor(r, false), "", nil)
	return compareSignature(canonical, secretKey, signedValues)
}

// VerifyPresigned verifies a presigned request against the secret key.
// The signed expiration substitutes for the date line, exactly as the client
// signed it.
func VerifyPresigned(r *http.Request, secretKey string, signedValues SignedValues) error {
	override := strconv.FormatInt(signedValues.Expires, 10)
	canonical := sigv2.CanonicalString(Descriptor(r, true), override, nil)
	return compareSignature(canonical, secretKey, signedValues)
}

// compareSignature recomputes the signature and compares in constant time.
func compareSignature(canonical, secretKey string, signedValues SignedValues) error {
	signer := sigv2.New(sigv2.Credentials{
		AccessKeyID:     signedValues.AccessKeyID,
		SecretAccessKey: secretKey,
	})

	expected, err := signer.Sign(canonical, false)
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(expected), []byte(signedValues.Signature)) {
		return ErrSignatureDoesNotMatch
	}
	return nil
}

// =============================================================================
// Time Validation
// =============================================================================

// ValidateRequestTime checks if a header-signed request's time is within
// acceptable skew of the server clock.
func ValidateRequestTime(requestTime time.Time) error {
	skew := time.Now().UTC().Sub(requestTime)
	if skew < 0 {
		skew = -skew
	}

	if skew > MaxSkewTime {
		return ErrRequestTimeTooSkewed
	}
	return nil
}

// ValidateExpiry checks that a presigned request has not expired.
func ValidateExpiry(expires int64, now time.Time) error {
	if now.UTC().Unix() > expires {
		return ErrPresignedURLExpired
	}
	return nil
}
