package sigv2

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"hash"
	"net/url"
	"strings"
	"time"
)

// Signer produces signature artifacts for requests using a fixed credential
// pair. The zero value is not usable; construct with New.
//
// Now and Hash are injectable for deterministic tests and alternative hash
// providers. A Signer is safe for concurrent use: it only reads its fields.
type Signer struct {
	// Credentials is the access key pair used for every signature.
	Credentials Credentials

	// Now is the clock consulted for default Date insertion and expiry
	// computation. Defaults to time.Now.
	Now func() time.Time

	// Hash constructs the hash underlying the HMAC. Defaults to SHA-1, which
	// is what the server verifies against.
	Hash func() hash.Hash
}

// New creates a Signer with the real clock and the SHA-1 hash.
func New(creds Credentials) *Signer {
	return &Signer{
		Credentials: creds,
		Now:         time.Now,
		Hash:        sha1.New,
	}
}

// Sign computes the encoded signature for a canonical string: HMAC over its
// UTF-8 bytes keyed by the secret, base64 encoded, percent-escaped when
// urlEncode is set so the result is safe as a query parameter value.
//
// Sign is a pure function of its inputs. The secret never appears in the
// returned value or in errors.
func (s *Signer) Sign(canonical string, urlEncode bool) (string, error) {
	newHash := s.Hash
	if newHash == nil {
		newHash = sha1.New
	}
	if newHash() == nil {
		return "", ErrSigningUnavailable
	}

	mac := hmac.New(newHash, []byte(s.Credentials.SecretAccessKey))
	mac.Write([]byte(canonical))

	encoded := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	encoded = strings.TrimSuffix(encoded, "\n")

	if urlEncode {
		encoded = url.QueryEscape(encoded)
	}
	return encoded, nil
}

// clock returns the injected clock, falling back to the real one.
func (s *Signer) clock() func() time.Time {
	if s.Now != nil {
		return s.Now
	}
	return time.Now
}
