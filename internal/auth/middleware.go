// Package auth provides legacy S3 signature authentication for the gateway.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// AccessKeyStore defines the interface for retrieving access keys.
type AccessKeyStore interface {
	// GetActiveAccessKey retrieves an active access key by its ID.
	// Returns the access key with the decrypted secret.
	GetActiveAccessKey(ctx context.Context, accessKeyID string) (*AccessKeyInfo, error)

	// UpdateLastUsed updates the last used timestamp for an access key.
	UpdateLastUsed(ctx context.Context, accessKeyID string) error
}

// AccessKeyInfo contains the information needed for signature verification.
type AccessKeyInfo struct {
	// AccessKeyID is the public identifier.
	AccessKeyID string

	// SecretKey is the decrypted secret key (plaintext).
	SecretKey string

	// UserID is the ID of the user who owns this key.
	UserID int64

	// Username is the username of the user who owns this key.
	Username string

	// IsActive indicates if the key is active.
	IsActive bool

	// ExpiresAt is the optional expiration time.
	ExpiresAt *time.Time
}

// Config contains configuration for the auth middleware.
type Config struct {
	// AllowAnonymous allows unauthenticated requests through.
	AllowAnonymous bool

	// SkipPaths are paths that skip authentication.
	SkipPaths []string
}

// DefaultConfig returns the default auth configuration.
func DefaultConfig() Config {
	return Config{
		AllowAnonymous: false,
		SkipPaths:      []string{"/health", "/metrics"},
	}
}

// Middleware creates an authentication middleware.
func Middleware(store AccessKeyStore, config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check if path should skip authentication
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			switch GetAuthType(r) {
			case AuthTypeAnonymous:
				if config.AllowAnonymous {
					next.ServeHTTP(w, r)
					return
				}
				writeAuthError(w, ErrAccessDenied)
				return

			case AuthTypeSigned:
				authCtx, err := handleSigned(r, store)
				if err != nil {
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("signed authentication failed")
					writeAuthError(w, err)
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), AuthContextKey, authCtx))

			case AuthTypePresigned:
				authCtx, err := handlePresigned(r, store)
				if err != nil {
					log.Debug().Err(err).Str("path", r.URL.Path).Msg("presigned authentication failed")
					writeAuthError(w, err)
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), AuthContextKey, authCtx))

			default:
				writeAuthError(w, ErrInvalidAuthorizationHeader)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// handleSigned handles Authorization header authentication.
func handleSigned(r *http.Request, store AccessKeyStore) (*AuthContext, error) {
	signedValues, err := ParseSigned(r.Header.Get(AuthorizationHeader))
	if err != nil {
		return nil, err
	}

	// Validate request time
	requestTime, err := GetRequestTime(r)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequestTime(requestTime); err != nil {
		return nil, err
	}

	// Lookup access key
	keyInfo, err := store.GetActiveAccessKey(r.Context(), signedValues.AccessKeyID)
	if err != nil {
		return nil, ErrInvalidAccessKeyID
	}

	if keyInfo.ExpiresAt != nil && time.Now().UTC().After(*keyInfo.ExpiresAt) {
		return nil, ErrInvalidAccessKeyID
	}

	// Verify signature
	if err := VerifySignature(r, keyInfo.SecretKey, *signedValues); err != nil {
		return nil, err
	}

	// Update last used timestamp (async, don't block request)
	go func() {
		_ = store.UpdateLastUsed(context.Background(), keyInfo.AccessKeyID)
	}()

	return &AuthContext{
		UserID:      keyInfo.UserID,
		Username:    keyInfo.Username,
		AccessKeyID: keyInfo.AccessKeyID,
		AuthType:    AuthTypeSigned,
		RequestTime: requestTime,
	}, nil
}

// handlePresigned handles presigned URL authentication.
func handlePresigned(r *http.Request, store AccessKeyStore) (*AuthContext, error) {
	signedValues, err := ParsePresigned(r)
	if err != nil {
		return nil, err
	}

	// Check expiration before touching the key store.
	if err := ValidateExpiry(signedValues.Expires, time.Now()); err != nil {
		return nil, err
	}

	// Lookup access key
	keyInfo, err := store.GetActiveAccessKey(r.Context(), signedValues.AccessKeyID)
	if err != nil {
		return nil, ErrInvalidAccessKeyID
	}

	// Verify signature
	if err := VerifyPresigned(r, keyInfo.SecretKey, *signedValues); err != nil {
		return nil, err
	}

	go func() {
		_ = store.UpdateLastUsed(context.Background(), keyInfo.AccessKeyID)
	}()

	return &AuthContext{
		UserID:      keyInfo.UserID,
		Username:    keyInfo.Username,
		AccessKeyID: keyInfo.AccessKeyID,
		AuthType:    AuthTypePresigned,
		RequestTime: time.Unix(signedValues.Expires, 0).UTC(),
	}, nil
}

// writeAuthError writes an S3-compatible error response.
func writeAuthError(w http.ResponseWriter, err error) {
	authErr := NewAuthError(err)

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(authErr.HTTPStatus)

	// Write S3-style XML error response
	xmlResponse := `<?xml version="1.0" encoding="UTF-8"?>
<Error>
    <Code>` + string(authErr.Code) + `</Code>
    <Message>` + authErr.Message + `</Message>
</Error>`

	_, _ = w.Write([]byte(xmlResponse))
}

// GetAuthContext retrieves the AuthContext from a request context.
func GetAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext); ok {
		return authCtx
	}
	return nil
}

// RequireAuth is a helper to get auth context or return error.
func RequireAuth(ctx context.Context) (*AuthContext, error) {
	authCtx := GetAuthContext(ctx)
	if authCtx == nil {
		return nil, ErrAccessDenied
	}
	return authCtx, nil
}
