// Package domain contains the core business entities for the aws-s3 gateway.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username/email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserInactive indicates the user account is disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ===========================================
	// Access Key Errors
	// ===========================================

	// ErrAccessKeyNotFound indicates the requested access key does not exist.
	ErrAccessKeyNotFound = errors.New("access key not found")

	// ErrAccessKeyInactive indicates the access key is disabled.
	ErrAccessKeyInactive = errors.New("access key is inactive")

	// ErrAccessKeyExpired indicates the access key has expired.
	ErrAccessKeyExpired = errors.New("access key has expired")

	// ErrInvalidAccessKeyID indicates the access key ID format is invalid.
	ErrInvalidAccessKeyID = errors.New("invalid access key ID")

	// ErrInvalidSecretKey indicates the secret key format is invalid.
	ErrInvalidSecretKey = errors.New("invalid secret key")

	// ===========================================
	// Authentication/Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the user does not have permission.
	ErrAccessDenied = errors.New("access denied")

	// ErrSignatureDoesNotMatch indicates the request signature is invalid.
	ErrSignatureDoesNotMatch = errors.New("signature does not match")

	// ErrRequestExpired indicates the request has expired.
	ErrRequestExpired = errors.New("request has expired")

	// ===========================================
	// Presigned URL Errors
	// ===========================================

	// ErrPresignedURLExpired indicates the presigned URL has expired.
	ErrPresignedURLExpired = errors.New("presigned URL has expired")

	// ErrInvalidPresignedURL indicates the presigned URL is malformed.
	ErrInvalidPresignedURL = errors.New("invalid presigned URL")

	// ErrInvalidExpiry indicates a requested presign expiry is out of range.
	ErrInvalidExpiry = errors.New("invalid expiry duration")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., access key ID).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// WrapError wraps an error with domain context if it's not already a DomainError.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	return &DomainError{
		Err:     err,
		Message: message,
	}
}
