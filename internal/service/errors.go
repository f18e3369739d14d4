// Package service provides business logic services for the aws-s3 gateway.
package service

import "errors"

// Common service errors.
var (
	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserInactive       = errors.New("user is inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password: must be at least 8 characters")
	ErrInvalidUsername    = errors.New("invalid username: must be 3-255 characters")
	ErrInvalidEmail       = errors.New("invalid email format")

	// Access key errors
	ErrAccessKeyNotFound    = errors.New("access key not found")
	ErrAccessKeyInactive    = errors.New("access key is inactive")
	ErrAccessKeyExpired     = errors.New("access key has expired")
	ErrMaxAccessKeysReached = errors.New("maximum number of access keys reached")

	// Presigned URL errors
	ErrInvalidExpiration     = errors.New("invalid expiration: must be between 1 second and 7 days")
	ErrMissingRequiredParams = errors.New("missing required parameters")
	ErrInvalidMethod         = errors.New("invalid HTTP method for presigned URL")

	// General errors
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInternalError    = errors.New("internal server error")
)
