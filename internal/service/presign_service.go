// Package service provides business logic services for the aws-s3 gateway.
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/auth"
	"github.com/alanjrogers/aws-s3/sigv2"
)

// PresignService generates presigned URLs for the legacy query string
// authentication scheme.
type PresignService struct {
	iamService    *IAMService
	defaultExpiry time.Duration
	endpoint      string // Base endpoint URL (e.g., "http://localhost:8080")
	endpointHost  string // Host portion of the endpoint, signed into the URL
	logger        zerolog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// PresignConfig contains configuration for the presign service.
type PresignConfig struct {
	DefaultExpiry time.Duration
	Endpoint      string
}

// DefaultPresignConfig returns default presign configuration.
func DefaultPresignConfig() PresignConfig {
	return PresignConfig{
		DefaultExpiry: 15 * time.Minute,
		Endpoint:      "http://localhost:8080",
	}
}

// NewPresignService creates a new PresignService.
func NewPresignService(iamService *IAMService, config PresignConfig, logger zerolog.Logger) *PresignService {
	endpoint := strings.TrimSuffix(config.Endpoint, "/")

	endpointHost := ""
	if u, err := url.Parse(endpoint); err == nil {
		endpointHost = u.Host
	}

	return &PresignService{
		iamService:    iamService,
		defaultExpiry: config.DefaultExpiry,
		endpoint:      endpoint,
		endpointHost:  endpointHost,
		logger:        logger.With().Str("service", "presign").Logger(),
		now:           time.Now,
	}
}

// PresignInput contains the data needed to generate a presigned URL.
type PresignInput struct {
	// AccessKeyID is the access key to sign with.
	AccessKeyID string

	// Method is the HTTP method (GET, PUT, DELETE, HEAD).
	Method string

	// Bucket is the bucket name.
	Bucket string

	// Key is the object key.
	Key string

	// Expiry is the URL expiration duration.
	// If zero, default expiry is used.
	Expiry time.Duration

	// ContentType is the expected content type (for PUT).
	// It participates in the signature, so the eventual request must send it.
	ContentType string

	// ContentMD5 is the expected base64 MD5 digest (for PUT).
	ContentMD5 string

	// SubResource is an optional sub-resource selector (acl, torrent, logging).
	SubResource string
}

// PresignOutput contains the result of generating a presigned URL.
type PresignOutput struct {
	// URL is the presigned URL.
	URL string

	// Method is the HTTP method for the request.
	Method string

	// Expiration is when the URL expires.
	Expiration time.Time

	// SignedHeaders are headers that must be sent with the request
	// because they participated in the signature.
	SignedHeaders map[string]string
}

// GeneratePresignedURL generates a presigned URL.
func (s *PresignService) GeneratePresignedURL(ctx context.Context, input PresignInput) (*PresignOutput, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	expiry := input.Expiry
	if expiry == 0 {
		expiry = s.defaultExpiry
	}

	if expiry < auth.PresignedURLMinExpiry || expiry > auth.PresignedURLMaxExpiry {
		return nil, ErrInvalidExpiration
	}

	keyInfo, err := s.iamService.VerifyAccessKey(ctx, input.AccessKeyID)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().UTC().Add(expiry)

	presignedURL, signedHeaders, err := s.buildPresignedURL(input, keyInfo, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Debug().
		Str("access_key_id", input.AccessKeyID).
		Str("method", input.Method).
		Str("bucket", input.Bucket).
		Str("key", input.Key).
		Time("expires_at", expiresAt).
		Msg("generated presigned URL")

	return &PresignOutput{
		URL:           presignedURL,
		Method:        input.Method,
		Expiration:    expiresAt,
		SignedHeaders: signedHeaders,
	}, nil
}

// GenerateGetObjectURL is a convenience method for generating a GET presigned URL.
func (s *PresignService) GenerateGetObjectURL(ctx context.Context, accessKeyID, bucket, key string, expiry time.Duration) (*PresignOutput, error) {
	return s.GeneratePresignedURL(ctx, PresignInput{
		AccessKeyID: accessKeyID,
		Method:      http.MethodGet,
		Bucket:      bucket,
		Key:         key,
		Expiry:      expiry,
	})
}

// GeneratePutObjectURL is a convenience method for generating a PUT presigned URL.
func (s *PresignService) GeneratePutObjectURL(ctx context.Context, accessKeyID, bucket, key, contentType string, expiry time.Duration) (*PresignOutput, error) {
	return s.GeneratePresignedURL(ctx, PresignInput{
		AccessKeyID: accessKeyID,
		Method:      http.MethodPut,
		Bucket:      bucket,
		Key:         key,
		Expiry:      expiry,
		ContentType: contentType,
	})
}

// GenerateDeleteObjectURL is a convenience method for generating a DELETE presigned URL.
func (s *PresignService) GenerateDeleteObjectURL(ctx context.Context, accessKeyID, bucket, key string, expiry time.Duration) (*PresignOutput, error) {
	return s.GeneratePresignedURL(ctx, PresignInput{
		AccessKeyID: accessKeyID,
		Method:      http.MethodDelete,
		Bucket:      bucket,
		Key:         key,
		Expiry:      expiry,
	})
}

// validateInput validates the presign input.
func (s *PresignService) validateInput(input PresignInput) error {
	if input.AccessKeyID == "" {
		return fmt.Errorf("%w: access_key_id is required", ErrMissingRequiredParams)
	}

	if input.Method == "" {
		return fmt.Errorf("%w: method is required", ErrMissingRequiredParams)
	}

	if input.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", ErrMissingRequiredParams)
	}

	switch input.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead:
	default:
		return fmt.Errorf("%w: '%s'", ErrInvalidMethod, input.Method)
	}

	return nil
}

// buildPresignedURL signs the request descriptor and assembles the final URL.
func (s *PresignService) buildPresignedURL(input PresignInput, keyInfo *auth.AccessKeyInfo, expiresAt time.Time) (string, map[string]string, error) {
	path := presignPath(input)

	desc := sigv2.NewRequest(input.Method, path)

	// The URL is issued against the gateway endpoint, so the signature must
	// fold the endpoint host exactly as the verifier will see it.
	if s.endpointHost != "" {
		desc.Header.Set("Host", s.endpointHost)
	}

	signedHeaders := make(map[string]string)
	if input.ContentType != "" {
		desc.Header.Set("Content-Type", input.ContentType)
		signedHeaders["Content-Type"] = input.ContentType
	}
	if input.ContentMD5 != "" {
		desc.Header.Set("Content-MD5", input.ContentMD5)
		signedHeaders["Content-MD5"] = input.ContentMD5
	}

	signer := sigv2.New(sigv2.Credentials{
		AccessKeyID:     keyInfo.AccessKeyID,
		SecretAccessKey: keyInfo.SecretKey,
	})

	queryString, err := signer.QueryString(desc, sigv2.Options{Expires: expiresAt.Unix()})
	if err != nil {
		return "", nil, err
	}

	finalURL := s.endpoint + encodePath(input)
	if input.SubResource != "" {
		finalURL += "?" + input.SubResource + "&" + queryString
	} else {
		finalURL += "?" + queryString
	}

	return finalURL, signedHeaders, nil
}

// presignPath builds the path that participates in the signature.
// The sub-resource rides along in the query and is folded into the
// canonical string by the signing core.
func presignPath(input PresignInput) string {
	path := "/" + input.Bucket
	if input.Key != "" {
		path += "/" + input.Key
	}
	if input.SubResource != "" {
		path += "?" + input.SubResource
	}
	return path
}

// encodePath percent-encodes each path segment for the final URL.
func encodePath(input PresignInput) string {
	segments := []string{input.Bucket}
	if input.Key != "" {
		segments = append(segments, strings.Split(input.Key, "/")...)
	}
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "/" + strings.Join(segments, "/")
}
