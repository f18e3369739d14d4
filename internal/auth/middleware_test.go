package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanjrogers/aws-s3/sigv2"
)

// =============================================================================
// Mock Access Key Store
// =============================================================================

type mockAccessKeyStore struct {
	mock.Mock
}

func (m *mockAccessKeyStore) GetActiveAccessKey(ctx context.Context, accessKeyID string) (*AccessKeyInfo, error) {
	args := m.Called(ctx, accessKeyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AccessKeyInfo), args.Error(1)
}

func (m *mockAccessKeyStore) UpdateLastUsed(ctx context.Context, accessKeyID string) error {
	args := m.Called(ctx, accessKeyID)
	return args.Error(0)
}

func testKeyInfo() *AccessKeyInfo {
	return &AccessKeyInfo{
		AccessKeyID: testAccessKeyID,
		SecretKey:   testSecretKey,
		UserID:      42,
		Username:    "johnsmith",
		IsActive:    true,
	}
}

// echoAuthContext records the auth context the middleware attached.
func echoAuthContext(captured **AuthContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetAuthContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func signedTestRequest(t *testing.T) *http.Request {
	t.Helper()

	date := time.Now().UTC().Format(http.TimeFormat)
	desc := sigv2.NewRequest(http.MethodGet, "/bucket/key")
	desc.Header.Set("Date", date)

	authHeader, err := testSigner().HeaderValue(desc)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "http://s3.amazonaws.com/bucket/key", nil)
	r.Header.Set("Date", date)
	r.Header.Set(AuthorizationHeader, authHeader)
	return r
}

func TestMiddlewareSignedRequest(t *testing.T) {
	store := new(mockAccessKeyStore)
	store.On("GetActiveAccessKey", mock.Anything, testAccessKeyID).Return(testKeyInfo(), nil)
	store.On("UpdateLastUsed", mock.Anything, testAccessKeyID).Return(nil).Maybe()

	var captured *AuthContext
	handler := Middleware(store, DefaultConfig())(echoAuthContext(&captured))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedTestRequest(t))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	require.Equal(t, int64(42), captured.UserID)
	require.Equal(t, "johnsmith", captured.Username)
	require.Equal(t, AuthTypeSigned, captured.AuthType)
	store.AssertCalled(t, "GetActiveAccessKey", mock.Anything, testAccessKeyID)
}

func TestMiddlewareAmzDateSignedRequest(t *testing.T) {
	// A client that cannot set Date signs with x-amz-date instead; the same
	// canonical string must be rebuilt on verification.
	store := new(mockAccessKeyStore)
	store.On("GetActiveAccessKey", mock.Anything, testAccessKeyID).Return(testKeyInfo(), nil)
	store.On("UpdateLastUsed", mock.Anything, testAccessKeyID).Return(nil).Maybe()

	date := time.Now().UTC().Format(http.TimeFormat)
	desc := sigv2.NewRequest(http.MethodGet, "/bucket/key")
	desc.Header.Set(AmzDateHeader, date)

	authHeader, err := testSigner().HeaderValue(desc)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "http://s3.amazonaws.com/bucket/key", nil)
	r.Header.Set(AmzDateHeader, date)
	r.Header.Set(AuthorizationHeader, authHeader)

	var captured *AuthContext
	handler := Middleware(store, DefaultConfig())(echoAuthContext(&captured))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	require.Equal(t, AuthTypeSigned, captured.AuthType)
}

func TestMiddlewareNumericZoneDate(t *testing.T) {
	store := new(mockAccessKeyStore)
	store.On("GetActiveAccessKey", mock.Anything, testAccessKeyID).Return(testKeyInfo(), nil)
	store.On("UpdateLastUsed", mock.Anything, testAccessKeyID).Return(nil).Maybe()

	date := time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05 +0000")
	desc := sigv2.NewRequest(http.MethodGet, "/bucket/key")
	desc.Header.Set("Date", date)

	authHeader, err := testSigner().HeaderValue(desc)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "http://s3.amazonaws.com/bucket/key", nil)
	r.Header.Set("Date", date)
	r.Header.Set(AuthorizationHeader, authHeader)

	handler := Middleware(store, DefaultConfig())(echoAuthContext(new(*AuthContext)))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewarePresignedRequest(t *testing.T) {
	store := new(mockAccessKeyStore)
	store.On("GetActiveAccessKey", mock.Anything, testAccessKeyID).Return(testKeyInfo(), nil)
	store.On("UpdateLastUsed", mock.Anything, testAccessKeyID).Return(nil).Maybe()

	expires := time.Now().Add(time.Hour).Unix()
	queryString, err := testSigner().QueryString(sigv2.NewRequest(http.MethodGet, "/bucket/key"), sigv2.Options{Expires: expires})
	require.NoError(t, err)

	var captured *AuthContext
	handler := Middleware(store, DefaultConfig())(echoAuthContext(&captured))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://s3.amazonaws.com/bucket/key?"+queryString, nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	require.Equal(t, AuthTypePresigned, captured.AuthType)
}

func TestMiddlewareExpiredPresignedRequest(t *testing.T) {
	store := new(mockAccessKeyStore)

	expired := time.Now().Add(-time.Hour).Unix()
	queryString, err := testSigner().QueryString(sigv2.NewRequest(http.MethodGet, "/bucket/key"), sigv2.Options{Expires: expired})
	require.NoError(t, err)

	handler := Middleware(store, DefaultConfig())(echoAuthContext(new(*AuthContext)))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://s3.amazonaws.com/bucket/key?"+queryString, nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), string(S3ErrorExpiredToken))
	store.AssertNotCalled(t, "GetActiveAccessKey", mock.Anything, mock.Anything)
}

func TestMiddlewareBadSignature(t *testing.T) {
	store := new(mockAccessKeyStore)
	store.On("GetActiveAccessKey", mock.Anything, testAccessKeyID).Return(testKeyInfo(), nil)

	r := signedTestRequest(t)
	r.Header.Set(AuthorizationHeader, "AWS "+testAccessKeyID+":bm90IHRoZSBzaWduYXR1cmU=")

	handler := Middleware(store, DefaultConfig())(echoAuthContext(new(*AuthContext)))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), string(S3ErrorSignatureDoesNotMatch))
}

func TestMiddlewareUnknownAccessKey(t *testing.T) {
	store := new(mockAccessKeyStore)
	store.On("GetActiveAccessKey", mock.Anything, mock.Anything).Return(nil, ErrInvalidAccessKeyID)

	handler := Middleware(store, DefaultConfig())(echoAuthContext(new(*AuthContext)))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedTestRequest(t))

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), string(S3ErrorInvalidAccessKeyId))
}

func TestMiddlewareAnonymous(t *testing.T) {
	store := new(mockAccessKeyStore)

	t.Run("denied by default", func(t *testing.T) {
		handler := Middleware(store, DefaultConfig())(echoAuthContext(new(*AuthContext)))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bucket/key", nil))

		require.Equal(t, http.StatusForbidden, w.Code)
		require.Contains(t, w.Body.String(), string(S3ErrorAccessDenied))
	})

	t.Run("allowed when configured", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.AllowAnonymous = true
		handler := Middleware(store, cfg)(echoAuthContext(new(*AuthContext)))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bucket/key", nil))

		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestMiddlewareSkipPaths(t *testing.T) {
	store := new(mockAccessKeyStore)
	handler := Middleware(store, DefaultConfig())(echoAuthContext(new(*AuthContext)))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareStaleDate(t *testing.T) {
	store := new(mockAccessKeyStore)

	date := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	desc := sigv2.NewRequest(http.MethodGet, "/bucket/key")
	desc.Header.Set("Date", date)

	authHeader, err := testSigner().HeaderValue(desc)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "http://s3.amazonaws.com/bucket/key", nil)
	r.Header.Set("Date", date)
	r.Header.Set(AuthorizationHeader, authHeader)

	handler := Middleware(store, DefaultConfig())(echoAuthContext(new(*AuthContext)))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), string(S3ErrorRequestTimeTooSkewed))
}
