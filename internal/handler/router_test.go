package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/alanjrogers/aws-s3/internal/auth"
	"github.com/alanjrogers/aws-s3/internal/pkg/crypto"
	"github.com/alanjrogers/aws-s3/internal/repository/sqlite"
	"github.com/alanjrogers/aws-s3/internal/service"
	"github.com/alanjrogers/aws-s3/sigv2"
)

// testEnv wires the full gateway stack over an in-memory database and a
// captured upstream, the way main assembles it.
type testEnv struct {
	handler  http.Handler
	upstream *capturedRequest

	userService *service.UserService
	iamService  *service.IAMService

	adminCreds    sigv2.Credentials
	nonAdminCreds sigv2.Credentials
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	userRepo := sqlite.NewUserRepository(db)
	akRepo := sqlite.NewAccessKeyRepository(db)

	encryptor, err := crypto.NewEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	userService := service.NewUserService(userRepo, zerolog.Nop())
	iamService := service.NewIAMService(akRepo, userRepo, encryptor, nil, 0, zerolog.Nop())
	presignService := service.NewPresignService(iamService, service.DefaultPresignConfig(), zerolog.Nop())

	upstreamServer, captured := captureUpstream(t)
	proxyHandler, err := NewProxyHandler(upstreamServer.URL, true, zerolog.Nop())
	require.NoError(t, err)

	adminHandler := NewAdminHandler(AdminConfig{
		UserService:    userService,
		IAMService:     iamService,
		PresignService: presignService,
		Logger:         zerolog.Nop(),
	})

	store := service.NewAccessKeyStoreAdapter(iamService)

	router := NewRouter(RouterConfig{
		AdminHandler:   adminHandler,
		ProxyHandler:   proxyHandler,
		AuthMiddleware: auth.Middleware(store, auth.DefaultConfig()),
		Metrics:        NewMetrics(),
		DBHealth:       db,
		Logger:         zerolog.Nop(),
	})

	env := &testEnv{
		handler:     router.Handler(),
		upstream:    captured,
		userService: userService,
		iamService:  iamService,
	}

	env.adminCreds = env.provisionUser(t, "admin", "admin@example.com", true)
	env.nonAdminCreds = env.provisionUser(t, "regular", "regular@example.com", false)
	return env
}

// provisionUser creates a user with an access key and returns its credentials.
func (e *testEnv) provisionUser(t *testing.T, username, email string, isAdmin bool) sigv2.Credentials {
	t.Helper()
	ctx := context.Background()

	user, err := e.userService.Create(ctx, service.CreateUserInput{
		Username: username,
		Email:    email,
		Password: "password1234",
		IsAdmin:  isAdmin,
	})
	require.NoError(t, err)

	key, err := e.iamService.CreateAccessKey(ctx, service.CreateAccessKeyInput{
		UserID:      user.User.ID,
		Description: "test key",
	})
	require.NoError(t, err)

	return sigv2.Credentials{
		AccessKeyID:     key.AccessKeyID,
		SecretAccessKey: key.SecretKey,
	}
}

// signedRequest builds a header-signed request the router will accept.
func signedRequest(t *testing.T, creds sigv2.Credentials, method, path string, body []byte) *http.Request {
	t.Helper()

	date := time.Now().UTC().Format(http.TimeFormat)

	desc := sigv2.NewRequest(method, path)
	desc.Header.Set("Date", date)
	if body != nil {
		desc.Header.Set("Content-Type", "application/json")
	}

	authHeader, err := sigv2.New(creds).HeaderValue(desc)
	require.NoError(t, err)

	// The canonical path folds the Host header in, so the request must carry
	// the same virtual host the descriptor defaulted to.
	r := httptest.NewRequest(method, "http://"+sigv2.DefaultHost+path, bytes.NewReader(body))
	r.Header.Set("Date", date)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	r.Header.Set(auth.AuthorizationHeader, authHeader)
	return r
}

func (e *testEnv) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

// =============================================================================
// Router
// =============================================================================

func TestRouterHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "healthy")
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRouterMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// Generate one request so counters exist.
	env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	w := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "gateway_http_requests_total")
}

func TestRouterRejectsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/bucket/key", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "<Code>AccessDenied</Code>")
}

func TestRouterProxiesSignedRequest(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(signedRequest(t, env.adminCreds, http.MethodGet, "/bucket/key", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, "/bucket/key", env.upstream.path)
	require.Empty(t, env.upstream.header.Get(auth.AuthorizationHeader))
	require.Equal(t, "admin", env.upstream.header.Get(ForwardedUserHeader))
}

func TestRouterRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)

	badCreds := sigv2.Credentials{
		AccessKeyID:     env.adminCreds.AccessKeyID,
		SecretAccessKey: "wrong-secret-0000000000000000000000000000",
	}

	w := env.do(signedRequest(t, badCreds, http.MethodGet, "/bucket/key", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "SignatureDoesNotMatch")
}

// =============================================================================
// Admin API
// =============================================================================

func TestAdminRequiresAdminUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(signedRequest(t, env.nonAdminCreds, http.MethodGet, "/admin/users", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "admin access required")
}

func TestAdminUserLifecycle(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(createUserRequest{
		Username: "newuser",
		Email:    "new@example.com",
		Password: "password1234",
	})

	w := env.do(signedRequest(t, env.adminCreds, http.MethodPost, "/admin/users", body))
	require.Equal(t, http.StatusCreated, w.Code)

	var created userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "newuser", created.Username)
	require.True(t, created.IsActive)

	// Duplicate username conflicts.
	w = env.do(signedRequest(t, env.adminCreds, http.MethodPost, "/admin/users", body))
	require.Equal(t, http.StatusConflict, w.Code)

	// The new user shows up in the listing.
	w = env.do(signedRequest(t, env.adminCreds, http.MethodGet, "/admin/users", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "newuser")
}

func TestAdminAccessKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// Create a key for the regular user.
	body, _ := json.Marshal(createAccessKeyRequest{Description: "backup job"})
	regular, err := env.userService.GetByUsername(context.Background(), "regular")
	require.NoError(t, err)

	path := "/admin/users/" + formatID(regular.ID) + "/access-keys"
	w := env.do(signedRequest(t, env.adminCreds, http.MethodPost, path, body))
	require.Equal(t, http.StatusCreated, w.Code)

	var created createAccessKeyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created.AccessKeyID, crypto.AccessKeyIDLength)
	require.Len(t, created.SecretKey, crypto.SecretKeyLength)

	// Deactivate it, then the key can no longer sign requests.
	w = env.do(signedRequest(t, env.adminCreds, http.MethodPost,
		"/admin/access-keys/"+created.AccessKeyID+"/deactivate", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	deactivated := sigv2.Credentials{
		AccessKeyID:     created.AccessKeyID,
		SecretAccessKey: created.SecretKey,
	}
	w = env.do(signedRequest(t, deactivated, http.MethodGet, "/bucket/key", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminPresignEndpoint(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(presignRequest{
		AccessKeyID:   env.adminCreds.AccessKeyID,
		Method:        http.MethodGet,
		Bucket:        "reports",
		Key:           "2024/summary.pdf",
		ExpirySeconds: 3600,
	})

	w := env.do(signedRequest(t, env.adminCreds, http.MethodPost, "/admin/presign", body))
	require.Equal(t, http.StatusOK, w.Code)

	var resp presignResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.Contains(resp.URL, "Signature="))
	require.True(t, strings.Contains(resp.URL, "AWSAccessKeyId="+env.adminCreds.AccessKeyID))
}

func TestAdminPresignedURLRoundTrip(t *testing.T) {
	// A URL issued by the admin endpoint must authenticate when replayed
	// through the gateway exactly as issued, gateway host and all.
	env := newTestEnv(t)

	body, _ := json.Marshal(presignRequest{
		AccessKeyID:   env.adminCreds.AccessKeyID,
		Method:        http.MethodGet,
		Bucket:        "reports",
		Key:           "2024/summary.pdf",
		ExpirySeconds: 3600,
	})

	w := env.do(signedRequest(t, env.adminCreds, http.MethodPost, "/admin/presign", body))
	require.Equal(t, http.StatusOK, w.Code)

	var resp presignResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = env.do(httptest.NewRequest(http.MethodGet, resp.URL, nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, "/reports/2024/summary.pdf", env.upstream.path)
	require.Equal(t, "admin", env.upstream.header.Get(ForwardedUserHeader))
	require.NotContains(t, env.upstream.query, "Signature")
}

func TestAdminPresignRejectsBadExpiry(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(presignRequest{
		AccessKeyID:   env.adminCreds.AccessKeyID,
		Method:        http.MethodGet,
		Bucket:        "reports",
		Key:           "summary.pdf",
		ExpirySeconds: int64((8 * 24 * time.Hour).Seconds()),
	})

	w := env.do(signedRequest(t, env.adminCreds, http.MethodPost, "/admin/presign", body))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
