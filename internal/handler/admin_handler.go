package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/auth"
	"github.com/alanjrogers/aws-s3/internal/domain"
	"github.com/alanjrogers/aws-s3/internal/service"
)

// AdminHandler exposes the JSON management API for users, access keys and
// presigned URLs. All routes require an authenticated admin user.
type AdminHandler struct {
	userService    *service.UserService
	iamService     *service.IAMService
	presignService *service.PresignService
	logger         zerolog.Logger
}

// AdminConfig contains the dependencies for the admin API.
type AdminConfig struct {
	UserService    *service.UserService
	IAMService     *service.IAMService
	PresignService *service.PresignService
	Logger         zerolog.Logger
}

// NewAdminHandler creates a new admin API handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{
		userService:    cfg.UserService,
		iamService:     cfg.IAMService,
		presignService: cfg.PresignService,
		logger:         cfg.Logger.With().Str("handler", "admin").Logger(),
	}
}

// RegisterRoutes registers the admin API routes.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(h.requireAdmin)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.handleListUsers)
		r.Post("/", h.handleCreateUser)
		r.Get("/{id}", h.handleGetUser)
		r.Delete("/{id}", h.handleDeleteUser)
		r.Post("/{id}/active", h.handleSetUserActive)

		r.Get("/{id}/access-keys", h.handleListAccessKeys)
		r.Post("/{id}/access-keys", h.handleCreateAccessKey)
	})

	r.Route("/access-keys/{accessKeyId}", func(r chi.Router) {
		r.Post("/activate", h.handleActivateAccessKey)
		r.Post("/deactivate", h.handleDeactivateAccessKey)
		r.Delete("/", h.handleDeleteAccessKey)
	})

	r.Post("/presign", h.handlePresign)
}

// requireAdmin ensures the signing user exists and has admin rights.
func (h *AdminHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := auth.GetAuthContext(r.Context())
		if authCtx == nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		user, err := h.userService.GetByID(r.Context(), authCtx.UserID)
		if err != nil || !user.IsAdmin {
			h.logger.Debug().
				Int64("user_id", authCtx.UserID).
				Str("path", r.URL.Path).
				Msg("non-admin attempted admin API access")
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// User Management
// =============================================================================

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func (h *AdminHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	out, err := h.userService.Create(r.Context(), service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(out.User))
}

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	out, err := h.userService.List(r.Context(), service.ListUsersInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	users := make([]userResponse, 0, len(out.Users))
	for _, u := range out.Users {
		users = append(users, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": out.TotalCount,
	})
}

func (h *AdminHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AdminHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *AdminHandler) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.userService.SetActive(r.Context(), id, req.IsActive); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Access Key Management
// =============================================================================

type createAccessKeyRequest struct {
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// createAccessKeyResponse carries the secret in plaintext. This is the only
// place the secret ever leaves the service.
type createAccessKeyResponse struct {
	AccessKeyID string     `json:"access_key_id"`
	SecretKey   string     `json:"secret_key"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type accessKeyResponse struct {
	AccessKeyID string     `json:"access_key_id"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

func toAccessKeyResponse(k *domain.AccessKey) accessKeyResponse {
	return accessKeyResponse{
		AccessKeyID: k.AccessKeyID,
		Description: k.Description,
		Status:      string(k.Status),
		ExpiresAt:   k.ExpiresAt,
		CreatedAt:   k.CreatedAt,
		LastUsedAt:  k.LastUsedAt,
	}
}

func (h *AdminHandler) handleCreateAccessKey(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	var req createAccessKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	out, err := h.iamService.CreateAccessKey(r.Context(), service.CreateAccessKeyInput{
		UserID:      userID,
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createAccessKeyResponse{
		AccessKeyID: out.AccessKeyID,
		SecretKey:   out.SecretKey,
		Description: out.AccessKey.Description,
		ExpiresAt:   out.AccessKey.ExpiresAt,
		CreatedAt:   out.AccessKey.CreatedAt,
	})
}

func (h *AdminHandler) handleListAccessKeys(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	keys, err := h.iamService.ListAccessKeys(r.Context(), service.ListAccessKeysInput{
		UserID:     userID,
		ActiveOnly: r.URL.Query().Get("active") == "true",
	})
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]accessKeyResponse, 0, len(keys))
	for _, k := range keys {
		responses = append(responses, toAccessKeyResponse(k))
	}

	writeJSON(w, http.StatusOK, map[string]any{"access_keys": responses})
}

func (h *AdminHandler) handleActivateAccessKey(w http.ResponseWriter, r *http.Request) {
	if err := h.iamService.ActivateAccessKey(r.Context(), chi.URLParam(r, "accessKeyId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleDeactivateAccessKey(w http.ResponseWriter, r *http.Request) {
	if err := h.iamService.DeactivateAccessKey(r.Context(), chi.URLParam(r, "accessKeyId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleDeleteAccessKey(w http.ResponseWriter, r *http.Request) {
	if err := h.iamService.DeleteAccessKey(r.Context(), chi.URLParam(r, "accessKeyId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Presigned URLs
// =============================================================================

type presignRequest struct {
	AccessKeyID   string `json:"access_key_id"`
	Method        string `json:"method"`
	Bucket        string `json:"bucket"`
	Key           string `json:"key"`
	ExpirySeconds int64  `json:"expiry_seconds,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	ContentMD5    string `json:"content_md5,omitempty"`
	SubResource   string `json:"sub_resource,omitempty"`
}

type presignResponse struct {
	URL           string            `json:"url"`
	Method        string            `json:"method"`
	ExpiresAt     time.Time         `json:"expires_at"`
	SignedHeaders map[string]string `json:"signed_headers,omitempty"`
}

func (h *AdminHandler) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	out, err := h.presignService.GeneratePresignedURL(r.Context(), service.PresignInput{
		AccessKeyID: req.AccessKeyID,
		Method:      req.Method,
		Bucket:      req.Bucket,
		Key:         req.Key,
		Expiry:      time.Duration(req.ExpirySeconds) * time.Second,
		ContentType: req.ContentType,
		ContentMD5:  req.ContentMD5,
		SubResource: req.SubResource,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, presignResponse{
		URL:           out.URL,
		Method:        out.Method,
		ExpiresAt:     out.Expiration,
		SignedHeaders: out.SignedHeaders,
	})
}

// userIDParam parses the {id} route parameter.
func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
