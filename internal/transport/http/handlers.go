// Copyright 2026 The ScopeGuard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/authz"
	"github.com/scopeguard/scopeguard/internal/identity"
	"github.com/scopeguard/scopeguard/internal/observability/logger"
	"github.com/scopeguard/scopeguard/internal/tenant"
	"github.com/scopeguard/scopeguard/internal/token"
)

// resetRequestMessage is returned for every reset request, known email or
// not, so the endpoint cannot be used to probe which addresses exist.
const resetRequestMessage = "if the address is registered, a reset token has been issued"

// IdentityLister lists the identities owned by a tenant through a
// tenant-bound storage session.
type IdentityLister interface {
	ListIdentities(ctx context.Context, tenantID string) ([]*identity.Identity, error)
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	resetFlow       *identity.ResetFlow
	tokenService    *token.Service
	tenantService   *tenant.Service
	gate            *authz.Gate
	lister          IdentityLister
	auditLogger     audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	resetFlow *identity.ResetFlow,
	tokenService *token.Service,
	tenantService *tenant.Service,
	gate *authz.Gate,
	lister IdentityLister,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		identityService: identityService,
		resetFlow:       resetFlow,
		tokenService:    tokenService,
		tenantService:   tenantService,
		gate:            gate,
		lister:          lister,
		auditLogger:     auditLogger,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(h.RequestIdentityMiddleware)

	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints; the identity middleware passes these through
		// by exact path match.
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/refresh", h.Refresh)
		r.Post("/auth/password-reset/request", h.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", h.ConfirmPasswordReset)

		// Everything below requires a verified access token.
		r.Get("/auth/me", h.GetCurrentIdentity)
		r.Post("/auth/change-password", h.ChangePassword)

		r.Post("/tenants", h.CreateTenant)
		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/", h.GetTenant)
			r.Delete("/", h.DeleteTenant)
			r.Get("/users", h.ListTenantUsers)
			r.Post("/users", h.ProvisionTenantUser)
			r.Put("/users/{userID}/role", h.ChangeUserRole)
		})
	})

	return r
}

// Root returns basic service identification
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "scopeguard",
	})
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "scopeguard",
	})
}

// RegisterRequest represents registration data
type RegisterRequest struct {
	TenantSlug string `json:"tenant_slug"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// Register creates a brand-new tenant together with its first account.
// The creator becomes the tenant's tenant_admin; further accounts are
// provisioned by that admin through the tenant user endpoints.
// @Summary Register
// @Description Register a new tenant together with its first administrator
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.CreateTenant(r.Context(), req.TenantSlug, "")
	if err != nil {
		if errors.Is(err, tenant.ErrSlugTaken) {
			respondError(w, http.StatusConflict, "tenant slug already exists")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ident, err := h.identityService.CreateIdentity(r.Context(), t.ID, req.Email, req.Password, authz.RoleTenantAdmin)
	if err != nil {
		// The tenant must not outlive a failed registration; without its
		// admin it would be an orphan nobody can ever log in to.
		if delErr := h.tenantService.DeleteTenant(r.Context(), t.ID, "registration"); delErr != nil {
			slog.ErrorContext(r.Context(), "failed to roll back tenant after registration failure",
				logger.Error(delErr),
				logger.TenantID(t.ID),
			)
		}
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			respondError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, identity.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			slog.ErrorContext(r.Context(), "failed to create identity",
				logger.Error(err),
				logger.Email(req.Email),
			)
			respondError(w, http.StatusInternalServerError, "failed to create identity")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":          ident.ID,
		"tenant_id":   ident.TenantID,
		"tenant_slug": t.Slug,
		"email":       ident.Email,
		"role":        ident.Role,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates credentials and issues a token pair. Unknown email
// and wrong password produce the same response; an active lockout is
// reported with the remaining wait, since the caller already proved
// knowledge of a real account.
// @Summary Login
// @Description Authenticate credentials and issue an access/refresh token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident, err := h.identityService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var lockErr *identity.LockoutError
		if errors.As(err, &lockErr) {
			seconds := int(lockErr.Remaining().Seconds()) + 1
			w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
			respondError(w, http.StatusTooManyRequests, "account temporarily locked")
			return
		}
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "login failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	pair, err := h.tokenService.IssuePair(ident.ID, ident.TenantID, ident.Email, string(ident.Role))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue tokens", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token":       pair.AccessToken,
		"refresh_token":      pair.RefreshToken,
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_expires_at": pair.RefreshExpiresAt,
		"token_type":         "Bearer",
	})
}

// RefreshRequest carries the refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a valid refresh token for a new token pair
// @Summary Refresh Tokens
// @Description Exchange a refresh token for a new access/refresh pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh Token"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := h.tokenService.Verify(req.RefreshToken, token.TypeRefresh)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	pair, err := h.tokenService.IssuePair(claims.Subject, claims.TenantID, claims.Email, claims.Role)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue tokens", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeTokenRefreshed,
		TenantID:  claims.TenantID,
		ActorID:   claims.Subject,
		Resource:  "token",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token":       pair.AccessToken,
		"refresh_token":      pair.RefreshToken,
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_expires_at": pair.RefreshExpiresAt,
		"token_type":         "Bearer",
	})
}

// ResetRequestRequest carries the email asking for a reset token
type ResetRequestRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset starts the reset flow. The response is identical
// whether or not the email exists; failures are logged, not surfaced.
// @Summary Request Password Reset
// @Description Issue a password reset token for the given email
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetRequestRequest true "Email"
// @Success 200 {object} map[string]string
// @Router /auth/password-reset/request [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.resetFlow.Request(r.Context(), req.Email); err != nil {
		slog.ErrorContext(r.Context(), "password reset request failed", logger.Error(err))
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": resetRequestMessage,
	})
}

// ResetConfirmRequest carries the reset token and the replacement password
type ResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ConfirmPasswordReset consumes a reset token. Unknown, expired, and
// already-used tokens all produce the same error.
// @Summary Confirm Password Reset
// @Description Consume a reset token and set a new password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetConfirmRequest true "Token and New Password"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /auth/password-reset/confirm [post]
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.resetFlow.Confirm(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, identity.ErrResetTokenInvalid):
			// Unknown, expired, and already-used tokens are absences, not
			// malformed requests.
			respondError(w, http.StatusNotFound, "invalid or expired reset token")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			slog.ErrorContext(r.Context(), "password reset confirm failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "password reset failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password updated",
	})
}

// GetCurrentIdentity returns the authenticated caller's own record
// @Summary Current Identity
// @Description Return the authenticated caller's own identity
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentIdentity(w http.ResponseWriter, r *http.Request) {
	ic, ok := GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.gate.Check(r.Context(), ic.TenantID, authz.OpSelfRead, ic); err != nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	ident, err := h.identityService.GetByID(r.Context(), ic.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	respondJSON(w, http.StatusOK, identityResponse(ident))
}

// ChangePasswordRequest carries the old and new passwords
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword lets the authenticated caller rotate their own password
// @Summary Change Password
// @Description Replace the caller's password after verifying the old one
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Old and New Password"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/change-password [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ic, ok := GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.identityService.ChangePassword(r.Context(), ic.UserID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			slog.ErrorContext(r.Context(), "password change failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "password change failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password updated",
	})
}

// CreateTenantRequest represents a new tenant
type CreateTenantRequest struct {
	Slug string `json:"slug"`
	Plan string `json:"plan"`
}

// CreateTenant provisions a new tenant
// @Summary Create Tenant
// @Description Create a new tenant (system admin only)
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTenantRequest true "Tenant Data"
// @Success 201 {object} tenant.Tenant
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants [post]
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ic, ok := GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.gate.Check(r.Context(), ic.TenantID, authz.OpTenantCreate, ic); err != nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.tenantService.CreateTenant(r.Context(), req.Slug, req.Plan)
	if err != nil {
		if errors.Is(err, tenant.ErrSlugTaken) {
			respondError(w, http.StatusConflict, "tenant slug already exists")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// GetTenant returns a tenant's metadata
// @Summary Get Tenant
// @Description Get a tenant's metadata
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} tenant.Tenant
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID} [get]
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	ic, ok := GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if err := h.gate.Check(r.Context(), tenantID, authz.OpTenantRead, ic); err != nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	t, err := h.tenantService.GetTenant(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusNotFound, "tenant not found")
		return
	}

	respondJSON(w, http.StatusOK, t)
}

// DeleteTenant hard-deletes a tenant and, through the storage cascade,
// every identity it owns
// @Summary Delete Tenant
// @Description Delete a tenant and all identities it owns (system admin only)
// @Tags Tenant
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID} [delete]
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	ic, ok := GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if err := h.gate.Check(r.Context(), tenantID, authz.OpTenantDelete, ic); err != nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.tenantService.DeleteTenant(r.Context(), tenantID, ic.UserID); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "tenant delete failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "tenant delete failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTenantUsers returns the identities owned by a tenant
// @Summary List Tenant Users
// @Description List the identities owned by a tenant
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {array} map[string]any
// @Failure 403 {object} map[string]string
// @Router /tenants/{tenantID}/users [get]
func (h *Handler) ListTenantUsers(w http.ResponseWriter, r *http.Request) {
	ic, ok := GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if err := h.gate.Check(r.Context(), tenantID, authz.OpUserList, ic); err != nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	idents, err := h.lister.ListIdentities(r.Context(), tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list identities",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	users := make([]map[string]any, 0, len(idents))
	for _, ident := range idents {
		users = append(users, identityResponse(ident))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"users": users,
	})
}

// ProvisionUserRequest represents an admin-created account
type ProvisionUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ProvisionTenantUser creates an identity inside a tenant on behalf of an
// admin. Granting system_admin is reserved to system_admin callers.
// @Summary Provision Tenant User
// @Description Create an identity inside a tenant on behalf of an admin
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param request body ProvisionUserRequest true "User Data"
// @Success 201 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants/{tenantID}/users [post]
func (h *Handler) ProvisionTenantUser(w http.ResponseWriter, r *http.Request) {
	ic, ok := GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if err := h.gate.Check(r.Context(), tenantID, authz.OpUserProvision, ic); err != nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req ProvisionUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := authz.RoleUser
	if req.Role != "" {
		parsed, err := authz.ParseRole(req.Role)
		if err != nil {
			respondError(w, http.StatusBadRequest, "unknown role")
			return
		}
		role = parsed
	}

	if role == authz.RoleSystemAdmin && ic.Role != authz.RoleSystemAdmin {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	ident, err := h.identityService.CreateIdentity(r.Context(), tenantID, req.Email, req.Password, role)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			respondError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, identity.ErrInvalidEmail):
			respondError(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		default:
			slog.ErrorContext(r.Context(), "failed to provision identity", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to provision identity")
		}
		return
	}

	respondJSON(w, http.StatusCreated, identityResponse(ident))
}

// ChangeRoleRequest carries the replacement role
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeUserRole replaces a user's role within their tenant
// @Summary Change User Role
// @Description Replace a user's role within their tenant
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param userID path string true "User ID"
// @Param request body ChangeRoleRequest true "New Role"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/users/{userID}/role [put]
func (h *Handler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	ic, ok := GetIdentity(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if err := h.gate.Check(r.Context(), tenantID, authz.OpRoleChange, ic); err != nil {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := authz.ParseRole(req.Role)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}

	if role == authz.RoleSystemAdmin && ic.Role != authz.RoleSystemAdmin {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	userID := chi.URLParam(r, "userID")
	target, err := h.identityService.GetByID(r.Context(), userID)
	if err != nil || target.TenantID != tenantID {
		// A user outside the requested tenant is reported as absent, not
		// as forbidden, to avoid confirming existence across the boundary.
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.identityService.ChangeRole(r.Context(), userID, role, ic.UserID); err != nil {
		slog.ErrorContext(r.Context(), "role change failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "role change failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":   userID,
		"role": string(role),
	})
}

// identityResponse shapes an identity for the wire. Password hashes and
// reset tokens never leave the service.
func identityResponse(ident *identity.Identity) map[string]any {
	resp := map[string]any{
		"id":         ident.ID,
		"tenant_id":  ident.TenantID,
		"email":      ident.Email,
		"role":       ident.Role,
		"created_at": ident.CreatedAt,
	}
	if ident.LockedUntil != nil {
		resp["locked_until"] = ident.LockedUntil
	}
	return resp
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
