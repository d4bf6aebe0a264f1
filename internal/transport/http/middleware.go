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
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/authz"
	"github.com/scopeguard/scopeguard/internal/observability/logger"
	"github.com/scopeguard/scopeguard/internal/token"
)

// publicPaths is the exact-match allowlist of endpoints reachable without
// a bearer token. Matching is on the full path, never on a prefix: a
// prefix rule would silently open every route nested under a public one.
var publicPaths = map[string]bool{
	"/":                                   true,
	"/health":                             true,
	"/api/v1/auth/register":               true,
	"/api/v1/auth/login":                  true,
	"/api/v1/auth/refresh":                true,
	"/api/v1/auth/password-reset/request": true,
	"/api/v1/auth/password-reset/confirm": true,
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// RequestIdentityMiddleware establishes the caller identity for every
// request outside the public allowlist. It verifies the bearer access
// token, requires the tenant claim, and injects the resulting identity
// into the request context. Any verification failure ends the request
// here; the wrapped handler never runs.
func (h *Handler) RequestIdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := bearerToken(r)
		if !ok {
			h.rejectUnauthenticated(w, r, "missing_token", "missing bearer token")
			return
		}

		claims, err := h.tokenService.Verify(raw, token.TypeAccess)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrExpiredToken):
				h.rejectUnauthenticated(w, r, "expired_token", "token expired")
			case errors.Is(err, token.ErrWrongTokenType):
				h.rejectUnauthenticated(w, r, "wrong_token_type", "not an access token")
			default:
				h.rejectUnauthenticated(w, r, "invalid_token", "invalid token")
			}
			return
		}

		// A token without a tenant claim cannot be scoped to anything.
		// The diagnostic is distinct from plain verification failure so
		// misconfigured issuers surface quickly.
		if claims.TenantID == "" {
			h.rejectUnauthenticated(w, r, "missing_tenant_claim", "token missing tenant claim")
			return
		}

		ic := authz.IdentityContext{
			TenantID: claims.TenantID,
			UserID:   claims.Subject,
			Email:    claims.Email,
			Role:     authz.Role(claims.Role),
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ic)))
	})
}

// bearerToken extracts the token from the Authorization header. The
// scheme comparison is case-insensitive per RFC 9110.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", false
	}
	return tok, true
}

func (h *Handler) rejectUnauthenticated(w http.ResponseWriter, r *http.Request, reason, message string) {
	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeUnauthenticated,
		Resource:  r.URL.Path,
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{audit.AttrReason: reason},
	})
	respondError(w, http.StatusUnauthorized, message)
}
