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

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/authz"
	"github.com/scopeguard/scopeguard/internal/observability/logger"
)

// EnvBootstrapAdminEmail names the registered account promoted to
// system_admin at startup. Registration and provisioning can never grant
// that role without an existing system_admin, so the very first one has to
// come from outside the API surface.
const EnvBootstrapAdminEmail = "BOOTSTRAP_ADMIN_EMAIL"

// BootstrapService promotes the initial platform operator
type BootstrapService struct {
	identityService *Service
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service, auditLogger audit.Logger) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		auditLogger:     auditLogger,
	}
}

// Bootstrap checks for bootstrap configuration and executes it if necessary.
// It is idempotent: an account that already carries system_admin is left
// untouched, so the variable can stay set across restarts.
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	email := os.Getenv(EnvBootstrapAdminEmail)
	if email == "" {
		return nil
	}

	ident, err := s.identityService.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("bootstrap admin not found (email: %s): %w", email, err)
	}

	if ident.Role == authz.RoleSystemAdmin {
		return nil
	}

	if err := s.identityService.repo.UpdateRole(ctx, ident.ID, authz.RoleSystemAdmin); err != nil {
		return fmt.Errorf("failed to promote bootstrap admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSystemAdminBootstrap,
		TenantID: ident.TenantID,
		ActorID:  ident.ID,
		Resource: email,
		Metadata: map[string]any{"previous_role": string(ident.Role)},
	})

	slog.InfoContext(ctx, "bootstrapped initial system admin",
		logger.Email(email),
		logger.TenantID(ident.TenantID),
	)
	return nil
}
