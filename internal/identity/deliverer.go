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
	"log/slog"

	"github.com/scopeguard/scopeguard/internal/observability/logger"
)

// LogDeliverer stands in for an out-of-band channel in deployments
// without one wired up. The recipient is logged at info; the token itself
// only at debug, which production log levels never emit.
type LogDeliverer struct{}

// NewLogDeliverer creates a new log-backed deliverer
func NewLogDeliverer() *LogDeliverer {
	return &LogDeliverer{}
}

// Deliver logs the delivery instead of sending it
func (d *LogDeliverer) Deliver(ctx context.Context, recipient, token string) error {
	slog.InfoContext(ctx, "password reset token issued",
		logger.Email(recipient),
	)
	slog.DebugContext(ctx, "password reset token",
		logger.Email(recipient),
		logger.String("reset_token", token),
	)
	return nil
}
