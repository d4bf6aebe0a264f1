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

	"github.com/scopeguard/scopeguard/internal/authz"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a context carrying the verified caller identity.
// Only the request middleware writes it; handlers read it.
func WithIdentity(ctx context.Context, ic authz.IdentityContext) context.Context {
	return context.WithValue(ctx, identityKey, ic)
}

// GetIdentity retrieves the verified caller identity from context. The
// second return value is false on unauthenticated requests.
func GetIdentity(ctx context.Context) (authz.IdentityContext, bool) {
	ic, ok := ctx.Value(identityKey).(authz.IdentityContext)
	return ic, ok
}
