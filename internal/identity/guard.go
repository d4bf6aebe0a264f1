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
	"time"
)

// LoginAttemptGuard is the per-identity failure counter and timed-lock
// state machine.
//
// Contract: the guard counts an attempt BEFORE the password is verified
// (RegisterAttempt), and the caller MUST call RecordSuccess after a
// verified login to reset the counter and clear the lock. The count and
// the lock transition happen in one atomic statement in the durable store,
// never under an in-process lock, because multiple server instances run
// behind a load balancer.
type LoginAttemptGuard struct {
	repo         Repository
	maxAttempts  int
	lockDuration time.Duration
}

// NewLoginAttemptGuard creates a new login attempt guard
func NewLoginAttemptGuard(repo Repository, maxAttempts int, lockDuration time.Duration) *LoginAttemptGuard {
	return &LoginAttemptGuard{
		repo:         repo,
		maxAttempts:  maxAttempts,
		lockDuration: lockDuration,
	}
}

// Check rejects an attempt against an actively locked identity with a
// LockoutError carrying the remaining duration. The counter is not touched
// while the lock holds, so retries cannot extend the lock indefinitely.
func (g *LoginAttemptGuard) Check(ident *Identity) error {
	if ident.Locked(time.Now()) {
		return &LockoutError{Until: *ident.LockedUntil}
	}
	return nil
}

// RegisterAttempt counts one attempt against an open identity and reports
// whether the counter reached the threshold and engaged the lock. The
// password has not been verified yet at this point; a correct password on
// the very attempt that reaches the threshold still succeeds, because the
// caller resets the state via RecordSuccess afterwards.
func (g *LoginAttemptGuard) RegisterAttempt(ctx context.Context, ident *Identity) (bool, error) {
	attempts, lockedUntil, err := g.repo.RecordFailedAttempt(ctx, ident.ID, g.maxAttempts, g.lockDuration)
	if err != nil {
		return false, err
	}

	ident.FailedLoginAttempts = attempts
	ident.LockedUntil = lockedUntil

	return lockedUntil != nil, nil
}

// RecordSuccess resets the counter and clears the lock after a verified
// login. This is the caller obligation half of the guard contract.
func (g *LoginAttemptGuard) RecordSuccess(ctx context.Context, id string) error {
	return g.repo.ClearLockout(ctx, id)
}
