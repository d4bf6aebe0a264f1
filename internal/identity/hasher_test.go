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
	"strings"
	"testing"
)

// TestPurpose: Validates the password hash and verify round trip, including rejection of wrong passwords.
// Scope: Unit Test
// Security: Credential storage (Argon2id)
// Expected: Correct password verifies, wrong password does not, digest carries the argon2id parameters.
// Test Case ID: HSH-01
func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)

	digest, err := hasher.Hash("CorrectHorseBattery")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$") {
		t.Errorf("expected argon2id digest, got %q", digest)
	}

	ok, err := hasher.Verify("CorrectHorseBattery", digest)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Error("expected correct password to verify")
	}

	ok, err = hasher.Verify("WrongPassword", digest)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("expected wrong password to fail verification")
	}
}

// TestPurpose: Validates that hashing the same password twice produces distinct digests.
// Scope: Unit Test
// Security: Per-credential random salt
// Expected: Two digests of the same password differ.
// Test Case ID: HSH-02
func TestPasswordHasher_DistinctSalts(t *testing.T) {
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)

	first, err := hasher.Hash("SamePassword123")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	second, err := hasher.Hash("SamePassword123")
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}

	if first == second {
		t.Error("expected distinct digests for repeated hashing")
	}
}

// TestPurpose: Validates that malformed stored digests are treated as verification failures, never as a match.
// Scope: Unit Test
// Security: Fail-closed credential verification
// Expected: Verify returns not-ok with an error for every malformed digest shape.
// Test Case ID: HSH-03
func TestPasswordHasher_MalformedDigest(t *testing.T) {
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)

	malformed := []string{
		"",
		"not-a-digest",
		"$argon2id$v=19$m=65536,t=3,p=4$short",
		"$argon2id$v=19$m=bad,t=3,p=4$c2FsdA$aGFzaA",
		"$bcrypt$whatever",
	}

	for _, digest := range malformed {
		ok, err := hasher.Verify("AnyPassword", digest)
		if ok {
			t.Errorf("digest %q: expected verification failure", digest)
		}
		if err == nil {
			t.Errorf("digest %q: expected error", digest)
		}
	}
}
