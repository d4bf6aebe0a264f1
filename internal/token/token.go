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

// Package token issues and verifies the signed bearer tokens that carry a
// request's identity claims. Tokens are self-contained and never persisted;
// refresh tokens are stateless and not server-side revocable, which is an
// accepted limitation of this design.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Type tags a token as access or refresh so a verification path expecting
// one kind rejects the other.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// Domain errors
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims is the signed claim set embedded in every token. The signature is
// checked before any of these fields is read or trusted.
type Claims struct {
	TenantID  string `json:"tenant_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType Type   `json:"typ"`
	jwt.RegisteredClaims
}

// Pair bundles a freshly issued access and refresh token.
type Pair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Service signs and verifies tokens with a shared HMAC secret. Key
// material and algorithm are deployment configuration; the contract here
// is only "verifiable and expiry-enforced".
type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new token service
func NewService(secret []byte, issuer string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue produces a single signed token of the given type and TTL.
func (s *Service) Issue(subject, tenantID, email, role string, typ Type, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		TenantID:  tenantID,
		Email:     email,
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssuePair issues a fresh access+refresh pair bound to the same subject,
// tenant and role.
func (s *Service) IssuePair(subject, tenantID, email, role string) (*Pair, error) {
	access, accessExp, err := s.Issue(subject, tenantID, email, role, TypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Issue(subject, tenantID, email, role, TypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks signature and expiry, then the type tag. Signature failure
// and expiry map to distinct sentinel errors; a structurally valid token
// of the wrong type fails with ErrWrongTokenType.
func (s *Service) Verify(tokenString string, expected Type) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims.TokenType != expected {
		return nil, ErrWrongTokenType
	}

	return &claims, nil
}

// Refresh verifies a refresh token and issues a new access+refresh pair
// for the same subject and tenant.
func (s *Service) Refresh(refreshToken string) (*Pair, error) {
	claims, err := s.Verify(refreshToken, TypeRefresh)
	if err != nil {
		return nil, err
	}
	return s.IssuePair(claims.Subject, claims.TenantID, claims.Email, claims.Role)
}
