// Copyright 2026 The Tempora Authors
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
	"errors"
	"log/slog"
	"strings"

	"github.com/temporahq/tempora/internal/id"
	"github.com/temporahq/tempora/internal/observability/logger"
)

// Service provides identity-related business logic
type Service struct {
	repo   Repository
	hasher *PasswordHasher
}

// NewService creates a new identity service
func NewService(repo Repository, hasher *PasswordHasher) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
	}
}

// Repo returns the underlying repository. Collaborating services that
// join the user table inside their own transactions rebind it via WithTx.
func (s *Service) Repo() Repository {
	return s.repo
}

// Hasher returns the password hasher shared across credential flows
func (s *Service) Hasher() *PasswordHasher {
	return s.hasher
}

// NewUser validates input and builds a user record with a fresh ID.
// It does not persist; callers insert it through a repository, usually
// inside a transaction.
func (s *Service) NewUser(tenantID, email, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}

	return &User{
		ID:       id.NewUUIDv7(),
		TenantID: tenantID,
		Email:    email,
		Role:     role,
	}, nil
}

// HashPassword validates password strength and hashes it
func (s *Service) HashPassword(password string) (string, error) {
	if !StrongPassword(password) {
		return "", ErrWeakPassword
	}
	return s.hasher.Hash(password)
}

// Authenticate authenticates a user by email and password. The email
// lookup is global because the tenant is not known before login; this is
// the one unscoped read in the system. Every failure mode returns
// ErrInvalidCredentials so callers cannot distinguish an unknown email
// from a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, hash, err := s.repo.GetByEmailGlobal(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			slog.ErrorContext(ctx, "login lookup failed", logger.Component("identity"), logger.Error(err))
		}
		// Burn a hash comparison so unknown emails cost the same as
		// known ones.
		_, _ = s.hasher.Verify(password, dummyHash)
		return nil, ErrInvalidCredentials
	}

	// Invited users have no credentials until they accept.
	if hash == "" {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, hash)
	if err != nil || !valid {
		slog.InfoContext(ctx, "login failed",
			logger.Component("identity"),
			logger.TenantID(user.TenantID),
			logger.UserID(user.ID),
		)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user within a tenant
func (s *Service) GetUser(ctx context.Context, userID, tenantID string) (*User, error) {
	return s.repo.GetByID(ctx, userID, tenantID)
}

// ListUsers lists the users of a tenant
func (s *Service) ListUsers(ctx context.Context, tenantID string) ([]*User, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// dummyHash is compared against for unknown emails to keep timing flat.
// Generated once with default parameters; the input never matches.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=4$AAAAAAAAAAAAAAAAAAAAAA$yZ8ZypOQXtSJpPhVgg4Pe1vM2kSYRPKG8zYC0zW9Y9Y"

// ValidEmail applies a minimal shape check; real validation happens at
// delivery time.
func ValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return len(email) >= 3 && len(email) < 255 && at > 0 && at < len(email)-1
}

// StrongPassword requires at least 8 characters
func StrongPassword(password string) bool {
	return len(password) >= 8
}
