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
	"testing"

	"github.com/temporahq/tempora/internal/database"
)

// MockUserRepository is a simple in-memory implementation of Repository
type MockUserRepository struct {
	users  map[string]*User
	hashes map[string]string
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[string]*User),
		hashes: make(map[string]string),
	}
}

func (m *MockUserRepository) WithTx(q database.Querier) Repository {
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *User, passwordHash string) error {
	for _, u := range m.users {
		if u.TenantID == user.TenantID && u.Email == user.Email {
			return ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	m.hashes[user.ID] = passwordHash
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID, tenantID string) (*User, error) {
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, tenantID, email string) (*User, error) {
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserRepository) GetByEmailGlobal(ctx context.Context, email string) (*User, string, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, m.hashes[u.ID], nil
		}
	}
	return nil, "", ErrUserNotFound
}

func (m *MockUserRepository) ListByTenant(ctx context.Context, tenantID string) ([]*User, error) {
	var out []*User
	for _, u := range m.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	m.hashes[userID] = passwordHash
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, NewPasswordHasher(65536, 3, 4, 16, 32))
}

// TestPurpose: Validates the authentication flow, including success and indistinguishable failure modes.
// Scope: Unit Test
// Security: Credential verification and account enumeration resistance
// Expected: Successful login for correct credentials; ErrInvalidCredentials for wrong password, unknown email and pending invites alike.
// Test Case ID: IDN-01
func TestIdentity_Service_Authenticate(t *testing.T) {
	repo := NewMockUserRepository()
	s := newTestService(repo)
	ctx := context.Background()

	user, err := s.NewUser("tenant-1", "test@example.com", RoleUser)
	if err != nil {
		t.Fatalf("failed to build user: %v", err)
	}
	hash, err := s.HashPassword("SecurePassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := repo.Create(ctx, user, hash); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	// Success
	got, err := s.Authenticate(ctx, "test@example.com", "SecurePassword123")
	if err != nil {
		t.Fatalf("expected success, got err: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user ID %s, got %s", user.ID, got.ID)
	}

	// Email comparison is case-insensitive
	if _, err := s.Authenticate(ctx, "TEST@Example.com", "SecurePassword123"); err != nil {
		t.Errorf("expected case-insensitive email match, got %v", err)
	}

	// Wrong password
	if _, err := s.Authenticate(ctx, "test@example.com", "WrongPassword"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	// Unknown email must be indistinguishable from a wrong password
	if _, err := s.Authenticate(ctx, "nobody@example.com", "SecurePassword123"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

// TestPurpose: Validates that users invited but not yet activated cannot log in.
// Scope: Unit Test
// Security: Pending invite credentials gap
// Expected: ErrInvalidCredentials for a user whose password hash is empty.
// Test Case ID: IDN-02
func TestIdentity_Service_Authenticate_PendingInvite(t *testing.T) {
	repo := NewMockUserRepository()
	s := newTestService(repo)
	ctx := context.Background()

	user, _ := s.NewUser("tenant-1", "invited@example.com", RoleUser)
	if err := repo.Create(ctx, user, ""); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if _, err := s.Authenticate(ctx, "invited@example.com", "anything-at-all"); err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials for pending invite, got %v", err)
	}
}

func TestIdentity_Service_NewUser_Validation(t *testing.T) {
	s := newTestService(NewMockUserRepository())

	if _, err := s.NewUser("tenant-1", "not-an-email", RoleUser); err != ErrInvalidEmail {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := s.NewUser("tenant-1", "a@b.example", "superuser"); err != ErrInvalidRole {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}

	u, err := s.NewUser("tenant-1", "  Mixed.Case@Example.COM ", RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "mixed.case@example.com" {
		t.Errorf("expected normalized email, got %s", u.Email)
	}
	if u.ID == "" {
		t.Error("expected a generated ID")
	}
}

func TestIdentity_Service_HashPassword_Weak(t *testing.T) {
	s := newTestService(NewMockUserRepository())
	if _, err := s.HashPassword("short"); err != ErrWeakPassword {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
}

func TestIdentity_RoleAtLeast(t *testing.T) {
	cases := []struct {
		role, minimum string
		want          bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
		{RoleUser, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{"", RoleUser, false},
		{"superuser", RoleUser, false},
	}
	for _, c := range cases {
		if got := RoleAtLeast(c.role, c.minimum); got != c.want {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", c.role, c.minimum, got, c.want)
		}
	}
}
