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
	"time"

	"github.com/temporahq/tempora/internal/database"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrInvalidRole        = errors.New("invalid role")
)

// Roles. Ranking is strict: admin outranks user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var roleRank = map[string]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// ValidRole reports whether role is a defined role name
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// RoleAtLeast reports whether role meets or exceeds required
func RoleAtLeast(role, required string) bool {
	return roleRank[role] >= roleRank[required] && roleRank[role] > 0
}

// User represents a user identity. The password hash never travels on
// this struct; tenant-scoped finders omit it entirely and only the
// global pre-authentication lookup returns it, separately.
type User struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for user persistence.
// Every method except GetByEmailGlobal is tenant-scoped: a user owned by
// another tenant is indistinguishable from an absent one.
type Repository interface {
	// WithTx returns a copy bound to the given transaction connection
	WithTx(q database.Querier) Repository

	// Create inserts a user. passwordHash may be empty for invited users
	// that have not accepted yet.
	Create(ctx context.Context, user *User, passwordHash string) error

	// GetByID retrieves a user within a tenant
	GetByID(ctx context.Context, userID, tenantID string) (*User, error)

	// GetByEmail retrieves a user by email within a tenant
	GetByEmail(ctx context.Context, tenantID, email string) (*User, error)

	// GetByEmailGlobal is the single sanctioned tenant-unscoped lookup,
	// used only before authentication when the tenant is not yet known.
	// It returns the password hash alongside the user.
	GetByEmailGlobal(ctx context.Context, email string) (*User, string, error)

	// ListByTenant lists all users of a tenant
	ListByTenant(ctx context.Context, tenantID string) ([]*User, error)

	// UpdatePassword replaces the password hash
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
