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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/identity"
)

// UserRepository implements identity.Repository
type UserRepository struct {
	exec *database.Executor
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{exec: database.NewExecutor(db.Pool())}
}

// WithTx returns a copy bound to the given transaction connection
func (r *UserRepository) WithTx(q database.Querier) identity.Repository {
	return &UserRepository{exec: r.exec.WithQuerier(q)}
}

// Create inserts a user. An empty passwordHash is stored as NULL for
// invited users that have not set credentials yet.
func (r *UserRepository) Create(ctx context.Context, user *identity.User, passwordHash string) error {
	var hash sql.NullString
	if passwordHash != "" {
		hash = sql.NullString{String: passwordHash, Valid: true}
	}

	now := time.Now()
	_, err := r.exec.Exec(ctx, `
		INSERT INTO users (id, tenant_id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.TenantID, user.Email, hash, user.Role, now, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID retrieves a user within a tenant. The tenant predicate is
// appended by the scoped executor.
func (r *UserRepository) GetByID(ctx context.Context, userID, tenantID string) (*identity.User, error) {
	var user identity.User
	err := r.exec.QueryRowTenant(ctx, tenantID, `
		SELECT id, tenant_id, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.TenantID, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email within a tenant
func (r *UserRepository) GetByEmail(ctx context.Context, tenantID, email string) (*identity.User, error) {
	var user identity.User
	err := r.exec.QueryRowTenant(ctx, tenantID, `
		SELECT id, tenant_id, email, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.TenantID, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmailGlobal is the single tenant-unscoped lookup, used only
// before authentication. It is also the only finder that returns the
// password hash. Email is unique per tenant, not globally, so the same
// address can exist in several tenants; the oldest account wins to keep
// login and password reset targeting deterministic.
func (r *UserRepository) GetByEmailGlobal(ctx context.Context, email string) (*identity.User, string, error) {
	var user identity.User
	var hash sql.NullString
	err := r.exec.QueryRow(ctx, `
		SELECT id, tenant_id, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1
		ORDER BY created_at, id
		LIMIT 1
	`, email).Scan(&user.ID, &user.TenantID, &user.Email, &hash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", identity.ErrUserNotFound
		}
		return nil, "", err
	}
	return &user, hash.String, nil
}

// ListByTenant lists all users of a tenant
func (r *UserRepository) ListByTenant(ctx context.Context, tenantID string) ([]*identity.User, error) {
	rows, err := r.exec.QueryTenant(ctx, tenantID, `
		SELECT id, tenant_id, email, role, created_at, updated_at
		FROM users
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		var user identity.User
		if err := rows.Scan(&user.ID, &user.TenantID, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// UpdatePassword replaces the password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := r.exec.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}
