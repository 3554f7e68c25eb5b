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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	exec *database.Executor
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.DB) *TenantRepository {
	return &TenantRepository{exec: database.NewExecutor(db.Pool())}
}

// WithTx returns a copy bound to the given transaction connection
func (r *TenantRepository) WithTx(q database.Querier) tenant.Repository {
	return &TenantRepository{exec: r.exec.WithQuerier(q)}
}

// Create inserts a tenant
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	now := time.Now()
	_, err := r.exec.Exec(ctx, `
		INSERT INTO tenants (id, name, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.Name, t.Plan, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.exec.QueryRow(ctx, `
		SELECT id, name, plan, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Plan, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Update updates tenant name and plan
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	result, err := r.exec.Exec(ctx, `
		UPDATE tenants SET name = $2, plan = $3, updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.Name, t.Plan)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}
