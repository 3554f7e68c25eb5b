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
	"github.com/temporahq/tempora/internal/workspace"
)

// ClientRepository implements workspace.ClientRepository
type ClientRepository struct {
	exec *database.Executor
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *database.DB) *ClientRepository {
	return &ClientRepository{exec: database.NewExecutor(db.Pool())}
}

// WithTx returns a copy bound to the given transaction connection
func (r *ClientRepository) WithTx(q database.Querier) workspace.ClientRepository {
	return &ClientRepository{exec: r.exec.WithQuerier(q)}
}

// Create inserts a client
func (r *ClientRepository) Create(ctx context.Context, c *workspace.Client) error {
	now := time.Now()
	_, err := r.exec.Exec(ctx, `
		INSERT INTO clients (id, tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.TenantID, c.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetByID retrieves an active client within a tenant. Rows of other
// tenants and soft-deleted rows both come back as not-found.
func (r *ClientRepository) GetByID(ctx context.Context, id, tenantID string) (*workspace.Client, error) {
	var c workspace.Client
	err := r.exec.QueryRowTenant(ctx, tenantID, `
		SELECT id, tenant_id, name, deleted_at, created_at, updated_at
		FROM clients
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List lists the tenant's active clients
func (r *ClientRepository) List(ctx context.Context, tenantID string) ([]*workspace.Client, error) {
	rows, err := r.exec.QueryTenant(ctx, tenantID, `
		SELECT id, tenant_id, name, deleted_at, created_at, updated_at
		FROM clients
		WHERE deleted_at IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*workspace.Client
	for rows.Next() {
		var c workspace.Client
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

// Update updates a client's name
func (r *ClientRepository) Update(ctx context.Context, c *workspace.Client) error {
	result, err := r.exec.ExecTenant(ctx, c.TenantID, `
		UPDATE clients SET name = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// SoftDelete marks a client deleted without removing the row
func (r *ClientRepository) SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error {
	result, err := r.exec.ExecTenant(ctx, tenantID, `
		UPDATE clients SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}
