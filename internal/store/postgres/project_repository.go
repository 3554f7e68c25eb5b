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

// ProjectRepository implements workspace.ProjectRepository
type ProjectRepository struct {
	exec *database.Executor
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{exec: database.NewExecutor(db.Pool())}
}

// WithTx returns a copy bound to the given transaction connection
func (r *ProjectRepository) WithTx(q database.Querier) workspace.ProjectRepository {
	return &ProjectRepository{exec: r.exec.WithQuerier(q)}
}

// Create inserts a project
func (r *ProjectRepository) Create(ctx context.Context, p *workspace.Project) error {
	now := time.Now()
	_, err := r.exec.Exec(ctx, `
		INSERT INTO projects (id, tenant_id, client_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.TenantID, p.ClientID, p.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetByID retrieves an active project within a tenant
func (r *ProjectRepository) GetByID(ctx context.Context, id, tenantID string) (*workspace.Project, error) {
	var p workspace.Project
	err := r.exec.QueryRowTenant(ctx, tenantID, `
		SELECT id, tenant_id, client_id, name, deleted_at, created_at, updated_at
		FROM projects
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&p.ID, &p.TenantID, &p.ClientID, &p.Name, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List lists the tenant's active projects
func (r *ProjectRepository) List(ctx context.Context, tenantID string) ([]*workspace.Project, error) {
	rows, err := r.exec.QueryTenant(ctx, tenantID, `
		SELECT id, tenant_id, client_id, name, deleted_at, created_at, updated_at
		FROM projects
		WHERE deleted_at IS NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*workspace.Project
	for rows.Next() {
		var p workspace.Project
		if err := rows.Scan(&p.ID, &p.TenantID, &p.ClientID, &p.Name, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// Update updates a project's name
func (r *ProjectRepository) Update(ctx context.Context, p *workspace.Project) error {
	result, err := r.exec.ExecTenant(ctx, p.TenantID, `
		UPDATE projects SET name = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// SoftDelete marks a project deleted without removing the row
func (r *ProjectRepository) SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error {
	result, err := r.exec.ExecTenant(ctx, tenantID, `
		UPDATE projects SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}
