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

// TaskRepository implements workspace.TaskRepository
type TaskRepository struct {
	exec *database.Executor
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{exec: database.NewExecutor(db.Pool())}
}

// WithTx returns a copy bound to the given transaction connection
func (r *TaskRepository) WithTx(q database.Querier) workspace.TaskRepository {
	return &TaskRepository{exec: r.exec.WithQuerier(q)}
}

// Create inserts a task
func (r *TaskRepository) Create(ctx context.Context, t *workspace.Task) error {
	now := time.Now()
	_, err := r.exec.Exec(ctx, `
		INSERT INTO tasks (id, tenant_id, project_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.TenantID, t.ProjectID, t.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetByID retrieves an active task within a tenant
func (r *TaskRepository) GetByID(ctx context.Context, id, tenantID string) (*workspace.Task, error) {
	var t workspace.Task
	err := r.exec.QueryRowTenant(ctx, tenantID, `
		SELECT id, tenant_id, project_id, name, deleted_at, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&t.ID, &t.TenantID, &t.ProjectID, &t.Name, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListWithProjectName lists active tasks joined with their project
// names. Joins carry the tenant predicate on each aliased table
// explicitly instead of relying on the scoped executor, which can only
// append an unqualified column.
func (r *TaskRepository) ListWithProjectName(ctx context.Context, tenantID string) ([]*workspace.TaskWithProject, error) {
	rows, err := r.exec.Query(ctx, `
		SELECT t.id, t.tenant_id, t.project_id, t.name, t.deleted_at, t.created_at, t.updated_at, p.name
		FROM tasks t
		JOIN projects p ON p.id = t.project_id AND p.tenant_id = $1
		WHERE t.tenant_id = $1 AND t.deleted_at IS NULL
		ORDER BY p.name, t.name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*workspace.TaskWithProject
	for rows.Next() {
		var t workspace.TaskWithProject
		if err := rows.Scan(&t.ID, &t.TenantID, &t.ProjectID, &t.Name, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt, &t.ProjectName); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

// CountByProject counts active tasks under a project
func (r *TaskRepository) CountByProject(ctx context.Context, projectID, tenantID string) (int, error) {
	var count int
	err := r.exec.QueryRowTenant(ctx, tenantID, `
		SELECT COUNT(*) FROM tasks
		WHERE project_id = $1 AND deleted_at IS NULL
	`, projectID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Update updates a task's name
func (r *TaskRepository) Update(ctx context.Context, t *workspace.Task) error {
	result, err := r.exec.ExecTenant(ctx, t.TenantID, `
		UPDATE tasks SET name = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, t.ID, t.Name)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// SoftDelete marks a task deleted without removing the row
func (r *TaskRepository) SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error {
	result, err := r.exec.ExecTenant(ctx, tenantID, `
		UPDATE tasks SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// SoftDeleteByProject marks all active tasks under a project deleted
// and reports how many rows were touched. Zero is not an error; a
// project may simply have no tasks.
func (r *TaskRepository) SoftDeleteByProject(ctx context.Context, projectID, tenantID string, at time.Time) (int64, error) {
	result, err := r.exec.ExecTenant(ctx, tenantID, `
		UPDATE tasks SET deleted_at = $2, updated_at = $2
		WHERE project_id = $1 AND deleted_at IS NULL
	`, projectID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	return result.RowsAffected(), nil
}
