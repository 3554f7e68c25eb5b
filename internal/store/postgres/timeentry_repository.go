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

// TimeEntryRepository implements workspace.TimeEntryRepository
type TimeEntryRepository struct {
	exec *database.Executor
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *database.DB) *TimeEntryRepository {
	return &TimeEntryRepository{exec: database.NewExecutor(db.Pool())}
}

// WithTx returns a copy bound to the given transaction connection
func (r *TimeEntryRepository) WithTx(q database.Querier) workspace.TimeEntryRepository {
	return &TimeEntryRepository{exec: r.exec.WithQuerier(q)}
}

// Create inserts a time entry
func (r *TimeEntryRepository) Create(ctx context.Context, e *workspace.TimeEntry) error {
	now := time.Now()
	_, err := r.exec.Exec(ctx, `
		INSERT INTO time_entries (id, tenant_id, task_id, user_id, started_at, minutes, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.TenantID, e.TaskID, e.UserID, e.StartedAt, e.Minutes, e.Note, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert time entry: %w", err)
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// GetByID retrieves an active time entry within a tenant
func (r *TimeEntryRepository) GetByID(ctx context.Context, id, tenantID string) (*workspace.TimeEntry, error) {
	var e workspace.TimeEntry
	err := r.exec.QueryRowTenant(ctx, tenantID, `
		SELECT id, tenant_id, task_id, user_id, started_at, minutes, note, deleted_at, created_at, updated_at
		FROM time_entries
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&e.ID, &e.TenantID, &e.TaskID, &e.UserID, &e.StartedAt, &e.Minutes, &e.Note, &e.DeletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workspace.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListByTask lists active time entries on a task, newest first
func (r *TimeEntryRepository) ListByTask(ctx context.Context, taskID, tenantID string) ([]*workspace.TimeEntry, error) {
	rows, err := r.exec.QueryTenant(ctx, tenantID, `
		SELECT id, tenant_id, task_id, user_id, started_at, minutes, note, deleted_at, created_at, updated_at
		FROM time_entries
		WHERE task_id = $1 AND deleted_at IS NULL
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*workspace.TimeEntry
	for rows.Next() {
		var e workspace.TimeEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.TaskID, &e.UserID, &e.StartedAt, &e.Minutes, &e.Note, &e.DeletedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CountActiveByTask counts the non-deleted entries on a task
func (r *TimeEntryRepository) CountActiveByTask(ctx context.Context, taskID, tenantID string) (int, error) {
	var count int
	err := r.exec.QueryRowTenant(ctx, tenantID, `
		SELECT COUNT(*) FROM time_entries
		WHERE task_id = $1 AND deleted_at IS NULL
	`, taskID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Update updates an entry's duration and note
func (r *TimeEntryRepository) Update(ctx context.Context, e *workspace.TimeEntry) error {
	result, err := r.exec.ExecTenant(ctx, e.TenantID, `
		UPDATE time_entries SET minutes = $2, note = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, e.ID, e.Minutes, e.Note)
	if err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// SoftDelete marks a time entry deleted without removing the row
func (r *TimeEntryRepository) SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error {
	result, err := r.exec.ExecTenant(ctx, tenantID, `
		UPDATE time_entries SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// Report aggregates minutes per project, task and user over a time
// window. All joined tables carry the tenant predicate explicitly.
func (r *TimeEntryRepository) Report(ctx context.Context, tenantID string, from, to time.Time) ([]*workspace.ReportRow, error) {
	rows, err := r.exec.Query(ctx, `
		SELECT p.name, t.name, u.email, COALESCE(SUM(e.minutes), 0)
		FROM time_entries e
		JOIN tasks t ON t.id = e.task_id AND t.tenant_id = $1
		JOIN projects p ON p.id = t.project_id AND p.tenant_id = $1
		JOIN users u ON u.id = e.user_id AND u.tenant_id = $1
		WHERE e.tenant_id = $1 AND e.deleted_at IS NULL
		  AND e.started_at >= $2 AND e.started_at < $3
		GROUP BY p.name, t.name, u.email
		ORDER BY p.name, t.name, u.email
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []*workspace.ReportRow
	for rows.Next() {
		var row workspace.ReportRow
		if err := rows.Scan(&row.ProjectName, &row.TaskName, &row.UserEmail, &row.Minutes); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		report = append(report, &row)
	}
	return report, rows.Err()
}
