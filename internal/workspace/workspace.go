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

// Package workspace holds the tenant-owned work entities: clients,
// projects, tasks and time entries. All of them soft-delete; every read
// and write is tenant-scoped, and a record owned by another tenant is
// indistinguishable from an absent one.
package workspace

import (
	"context"
	"errors"
	"time"

	"github.com/temporahq/tempora/internal/database"
)

// Domain errors
var (
	ErrNotFound       = errors.New("not found")
	ErrNameRequired   = errors.New("name is required")
	ErrTaskHasEntries = errors.New("task has active time entries")
)

// Client is a customer a tenant bills work against
type Client struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Project groups tasks, optionally under a client
type Project struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	ClientID  *string    `json:"client_id,omitempty"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Task is a unit of work inside a project
type Task struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	ProjectID string     `json:"project_id"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaskWithProject is a task joined with its project name
type TaskWithProject struct {
	Task
	ProjectName string `json:"project_name"`
}

// TimeEntry is logged work on a task
type TimeEntry struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	TaskID    string     `json:"task_id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	Minutes   int        `json:"minutes"`
	Note      string     `json:"note,omitempty"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ReportRow is one aggregated line of a time report, handed to the
// report-rendering collaborator.
type ReportRow struct {
	ProjectName string `json:"project_name"`
	TaskName    string `json:"task_name"`
	UserEmail   string `json:"user_email"`
	Minutes     int    `json:"minutes"`
}

// ClientRepository persists clients
type ClientRepository interface {
	WithTx(q database.Querier) ClientRepository

	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id, tenantID string) (*Client, error)
	List(ctx context.Context, tenantID string) ([]*Client, error)
	Update(ctx context.Context, c *Client) error
	SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error
}

// ProjectRepository persists projects
type ProjectRepository interface {
	WithTx(q database.Querier) ProjectRepository

	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id, tenantID string) (*Project, error)
	List(ctx context.Context, tenantID string) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error
}

// TaskRepository persists tasks
type TaskRepository interface {
	WithTx(q database.Querier) TaskRepository

	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id, tenantID string) (*Task, error)
	ListWithProjectName(ctx context.Context, tenantID string) ([]*TaskWithProject, error)
	CountByProject(ctx context.Context, projectID, tenantID string) (int, error)
	Update(ctx context.Context, t *Task) error
	SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error

	// SoftDeleteByProject marks all active tasks of a project deleted.
	// Cascade deletion is an explicit bulk operation, never implicit.
	SoftDeleteByProject(ctx context.Context, projectID, tenantID string, at time.Time) (int64, error)
}

// TimeEntryRepository persists time entries
type TimeEntryRepository interface {
	WithTx(q database.Querier) TimeEntryRepository

	Create(ctx context.Context, e *TimeEntry) error
	GetByID(ctx context.Context, id, tenantID string) (*TimeEntry, error)
	ListByTask(ctx context.Context, taskID, tenantID string) ([]*TimeEntry, error)
	CountActiveByTask(ctx context.Context, taskID, tenantID string) (int, error)
	Update(ctx context.Context, e *TimeEntry) error
	SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error

	// Report aggregates active entries in [from, to) per project, task
	// and user, already tenant-scoped.
	Report(ctx context.Context, tenantID string, from, to time.Time) ([]*ReportRow, error)
}
