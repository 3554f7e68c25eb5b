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

package workspace

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/id"
	"github.com/temporahq/tempora/internal/observability/logger"
)

// Service applies workspace business rules on top of the repositories
type Service struct {
	txr         database.TxRunner
	clients     ClientRepository
	projects    ProjectRepository
	tasks       TaskRepository
	entries     TimeEntryRepository
	auditLogger audit.Logger

	now func() time.Time
}

// NewService creates a new workspace service
func NewService(
	txr database.TxRunner,
	clients ClientRepository,
	projects ProjectRepository,
	tasks TaskRepository,
	entries TimeEntryRepository,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		txr:         txr,
		clients:     clients,
		projects:    projects,
		tasks:       tasks,
		entries:     entries,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

func (s *Service) record(ctx context.Context, tenantID, userID, action, entityType, entityID string, before, after map[string]any) {
	var uid *string
	if userID != "" {
		uid = &userID
	}
	s.auditLogger.Record(ctx, audit.Entry{
		TenantID:   tenantID,
		UserID:     uid,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     before,
		After:      after,
	})
}

// Clients

// CreateClient creates a client in the tenant
func (s *Service) CreateClient(ctx context.Context, tenantID, userID, name string) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	c := &Client{ID: id.NewUUIDv7(), TenantID: tenantID, Name: name}
	if err := s.clients.Create(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, userID, audit.ActionCreate, "client", c.ID, nil, map[string]any{"name": c.Name})
	return c, nil
}

// GetClient retrieves a client within the tenant
func (s *Service) GetClient(ctx context.Context, clientID, tenantID string) (*Client, error) {
	return s.clients.GetByID(ctx, clientID, tenantID)
}

// ListClients lists the tenant's active clients
func (s *Service) ListClients(ctx context.Context, tenantID string) ([]*Client, error) {
	return s.clients.List(ctx, tenantID)
}

// RenameClient updates a client's name
func (s *Service) RenameClient(ctx context.Context, clientID, tenantID, userID, name string) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	c, err := s.clients.GetByID(ctx, clientID, tenantID)
	if err != nil {
		return nil, err
	}
	before := map[string]any{"name": c.Name}
	c.Name = name
	if err := s.clients.Update(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, userID, audit.ActionUpdate, "client", c.ID, before, map[string]any{"name": c.Name})
	return c, nil
}

// DeleteClient soft-deletes a client. Projects under it stay active;
// there is no implicit cascade from clients.
func (s *Service) DeleteClient(ctx context.Context, clientID, tenantID, userID string) error {
	if err := s.clients.SoftDelete(ctx, clientID, tenantID, s.now()); err != nil {
		return err
	}
	s.record(ctx, tenantID, userID, audit.ActionDelete, "client", clientID, nil, nil)
	return nil
}

// Projects

// CreateProject creates a project, optionally under a client owned by
// the same tenant.
func (s *Service) CreateProject(ctx context.Context, tenantID, userID, name string, clientID *string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if clientID != nil {
		// Resolving the client tenant-scoped also rejects cross-tenant
		// references as plain not-found.
		if _, err := s.clients.GetByID(ctx, *clientID, tenantID); err != nil {
			return nil, err
		}
	}

	p := &Project{ID: id.NewUUIDv7(), TenantID: tenantID, ClientID: clientID, Name: name}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, userID, audit.ActionCreate, "project", p.ID, nil, map[string]any{"name": p.Name})
	return p, nil
}

// GetProject retrieves a project within the tenant
func (s *Service) GetProject(ctx context.Context, projectID, tenantID string) (*Project, error) {
	return s.projects.GetByID(ctx, projectID, tenantID)
}

// ListProjects lists the tenant's active projects
func (s *Service) ListProjects(ctx context.Context, tenantID string) ([]*Project, error) {
	return s.projects.List(ctx, tenantID)
}

// RenameProject updates a project's name
func (s *Service) RenameProject(ctx context.Context, projectID, tenantID, userID, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	p, err := s.projects.GetByID(ctx, projectID, tenantID)
	if err != nil {
		return nil, err
	}
	before := map[string]any{"name": p.Name}
	p.Name = name
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, userID, audit.ActionUpdate, "project", p.ID, before, map[string]any{"name": p.Name})
	return p, nil
}

// DeleteProject soft-deletes a single project and leaves its tasks
// untouched. Use DeleteProjectCascade to take the tasks down with it.
func (s *Service) DeleteProject(ctx context.Context, projectID, tenantID, userID string) error {
	if err := s.projects.SoftDelete(ctx, projectID, tenantID, s.now()); err != nil {
		return err
	}
	if n, err := s.tasks.CountByProject(ctx, projectID, tenantID); err == nil && n > 0 {
		slog.WarnContext(ctx, "project deleted with tasks still active",
			logger.Component("workspace"),
			logger.EntityID(projectID),
			slog.Int("tasks", n),
		)
	}
	s.record(ctx, tenantID, userID, audit.ActionDelete, "project", projectID, nil, nil)
	return nil
}

// DeleteProjectCascade soft-deletes a project and all its active tasks
// in one transaction.
func (s *Service) DeleteProjectCascade(ctx context.Context, projectID, tenantID, userID string) error {
	at := s.now()
	var taskCount int64

	err := s.txr.RunInTransaction(ctx, func(q database.Querier) error {
		if err := s.projects.WithTx(q).SoftDelete(ctx, projectID, tenantID, at); err != nil {
			return err
		}
		n, err := s.tasks.WithTx(q).SoftDeleteByProject(ctx, projectID, tenantID, at)
		if err != nil {
			return err
		}
		taskCount = n
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, tenantID, userID, audit.ActionDelete, "project", projectID, nil,
		map[string]any{"cascade": true, "tasks_deleted": taskCount})
	return nil
}

// Tasks

// CreateTask creates a task under a project of the same tenant
func (s *Service) CreateTask(ctx context.Context, tenantID, userID, projectID, name string) (*Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.projects.GetByID(ctx, projectID, tenantID); err != nil {
		return nil, err
	}

	t := &Task{ID: id.NewUUIDv7(), TenantID: tenantID, ProjectID: projectID, Name: name}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, userID, audit.ActionCreate, "task", t.ID, nil, map[string]any{"name": t.Name, "project_id": projectID})
	return t, nil
}

// GetTask retrieves a task within the tenant
func (s *Service) GetTask(ctx context.Context, taskID, tenantID string) (*Task, error) {
	return s.tasks.GetByID(ctx, taskID, tenantID)
}

// ListTasks lists the tenant's active tasks joined with project names
func (s *Service) ListTasks(ctx context.Context, tenantID string) ([]*TaskWithProject, error) {
	return s.tasks.ListWithProjectName(ctx, tenantID)
}

// RenameTask updates a task's name
func (s *Service) RenameTask(ctx context.Context, taskID, tenantID, userID, name string) (*Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	t, err := s.tasks.GetByID(ctx, taskID, tenantID)
	if err != nil {
		return nil, err
	}
	before := map[string]any{"name": t.Name}
	t.Name = name
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, userID, audit.ActionUpdate, "task", t.ID, before, map[string]any{"name": t.Name})
	return t, nil
}

// DeleteTask soft-deletes a task unless active time entries still
// reference it, in which case the delete is refused and the task stays
// active. Check and delete run in one transaction so a concurrent entry
// insert cannot slip between them.
func (s *Service) DeleteTask(ctx context.Context, taskID, tenantID, userID string) error {
	at := s.now()

	err := s.txr.RunInTransaction(ctx, func(q database.Querier) error {
		n, err := s.entries.WithTx(q).CountActiveByTask(ctx, taskID, tenantID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrTaskHasEntries
		}
		return s.tasks.WithTx(q).SoftDelete(ctx, taskID, tenantID, at)
	})
	if err != nil {
		return err
	}

	s.record(ctx, tenantID, userID, audit.ActionDelete, "task", taskID, nil, nil)
	return nil
}

// Time entries

// LogTime creates a time entry against a task of the same tenant
func (s *Service) LogTime(ctx context.Context, tenantID, userID, taskID string, startedAt time.Time, minutes int, note string) (*TimeEntry, error) {
	if _, err := s.tasks.GetByID(ctx, taskID, tenantID); err != nil {
		return nil, err
	}

	e := &TimeEntry{
		ID:        id.NewUUIDv7(),
		TenantID:  tenantID,
		TaskID:    taskID,
		UserID:    userID,
		StartedAt: startedAt,
		Minutes:   minutes,
		Note:      note,
	}
	if err := s.entries.Create(ctx, e); err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, userID, audit.ActionCreate, "time_entry", e.ID, nil,
		map[string]any{"task_id": taskID, "minutes": minutes})
	return e, nil
}

// ListTaskEntries lists active entries of a task
func (s *Service) ListTaskEntries(ctx context.Context, taskID, tenantID string) ([]*TimeEntry, error) {
	return s.entries.ListByTask(ctx, taskID, tenantID)
}

// DeleteTimeEntry soft-deletes a time entry
func (s *Service) DeleteTimeEntry(ctx context.Context, entryID, tenantID, userID string) error {
	if err := s.entries.SoftDelete(ctx, entryID, tenantID, s.now()); err != nil {
		return err
	}
	s.record(ctx, tenantID, userID, audit.ActionDelete, "time_entry", entryID, nil, nil)
	return nil
}

// TimeReport aggregates the tenant's entries for [from, to)
func (s *Service) TimeReport(ctx context.Context, tenantID string, from, to time.Time) ([]*ReportRow, error) {
	return s.entries.Report(ctx, tenantID, from, to)
}
