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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/database"
)

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTransaction(ctx context.Context, fn func(q database.Querier) error) error {
	return fn(nil)
}

// In-memory repositories. Tenant filtering mirrors the scoped executor:
// a row of another tenant is reported as absent.

type memClientRepo struct{ rows map[string]*Client }

func (m *memClientRepo) WithTx(q database.Querier) ClientRepository { return m }

func (m *memClientRepo) Create(ctx context.Context, c *Client) error {
	m.rows[c.ID] = c
	return nil
}

func (m *memClientRepo) GetByID(ctx context.Context, id, tenantID string) (*Client, error) {
	c, ok := m.rows[id]
	if !ok || c.TenantID != tenantID || c.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *memClientRepo) List(ctx context.Context, tenantID string) ([]*Client, error) {
	var out []*Client
	for _, c := range m.rows {
		if c.TenantID == tenantID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memClientRepo) Update(ctx context.Context, c *Client) error {
	if _, err := m.GetByID(ctx, c.ID, c.TenantID); err != nil {
		return err
	}
	m.rows[c.ID] = c
	return nil
}

func (m *memClientRepo) SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error {
	c, err := m.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	c.DeletedAt = &at
	return nil
}

type memProjectRepo struct{ rows map[string]*Project }

func (m *memProjectRepo) WithTx(q database.Querier) ProjectRepository { return m }

func (m *memProjectRepo) Create(ctx context.Context, p *Project) error {
	m.rows[p.ID] = p
	return nil
}

func (m *memProjectRepo) GetByID(ctx context.Context, id, tenantID string) (*Project, error) {
	p, ok := m.rows[id]
	if !ok || p.TenantID != tenantID || p.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *memProjectRepo) List(ctx context.Context, tenantID string) ([]*Project, error) {
	var out []*Project
	for _, p := range m.rows {
		if p.TenantID == tenantID && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProjectRepo) Update(ctx context.Context, p *Project) error {
	if _, err := m.GetByID(ctx, p.ID, p.TenantID); err != nil {
		return err
	}
	m.rows[p.ID] = p
	return nil
}

func (m *memProjectRepo) SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error {
	p, err := m.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	p.DeletedAt = &at
	return nil
}

type memTaskRepo struct {
	rows     map[string]*Task
	projects *memProjectRepo
}

func (m *memTaskRepo) WithTx(q database.Querier) TaskRepository { return m }

func (m *memTaskRepo) Create(ctx context.Context, t *Task) error {
	m.rows[t.ID] = t
	return nil
}

func (m *memTaskRepo) GetByID(ctx context.Context, id, tenantID string) (*Task, error) {
	t, ok := m.rows[id]
	if !ok || t.TenantID != tenantID || t.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return t, nil
}

func (m *memTaskRepo) ListWithProjectName(ctx context.Context, tenantID string) ([]*TaskWithProject, error) {
	var out []*TaskWithProject
	for _, t := range m.rows {
		if t.TenantID != tenantID || t.DeletedAt != nil {
			continue
		}
		name := ""
		if p, ok := m.projects.rows[t.ProjectID]; ok {
			name = p.Name
		}
		out = append(out, &TaskWithProject{Task: *t, ProjectName: name})
	}
	return out, nil
}

func (m *memTaskRepo) CountByProject(ctx context.Context, projectID, tenantID string) (int, error) {
	n := 0
	for _, t := range m.rows {
		if t.TenantID == tenantID && t.ProjectID == projectID && t.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *memTaskRepo) Update(ctx context.Context, t *Task) error {
	if _, err := m.GetByID(ctx, t.ID, t.TenantID); err != nil {
		return err
	}
	m.rows[t.ID] = t
	return nil
}

func (m *memTaskRepo) SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error {
	t, err := m.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	t.DeletedAt = &at
	return nil
}

func (m *memTaskRepo) SoftDeleteByProject(ctx context.Context, projectID, tenantID string, at time.Time) (int64, error) {
	var n int64
	for _, t := range m.rows {
		if t.TenantID == tenantID && t.ProjectID == projectID && t.DeletedAt == nil {
			t.DeletedAt = &at
			n++
		}
	}
	return n, nil
}

type memEntryRepo struct{ rows map[string]*TimeEntry }

func (m *memEntryRepo) WithTx(q database.Querier) TimeEntryRepository { return m }

func (m *memEntryRepo) Create(ctx context.Context, e *TimeEntry) error {
	m.rows[e.ID] = e
	return nil
}

func (m *memEntryRepo) GetByID(ctx context.Context, id, tenantID string) (*TimeEntry, error) {
	e, ok := m.rows[id]
	if !ok || e.TenantID != tenantID || e.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *memEntryRepo) ListByTask(ctx context.Context, taskID, tenantID string) ([]*TimeEntry, error) {
	var out []*TimeEntry
	for _, e := range m.rows {
		if e.TenantID == tenantID && e.TaskID == taskID && e.DeletedAt == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntryRepo) CountActiveByTask(ctx context.Context, taskID, tenantID string) (int, error) {
	n := 0
	for _, e := range m.rows {
		if e.TenantID == tenantID && e.TaskID == taskID && e.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *memEntryRepo) Update(ctx context.Context, e *TimeEntry) error {
	if _, err := m.GetByID(ctx, e.ID, e.TenantID); err != nil {
		return err
	}
	m.rows[e.ID] = e
	return nil
}

func (m *memEntryRepo) SoftDelete(ctx context.Context, id, tenantID string, at time.Time) error {
	e, err := m.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}
	e.DeletedAt = &at
	return nil
}

func (m *memEntryRepo) Report(ctx context.Context, tenantID string, from, to time.Time) ([]*ReportRow, error) {
	return nil, nil
}

func newTestService() (*Service, *memClientRepo, *memProjectRepo, *memTaskRepo, *memEntryRepo) {
	clients := &memClientRepo{rows: make(map[string]*Client)}
	projects := &memProjectRepo{rows: make(map[string]*Project)}
	tasks := &memTaskRepo{rows: make(map[string]*Task), projects: projects}
	entries := &memEntryRepo{rows: make(map[string]*TimeEntry)}
	s := NewService(fakeTxRunner{}, clients, projects, tasks, entries, audit.NewSlogLogger())
	return s, clients, projects, tasks, entries
}

// TestPurpose: Validates that records of another tenant are indistinguishable from absent ones.
// Scope: Unit Test
// Security: Multi-tenant boundary enforcement
// Expected: Reads, renames and deletes against a foreign tenant all return ErrNotFound.
// Test Case ID: WSP-01
func TestWorkspace_CrossTenantAccessIsNotFound(t *testing.T) {
	s, _, _, _, _ := newTestService()
	ctx := context.Background()

	c, err := s.CreateClient(ctx, "tenant-a", "user-1", "Acme")
	require.NoError(t, err)

	_, err = s.GetClient(ctx, c.ID, "tenant-b")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.RenameClient(ctx, c.ID, "tenant-b", "user-2", "Evil Rename")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteClient(ctx, c.ID, "tenant-b", "user-2")
	assert.ErrorIs(t, err, ErrNotFound)

	// The legitimate tenant still sees it untouched.
	got, err := s.GetClient(ctx, c.ID, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
}

func TestWorkspace_CreateProject_ClientMustBelongToTenant(t *testing.T) {
	s, _, _, _, _ := newTestService()
	ctx := context.Background()

	c, err := s.CreateClient(ctx, "tenant-a", "user-1", "Acme")
	require.NoError(t, err)

	// Referencing another tenant's client reads as absence.
	_, err = s.CreateProject(ctx, "tenant-b", "user-2", "Stolen", &c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := s.CreateProject(ctx, "tenant-a", "user-1", "Redesign", &c.ID)
	require.NoError(t, err)
	assert.Equal(t, &c.ID, p.ClientID)

	// A project without a client is fine.
	_, err = s.CreateProject(ctx, "tenant-a", "user-1", "Internal", nil)
	assert.NoError(t, err)
}

func TestWorkspace_NameValidation(t *testing.T) {
	s, _, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := s.CreateClient(ctx, "tenant-a", "user-1", "   ")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = s.CreateProject(ctx, "tenant-a", "user-1", "", nil)
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestWorkspace_SoftDeleteHidesFromReads(t *testing.T) {
	s, clients, _, _, _ := newTestService()
	ctx := context.Background()

	c, err := s.CreateClient(ctx, "tenant-a", "user-1", "Acme")
	require.NoError(t, err)
	require.NoError(t, s.DeleteClient(ctx, c.ID, "tenant-a", "user-1"))

	_, err = s.GetClient(ctx, c.ID, "tenant-a")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListClients(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Empty(t, list)

	// The row is stamped, not removed.
	raw := clients.rows[c.ID]
	require.NotNil(t, raw)
	assert.NotNil(t, raw.DeletedAt)
}

// TestPurpose: Validates the referential guard on task deletion.
// Scope: Unit Test
// Security: Data integrity
// Expected: A task with active entries refuses deletion; deleting its entries first unblocks it.
// Test Case ID: WSP-02
func TestWorkspace_DeleteTask_RefusedWhileEntriesActive(t *testing.T) {
	s, _, _, _, _ := newTestService()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "tenant-a", "user-1", "Redesign", nil)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, "tenant-a", "user-1", p.ID, "Homepage")
	require.NoError(t, err)

	entry, err := s.LogTime(ctx, "tenant-a", "user-1", task.ID, time.Now(), 90, "wireframes")
	require.NoError(t, err)

	err = s.DeleteTask(ctx, task.ID, "tenant-a", "user-1")
	assert.ErrorIs(t, err, ErrTaskHasEntries)

	// Task stays active after the refusal.
	_, err = s.GetTask(ctx, task.ID, "tenant-a")
	assert.NoError(t, err)

	require.NoError(t, s.DeleteTimeEntry(ctx, entry.ID, "tenant-a", "user-1"))
	assert.NoError(t, s.DeleteTask(ctx, task.ID, "tenant-a", "user-1"))
}

func TestWorkspace_DeleteProjectCascade(t *testing.T) {
	s, _, _, tasks, _ := newTestService()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "tenant-a", "user-1", "Redesign", nil)
	require.NoError(t, err)
	t1, err := s.CreateTask(ctx, "tenant-a", "user-1", p.ID, "Homepage")
	require.NoError(t, err)
	t2, err := s.CreateTask(ctx, "tenant-a", "user-1", p.ID, "Checkout")
	require.NoError(t, err)

	// Plain delete leaves tasks alone.
	other, err := s.CreateProject(ctx, "tenant-a", "user-1", "Other", nil)
	require.NoError(t, err)
	require.NoError(t, s.DeleteProject(ctx, other.ID, "tenant-a", "user-1"))

	require.NoError(t, s.DeleteProjectCascade(ctx, p.ID, "tenant-a", "user-1"))

	_, err = s.GetProject(ctx, p.ID, "tenant-a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTask(ctx, t1.ID, "tenant-a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTask(ctx, t2.ID, "tenant-a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Stamped, not removed.
	assert.NotNil(t, tasks.rows[t1.ID].DeletedAt)
	assert.NotNil(t, tasks.rows[t2.ID].DeletedAt)
}

func TestWorkspace_LogTime_TaskMustExistInTenant(t *testing.T) {
	s, _, _, _, _ := newTestService()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "tenant-a", "user-1", "Redesign", nil)
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, "tenant-a", "user-1", p.ID, "Homepage")
	require.NoError(t, err)

	_, err = s.LogTime(ctx, "tenant-b", "user-2", task.ID, time.Now(), 30, "")
	assert.ErrorIs(t, err, ErrNotFound)

	e, err := s.LogTime(ctx, "tenant-a", "user-1", task.ID, time.Now(), 30, "")
	require.NoError(t, err)

	entries, err := s.ListTaskEntries(ctx, task.ID, "tenant-a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
}
