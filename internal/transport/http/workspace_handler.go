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

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/temporahq/tempora/internal/observability/logger"
)

// NameRequest carries a resource name for create and rename calls
type NameRequest struct {
	Name string `json:"name" example:"Website Redesign"`
}

// Clients

// CreateClient creates a client
// @Summary Create Client
// @Tags Workspace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body NameRequest true "Client Name"
// @Success 201 {object} workspace.Client
// @Failure 400 {object} map[string]string
// @Router /clients [post]
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.workspaceService.CreateClient(r.Context(), GetTenantID(r.Context()), GetUserID(r.Context()), req.Name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// ListClients lists the tenant's clients
// @Summary List Clients
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /clients [get]
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.workspaceService.ListClients(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list clients", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

// GetClient retrieves one client
// @Summary Get Client
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Param clientID path string true "Client ID"
// @Success 200 {object} workspace.Client
// @Failure 404 {object} map[string]string
// @Router /clients/{clientID} [get]
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.workspaceService.GetClient(r.Context(), chi.URLParam(r, "clientID"), GetTenantID(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// RenameClient renames a client
// @Summary Rename Client
// @Tags Workspace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientID path string true "Client ID"
// @Param request body NameRequest true "New Name"
// @Success 200 {object} workspace.Client
// @Failure 404 {object} map[string]string
// @Router /clients/{clientID} [put]
func (h *Handler) RenameClient(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.workspaceService.RenameClient(r.Context(), chi.URLParam(r, "clientID"), GetTenantID(r.Context()), GetUserID(r.Context()), req.Name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DeleteClient soft-deletes a client
// @Summary Delete Client
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Param clientID path string true "Client ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /clients/{clientID} [delete]
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.workspaceService.DeleteClient(r.Context(), chi.URLParam(r, "clientID"), GetTenantID(r.Context()), GetUserID(r.Context())); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "client deleted"})
}

// Projects

// CreateProjectRequest carries project creation data
type CreateProjectRequest struct {
	Name     string  `json:"name" example:"Website Redesign"`
	ClientID *string `json:"client_id,omitempty"`
}

// CreateProject creates a project
// @Summary Create Project
// @Tags Workspace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProjectRequest true "Project Data"
// @Success 201 {object} workspace.Project
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.workspaceService.CreateProject(r.Context(), GetTenantID(r.Context()), GetUserID(r.Context()), req.Name, req.ClientID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// ListProjects lists the tenant's projects
// @Summary List Projects
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.workspaceService.ListProjects(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list projects", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// GetProject retrieves one project
// @Summary Get Project
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Success 200 {object} workspace.Project
// @Failure 404 {object} map[string]string
// @Router /projects/{projectID} [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.workspaceService.GetProject(r.Context(), chi.URLParam(r, "projectID"), GetTenantID(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// RenameProject renames a project
// @Summary Rename Project
// @Tags Workspace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param request body NameRequest true "New Name"
// @Success 200 {object} workspace.Project
// @Failure 404 {object} map[string]string
// @Router /projects/{projectID} [put]
func (h *Handler) RenameProject(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.workspaceService.RenameProject(r.Context(), chi.URLParam(r, "projectID"), GetTenantID(r.Context()), GetUserID(r.Context()), req.Name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeleteProject soft-deletes a project. With ?cascade=true its active
// tasks go down with it in the same transaction.
// @Summary Delete Project
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID"
// @Param cascade query bool false "Also delete the project's tasks"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /projects/{projectID} [delete]
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	tenantID := GetTenantID(r.Context())
	userID := GetUserID(r.Context())

	var err error
	if r.URL.Query().Get("cascade") == "true" {
		err = h.workspaceService.DeleteProjectCascade(r.Context(), projectID, tenantID, userID)
	} else {
		err = h.workspaceService.DeleteProject(r.Context(), projectID, tenantID, userID)
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})
}

// Tasks

// CreateTaskRequest carries task creation data
type CreateTaskRequest struct {
	Name      string `json:"name" example:"Design homepage"`
	ProjectID string `json:"project_id"`
}

// CreateTask creates a task under a project
// @Summary Create Task
// @Tags Workspace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task Data"
// @Success 201 {object} workspace.Task
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.workspaceService.CreateTask(r.Context(), GetTenantID(r.Context()), GetUserID(r.Context()), req.ProjectID, req.Name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// ListTasks lists the tenant's tasks with their project names
// @Summary List Tasks
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.workspaceService.ListTasks(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tasks", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// GetTask retrieves one task
// @Summary Get Task
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 200 {object} workspace.Task
// @Failure 404 {object} map[string]string
// @Router /tasks/{taskID} [get]
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.workspaceService.GetTask(r.Context(), chi.URLParam(r, "taskID"), GetTenantID(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// RenameTask renames a task
// @Summary Rename Task
// @Tags Workspace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Param request body NameRequest true "New Name"
// @Success 200 {object} workspace.Task
// @Failure 404 {object} map[string]string
// @Router /tasks/{taskID} [put]
func (h *Handler) RenameTask(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.workspaceService.RenameTask(r.Context(), chi.URLParam(r, "taskID"), GetTenantID(r.Context()), GetUserID(r.Context()), req.Name)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// DeleteTask soft-deletes a task unless active time entries reference it
// @Summary Delete Task
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tasks/{taskID} [delete]
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.workspaceService.DeleteTask(r.Context(), chi.URLParam(r, "taskID"), GetTenantID(r.Context()), GetUserID(r.Context())); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

// Time entries

// LogTimeRequest carries a new time entry
type LogTimeRequest struct {
	StartedAt time.Time `json:"started_at"`
	Minutes   int       `json:"minutes" example:"90"`
	Note      string    `json:"note,omitempty"`
}

// LogTime records a time entry against a task
// @Summary Log Time
// @Tags Workspace
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Param request body LogTimeRequest true "Entry Data"
// @Success 201 {object} workspace.TimeEntry
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tasks/{taskID}/entries [post]
func (h *Handler) LogTime(w http.ResponseWriter, r *http.Request) {
	var req LogTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Minutes <= 0 {
		respondError(w, http.StatusBadRequest, "minutes must be positive")
		return
	}
	if req.StartedAt.IsZero() {
		respondError(w, http.StatusBadRequest, "started_at is required")
		return
	}

	e, err := h.workspaceService.LogTime(r.Context(), GetTenantID(r.Context()), GetUserID(r.Context()),
		chi.URLParam(r, "taskID"), req.StartedAt, req.Minutes, req.Note)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

// ListTaskEntries lists active time entries of a task
// @Summary List Task Entries
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Param taskID path string true "Task ID"
// @Success 200 {object} map[string]any
// @Router /tasks/{taskID}/entries [get]
func (h *Handler) ListTaskEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.workspaceService.ListTaskEntries(r.Context(), chi.URLParam(r, "taskID"), GetTenantID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list time entries", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list time entries")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// DeleteTimeEntry soft-deletes a time entry
// @Summary Delete Time Entry
// @Tags Workspace
// @Produce json
// @Security BearerAuth
// @Param entryID path string true "Entry ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /entries/{entryID} [delete]
func (h *Handler) DeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.workspaceService.DeleteTimeEntry(r.Context(), chi.URLParam(r, "entryID"), GetTenantID(r.Context()), GetUserID(r.Context())); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "time entry deleted"})
}

// TimeReport aggregates logged minutes per project, task and user over
// a window given as from/to query parameters (RFC 3339). With
// format=text the report renders as an aligned plain-text table.
// @Summary Time Report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string true "Window start (RFC 3339)"
// @Param to query string true "Window end (RFC 3339)"
// @Param format query string false "json (default) or text"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /reports/time [get]
func (h *Handler) TimeReport(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from parameter")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to parameter")
		return
	}
	if !to.After(from) {
		respondError(w, http.StatusBadRequest, "to must be after from")
		return
	}

	rows, err := h.workspaceService.TimeReport(r.Context(), GetTenantID(r.Context()), from, to)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build time report", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	if r.URL.Query().Get("format") == "text" {
		out, err := h.renderer.Render(r.Context(), "Time Report", rows)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(out)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"rows": rows})
}
