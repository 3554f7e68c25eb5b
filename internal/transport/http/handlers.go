// @title Tempora API
// @version 1.0.0
// @description Multi-tenant time tracking backend

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/identity"
	"github.com/temporahq/tempora/internal/observability/logger"
	"github.com/temporahq/tempora/internal/observability/metrics"
	"github.com/temporahq/tempora/internal/report"
	"github.com/temporahq/tempora/internal/session"
	"github.com/temporahq/tempora/internal/tenant"
	"github.com/temporahq/tempora/internal/token"
	"github.com/temporahq/tempora/internal/workspace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService  *identity.Service
	tenantService    *tenant.Service
	tokenService     *token.Service
	workspaceService *workspace.Service
	sessionCodec     *session.Codec
	auditLogger      audit.Logger
	renderer         report.Renderer
	db               *database.DB
	loginLimiter     *FixedWindowLimiter
	resetLimiter     *FixedWindowLimiter
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	tenantService *tenant.Service,
	tokenService *token.Service,
	workspaceService *workspace.Service,
	sessionCodec *session.Codec,
	auditLogger audit.Logger,
	renderer report.Renderer,
	db *database.DB,
	loginLimiter *FixedWindowLimiter,
	resetLimiter *FixedWindowLimiter,
) *Handler {
	return &Handler{
		identityService:  identityService,
		tenantService:    tenantService,
		tokenService:     tokenService,
		workspaceService: workspaceService,
		sessionCodec:     sessionCodec,
		auditLogger:      auditLogger,
		renderer:         renderer,
		db:               db,
		loginLimiter:     loginLimiter,
		resetLimiter:     resetLimiter,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter, meter *metrics.Meter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(MetricsMiddleware(meter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/tenants", h.RegisterTenant)
		r.With(FixedWindowMiddleware(h.loginLimiter)).Post("/auth/login", h.Login)

		// Single-use token flows (unauthenticated by nature)
		r.With(FixedWindowMiddleware(h.resetLimiter)).Post("/auth/password-reset", h.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", h.ConfirmPasswordReset)
		r.Post("/auth/invites/accept", h.AcceptInvite)

		// Protected routes: everything below is tenant-scoped via the
		// session token
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)

			// Admin-only membership management
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(identity.RoleAdmin))
				r.Get("/users", h.ListUsers)
				r.Post("/invites", h.CreateInvite)
			})

			// Workspace resources
			r.Route("/clients", func(r chi.Router) {
				r.Post("/", h.CreateClient)
				r.Get("/", h.ListClients)
				r.Get("/{clientID}", h.GetClient)
				r.Put("/{clientID}", h.RenameClient)
				r.Delete("/{clientID}", h.DeleteClient)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", h.CreateProject)
				r.Get("/", h.ListProjects)
				r.Get("/{projectID}", h.GetProject)
				r.Put("/{projectID}", h.RenameProject)
				r.Delete("/{projectID}", h.DeleteProject)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", h.CreateTask)
				r.Get("/", h.ListTasks)
				r.Get("/{taskID}", h.GetTask)
				r.Put("/{taskID}", h.RenameTask)
				r.Delete("/{taskID}", h.DeleteTask)
				r.Post("/{taskID}/entries", h.LogTime)
				r.Get("/{taskID}/entries", h.ListTaskEntries)
			})

			r.Delete("/entries/{entryID}", h.DeleteTimeEntry)
			r.Get("/reports/time", h.TimeReport)
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks service and database health
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if !h.db.HealthCheck(r.Context()) {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"service": "tempora",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "tempora",
	})
}

// RegisterTenantRequest represents tenant sign-up data
type RegisterTenantRequest struct {
	TenantName string `json:"tenant_name" example:"Acme Corp"`
	Email      string `json:"email" example:"owner@acme.example"`
	Password   string `json:"password" example:"secret123"`
}

// RegisterTenant handles tenant sign-up
// @Summary Register a tenant
// @Description Create a tenant together with its first admin user and return a signed session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterTenantRequest true "Sign-up Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants [post]
func (h *Handler) RegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req RegisterTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, user, err := h.tenantService.Register(r.Context(), req.TenantName, req.Email, req.Password)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to register tenant",
			logger.Error(err),
			logger.Email(req.Email),
		)
		respondDomainError(w, err)
		return
	}

	// Sign-up doubles as the first login: the admin gets a session
	// immediately instead of a second round trip through /auth/login.
	sessionToken, err := h.sessionCodec.Encode(user.ID, user.Email, t.ID, user.Role)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue session token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"token":     sessionToken,
		"tenant_id": t.ID,
		"user_id":   user.ID,
		"email":     user.Email,
		"role":      user.Role,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" example:"owner@acme.example"`
	Password string `json:"password" example:"secret123"`
}

// Login handles user login
// @Summary Login
// @Description Authenticate and receive a signed session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sessionToken, err := h.sessionCodec.Encode(user.ID, user.Email, user.TenantID, user.Role)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue session token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token":   sessionToken,
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})
}

// GetCurrentUser returns the current authenticated user identity
// @Summary Get Current User
// @Description Retrieve details of the currently logged-in user
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identityService.GetUser(r.Context(), GetUserID(r.Context()), GetTenantID(r.Context()))
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
		"email":     user.Email,
		"role":      user.Role,
	})
}

// ListUsers lists the tenant's members
// @Summary List Users
// @Description List all members of the caller's tenant
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identityService.ListUsers(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list users", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"user_id": u.ID,
			"email":   u.Email,
			"role":    u.Role,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": out})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDomainError maps service errors onto HTTP statuses. Unknown
// errors deliberately collapse to an opaque 500.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, token.ErrTokenNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, token.ErrTokenUsed), errors.Is(err, token.ErrTokenExpired):
		respondError(w, http.StatusGone, err.Error())
	case errors.Is(err, workspace.ErrTaskHasEntries), errors.Is(err, identity.ErrUserAlreadyExists):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidRole),
		errors.Is(err, tenant.ErrNameRequired),
		errors.Is(err, workspace.ErrNameRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
