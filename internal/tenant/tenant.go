package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/temporahq/tempora/internal/database"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrNameRequired   = errors.New("tenant name is required")
)

// Plan constants
const (
	PlanFree = "free"
	PlanTeam = "team"
)

// Tenant is the root of isolation. Every other record references
// exactly one tenant, immutably after creation.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for tenant storage
type Repository interface {
	// WithTx returns a copy bound to the given transaction connection
	WithTx(q database.Querier) Repository

	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
}
