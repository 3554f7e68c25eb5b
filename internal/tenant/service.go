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

package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/id"
	"github.com/temporahq/tempora/internal/identity"
)

// Service provides tenant management business logic
type Service struct {
	txr         database.TxRunner
	repo        Repository
	users       identity.Repository
	idsvc       *identity.Service
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(
	txr database.TxRunner,
	repo Repository,
	users identity.Repository,
	idsvc *identity.Service,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		txr:         txr,
		repo:        repo,
		users:       users,
		idsvc:       idsvc,
		auditLogger: auditLogger,
	}
}

// Register creates a tenant together with its first admin user. Both
// inserts run in one transaction: a failing user insert leaves no
// orphan tenant row.
func (s *Service) Register(ctx context.Context, tenantName, email, password string) (*Tenant, *identity.User, error) {
	tenantName = strings.TrimSpace(tenantName)
	if tenantName == "" {
		return nil, nil, ErrNameRequired
	}

	user, err := s.idsvc.NewUser("", email, identity.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}

	passwordHash, err := s.idsvc.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	t := &Tenant{
		ID:   id.NewUUIDv7(),
		Name: tenantName,
		Plan: PlanFree,
	}
	user.TenantID = t.ID

	err = s.txr.RunInTransaction(ctx, func(q database.Querier) error {
		if err := s.repo.WithTx(q).Create(ctx, t); err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		if err := s.users.WithTx(q).Create(ctx, user, passwordHash); err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.auditLogger.Record(ctx, audit.Entry{
		TenantID:   t.ID,
		UserID:     &user.ID,
		Action:     audit.ActionCreate,
		EntityType: "tenant",
		EntityID:   t.ID,
		After:      map[string]any{"name": t.Name, "plan": t.Plan},
	})
	s.auditLogger.Record(ctx, audit.Entry{
		TenantID:   t.ID,
		UserID:     &user.ID,
		Action:     audit.ActionCreate,
		EntityType: "user",
		EntityID:   user.ID,
		After:      map[string]any{"email": user.Email, "role": user.Role},
	})

	return t, user, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	return s.repo.GetByID(ctx, tenantID)
}
