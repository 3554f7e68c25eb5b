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
	"encoding/json"
	"fmt"

	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/database"
)

// AuditRepository implements audit.Repository. The audit_log table is
// append-only; there is no update or delete path.
type AuditRepository struct {
	exec *database.Executor
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{exec: database.NewExecutor(db.Pool())}
}

// Insert appends one audit entry
func (r *AuditRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	before, err := snapshotJSON(entry.Before)
	if err != nil {
		return err
	}
	after, err := snapshotJSON(entry.After)
	if err != nil {
		return err
	}

	var tenantID *string
	if entry.TenantID != "" {
		tenantID = &entry.TenantID
	}

	_, err = r.exec.Exec(ctx, `
		INSERT INTO audit_log (id, tenant_id, user_id, action, entity_type, entity_id, before_data, after_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, tenantID, entry.UserID, entry.Action, entry.EntityType, entry.EntityID, before, after, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func snapshotJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return b, nil
}
