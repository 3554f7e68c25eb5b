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

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxRunner runs a unit of work inside one database transaction. Domain
// services depend on this interface so tests can substitute a fake.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(q Querier) error) error
}

// RunInTransaction acquires one connection, begins a transaction and
// invokes fn with that connection bound. Commit on normal return,
// rollback and re-raise on any error. The connection is always released
// back to the pool. Every statement inside fn must go through the
// passed Querier; reaching for the pool would escape the transaction.
func (db *DB) RunInTransaction(ctx context.Context, fn func(q Querier) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, db.acquireTimeout)
	tx, err := db.pool.Begin(acquireCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		// No-op after a successful commit.
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logFailure(ctx, "ROLLBACK", nil, rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
