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
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/temporahq/tempora/internal/observability/logger"
)

// QueryError wraps a driver failure together with the statement that
// caused it. Callers must not embed secrets in raw SQL text.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// ScopeToTenant appends a tenant predicate to a statement and binds the
// tenant id as the last positional parameter. If the statement already
// has a WHERE clause the predicate is ANDed on, otherwise a WHERE clause
// is added. The tenant value is never interpolated into the SQL text.
//
// This is the only sanctioned way to tenant-filter a statement that does
// not already carry an explicit tenant_id clause. Compound joins must
// embed the clause themselves and bind tenantID as a normal parameter.
func ScopeToTenant(sql string, args []any, tenantID string) (string, []any) {
	scoped := append(append([]any{}, args...), tenantID)
	placeholder := fmt.Sprintf("$%d", len(scoped))

	if containsWhere(sql) {
		return sql + " AND tenant_id = " + placeholder, scoped
	}
	return sql + " WHERE tenant_id = " + placeholder, scoped
}

// containsWhere reports whether the statement has a top-level WHERE
// keyword. Matching is keyword-wise, not substring-wise, so column names
// like "somewhere" do not trip it.
func containsWhere(sql string) bool {
	for _, word := range strings.Fields(sql) {
		if strings.EqualFold(word, "WHERE") {
			return true
		}
	}
	return false
}

// Executor runs parameterized statements against a Querier, logging and
// wrapping driver failures. It is the only component that touches raw
// SQL; repositories build on it.
type Executor struct {
	q Querier
}

// NewExecutor creates an executor bound to a querier (pool or tx)
func NewExecutor(q Querier) *Executor {
	return &Executor{q: q}
}

// WithQuerier returns an executor bound to a different querier. Used to
// rebind repositories to a transaction's connection.
func (e *Executor) WithQuerier(q Querier) *Executor {
	return &Executor{q: q}
}

// Exec runs a statement that returns no rows
func (e *Executor) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := e.q.Exec(ctx, sql, args...)
	if err != nil {
		logFailure(ctx, sql, args, err)
		return tag, &QueryError{SQL: sql, Err: err}
	}
	return tag, nil
}

// ExecTenant runs Exec with the tenant predicate appended
func (e *Executor) ExecTenant(ctx context.Context, tenantID, sql string, args ...any) (pgconn.CommandTag, error) {
	scopedSQL, scopedArgs := ScopeToTenant(sql, args, tenantID)
	return e.Exec(ctx, scopedSQL, scopedArgs...)
}

// Query runs a statement returning multiple rows
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := e.q.Query(ctx, sql, args...)
	if err != nil {
		logFailure(ctx, sql, args, err)
		return nil, &QueryError{SQL: sql, Err: err}
	}
	return rows, nil
}

// QueryTenant runs Query with the tenant predicate appended
func (e *Executor) QueryTenant(ctx context.Context, tenantID, sql string, args ...any) (pgx.Rows, error) {
	scopedSQL, scopedArgs := ScopeToTenant(sql, args, tenantID)
	return e.Query(ctx, scopedSQL, scopedArgs...)
}

// QueryRow runs a statement expected to return one row. Scan errors
// other than pgx.ErrNoRows are logged and wrapped; ErrNoRows passes
// through untouched so repositories can map it to their not-found
// sentinel.
func (e *Executor) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &loggedRow{ctx: ctx, row: e.q.QueryRow(ctx, sql, args...), sql: sql, args: args}
}

// QueryRowTenant runs QueryRow with the tenant predicate appended
func (e *Executor) QueryRowTenant(ctx context.Context, tenantID, sql string, args ...any) pgx.Row {
	scopedSQL, scopedArgs := ScopeToTenant(sql, args, tenantID)
	return e.QueryRow(ctx, scopedSQL, scopedArgs...)
}

type loggedRow struct {
	ctx  context.Context
	row  pgx.Row
	sql  string
	args []any
}

func (r *loggedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	logFailure(r.ctx, r.sql, r.args, err)
	return &QueryError{SQL: r.sql, Err: err}
}

func logFailure(ctx context.Context, sql string, args []any, err error) {
	slog.ErrorContext(ctx, "statement failed",
		logger.Component("store"),
		logger.Query(sql),
		slog.Any("params", args),
		logger.Error(err),
	)
}
