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
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/token"
)

// TokenRepository implements token.Repository. Each token kind lives in
// its own table; reset tokens carry no tenant column because the reset
// flow starts from a bare email address.
type TokenRepository struct {
	exec *database.Executor
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{exec: database.NewExecutor(db.Pool())}
}

// WithTx returns a copy bound to the given transaction connection
func (r *TokenRepository) WithTx(q database.Querier) token.Repository {
	return &TokenRepository{exec: r.exec.WithQuerier(q)}
}

func tableForKind(kind string) (string, error) {
	switch kind {
	case token.KindPasswordReset:
		return "password_reset_tokens", nil
	case token.KindInvite:
		return "invite_tokens", nil
	default:
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
}

// Create inserts a single-use token
func (r *TokenRepository) Create(ctx context.Context, t *token.Token) error {
	table, err := tableForKind(t.Kind)
	if err != nil {
		return err
	}

	now := time.Now()
	if t.Kind == token.KindInvite {
		_, err = r.exec.Exec(ctx, `
			INSERT INTO `+table+` (id, tenant_id, user_id, token_value, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, t.ID, t.TenantID, t.UserID, t.Value, t.ExpiresAt, now)
	} else {
		_, err = r.exec.Exec(ctx, `
			INSERT INTO `+table+` (id, user_id, token_value, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, t.ID, t.UserID, t.Value, t.ExpiresAt, now)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s token: %w", t.Kind, err)
	}
	t.CreatedAt = now
	return nil
}

// GetForUpdate loads a token by value and locks the row for the
// duration of the enclosing transaction, so concurrent redemptions
// serialize on it.
func (r *TokenRepository) GetForUpdate(ctx context.Context, kind, value string) (*token.Token, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return nil, err
	}

	t := token.Token{Kind: kind}
	var scanErr error
	if kind == token.KindInvite {
		scanErr = r.exec.QueryRow(ctx, `
			SELECT id, tenant_id, user_id, token_value, expires_at, used_at, created_at
			FROM `+table+`
			WHERE token_value = $1
			FOR UPDATE
		`, value).Scan(&t.ID, &t.TenantID, &t.UserID, &t.Value, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	} else {
		scanErr = r.exec.QueryRow(ctx, `
			SELECT id, user_id, token_value, expires_at, used_at, created_at
			FROM `+table+`
			WHERE token_value = $1
			FOR UPDATE
		`, value).Scan(&t.ID, &t.UserID, &t.Value, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	}
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, token.ErrTokenNotFound
		}
		return nil, scanErr
	}
	return &t, nil
}

// MarkUsed stamps the token as consumed. The used_at guard makes the
// update a no-op if another transaction got there first.
func (r *TokenRepository) MarkUsed(ctx context.Context, kind, id string, at time.Time) error {
	table, err := tableForKind(kind)
	if err != nil {
		return err
	}

	result, err := r.exec.Exec(ctx, `
		UPDATE `+table+` SET used_at = $2
		WHERE id = $1 AND used_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark %s token used: %w", kind, err)
	}
	if result.RowsAffected() == 0 {
		return token.ErrTokenUsed
	}
	return nil
}

// DeleteExpired removes tokens whose expiry is before the cutoff,
// consumed or not
func (r *TokenRepository) DeleteExpired(ctx context.Context, kind string, cutoff time.Time) (int64, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return 0, err
	}

	result, err := r.exec.Exec(ctx, `
		DELETE FROM `+table+` WHERE expires_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s tokens: %w", kind, err)
	}
	return result.RowsAffected(), nil
}
