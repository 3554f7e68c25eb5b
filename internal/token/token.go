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

// Package token manages single-use, time-bounded tokens. Password reset
// and invitation tokens share one lifecycle: issued, then either
// consumed exactly once or inert after expiry.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/temporahq/tempora/internal/database"
)

// Token state errors, checked in this exact order during redemption:
// not found, already used, expired.
var (
	ErrTokenNotFound = errors.New("token invalid or expired")
	ErrTokenUsed     = errors.New("token already used")
	ErrTokenExpired  = errors.New("token expired")
)

// Kinds
const (
	KindPasswordReset = "password_reset"
	KindInvite        = "invite"
)

// Token is a single-use credential. The opaque Value is drawn from a
// 256-bit random space. TenantID is set for invite tokens only.
type Token struct {
	ID        string
	UserID    string
	TenantID  string
	Kind      string
	Value     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Used reports whether the token has been consumed
func (t *Token) Used() bool {
	return t.UsedAt != nil
}

// Expired reports whether the token is past its deadline
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Repository persists tokens. GetForUpdate must lock the row for the
// duration of the surrounding transaction so concurrent redemptions of
// the same value serialize.
type Repository interface {
	// WithTx returns a copy bound to the given transaction connection
	WithTx(q database.Querier) Repository

	Create(ctx context.Context, t *Token) error
	GetForUpdate(ctx context.Context, kind, value string) (*Token, error)
	MarkUsed(ctx context.Context, kind, id string, at time.Time) error

	// DeleteExpired removes tokens whose deadline passed before cutoff.
	// Used by the cleanup command only; validation never depends on it.
	DeleteExpired(ctx context.Context, kind string, cutoff time.Time) (int64, error)
}
