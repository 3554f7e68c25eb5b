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

package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/id"
	"github.com/temporahq/tempora/internal/identity"
	"github.com/temporahq/tempora/internal/mail"
	"github.com/temporahq/tempora/internal/observability/logger"
)

// Service drives the issue/redeem lifecycle for password reset and
// invitation tokens.
type Service struct {
	txr         database.TxRunner
	tokens      Repository
	users       identity.Repository
	idsvc       *identity.Service
	mailer      mail.Sender
	auditLogger audit.Logger

	baseURL   string
	resetTTL  time.Duration
	inviteTTL time.Duration

	now func() time.Time
}

// NewService creates a new token service
func NewService(
	txr database.TxRunner,
	tokens Repository,
	users identity.Repository,
	idsvc *identity.Service,
	mailer mail.Sender,
	auditLogger audit.Logger,
	baseURL string,
	resetTTL, inviteTTL time.Duration,
) *Service {
	return &Service{
		txr:         txr,
		tokens:      tokens,
		users:       users,
		idsvc:       idsvc,
		mailer:      mailer,
		auditLogger: auditLogger,
		baseURL:     baseURL,
		resetTTL:    resetTTL,
		inviteTTL:   inviteTTL,
		now:         time.Now,
	}
}

// newValue draws an opaque token value from a 256-bit space, making
// collisions and guessing cryptographically negligible.
func newValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue creates and persists a token of the given kind
func (s *Service) Issue(ctx context.Context, kind, userID, tenantID string, ttl time.Duration) (*Token, error) {
	value, err := newValue()
	if err != nil {
		return nil, err
	}

	t := &Token{
		ID:        id.NewUUIDv7(),
		UserID:    userID,
		TenantID:  tenantID,
		Kind:      kind,
		Value:     value,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Redeem consumes a token and runs effect against the same transaction
// connection. The row is locked first, then checked in fixed order:
// not found, already used, expired. The effect and the used_at stamp
// commit together, so of two concurrent redemptions exactly one wins
// and the other sees ErrTokenUsed.
func (s *Service) Redeem(ctx context.Context, kind, value string, effect func(q database.Querier, t *Token) error) (*Token, error) {
	var redeemed *Token

	err := s.txr.RunInTransaction(ctx, func(q database.Querier) error {
		tokens := s.tokens.WithTx(q)

		t, err := tokens.GetForUpdate(ctx, kind, value)
		if err != nil {
			return err
		}
		if t.Used() {
			return ErrTokenUsed
		}
		if t.Expired(s.now()) {
			return ErrTokenExpired
		}

		if err := effect(q, t); err != nil {
			return err
		}
		if err := tokens.MarkUsed(ctx, kind, t.ID, s.now()); err != nil {
			return err
		}

		redeemed = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redeemed, nil
}

// RequestPasswordReset issues a reset token for the given email. The
// caller-visible outcome is identical whether or not the email exists:
// nothing in the response may leak account presence.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, _, err := s.users.GetByEmailGlobal(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil
		}
		return err
	}

	t, err := s.Issue(ctx, KindPasswordReset, user.ID, "", s.resetTTL)
	if err != nil {
		return err
	}

	link := s.baseURL + "/reset-password?token=" + t.Value
	if err := s.mailer.Send(ctx, user.Email, link); err != nil {
		// Delivery is a collaborator concern; a failure must not turn
		// into a distinguishable response.
		slog.ErrorContext(ctx, "failed to send reset mail",
			logger.Component("token"),
			logger.UserID(user.ID),
			logger.Error(err),
		)
	}
	return nil
}

// ResetPassword redeems a reset token and sets the new password inside
// the same transaction.
func (s *Service) ResetPassword(ctx context.Context, value, newPassword string) error {
	passwordHash, err := s.idsvc.HashPassword(newPassword)
	if err != nil {
		return err
	}

	t, err := s.Redeem(ctx, KindPasswordReset, value, func(q database.Querier, t *Token) error {
		return s.users.WithTx(q).UpdatePassword(ctx, t.UserID, passwordHash)
	})
	if err != nil {
		return err
	}

	s.auditLogger.Record(ctx, audit.Entry{
		TenantID:   t.TenantID,
		UserID:     &t.UserID,
		Action:     audit.ActionUpdate,
		EntityType: "user",
		EntityID:   t.UserID,
		After:      map[string]any{"password": "[rotated]"},
	})
	return nil
}

// Invite pre-creates a credential-less user in the tenant and issues an
// invite token tying the two together. User row and token commit in one
// transaction.
func (s *Service) Invite(ctx context.Context, tenantID, email, role, invitedBy string) (*identity.User, *Token, error) {
	user, err := s.idsvc.NewUser(tenantID, email, role)
	if err != nil {
		return nil, nil, err
	}

	value, err := newValue()
	if err != nil {
		return nil, nil, err
	}
	t := &Token{
		ID:        id.NewUUIDv7(),
		UserID:    user.ID,
		TenantID:  tenantID,
		Kind:      KindInvite,
		Value:     value,
		ExpiresAt: s.now().Add(s.inviteTTL),
	}

	err = s.txr.RunInTransaction(ctx, func(q database.Querier) error {
		if err := s.users.WithTx(q).Create(ctx, user, ""); err != nil {
			return err
		}
		return s.tokens.WithTx(q).Create(ctx, t)
	})
	if err != nil {
		return nil, nil, err
	}

	s.auditLogger.Record(ctx, audit.Entry{
		TenantID:   tenantID,
		UserID:     &invitedBy,
		Action:     audit.ActionCreate,
		EntityType: "user",
		EntityID:   user.ID,
		After:      map[string]any{"email": user.Email, "role": user.Role, "invited": true},
	})

	link := s.baseURL + "/accept-invite?token=" + t.Value
	if err := s.mailer.Send(ctx, user.Email, link); err != nil {
		slog.ErrorContext(ctx, "failed to send invite mail",
			logger.Component("token"),
			logger.UserID(user.ID),
			logger.Error(err),
		)
	}

	return user, t, nil
}

// AcceptInvite redeems an invite token, setting the user's first
// password in the same transaction, and returns the activated user.
func (s *Service) AcceptInvite(ctx context.Context, value, password string) (*identity.User, error) {
	passwordHash, err := s.idsvc.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user *identity.User
	t, err := s.Redeem(ctx, KindInvite, value, func(q database.Querier, t *Token) error {
		users := s.users.WithTx(q)
		u, err := users.GetByID(ctx, t.UserID, t.TenantID)
		if err != nil {
			return err
		}
		if err := users.UpdatePassword(ctx, t.UserID, passwordHash); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditLogger.Record(ctx, audit.Entry{
		TenantID:   t.TenantID,
		UserID:     &t.UserID,
		Action:     audit.ActionUpdate,
		EntityType: "user",
		EntityID:   t.UserID,
		After:      map[string]any{"invite_accepted": true},
	})
	return user, nil
}

// PurgeExpired deletes dead tokens older than cutoff for both kinds.
// Validation never relies on this; expiry is checked at redemption time.
func (s *Service) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, kind := range []string{KindPasswordReset, KindInvite} {
		n, err := s.tokens.DeleteExpired(ctx, kind, cutoff)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
