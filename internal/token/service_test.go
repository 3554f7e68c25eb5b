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
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temporahq/tempora/internal/audit"
	"github.com/temporahq/tempora/internal/database"
	"github.com/temporahq/tempora/internal/identity"
)

// fakeTxRunner runs the transactional function directly. Rollback is
// not simulated; tests assert on what was and was not mutated.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTransaction(ctx context.Context, fn func(q database.Querier) error) error {
	return fn(nil)
}

// memTokenRepo is an in-memory Repository keyed by kind and value
type memTokenRepo struct {
	tokens map[string]*Token // key: kind + "/" + value
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*Token)}
}

func (m *memTokenRepo) WithTx(q database.Querier) Repository { return m }

func (m *memTokenRepo) Create(ctx context.Context, t *Token) error {
	cp := *t
	m.tokens[t.Kind+"/"+t.Value] = &cp
	return nil
}

func (m *memTokenRepo) GetForUpdate(ctx context.Context, kind, value string) (*Token, error) {
	t, ok := m.tokens[kind+"/"+value]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTokenRepo) MarkUsed(ctx context.Context, kind, id string, at time.Time) error {
	for _, t := range m.tokens {
		if t.Kind == kind && t.ID == id {
			if t.UsedAt != nil {
				return ErrTokenUsed
			}
			used := at
			t.UsedAt = &used
			return nil
		}
	}
	return ErrTokenNotFound
}

func (m *memTokenRepo) DeleteExpired(ctx context.Context, kind string, cutoff time.Time) (int64, error) {
	var n int64
	for key, t := range m.tokens {
		if t.Kind == kind && t.ExpiresAt.Before(cutoff) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

// memUserRepo is an in-memory identity.Repository
type memUserRepo struct {
	users  map[string]*identity.User
	hashes map[string]string
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*identity.User), hashes: make(map[string]string)}
}

func (m *memUserRepo) WithTx(q database.Querier) identity.Repository { return m }

func (m *memUserRepo) Create(ctx context.Context, user *identity.User, passwordHash string) error {
	for _, u := range m.users {
		if u.TenantID == user.TenantID && u.Email == user.Email {
			return identity.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	m.hashes[user.ID] = passwordHash
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, userID, tenantID string) (*identity.User, error) {
	u, ok := m.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByEmail(ctx context.Context, tenantID, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *memUserRepo) GetByEmailGlobal(ctx context.Context, email string) (*identity.User, string, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, m.hashes[u.ID], nil
		}
	}
	return nil, "", identity.ErrUserNotFound
}

func (m *memUserRepo) ListByTenant(ctx context.Context, tenantID string) ([]*identity.User, error) {
	var out []*identity.User
	for _, u := range m.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if _, ok := m.users[userID]; !ok {
		return identity.ErrUserNotFound
	}
	m.hashes[userID] = passwordHash
	return nil
}

// captureMailer records outbound links instead of sending
type captureMailer struct {
	recipients []string
	links      []string
	fail       bool
}

func (c *captureMailer) Send(ctx context.Context, recipient, link string) error {
	if c.fail {
		return errors.New("smtp unavailable")
	}
	c.recipients = append(c.recipients, recipient)
	c.links = append(c.links, link)
	return nil
}

type fixture struct {
	svc    *Service
	tokens *memTokenRepo
	users  *memUserRepo
	mailer *captureMailer
	idsvc  *identity.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens := newMemTokenRepo()
	users := newMemUserRepo()
	mailer := &captureMailer{}
	idsvc := identity.NewService(users, identity.NewPasswordHasher(65536, 3, 4, 16, 32))

	svc := NewService(
		fakeTxRunner{},
		tokens,
		users,
		idsvc,
		mailer,
		audit.NewSlogLogger(),
		"https://app.tempora.test",
		time.Hour,
		7*24*time.Hour,
	)
	return &fixture{svc: svc, tokens: tokens, users: users, mailer: mailer, idsvc: idsvc}
}

func (f *fixture) addUser(t *testing.T, tenantID, email, password string) *identity.User {
	t.Helper()
	u, err := f.idsvc.NewUser(tenantID, email, identity.RoleUser)
	require.NoError(t, err)
	hash := ""
	if password != "" {
		hash, err = f.idsvc.HashPassword(password)
		require.NoError(t, err)
	}
	require.NoError(t, f.users.Create(context.Background(), u, hash))
	return u
}

// TestPurpose: Validates the redemption check order on single-use tokens.
// Scope: Unit Test
// Security: Token lifecycle state machine
// Expected: Unknown value reports not-found, a consumed token reports used even when also expired, a live-but-late token reports expired.
// Test Case ID: TOK-01
func TestToken_Redeem_CheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	noEffect := func(q database.Querier, tok *Token) error { return nil }

	_, err := f.svc.Redeem(ctx, KindPasswordReset, "no-such-value", noEffect)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// A token that is both consumed and expired must report used, not
	// expired, so callers see a stable state machine.
	used := time.Now().Add(-2 * time.Hour)
	require.NoError(t, f.tokens.Create(ctx, &Token{
		ID: "tok-1", UserID: "u-1", Kind: KindPasswordReset, Value: "used-and-expired",
		ExpiresAt: time.Now().Add(-time.Hour), UsedAt: &used,
	}))
	_, err = f.svc.Redeem(ctx, KindPasswordReset, "used-and-expired", noEffect)
	assert.ErrorIs(t, err, ErrTokenUsed)

	require.NoError(t, f.tokens.Create(ctx, &Token{
		ID: "tok-2", UserID: "u-1", Kind: KindPasswordReset, Value: "just-expired",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	_, err = f.svc.Redeem(ctx, KindPasswordReset, "just-expired", noEffect)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

// TestPurpose: Validates that a reset token grants exactly one password change.
// Scope: Unit Test
// Security: Single-use enforcement
// Expected: First redemption succeeds and updates the credential; the second fails with ErrTokenUsed and changes nothing.
// Test Case ID: TOK-02
func TestToken_ResetPassword_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "tenant-1", "reset@example.com", "OriginalPass99")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "reset@example.com"))
	require.Len(t, f.mailer.links, 1)
	value := valueFromLink(t, f.mailer.links[0])

	require.NoError(t, f.svc.ResetPassword(ctx, value, "BrandNewPass99"))

	// New credential works
	_, err := f.idsvc.Authenticate(ctx, "reset@example.com", "BrandNewPass99")
	assert.NoError(t, err)

	// Replay is rejected and leaves the credential alone
	err = f.svc.ResetPassword(ctx, value, "AttackerPass99")
	assert.ErrorIs(t, err, ErrTokenUsed)
	_, err = f.idsvc.Authenticate(ctx, "reset@example.com", "BrandNewPass99")
	assert.NoError(t, err)
}

// TestPurpose: Validates that the reset flow does not leak account existence.
// Scope: Unit Test
// Security: Account enumeration resistance
// Expected: Unknown emails and delivery failures both return the same nil outcome as the success path.
// Test Case ID: TOK-03
func TestToken_RequestPasswordReset_NoEnumeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Unknown email: silent success, no token issued, no mail sent
	assert.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Empty(t, f.tokens.tokens)
	assert.Empty(t, f.mailer.links)

	// Known email but failing delivery: still silent success
	f.addUser(t, "tenant-1", "real@example.com", "SomePassword1")
	f.mailer.fail = true
	assert.NoError(t, f.svc.RequestPasswordReset(ctx, "real@example.com"))
	assert.Len(t, f.tokens.tokens, 1)
}

func TestToken_Redeem_EffectFailureLeavesTokenLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tokens.Create(ctx, &Token{
		ID: "tok-9", UserID: "u-9", Kind: KindPasswordReset, Value: "live",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	boom := errors.New("effect failed")
	_, err := f.svc.Redeem(ctx, KindPasswordReset, "live", func(q database.Querier, tok *Token) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The token was not consumed and a later attempt succeeds.
	_, err = f.svc.Redeem(ctx, KindPasswordReset, "live", func(q database.Querier, tok *Token) error { return nil })
	assert.NoError(t, err)
}

// TestPurpose: Validates the invite lifecycle from admin issue to member activation.
// Scope: Unit Test
// Security: Credential bootstrap for invited users
// Expected: Invite creates a credential-less user; accepting sets the first password exactly once.
// Test Case ID: TOK-04
func TestToken_InviteLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "tenant-1", "admin@example.com", "AdminPass999")

	user, tok, err := f.svc.Invite(ctx, "tenant-1", "new@example.com", identity.RoleUser, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", user.TenantID)
	assert.Equal(t, "tenant-1", tok.TenantID)
	require.Len(t, f.mailer.links, 1)

	// No credentials until acceptance
	_, err = f.idsvc.Authenticate(ctx, "new@example.com", "anything-here")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	activated, err := f.svc.AcceptInvite(ctx, tok.Value, "ChosenPass123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, activated.ID)

	_, err = f.idsvc.Authenticate(ctx, "new@example.com", "ChosenPass123")
	assert.NoError(t, err)

	// The invite is spent
	_, err = f.svc.AcceptInvite(ctx, tok.Value, "AnotherPass123")
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestToken_Invite_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "tenant-1", "member@example.com", "MemberPass99")

	_, _, err := f.svc.Invite(ctx, "tenant-1", "member@example.com", identity.RoleUser, "admin-1")
	assert.ErrorIs(t, err, identity.ErrUserAlreadyExists)
}

func TestToken_PurgeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, f.tokens.Create(ctx, &Token{ID: "a", Kind: KindPasswordReset, Value: "dead-reset", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, f.tokens.Create(ctx, &Token{ID: "b", Kind: KindInvite, Value: "dead-invite", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, f.tokens.Create(ctx, &Token{ID: "c", Kind: KindInvite, Value: "live-invite", ExpiresAt: now.Add(time.Hour)}))

	n, err := f.svc.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, f.tokens.tokens, 1)
}

// valueFromLink extracts the token query parameter from a mailed link
func valueFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	value := u.Query().Get("token")
	require.NotEmpty(t, value)
	return value
}
