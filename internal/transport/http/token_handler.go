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

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/temporahq/tempora/internal/observability/logger"
)

// PasswordResetRequest carries the email asking for a reset link
type PasswordResetRequest struct {
	Email string `json:"email" example:"user@acme.example"`
}

// RequestPasswordReset starts the password reset flow
// @Summary Request Password Reset
// @Description Request a reset link; the response never reveals whether the account exists
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Account Email"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /auth/password-reset [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.tokenService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		// Infrastructure failures log server-side; the response stays
		// indistinguishable from the success path.
		slog.ErrorContext(r.Context(), "password reset request failed", logger.Error(err))
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, a reset link has been sent",
	})
}

// PasswordResetConfirm carries a reset token and the new password
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ConfirmPasswordReset redeems a reset token
// @Summary Confirm Password Reset
// @Description Redeem a single-use reset token and set a new password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirm true "Token and New Password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 410 {object} map[string]string
// @Router /auth/password-reset/confirm [post]
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.tokenService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password updated",
	})
}

// CreateInviteRequest carries a new member's email and role
type CreateInviteRequest struct {
	Email string `json:"email" example:"new.member@acme.example"`
	Role  string `json:"role" example:"user"`
}

// CreateInvite invites a new member into the caller's tenant
// @Summary Invite User
// @Description Create a pending user and issue a single-use invite token (admin only)
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateInviteRequest true "Invite Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /invites [post]
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	var req CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, t, err := h.tokenService.Invite(r.Context(), GetTenantID(r.Context()), req.Email, req.Role, GetUserID(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id":    user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"expires_at": t.ExpiresAt,
	})
}

// AcceptInviteRequest carries an invite token and the chosen password
type AcceptInviteRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// AcceptInvite activates an invited user
// @Summary Accept Invite
// @Description Redeem a single-use invite token and set the first password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body AcceptInviteRequest true "Token and Password"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 410 {object} map[string]string
// @Router /auth/invites/accept [post]
func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "token is required")
		return
	}

	user, err := h.tokenService.AcceptInvite(r.Context(), req.Token, req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
		"email":     user.Email,
		"role":      user.Role,
	})
}
