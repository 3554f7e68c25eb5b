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

// Package mail defines the outbound email collaborator contract.
// Template rendering and transport live outside this core; a send
// failure is logged by callers and never fails the request.
package mail

import (
	"context"
	"log/slog"

	"github.com/temporahq/tempora/internal/observability/logger"
)

// Sender delivers a link to a recipient
type Sender interface {
	Send(ctx context.Context, recipient, link string) error
}

// LogSender logs the link instead of delivering it. Default in
// development and tests.
type LogSender struct{}

// NewLogSender creates a new log-only sender
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the outbound message
func (s *LogSender) Send(ctx context.Context, recipient, link string) error {
	slog.InfoContext(ctx, "outbound mail",
		logger.Component("mail"),
		logger.Email(recipient),
		slog.String("link", link),
	)
	return nil
}
