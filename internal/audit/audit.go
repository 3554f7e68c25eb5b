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

// Package audit records create/update/delete actions to an append-only
// log. Recording is best-effort and never blocks or fails the caller.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/temporahq/tempora/internal/id"
	"github.com/temporahq/tempora/internal/observability/logger"
)

// Actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entry is one audit record. UserID is nil for system actions. Before
// and After are optional snapshots of the affected entity.
type Entry struct {
	ID         string
	TenantID   string
	UserID     *string
	Action     string
	EntityType string
	EntityID   string
	Before     map[string]any
	After      map[string]any
	CreatedAt  time.Time
}

// Logger is the interface mutation paths dispatch audit entries to
type Logger interface {
	Record(ctx context.Context, entry Entry)
}

// Repository persists audit entries
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
}

// Recorder writes entries through a buffered channel and a single
// background goroutine. Record returns immediately; a full buffer or a
// failed insert is logged and dropped, never surfaced to the caller.
type Recorder struct {
	repo Repository
	ch   chan Entry

	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder creates a recorder and starts its writer goroutine
func NewRecorder(repo Repository, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		repo: repo,
		ch:   make(chan Entry, buffer),
		done: make(chan struct{}),
	}
	go r.run()
	return r
}

// Record dispatches an entry without waiting for the write
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = id.NewUUIDv7()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	select {
	case r.ch <- entry:
	default:
		slog.WarnContext(ctx, "audit buffer full, entry dropped",
			logger.Component("audit"),
			logger.EntityType(entry.EntityType),
			logger.EntityID(entry.EntityID),
		)
	}
}

// Close stops accepting entries and waits for the queue to drain
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.ch)
	})
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.ch {
		// The request context may be gone by the time the write runs.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.repo.Insert(ctx, &entry); err != nil {
			slog.Warn("audit write failed",
				logger.Component("audit"),
				logger.EntityType(entry.EntityType),
				logger.EntityID(entry.EntityID),
				logger.Error(err),
			)
		}
		cancel()
	}
}

// SlogLogger records entries to the process log only. Used in tests and
// development setups without a database-backed trail.
type SlogLogger struct{}

// NewSlogLogger creates a new log-only audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Record logs the entry at INFO level
func (l *SlogLogger) Record(ctx context.Context, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	attrs := []any{
		logger.Component("audit"),
		slog.String("action", entry.Action),
		logger.TenantID(entry.TenantID),
		logger.EntityType(entry.EntityType),
		logger.EntityID(entry.EntityID),
		slog.Time("timestamp", entry.CreatedAt),
	}
	if entry.UserID != nil {
		attrs = append(attrs, logger.UserID(*entry.UserID))
	}

	slog.InfoContext(ctx, "audit_entry", attrs...)
}
