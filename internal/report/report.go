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

// Package report defines the report-rendering collaborator contract.
// Rows arrive already tenant-scoped; layout (PDF or otherwise) lives
// outside this core and the result is opaque bytes.
package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/temporahq/tempora/internal/workspace"
)

// Renderer turns aggregated rows into a document
type Renderer interface {
	Render(ctx context.Context, title string, rows []*workspace.ReportRow) ([]byte, error)
}

// TextRenderer is the built-in plain-text fallback used when no
// document renderer is wired.
type TextRenderer struct{}

// NewTextRenderer creates a new plain-text renderer
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render writes one line per row plus a total
func (r *TextRenderer) Render(ctx context.Context, title string, rows []*workspace.ReportRow) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", title)

	total := 0
	for _, row := range rows {
		fmt.Fprintf(&buf, "%s / %s  %s  %dm\n", row.ProjectName, row.TaskName, row.UserEmail, row.Minutes)
		total += row.Minutes
	}
	fmt.Fprintf(&buf, "\ntotal: %dm\n", total)

	return buf.Bytes(), nil
}
