package postgres

import _ "embed"

// InitialSchema is the bootstrap DDL applied by cmd/migrate and the
// integration test harness.
//
//go:embed migrations/001_initial_schema.up.sql
var InitialSchema string
