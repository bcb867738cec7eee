package store

import (
	"context"
	"fmt"
)

// schemaStatements creates the enum types and tables the audit core owns.
// Idempotent so the server can run it at boot.
var schemaStatements = []string{
	`DO $$ BEGIN
		CREATE TYPE audit_scope_type AS ENUM ('location', 'department', 'custom');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE TYPE audit_plan_status AS ENUM ('draft', 'scheduled', 'active', 'closed', 'canceled');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE TYPE audit_session_status AS ENUM ('draft', 'in_progress', 'reconciling',
			'awaiting_approval', 'approved', 'applied', 'closed', 'canceled');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE TYPE audit_discrepancy_type AS ENUM ('missing', 'misplaced', 'unexpected',
			'duplicate', 'unknown_barcode');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE TYPE audit_resolution_status AS ENUM ('open', 'resolved', 'ignored');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE TYPE audit_action_type AS ENUM ('move', 'assign_responsible', 'clear_responsible');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE TYPE audit_action_status AS ENUM ('pending', 'sent', 'done', 'failed');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN
		CREATE TYPE audit_item_result_status AS ENUM ('missing', 'found', 'found_in_place');
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,

	`CREATE TABLE IF NOT EXISTS audit_plans (
		id            BIGSERIAL PRIMARY KEY,
		title         TEXT NOT NULL,
		scope_type    audit_scope_type NOT NULL,
		scope_payload JSONB,
		start_date    TIMESTAMPTZ,
		end_date      TIMESTAMPTZ,
		status        audit_plan_status NOT NULL DEFAULT 'draft',
		created_by    BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS audit_sessions (
		id                        BIGSERIAL PRIMARY KEY,
		plan_id                   BIGINT REFERENCES audit_plans(id),
		location_id               BIGINT NOT NULL,
		status                    audit_session_status NOT NULL DEFAULT 'draft',
		started_by                BIGINT,
		started_at                TIMESTAMPTZ,
		closed_by                 BIGINT,
		closed_at                 TIMESTAMPTZ,
		approved_by               BIGINT,
		approved_at               TIMESTAMPTZ,
		applied_at                TIMESTAMPTZ,
		expected_snapshot_version TEXT,
		created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_audit_sessions_plan ON audit_sessions (plan_id)`,
	`CREATE INDEX IF NOT EXISTS ix_audit_sessions_location ON audit_sessions (location_id)`,

	`CREATE TABLE IF NOT EXISTS audit_expected_items (
		id                      BIGSERIAL PRIMARY KEY,
		session_id              BIGINT NOT NULL REFERENCES audit_sessions(id) ON DELETE CASCADE,
		item_id                 BIGINT NOT NULL,
		expected_location_id    BIGINT,
		expected_responsible_id BIGINT,
		barcode_id              BIGINT,
		captured_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (session_id, item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS audit_scans (
		id                BIGSERIAL PRIMARY KEY,
		session_id        BIGINT NOT NULL REFERENCES audit_sessions(id) ON DELETE CASCADE,
		scanner_user_id   BIGINT NOT NULL,
		scan_time         TIMESTAMPTZ NOT NULL DEFAULT now(),
		barcode_value     TEXT,
		item_id           BIGINT,
		found_location_id BIGINT NOT NULL,
		notes             TEXT,
		photo_url         TEXT,
		client_scan_id    TEXT NOT NULL,
		extra             JSONB,
		UNIQUE (session_id, client_scan_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_audit_scans_session ON audit_scans (session_id)`,

	`CREATE TABLE IF NOT EXISTS audit_item_results (
		id                   BIGSERIAL PRIMARY KEY,
		session_id           BIGINT NOT NULL REFERENCES audit_sessions(id) ON DELETE CASCADE,
		item_id              BIGINT NOT NULL,
		status               audit_item_result_status NOT NULL,
		expected_location_id BIGINT,
		found_location_id    BIGINT,
		first_found_at       TIMESTAMPTZ,
		last_scan_at         TIMESTAMPTZ,
		UNIQUE (session_id, item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS audit_discrepancies (
		id                   BIGSERIAL PRIMARY KEY,
		session_id           BIGINT NOT NULL REFERENCES audit_sessions(id) ON DELETE CASCADE,
		type                 audit_discrepancy_type NOT NULL,
		item_id              BIGINT,
		barcode_value        TEXT,
		expected_location_id BIGINT,
		found_location_id    BIGINT,
		resolution_status    audit_resolution_status NOT NULL DEFAULT 'open',
		resolution_payload   JSONB,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_audit_discrepancies_session ON audit_discrepancies (session_id)`,

	`CREATE TABLE IF NOT EXISTS audit_actions (
		id              BIGSERIAL PRIMARY KEY,
		session_id      BIGINT NOT NULL REFERENCES audit_sessions(id) ON DELETE CASCADE,
		action_type     audit_action_type NOT NULL,
		payload         JSONB NOT NULL,
		status          audit_action_status NOT NULL DEFAULT 'pending',
		idempotency_key TEXT NOT NULL UNIQUE,
		last_error      TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_audit_actions_session ON audit_actions (session_id)`,
}

// EnsureSchema creates missing enum types, tables and indexes.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
