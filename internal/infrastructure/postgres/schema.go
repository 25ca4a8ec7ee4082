package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL tablas del ledger. items, locations, users y tickets los administran otros
// servicios; aquí solo existen las columnas que el ledger lee.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS items (
	id          TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS locations (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	code TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tickets (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'OPEN'
		CHECK (status IN ('OPEN', 'IN_PROGRESS', 'DONE', 'CANCELED')),
	close_comment TEXT NOT NULL DEFAULT '',
	closed_at     TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS balances (
	item_id     TEXT NOT NULL REFERENCES items(id),
	location_id TEXT NOT NULL REFERENCES locations(id),
	quantity    NUMERIC(18,2) NOT NULL DEFAULT 0 CHECK (quantity >= 0),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (item_id, location_id)
);

CREATE TABLE IF NOT EXISTS movements (
	id             TEXT PRIMARY KEY,
	seq            BIGSERIAL UNIQUE,
	item_id        TEXT NOT NULL REFERENCES items(id),
	location_id    TEXT NOT NULL REFERENCES locations(id),
	type           TEXT NOT NULL CHECK (type IN ('IN', 'OUT', 'ADJUST')),
	quantity       NUMERIC(18,2) NOT NULL CHECK (quantity >= 0),
	balance_after  NUMERIC(18,2) NOT NULL CHECK (balance_after >= 0),
	reference_kind TEXT CHECK (reference_kind IN ('MATERIAL_REQUEST', 'TRANSFER', 'RETURN', 'TICKET_CLOSE', 'ADJUSTMENT')),
	reference_id   TEXT,
	comment        TEXT NOT NULL DEFAULT '',
	user_id        TEXT NOT NULL REFERENCES users(id),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_movements_item_location_seq ON movements (item_id, location_id, seq);
CREATE INDEX IF NOT EXISTS idx_movements_item_seq ON movements (item_id, seq);

CREATE TABLE IF NOT EXISTS material_requests (
	id                  TEXT PRIMARY KEY,
	folio               TEXT NOT NULL UNIQUE,
	status              TEXT NOT NULL
		CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'DELIVERED', 'PARTIAL', 'CANCELLED')),
	ticket_id           TEXT NOT NULL REFERENCES tickets(id),
	requested_by        TEXT NOT NULL REFERENCES users(id),
	approved_by         TEXT REFERENCES users(id),
	delivered_by        TEXT REFERENCES users(id),
	rejection_reason    TEXT,
	preset_id           TEXT,
	differs_from_preset BOOLEAN NOT NULL DEFAULT FALSE,
	notes               TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	approved_at         TIMESTAMPTZ,
	delivered_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_material_requests_ticket ON material_requests (ticket_id);

CREATE TABLE IF NOT EXISTS material_request_items (
	id                  TEXT PRIMARY KEY,
	material_request_id TEXT NOT NULL REFERENCES material_requests(id) ON DELETE CASCADE,
	item_id             TEXT NOT NULL REFERENCES items(id),
	item_description    TEXT NOT NULL DEFAULT '',
	quantity_requested  NUMERIC(18,2) NOT NULL CHECK (quantity_requested > 0),
	quantity_approved   NUMERIC(18,2) NOT NULL DEFAULT 0,
	quantity_delivered  NUMERIC(18,2) NOT NULL DEFAULT 0,
	quantity_returned   NUMERIC(18,2) NOT NULL DEFAULT 0,
	notes               TEXT NOT NULL DEFAULT '',
	CHECK (quantity_returned <= quantity_delivered),
	UNIQUE (material_request_id, item_id)
);
`

// Migrate crea las tablas si no existen. Es idempotente.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
