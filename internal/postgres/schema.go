package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Two namespaces: `products` holds the write-side catalog tables, `store`
// holds the transactional inbox that feeds the read-model projection.
//
// Uniqueness constraints pair the natural key with removed_at using
// NULLS NOT DISTINCT (postgres 15+), so at most one live row of a given
// name/sku exists while soft-deleted tombstones may share it.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS products`,
	`CREATE SCHEMA IF NOT EXISTS store`,

	`CREATE TABLE IF NOT EXISTS products.brands (
		guid        uuid PRIMARY KEY,
		name        varchar(64) NOT NULL,
		logo_url    varchar(256),
		created_at  timestamptz NOT NULL,
		updated_at  timestamptz NOT NULL,
		removed_at  timestamptz,
		CONSTRAINT unique_brand_name UNIQUE NULLS NOT DISTINCT (name, removed_at)
	)`,

	`CREATE TABLE IF NOT EXISTS products.categories (
		guid        uuid PRIMARY KEY,
		name_en     varchar(64) NOT NULL,
		name_pl     varchar(64) NOT NULL,
		created_at  timestamptz NOT NULL,
		updated_at  timestamptz NOT NULL,
		removed_at  timestamptz,
		CONSTRAINT unique_category_name_en UNIQUE NULLS NOT DISTINCT (name_en, removed_at),
		CONSTRAINT unique_category_name_pl UNIQUE NULLS NOT DISTINCT (name_pl, removed_at)
	)`,

	`CREATE TABLE IF NOT EXISTS products.tags (
		guid        uuid PRIMARY KEY,
		en          varchar(16) NOT NULL,
		pl          varchar(16) NOT NULL,
		created_at  timestamptz NOT NULL,
		removed_at  timestamptz,
		CONSTRAINT unique_tag_en UNIQUE NULLS NOT DISTINCT (en, removed_at),
		CONSTRAINT unique_tag_pl UNIQUE NULLS NOT DISTINCT (pl, removed_at)
	)`,

	`CREATE TABLE IF NOT EXISTS products.products (
		guid            uuid PRIMARY KEY,
		sku             varchar(16) NOT NULL,
		name_en         varchar(64) NOT NULL,
		name_pl         varchar(64) NOT NULL,
		image_url       varchar(256),
		description_en  text NOT NULL,
		description_pl  text NOT NULL,
		base_price_usd  numeric(12,2) NOT NULL,
		base_price_pln  numeric(12,2) NOT NULL,
		discount        integer,
		quantity        numeric(12,2) NOT NULL,
		weight          integer NOT NULL,
		color_en        varchar(32) NOT NULL,
		color_pl        varchar(32) NOT NULL,
		category_guid   uuid NOT NULL REFERENCES products.categories (guid),
		brand_guid      uuid NOT NULL REFERENCES products.brands (guid),
		created_at      timestamptz NOT NULL,
		updated_at      timestamptz NOT NULL,
		removed_at      timestamptz,
		CONSTRAINT unique_product_sku UNIQUE NULLS NOT DISTINCT (sku, removed_at),
		CONSTRAINT unique_product_name_en UNIQUE NULLS NOT DISTINCT (name_en, removed_at),
		CONSTRAINT unique_product_name_pl UNIQUE NULLS NOT DISTINCT (name_pl, removed_at)
	)`,

	`CREATE TABLE IF NOT EXISTS products.products_tags (
		product_guid  uuid NOT NULL REFERENCES products.products (guid),
		tag_guid      uuid NOT NULL REFERENCES products.tags (guid),
		PRIMARY KEY (product_guid, tag_guid)
	)`,

	`CREATE TABLE IF NOT EXISTS store.inbox_events (
		guid          uuid PRIMARY KEY,
		event_type    varchar(32) NOT NULL,
		data          jsonb NOT NULL,
		created_at    timestamptz NOT NULL,
		processed_at  timestamptz
	)`,

	// Sweep queries scan only pending events, oldest first.
	`CREATE INDEX IF NOT EXISTS inbox_events_pending_idx
		ON store.inbox_events (created_at)
		WHERE processed_at IS NULL`,
}

// EnsureSchema idempotently creates both namespaces and all tables.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
