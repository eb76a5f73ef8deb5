package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		email text NOT NULL UNIQUE,
		full_name text NOT NULL,
		phone text NOT NULL DEFAULT '',
		role text NOT NULL DEFAULT 'customer',
		password_hash text,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id serial PRIMARY KEY,
		name text NOT NULL,
		slug text NOT NULL UNIQUE,
		image_url text NOT NULL DEFAULT '',
		sort_order int NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id serial PRIMARY KEY,
		category_id int REFERENCES categories(id) ON DELETE SET NULL,
		name text NOT NULL,
		description text NOT NULL DEFAULT '',
		price_cents bigint NOT NULL CHECK (price_cents >= 0),
		image_url text NOT NULL DEFAULT '',
		stock int NOT NULL DEFAULT 0 CHECK (stock >= 0),
		active boolean NOT NULL DEFAULT true,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		profile_id uuid PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
		items jsonb NOT NULL DEFAULT '{}',
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id serial PRIMARY KEY,
		profile_id uuid NOT NULL REFERENCES profiles(id),
		items jsonb NOT NULL DEFAULT '[]',
		subtotal_cents bigint NOT NULL DEFAULT 0,
		shipping_cents bigint NOT NULL DEFAULT 0,
		total_cents bigint NOT NULL DEFAULT 0,
		status text NOT NULL DEFAULT 'pending',
		payment_ref text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id serial PRIMARY KEY,
		profile_id uuid REFERENCES profiles(id) ON DELETE SET NULL,
		client_name text NOT NULL,
		client_email text NOT NULL,
		client_phone text NOT NULL DEFAULT '',
		service text NOT NULL,
		booking_date date NOT NULL,
		slot text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		deposit_cents bigint NOT NULL DEFAULT 0,
		payment_ref text NOT NULL DEFAULT '',
		notes text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS bookings_date_slot_active
		ON bookings (booking_date, slot) WHERE status <> 'cancelled'`,
	`CREATE TABLE IF NOT EXISTS message_logs (
		id uuid PRIMARY KEY,
		channel text NOT NULL,
		recipients text[] NOT NULL,
		subject text NOT NULL DEFAULT '',
		body text NOT NULL,
		status text NOT NULL DEFAULT 'queued',
		provider_id text NOT NULL DEFAULT '',
		error text NOT NULL DEFAULT '',
		attempts int NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS message_logs_provider_id ON message_logs (provider_id)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id serial PRIMARY KEY,
		actor text NOT NULL,
		action text NOT NULL,
		entity text NOT NULL,
		entity_id text NOT NULL,
		metadata jsonb NOT NULL DEFAULT '{}',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
}

// DefaultCategories seeds an empty categories table.
var DefaultCategories = []struct {
	Name, Slug string
}{
	{"Grooming", "grooming"},
	{"Food", "food"},
	{"Toys", "toys"},
	{"Accessories", "accessories"},
}

const seedCategoryQuery = `
	INSERT INTO categories (name, slug, sort_order)
	VALUES ($1, $2, $3)
	ON CONFLICT (slug) DO NOTHING
`

// EnsureSchema creates missing tables and indexes. It is idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// SeedCategories inserts DefaultCategories, skipping slugs that exist.
func SeedCategories(ctx context.Context, db *sql.DB) error {
	for i, c := range DefaultCategories {
		if _, err := db.ExecContext(ctx, seedCategoryQuery, c.Name, c.Slug, i); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Slug, err)
		}
	}
	return nil
}
