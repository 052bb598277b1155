// Package db carries the SQL shipped with the binaries. Migrations are
// embedded so a fresh database can be brought up without external files;
// seed fixtures under seed/ are read from disk by cmd/seed-db.
package db

import _ "embed"

// Schema is the full storefront DDL: users, products, orders, order_items.
//
//go:embed migrations/001_schema.sql
var Schema string
