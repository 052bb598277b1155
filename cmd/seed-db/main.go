// Command seed-db provisions a development database: it runs migrations,
// creates the initial admin account, and upserts the sample catalog.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopworks/storefront/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	Images      []string        `json:"images"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "admin@example.com", "email for the seeded admin account")
	flag.StringVar(&adminPassword, "admin-password", "", "password for the seeded admin (or STORE_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("STORE_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or STORE_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	adminID, err := seedAdmin(ctx, pool, adminEmail, adminPassword)
	if err != nil {
		return errors.Wrap(err, "seed admin user")
	}

	if err := seedProducts(ctx, pool, productsFile, adminID); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

const upsertAdminSQL = `
	INSERT INTO users (id, name, email, password_hash, role)
	VALUES ($1, $2, $3, $4, 'admin')
	ON CONFLICT (email) DO UPDATE
	SET password_hash = EXCLUDED.password_hash, role = 'admin'
	RETURNING id`

// seedAdmin creates or refreshes the admin account and returns its ID.
func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", errors.Wrap(err, "hash admin password")
	}

	var id string
	err = pool.QueryRow(ctx, upsertAdminSQL, uuid.NewString(), "Store Admin", email, string(hash)).Scan(&id)
	if err != nil {
		return "", errors.Wrap(err, "upsert admin")
	}

	slog.Info("upserted admin user", slog.String("id", id), slog.String("email", email))
	return id, nil
}

const upsertProductSQL = `
	INSERT INTO products (id, name, description, price, stock, category, images, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE
	SET name        = EXCLUDED.name,
	    description = EXCLUDED.description,
	    price       = EXCLUDED.price,
	    stock       = EXCLUDED.stock,
	    category    = EXCLUDED.category,
	    images      = EXCLUDED.images,
	    updated_at  = now()`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile, adminID string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		images := p.Images
		if images == nil {
			images = []string{}
		}
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, images, adminID,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}
