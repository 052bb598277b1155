package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopworks/storefront/internal/domain/product"
)

const productColumns = `id, name, description, price, stock, category, images,
	ratings, created_by, status, created_at, updated_at`

const (
	createProductSQL = `INSERT INTO products
		(id, name, description, price, stock, category, images, created_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	setProductStatusSQL = `UPDATE products SET status = $2, updated_at = now()
		WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create persists a new catalog entry.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category,
		p.Images, p.CreatedBy, string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "create product %q", p.Name)
	}
	return nil
}

// GetByID returns a product by ID regardless of lifecycle status, so
// historical order references keep resolving.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// List returns active products matching the filter, paginated.
func (r *ProductRepository) List(ctx context.Context, f product.ListFilter) ([]product.Product, error) {
	sql := `SELECT ` + productColumns + ` FROM products WHERE status = 'active'`
	args := []any{}

	if f.Category != "" {
		args = append(args, f.Category)
		sql += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		sql += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	sql += " ORDER BY " + sortClause(f.Sort)

	pageSize := f.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Update applies a partial update and returns the updated row.
func (r *ProductRepository) Update(ctx context.Context, id string, u product.Update) (*product.Product, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Price != nil {
		add("price", *u.Price)
	}
	if u.Stock != nil {
		add("stock", *u.Stock)
	}
	if u.Category != nil {
		add("category", *u.Category)
	}
	if u.Images != nil {
		add("images", u.Images)
	}

	sql := `UPDATE products SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + productColumns

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "update product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update product %q", id)
	}
	return &p, nil
}

// SetStatus transitions a product's lifecycle status.
func (r *ProductRepository) SetStatus(ctx context.Context, id string, s product.Status) error {
	tag, err := r.pool.Exec(ctx, setProductStatusSQL, id, string(s))
	if err != nil {
		return errors.Wrapf(err, "set product %q status", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func sortClause(s product.Sort) string {
	switch s {
	case product.SortOldest:
		return "created_at ASC"
	case product.SortPriceAsc:
		return "price ASC"
	case product.SortPriceDesc:
		return "price DESC"
	default:
		return "created_at DESC"
	}
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p      product.Product
		status string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category,
		&p.Images, &p.Ratings, &p.CreatedBy, &status, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = product.Status(status)
	return p, err
}
