package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")

	// ErrInUse is returned when a delete is blocked because other rows still reference the record.
	ErrInUse = errors.New("record is still referenced")
)

type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*Category, error)
	UpsertCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListActiveProducts(ctx context.Context, categoryID *int64) ([]Product, error)
	ListActiveProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	FindActiveProduct(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, name, category_id, cost, price, stock, active, image_url, created_at`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.CategoryID,
		&p.Cost,
		&p.Price,
		&p.Stock,
		&p.Active,
		&p.ImageURL,
		&p.CreatedAt,
	)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, image_url, created_at
		FROM categories
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ImageURL, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating categories: %w", err)
	}

	return categories, nil
}

func (r *repository) GetCategoryByID(ctx context.Context, id int64) (*Category, error) {
	query := `
		SELECT id, name, image_url, created_at
		FROM categories
		WHERE id = $1
	`

	var c Category
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.ImageURL, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category by id %d: %w", id, err)
	}

	return &c, nil
}

// UpsertCategory inserts the category or, when the name is taken, refreshes
// its image and loads the existing id.
func (r *repository) UpsertCategory(ctx context.Context, category *Category) error {
	query := `
		INSERT INTO categories (name, image_url)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET image_url = COALESCE(EXCLUDED.image_url, categories.image_url)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, category.Name, category.ImageURL).Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert category %q: %w", category.Name, err)
	}

	return nil
}

func (r *repository) DeleteCategory(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isReferenceViolation(err) {
			log.Warn().Int64("category_id", id).Msg("repository: category delete blocked by products")
			return ErrInUse
		}
		return fmt.Errorf("repository: failed to delete category %d: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

func (r *repository) ListActiveProducts(ctx context.Context, categoryID *int64) ([]Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE active = TRUE AND ($1::BIGINT IS NULL OR category_id = $1)
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query active products: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to read active products: %w", err)
	}

	return products, nil
}

func (r *repository) ListActiveProductsByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}

	query := `SELECT ` + productColumns + `
		FROM products
		WHERE active = TRUE AND id = ANY($1)
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products by ids: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to read products by ids: %w", err)
	}

	return products, nil
}

func (r *repository) FindActiveProduct(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE id = $1 AND active = TRUE
	`

	var p Product
	if err := scanProduct(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %d: %w", id, err)
	}

	return &p, nil
}

func (r *repository) CreateProduct(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (name, category_id, cost, price, stock, active, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		product.Name,
		product.CategoryID,
		product.Cost.Round(2),
		product.Price.Round(2),
		product.Stock,
		product.Active,
		product.ImageURL,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		if isReferenceViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("repository: failed to insert product %q: %w", product.Name, err)
	}

	return nil
}

func (r *repository) DeleteProduct(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isReferenceViolation(err) {
			log.Warn().Int64("product_id", id).Msg("repository: product delete blocked by order lines")
			return ErrInUse
		}
		return fmt.Errorf("repository: failed to delete product %d: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func isReferenceViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.ForeignKeyViolation || pgErr.Code == pgerrcode.RestrictViolation
}
