package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/fisly/internal/pagination"
	"github.com/MrJamesThe3rd/fisly/internal/product"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectProductColumns = `id, name, category, barcode, brand, normalized_name, created_at`

func scanProduct(s scanner) (*product.Product, error) {
	var (
		p       product.Product
		barcode sql.NullString
		brand   sql.NullString
	)

	if err := s.Scan(&p.ID, &p.Name, &p.Category, &barcode, &brand, &p.NormalizedName, &p.CreatedAt); err != nil {
		return nil, err
	}

	if barcode.Valid {
		p.Barcode = &barcode.String
	}

	if brand.Valid {
		p.Brand = &brand.String
	}

	return &p, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: barcode already exists: %w", op, product.ErrInvalidInput)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) CreateProduct(ctx context.Context, p *product.Product) error {
	query := `
		INSERT INTO products (name, category, barcode, brand, normalized_name, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	category := p.Category
	if category == "" {
		category = "other"
	}

	err := s.db.QueryRowContext(ctx, query,
		p.Name,
		category,
		p.Barcode,
		p.Brand,
		p.NormalizedName,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return mapWriteError("creating product", err)
	}

	p.Category = category

	return nil
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	return s.getOne(ctx, `SELECT `+selectProductColumns+` FROM products WHERE id = $1`, id)
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	return s.getOne(ctx, `SELECT `+selectProductColumns+` FROM products WHERE barcode = $1`, barcode)
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*product.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrNotFound
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	return p, nil
}

func whereClause(filter product.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, "%"+strings.TrimSpace(*filter.Search)+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%[1]d OR normalized_name ILIKE $%[1]d)", len(args)))
	}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListProducts(ctx context.Context, filter product.ListFilter, page pagination.Params) (*pagination.Result[*product.Product], error) {
	where, args := whereClause(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting products: %w", err)
	}

	page = page.Normalize()

	query := `SELECT ` + selectProductColumns + ` FROM products` + where +
		fmt.Sprintf(" ORDER BY name, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	products, err := s.query(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, err
	}

	return pagination.NewResult(products, total, page), nil
}

func (s *Store) AllProducts(ctx context.Context) ([]*product.Product, error) {
	return s.query(ctx, `SELECT `+selectProductColumns+` FROM products ORDER BY id`)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*product.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []*product.Product

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}

		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *product.Product) error {
	query := `
		UPDATE products
		SET name = $1, category = $2, barcode = $3, brand = $4, normalized_name = $5
		WHERE id = $6
	`

	res, err := s.db.ExecContext(ctx, query, p.Name, p.Category, p.Barcode, p.Brand, p.NormalizedName, p.ID)
	if err != nil {
		return mapWriteError("updating product", err)
	}

	return requireRow(res)
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}

	return requireRow(res)
}

func (s *Store) AddPrice(ctx context.Context, p *product.Price) error {
	query := `
		INSERT INTO product_prices (product_id, merchant_id, price, observed_at, source)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		p.ProductID,
		p.MerchantID,
		p.Price,
		p.ObservedAt,
		p.Source,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("adding price: %w", err)
	}

	return nil
}

// ListPrices returns the observations of a product, newest first.
func (s *Store) ListPrices(ctx context.Context, productID uuid.UUID) ([]product.Price, error) {
	query := `
		SELECT id, product_id, merchant_id, price, observed_at, source
		FROM product_prices
		WHERE product_id = $1
		ORDER BY observed_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("listing prices: %w", err)
	}
	defer rows.Close()

	var prices []product.Price

	for rows.Next() {
		var (
			p      product.Price
			source string
		)

		if err := rows.Scan(&p.ID, &p.ProductID, &p.MerchantID, &p.Price, &p.ObservedAt, &source); err != nil {
			return nil, fmt.Errorf("scanning price: %w", err)
		}

		p.Source = product.Source(source)
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prices: %w", err)
	}

	return prices, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return product.ErrNotFound
	}

	return nil
}
