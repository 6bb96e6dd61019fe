package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/pagination"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const selectReceiptColumns = `
	r.id, r.merchant_id, r.merchant_name, r.date, r.total, r.currency, r.status, r.source,
	r.confidence, r.review, r.ettn, r.document_number, r.merchant_tax_id, r.created_at, r.updated_at
`

const selectItemColumns = `
	li.id, li.receipt_id, li.position, li.raw_name, li.cleaned_name, li.quantity, li.unit,
	li.unit_price, li.total, li.discount, li.confidence, li.department_id, li.category_id,
	li.subcategory_id, li.item_group_id, li.product_id, li.needs_review
`

// scanReceipt reads a receipt row in selectReceiptColumns order.
func scanReceipt(s scanner) (*receipt.Receipt, error) {
	var (
		r          receipt.Receipt
		status     string
		source     string
		confidence sql.NullFloat64
		review     []byte
		ettn       sql.NullString
		docNumber  sql.NullString
		taxID      sql.NullString
	)

	if err := s.Scan(
		&r.ID, &r.MerchantID, &r.MerchantName, &r.Date, &r.Total, &r.Currency, &status, &source,
		&confidence, &review, &ettn, &docNumber, &taxID, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Status = receipt.Status(status)
	r.Source = receipt.Source(source)
	r.Currency = strings.TrimSpace(r.Currency)

	if confidence.Valid {
		r.Confidence = &confidence.Float64
	}

	if len(review) > 0 {
		if err := json.Unmarshal(review, &r.Review); err != nil {
			return nil, fmt.Errorf("decoding review: %w", err)
		}
	}

	r.ETTN = nullString(ettn)
	r.DocumentNumber = nullString(docNumber)
	r.MerchantTaxID = nullString(taxID)

	return &r, nil
}

func scanItem(s scanner) (*receipt.LineItem, error) {
	var (
		li       receipt.LineItem
		cleaned  sql.NullString
		unit     sql.NullString
		discount decimal.NullDecimal
	)

	if err := s.Scan(
		&li.ID, &li.ReceiptID, &li.Position, &li.RawName, &cleaned, &li.Quantity, &unit,
		&li.UnitPrice, &li.Total, &discount, &li.Confidence,
		&li.Classification.DepartmentID, &li.Classification.CategoryID,
		&li.Classification.SubcategoryID, &li.Classification.ItemGroupID,
		&li.ProductID, &li.NeedsReview,
	); err != nil {
		return nil, err
	}

	li.CleanedName = nullString(cleaned)
	li.Unit = nullString(unit)

	if discount.Valid {
		li.Discount = &discount.Decimal
	}

	return &li, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}

	return &ns.String
}

// SaveReceipt upserts the receipt and replaces its items in one transaction.
func (s *Store) SaveReceipt(ctx context.Context, r *receipt.Receipt) error {
	review, err := json.Marshal(r.Review)
	if err != nil {
		return fmt.Errorf("encoding review: %w", err)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO receipts (id, merchant_id, merchant_name, date, total, currency, status, source,
			confidence, review, ettn, document_number, merchant_tax_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (id) DO UPDATE SET
			merchant_id = EXCLUDED.merchant_id,
			merchant_name = EXCLUDED.merchant_name,
			date = EXCLUDED.date,
			total = EXCLUDED.total,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			confidence = EXCLUDED.confidence,
			review = EXCLUDED.review,
			ettn = EXCLUDED.ettn,
			document_number = EXCLUDED.document_number,
			merchant_tax_id = EXCLUDED.merchant_tax_id,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		r.ID,
		r.MerchantID,
		r.MerchantName,
		r.Date,
		r.Total,
		r.Currency,
		r.Status,
		r.Source,
		r.Confidence,
		review,
		r.ETTN,
		r.DocumentNumber,
		r.MerchantTaxID,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting receipt: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM line_items WHERE receipt_id = $1`, r.ID); err != nil {
		return fmt.Errorf("clearing line items: %w", err)
	}

	itemQuery := `
		INSERT INTO line_items (id, receipt_id, position, raw_name, cleaned_name, quantity, unit,
			unit_price, total, discount, confidence, department_id, category_id, subcategory_id,
			item_group_id, product_id, needs_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	for _, li := range r.Items {
		li.ReceiptID = r.ID

		var discount decimal.NullDecimal
		if li.Discount != nil {
			discount = decimal.NewNullDecimal(*li.Discount)
		}

		_, err := dbTx.ExecContext(ctx, itemQuery,
			li.ID,
			li.ReceiptID,
			li.Position,
			li.RawName,
			li.CleanedName,
			li.Quantity,
			li.Unit,
			li.UnitPrice,
			li.Total,
			discount,
			li.Confidence,
			li.Classification.DepartmentID,
			li.Classification.CategoryID,
			li.Classification.SubcategoryID,
			li.Classification.ItemGroupID,
			li.ProductID,
			li.NeedsReview,
		)
		if err != nil {
			return fmt.Errorf("inserting line item %d: %w", li.Position, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing receipt: %w", err)
	}

	return nil
}

func (s *Store) GetReceipt(ctx context.Context, id uuid.UUID) (*receipt.Receipt, error) {
	query := `SELECT ` + selectReceiptColumns + ` FROM receipts r WHERE r.id = $1`

	r, err := scanReceipt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, receipt.ErrNotFound
		}

		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	if err := loadItems(ctx, s.db, []*receipt.Receipt{r}); err != nil {
		return nil, err
	}

	return r, nil
}

// whereClause renders the filter as a WHERE clause and its arguments.
func whereClause(filter receipt.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.MerchantID != nil {
		add("r.merchant_id = $%d", *filter.MerchantID)
	}

	if filter.StartDate != nil {
		add("r.date >= $%d", *filter.StartDate)
	}

	if filter.EndDate != nil {
		add("r.date <= $%d", *filter.EndDate)
	}

	if filter.MinTotal != nil {
		add("r.total >= $%d", *filter.MinTotal)
	}

	if filter.MaxTotal != nil {
		add("r.total <= $%d", *filter.MaxTotal)
	}

	if filter.Status != nil {
		add("r.status = $%d", *filter.Status)
	}

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		add(`(r.merchant_name ILIKE $%[1]d OR EXISTS (
			SELECT 1 FROM line_items li WHERE li.receipt_id = r.id AND li.raw_name ILIKE $%[1]d))`,
			"%"+strings.TrimSpace(*filter.Search)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) ListReceipts(ctx context.Context, filter receipt.ListFilter, page pagination.Params) (*pagination.Result[*receipt.Receipt], error) {
	where, args := whereClause(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM receipts r`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting receipts: %w", err)
	}

	page = page.Normalize()

	query := `SELECT ` + selectReceiptColumns + ` FROM receipts r` + where +
		fmt.Sprintf(" ORDER BY r.date DESC, r.id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	receipts, err := s.queryReceipts(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, err
	}

	return pagination.NewResult(receipts, total, page), nil
}

func (s *Store) Snapshot(ctx context.Context, filter receipt.ListFilter) ([]*receipt.Receipt, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + selectReceiptColumns + ` FROM receipts r` + where + ` ORDER BY r.date ASC, r.id`

	return s.queryReceipts(ctx, query, args...)
}

func (s *Store) queryReceipts(ctx context.Context, query string, args ...any) ([]*receipt.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*receipt.Receipt

	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}

		receipts = append(receipts, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating receipts: %w", err)
	}

	if err := loadItems(ctx, s.db, receipts); err != nil {
		return nil, err
	}

	return receipts, nil
}

// loadItems fetches the items of every receipt in one query.
func loadItems(ctx context.Context, q querier, receipts []*receipt.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	ids := make([]string, len(receipts))
	byID := make(map[uuid.UUID]*receipt.Receipt, len(receipts))

	for i, r := range receipts {
		ids[i] = r.ID.String()
		byID[r.ID] = r
	}

	query := `SELECT ` + selectItemColumns + `
		FROM line_items li
		WHERE li.receipt_id = ANY($1::uuid[])
		ORDER BY li.receipt_id, li.position`

	rows, err := q.QueryContext(ctx, query, "{"+strings.Join(ids, ",")+"}")
	if err != nil {
		return fmt.Errorf("loading line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		li, err := scanItem(rows)
		if err != nil {
			return fmt.Errorf("scanning line item: %w", err)
		}

		if r, ok := byID[li.ReceiptID]; ok {
			r.Items = append(r.Items, li)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating line items: %w", err)
	}

	return nil
}

func (s *Store) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}

	if n == 0 {
		return receipt.ErrNotFound
	}

	return nil
}
