package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fisly/internal/merchant"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectMerchantColumns = `id, canonical_name, display_name, category, patterns, created_at`

func scanMerchant(s scanner) (*merchant.Merchant, error) {
	var (
		m        merchant.Merchant
		category string
		patterns []byte
	)

	if err := s.Scan(&m.ID, &m.CanonicalName, &m.DisplayName, &category, &patterns, &m.CreatedAt); err != nil {
		return nil, err
	}

	m.Category = merchant.Category(category)

	if len(patterns) > 0 {
		if err := json.Unmarshal(patterns, &m.Patterns); err != nil {
			return nil, fmt.Errorf("decoding patterns: %w", err)
		}
	}

	return &m, nil
}

func encodePatterns(patterns []merchant.Pattern) ([]byte, error) {
	if patterns == nil {
		patterns = []merchant.Pattern{}
	}

	b, err := json.Marshal(patterns)
	if err != nil {
		return nil, fmt.Errorf("encoding patterns: %w", err)
	}

	return b, nil
}

func (s *Store) CreateMerchant(ctx context.Context, m *merchant.Merchant) error {
	patterns, err := encodePatterns(m.Patterns)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO merchants (canonical_name, display_name, category, patterns, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		m.CanonicalName,
		m.DisplayName,
		m.Category,
		patterns,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating merchant: %w", err)
	}

	return nil
}

func (s *Store) GetMerchant(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	query := `SELECT ` + selectMerchantColumns + ` FROM merchants WHERE id = $1`

	m, err := scanMerchant(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, merchant.ErrNotFound
		}

		return nil, fmt.Errorf("getting merchant: %w", err)
	}

	return m, nil
}

// ListMerchants returns every merchant ordered by id, the order the resolver
// uses for tie-breaks.
func (s *Store) ListMerchants(ctx context.Context) ([]*merchant.Merchant, error) {
	query := `SELECT ` + selectMerchantColumns + ` FROM merchants ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing merchants: %w", err)
	}
	defer rows.Close()

	var merchants []*merchant.Merchant

	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning merchant: %w", err)
		}

		merchants = append(merchants, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating merchants: %w", err)
	}

	return merchants, nil
}

func (s *Store) UpdatePatterns(ctx context.Context, id uuid.UUID, patterns []merchant.Pattern) error {
	encoded, err := encodePatterns(patterns)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE merchants SET patterns = $1 WHERE id = $2`, encoded, id)
	if err != nil {
		return fmt.Errorf("updating patterns: %w", err)
	}

	return requireRow(res)
}

func (s *Store) DeleteMerchant(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM merchants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting merchant: %w", err)
	}

	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return merchant.ErrNotFound
	}

	return nil
}
