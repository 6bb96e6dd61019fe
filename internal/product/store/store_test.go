package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fisly/internal/pagination"
	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/product/store"
)

var productCols = []string{"id", "name", "category", "barcode", "brand", "normalized_name", "created_at"}

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return store.New(db), mock
}

func TestStore_CreateProduct(t *testing.T) {
	t.Run("Defaults category", func(t *testing.T) {
		s, mock := newStore(t)

		id := uuid.New()
		now := time.Now()
		p := &product.Product{Name: "Pınar Süt 1L", NormalizedName: "pinar sut", Barcode: new("8690000000001")}

		mock.ExpectQuery("INSERT INTO products").
			WithArgs("Pınar Süt 1L", "other", "8690000000001", nil, "pinar sut").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), now))

		require.NoError(t, s.CreateProduct(context.Background(), p))
		assert.Equal(t, id, p.ID)
		assert.Equal(t, "other", p.Category)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate barcode", func(t *testing.T) {
		s, mock := newStore(t)

		mock.ExpectQuery("INSERT INTO products").
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

		err := s.CreateProduct(context.Background(), &product.Product{Name: "x", NormalizedName: "x"})
		assert.ErrorIs(t, err, product.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_GetProductByBarcode(t *testing.T) {
	s, mock := newStore(t)

	id := uuid.New()

	mock.ExpectQuery("FROM products WHERE barcode = \\$1").
		WithArgs("8690000000001").
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(id.String(), "Pınar Süt 1L", "food.dairy", "8690000000001", "Pınar", "pinar sut", time.Now()))

	got, err := s.GetProductByBarcode(context.Background(), "8690000000001")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Pınar", *got.Brand)

	mock.ExpectQuery("FROM products WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err = s.GetProduct(context.Background(), id)
	assert.ErrorIs(t, err, product.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListProducts(t *testing.T) {
	s, mock := newStore(t)

	search := "süt"
	category := "food.dairy"

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM products WHERE \\(name ILIKE \\$1 OR normalized_name ILIKE \\$1\\) AND category = \\$2").
		WithArgs("%süt%", "food.dairy").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery("ORDER BY name, id LIMIT \\$3 OFFSET \\$4").
		WithArgs("%süt%", "food.dairy", 20, 0).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(uuid.New().String(), "Pınar Süt 1L", "food.dairy", nil, nil, "pinar sut", time.Now()))

	got, err := s.ListProducts(context.Background(), product.ListFilter{Search: &search, Category: &category}, pagination.Params{})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 1, got.Pages)
	require.Len(t, got.Data, 1)
	assert.Nil(t, got.Data[0].Barcode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Prices(t *testing.T) {
	s, mock := newStore(t)

	productID := uuid.New()
	merchantID := uuid.New()
	observed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	p := &product.Price{
		ProductID:  productID,
		MerchantID: merchantID,
		Price:      decimal.RequireFromString("8.50"),
		ObservedAt: observed,
		Source:     product.SourceScraped,
	}

	priceID := uuid.New()

	mock.ExpectQuery("INSERT INTO product_prices").
		WithArgs(productID, merchantID, p.Price, observed, "scraped").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(priceID.String()))

	require.NoError(t, s.AddPrice(context.Background(), p))
	assert.Equal(t, priceID, p.ID)

	mock.ExpectQuery("FROM product_prices WHERE product_id = \\$1 ORDER BY observed_at DESC").
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "merchant_id", "price", "observed_at", "source"}).
			AddRow(priceID.String(), productID.String(), merchantID.String(), "8.50", observed, "scraped"))

	got, err := s.ListPrices(context.Background(), productID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.RequireFromString("8.5").Equal(got[0].Price))
	assert.Equal(t, product.SourceScraped, got[0].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s, mock := newStore(t)

	p := &product.Product{ID: uuid.New(), Name: "Ekmek", Category: "food.bakery", NormalizedName: "ekmek"}

	mock.ExpectExec("UPDATE products").
		WithArgs("Ekmek", "food.bakery", nil, nil, "ekmek", p.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.UpdateProduct(context.Background(), p), product.ErrNotFound)

	mock.ExpectExec("DELETE FROM products WHERE id = \\$1").
		WithArgs(p.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.DeleteProduct(context.Background(), p.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
