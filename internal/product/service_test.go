package product_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/fisly/internal/product"
)

func TestService_ReloadAndMatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := product.NewMockRepository(ctrl)
	svc := product.NewService(repo, 0)

	got, err := svc.Match("sütaş süt")
	require.NoError(t, err)
	assert.Nil(t, got)

	repo.EXPECT().AllProducts(gomock.Any()).Return(catalog(), nil)
	require.NoError(t, svc.Reload(context.Background()))

	got, err = svc.Match("sütaş süt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sütaş Süt 1L", got.Name)

	repo.EXPECT().AllProducts(gomock.Any()).Return(nil, errors.New("db down"))
	assert.Error(t, svc.Reload(context.Background()))

	hits, err := svc.FuzzyMatch("Beyaz Peynirr", 0)
	require.NoError(t, err)
	assert.Empty(t, hits, "default threshold is 0.8")

	hits, err = svc.FuzzyMatch("Beyaz Peynirr", 0.6)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    product.CreateParams
		setupMock func(m *product.MockRepository)
		wantKey   string
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "Success",
			params: product.CreateParams{Name: " Pınar Süt 1L ", Category: "food.dairy", Barcode: new(" ")},
			setupMock: func(m *product.MockRepository) {
				m.EXPECT().
					CreateProduct(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p *product.Product) error {
						assert.Nil(t, p.Barcode)
						p.ID = uuid.New()
						return nil
					})
				m.EXPECT().AllProducts(gomock.Any()).Return(nil, nil)
			},
			wantKey: "pinar sut",
		},
		{
			name:    "Blank name",
			params:  product.CreateParams{Name: "  "},
			wantErr: product.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := product.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := product.NewService(repo, 0).Create(context.Background(), tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, got.NormalizedName)
			assert.Equal(t, "Pınar Süt 1L", got.Name)
		})
	}
}

func TestService_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := product.NewMockRepository(ctrl)
	svc := product.NewService(repo, 0)

	repo.EXPECT().AllProducts(gomock.Any()).Return(catalog(), nil)
	require.NoError(t, svc.Reload(context.Background()))

	barcode := "8690000000001"
	byCode := &product.Product{ID: uuid.New(), Name: "Torku Banada"}

	repo.EXPECT().GetProductByBarcode(gomock.Any(), barcode).Return(byCode, nil)

	got, err := svc.Resolve(context.Background(), "BANADA", "", &barcode)
	require.NoError(t, err)
	assert.Equal(t, byCode, got)

	got, err = svc.Resolve(context.Background(), "Beyaz Peynir", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Beyaz Peynir", got.Name)

	repo.EXPECT().GetProductByBarcode(gomock.Any(), "111").Return(nil, product.ErrNotFound)
	repo.EXPECT().CreateProduct(gomock.Any(), gomock.Any()).Return(nil)
	repo.EXPECT().AllProducts(gomock.Any()).Return(catalog(), nil)

	got, err = svc.Resolve(context.Background(), "Kaşar Peyniri", "food.dairy", new("111"))
	require.NoError(t, err)
	assert.Equal(t, "Kaşar Peyniri", got.Name)
	assert.Equal(t, "111", *got.Barcode)

	repo.EXPECT().GetProductByBarcode(gomock.Any(), "222").Return(nil, errors.New("db down"))

	_, err = svc.Resolve(context.Background(), "Kaşar Peyniri", "", new("222"))
	assert.Error(t, err)
}

func TestService_RecordPrice(t *testing.T) {
	type testCase struct {
		name      string
		params    product.PriceParams
		setupMock func(m *product.MockRepository)
		wantErr   error
	}

	valid := product.PriceParams{ProductID: uuid.New(), MerchantID: merchantA, Price: dec("8.50")}

	tests := []testCase{
		{
			name:   "Defaults source and time",
			params: valid,
			setupMock: func(m *product.MockRepository) {
				m.EXPECT().
					AddPrice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p *product.Price) error {
						assert.Equal(t, product.SourceManual, p.Source)
						assert.False(t, p.ObservedAt.IsZero())
						return nil
					})
			},
		},
		{
			name:    "Negative price",
			params:  product.PriceParams{ProductID: valid.ProductID, MerchantID: merchantA, Price: dec("-1")},
			wantErr: product.ErrInvalidInput,
		},
		{
			name:    "Unknown source",
			params:  product.PriceParams{ProductID: valid.ProductID, MerchantID: merchantA, Price: dec("1"), Source: "rumor"},
			wantErr: product.ErrInvalidInput,
		},
		{
			name:    "Missing merchant",
			params:  product.PriceParams{ProductID: valid.ProductID, Price: dec("1")},
			wantErr: product.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := product.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			_, err := product.NewService(repo, 0).RecordPrice(context.Background(), tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_ComparePrice(t *testing.T) {
	productID := uuid.New()
	observed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Cheaper elsewhere", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := product.NewMockRepository(ctrl)

		repo.EXPECT().GetProduct(gomock.Any(), productID).Return(&product.Product{ID: productID}, nil)
		repo.EXPECT().ListPrices(gomock.Any(), productID).Return([]product.Price{
			price(merchantA, "10.00", observed, product.SourceManual),
			price(merchantB, "8.50", observed, product.SourceScraped),
		}, nil)

		got, err := product.NewService(repo, 0).ComparePrice(context.Background(), product.CompareParams{
			ProductID:      productID,
			UserPaid:       dec("10.00"),
			UserMerchantID: merchantA,
		})
		require.NoError(t, err)

		assert.True(t, got.Found)
		assert.Equal(t, merchantB, got.CheapestMerchantID)
		assert.Equal(t, "1.5", got.Savings.String())
		assert.Equal(t, "15", got.SavingsPercentage.String())
	})

	t.Run("Unknown product", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := product.NewMockRepository(ctrl)

		repo.EXPECT().GetProduct(gomock.Any(), productID).Return(nil, product.ErrNotFound)

		_, err := product.NewService(repo, 0).ComparePrice(context.Background(), product.CompareParams{
			ProductID: productID,
			UserPaid:  dec("10"),
		})
		assert.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("Negative paid", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		_, err := product.NewService(product.NewMockRepository(ctrl), 0).ComparePrice(context.Background(), product.CompareParams{
			ProductID: productID,
			UserPaid:  dec("-1"),
		})
		assert.ErrorIs(t, err, product.ErrInvalidInput)
	})
}
