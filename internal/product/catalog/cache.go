package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/textnorm"
)

const (
	barcodeBucket = "barcodes"
	searchBucket  = "searches"
)

type cacheEntry struct {
	StoredAt time.Time       `json:"stored_at"`
	Products []cachedProduct `json:"products"`
}

type cachedProduct struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Barcode  *string `json:"barcode,omitempty"`
	Brand    *string `json:"brand,omitempty"`
}

// Cache fronts a catalog with an on-disk store. Barcode misses and search
// results, empty ones included, are cached for ttl.
type Cache struct {
	db   *bbolt.DB
	next product.Catalog
	ttl  time.Duration
	now  func() time.Time
}

func NewCache(path string, next product.Catalog, ttl time.Duration) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening catalog cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{barcodeBucket, searchBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating cache buckets: %w", err)
	}

	return &Cache{db: db, next: next, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) LookupByBarcode(ctx context.Context, code string) (*product.Product, error) {
	products, ok := c.get(barcodeBucket, code)
	if !ok {
		p, err := c.next.LookupByBarcode(ctx, code)
		if err != nil {
			return nil, err
		}

		var entries []cachedProduct
		if p != nil {
			entries = toCached([]product.Product{*p})
		}

		c.put(barcodeBucket, code, entries)
		products = fromCached(entries)
	}

	if len(products) == 0 {
		return nil, nil
	}

	return &products[0], nil
}

// Search results are shaped the same way whether they come from the cache or
// from the wrapped catalog.
func (c *Cache) Search(ctx context.Context, text string) ([]product.Product, error) {
	key := textnorm.Fold(text)

	if key != "" {
		if products, ok := c.get(searchBucket, key); ok {
			return products, nil
		}
	}

	products, err := c.next.Search(ctx, text)
	if err != nil {
		return nil, err
	}

	entries := toCached(products)
	if key != "" {
		c.put(searchBucket, key, entries)
	}

	return fromCached(entries), nil
}

func (c *Cache) get(bucket, key string) ([]product.Product, bool) {
	var entry cacheEntry

	found := false

	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return nil
		}

		found = true

		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		slog.Warn("reading catalog cache", "bucket", bucket, "error", err)
		return nil, false
	}

	if !found || c.now().Sub(entry.StoredAt) > c.ttl {
		return nil, false
	}

	return fromCached(entry.Products), true
}

func (c *Cache) put(bucket, key string, products []cachedProduct) {
	data, err := json.Marshal(cacheEntry{StoredAt: c.now(), Products: products})
	if err != nil {
		slog.Warn("encoding catalog cache entry", "error", err)
		return
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
	if err != nil {
		slog.Warn("writing catalog cache", "bucket", bucket, "error", err)
	}
}

func toCached(products []product.Product) []cachedProduct {
	out := make([]cachedProduct, len(products))
	for i, p := range products {
		out[i] = cachedProduct{Name: p.Name, Category: p.Category, Barcode: p.Barcode, Brand: p.Brand}
	}

	return out
}

func fromCached(entries []cachedProduct) []product.Product {
	out := make([]product.Product, len(entries))
	for i, cp := range entries {
		out[i] = product.Product{
			Name:           cp.Name,
			Category:       cp.Category,
			Barcode:        cp.Barcode,
			Brand:          cp.Brand,
			NormalizedName: product.NormalizeName(cp.Name),
		}
	}

	return out
}
