// Package catalog talks to the remote product catalog used for enrichment.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/resilience"
)

const maxErrorBody = 2048

type Config struct {
	URL     string        `envconfig:"CATALOG_URL"`
	Token   string        `envconfig:"CATALOG_TOKEN"`
	Timeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"5s"`
	Limit   int           `envconfig:"CATALOG_SEARCH_LIMIT" default:"10"`
}

type Client struct {
	baseURL    string
	token      string
	limit      int
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 10
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type productDTO struct {
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

func (d productDTO) toProduct() product.Product {
	p := product.Product{
		Name:           strings.TrimSpace(d.Name),
		Category:       d.Category,
		NormalizedName: product.NormalizeName(d.Name),
	}

	if d.Barcode != "" {
		p.Barcode = &d.Barcode
	}

	if d.Brand != "" {
		p.Brand = &d.Brand
	}

	return p
}

type searchResponse struct {
	Products []productDTO `json:"products"`
}

var errNotFound = errors.New("catalog: not found")

// classify keeps unknown products from counting as catalog failures.
func classify(err error) resilience.Classification {
	if errors.Is(err, errNotFound) {
		return resilience.Classification{}
	}

	return resilience.ClassifyHTTP(err)
}

// LookupByBarcode returns nil without an error when the catalog does not know code.
func (c *Client) LookupByBarcode(ctx context.Context, code string) (*product.Product, error) {
	var dto productDTO

	err := c.executor.Execute(ctx, "catalog.lookup", func(ctx context.Context) error {
		return c.getJSON(ctx, "/products/"+url.PathEscape(code), nil, &dto)
	}, classify)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	p := dto.toProduct()

	return &p, nil
}

func (c *Client) Search(ctx context.Context, text string) ([]product.Product, error) {
	query := url.Values{}
	query.Set("q", text)
	query.Set("limit", fmt.Sprint(c.limit))

	var resp searchResponse

	err := c.executor.Execute(ctx, "catalog.search", func(ctx context.Context) error {
		return c.getJSON(ctx, "/products", query, &resp)
	}, classify)
	if err != nil && !errors.Is(err, errNotFound) {
		return nil, err
	}

	out := make([]product.Product, 0, len(resp.Products))
	for _, d := range resp.Products {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}

		out = append(out, d.toProduct())
	}

	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating catalog request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &resilience.StatusError{
			Operation:  "catalog " + path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding catalog response: %w", err)
	}

	return nil
}
