package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrJamesThe3rd/fisly/internal/analytics"
	"github.com/MrJamesThe3rd/fisly/internal/config"
	"github.com/MrJamesThe3rd/fisly/internal/database"
	fislyHttp "github.com/MrJamesThe3rd/fisly/internal/http"
	analyticsHandler "github.com/MrJamesThe3rd/fisly/internal/http/analytics"
	importHandler "github.com/MrJamesThe3rd/fisly/internal/http/importcsv"
	merchantHandler "github.com/MrJamesThe3rd/fisly/internal/http/merchant"
	productHandler "github.com/MrJamesThe3rd/fisly/internal/http/product"
	receiptHandler "github.com/MrJamesThe3rd/fisly/internal/http/receipt"
	taxonomyHandler "github.com/MrJamesThe3rd/fisly/internal/http/taxonomy"
	"github.com/MrJamesThe3rd/fisly/internal/importer"
	"github.com/MrJamesThe3rd/fisly/internal/merchant"
	merchantStore "github.com/MrJamesThe3rd/fisly/internal/merchant/store"
	"github.com/MrJamesThe3rd/fisly/internal/observability/logging"
	"github.com/MrJamesThe3rd/fisly/internal/observability/metrics"
	"github.com/MrJamesThe3rd/fisly/internal/pipeline"
	"github.com/MrJamesThe3rd/fisly/internal/product"
	"github.com/MrJamesThe3rd/fisly/internal/product/catalog"
	productStore "github.com/MrJamesThe3rd/fisly/internal/product/store"
	"github.com/MrJamesThe3rd/fisly/internal/receipt"
	receiptStore "github.com/MrJamesThe3rd/fisly/internal/receipt/store"
	"github.com/MrJamesThe3rd/fisly/internal/report"
	"github.com/MrJamesThe3rd/fisly/internal/resilience"
	"github.com/MrJamesThe3rd/fisly/internal/taxonomy"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(logging.NewJSONLogger(os.Stdout, cfg.App.Name, cfg.App.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	tax, err := loadTaxonomy(cfg.Taxonomy.Path)
	if err != nil {
		return err
	}

	formatter, err := report.NewFormatter(cfg.Locale.Language, cfg.Locale.Currency)
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	pipelineMetrics := metrics.NewPipelineMetrics(cfg.App.Name)

	var (
		receiptRepo = receiptStore.New(db)
		classifier  = taxonomy.NewClassifier(tax)

		receiptService  = receipt.NewService(receiptRepo, cfg.Receipt.ReconcileTolerance)
		merchantService = merchant.NewService(merchantStore.New(db), cfg.Matching.MerchantSimilarity)
		productService  = product.NewService(productStore.New(db), cfg.Matching.FuzzyThreshold)
	)

	if err := merchantService.Reload(ctx); err != nil {
		return err
	}

	if err := productService.Reload(ctx); err != nil {
		return err
	}

	remote, closeCatalog, err := newCatalog(cfg, pipelineMetrics)
	if err != nil {
		return err
	}
	defer closeCatalog()

	var (
		pipelineService = pipeline.NewService(receiptRepo, merchantService, classifier, pipeline.Options{
			Thresholds: cfg.Thresholds(),
			Tolerance:  cfg.Receipt.ReconcileTolerance,
			Enricher:   product.NewEnricher(productService, remote),
			Metrics:    pipelineMetrics,
		})
		analyticsService = analytics.NewService(receiptService, analytics.NewAggregator(tax, loc))
		importService    = importer.NewService(productService, classifier)
	)

	router := fislyHttp.New(
		receiptHandler.NewHandler(receiptService, pipelineService, loc),
		merchantHandler.NewHandler(merchantService),
		productHandler.NewHandler(productService),
		analyticsHandler.NewHandler(analyticsService, formatter, loc),
		importHandler.NewHandler(importService),
		taxonomyHandler.NewHandler(tax),
		fislyHttp.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Timeout:        cfg.Server.Timeout,
			Metrics:        pipelineMetrics.Handler(),
		},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "port", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func loadTaxonomy(path string) (*taxonomy.Taxonomy, error) {
	if path == "" {
		return taxonomy.LoadDefault()
	}

	return taxonomy.LoadFile(path)
}

// newCatalog builds the remote catalog chain: HTTP client behind retries and
// a circuit breaker, failure metrics, then the optional bbolt cache. It
// returns a nil catalog when no catalog URL is configured.
func newCatalog(cfg *config.Config, m *metrics.PipelineMetrics) (product.Catalog, func(), error) {
	noop := func() {}

	if cfg.Catalog.URL == "" {
		slog.Info("remote catalog disabled")
		return nil, noop, nil
	}

	client := catalog.New(cfg.Catalog.Config, resilience.NewExecutor(cfg.Resilience))
	instrumented := catalog.Instrument(client, m)

	if cfg.Catalog.CachePath == "" {
		return instrumented, noop, nil
	}

	cache, err := catalog.NewCache(cfg.Catalog.CachePath, instrumented, cfg.Catalog.CacheTTL)
	if err != nil {
		return nil, noop, err
	}

	closeCache := func() {
		if err := cache.Close(); err != nil {
			slog.Error("failed to close catalog cache", "error", err)
		}
	}

	return cache, closeCache, nil
}
