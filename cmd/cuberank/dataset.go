package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ahrav/go-cuberank/infrastructure/loader"
	"github.com/ahrav/go-cuberank/infrastructure/records"
	"github.com/ahrav/go-cuberank/infrastructure/search"
	"github.com/ahrav/go-cuberank/infrastructure/store"
	"github.com/ahrav/go-cuberank/internal/application"
	"github.com/ahrav/go-cuberank/internal/ports"
)

// dataset is the fully ingested, queryable state of the service.
type dataset struct {
	store   *store.Memory
	calc    *records.Calculator
	index   *search.Index
	queries *application.QueryService
	summary loader.Summary
}

// loadDataset ingests the configured export, builds the derived structures
// and optionally warms the record cache. Any error is fatal for serving.
func loadDataset(
	ctx context.Context,
	cfg application.Config,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*dataset, error) {
	s := store.NewMemory()
	summary, err := loader.New(s, cfg.FormatMap(), logger).LoadDir(ctx, cfg.Data.Dir, cfg.Data.Files)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", cfg.Data.Dir, err)
	}

	stats := s.Stats()
	metrics.RecordGauge("competitors", float64(stats.Competitors), nil)
	metrics.RecordGauge("events", float64(stats.Events), nil)
	metrics.RecordGauge("pairs", float64(stats.Pairs), nil)
	metrics.RecordGauge("attempts", float64(stats.Attempts), nil)

	calc := records.NewCalculator(s, metrics, records.WithFormats(cfg.FormatMap()))
	index := search.NewIndex(s.Competitors())

	if cfg.Records.Precompute {
		start := time.Now()
		if err := calc.Precompute(ctx, cfg.Records.Workers); err != nil {
			return nil, fmt.Errorf("precompute records: %w", err)
		}
		metrics.RecordLatency("precompute", time.Since(start), map[string]string{"status": "ok"})
		logger.Info("record cache warmed",
			zap.Int("pairs", stats.Pairs),
			zap.Duration("duration", time.Since(start)),
		)
	}

	return &dataset{
		store:   s,
		calc:    calc,
		index:   index,
		queries: application.NewQueryService(s, calc, index, metrics, cfg.Query),
		summary: summary,
	}, nil
}
