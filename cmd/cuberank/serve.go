package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-cuberank/infrastructure/httpapi"
	"github.com/ahrav/go-cuberank/infrastructure/middleware"
	"github.com/ahrav/go-cuberank/internal/application"
	"github.com/ahrav/go-cuberank/internal/domain"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the export and serve queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.cfg, opts.logger)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	return cmd
}

// pendingQueries forwards to the query service once ingestion has finished.
// The readiness gate keeps requests away until then.
type pendingQueries struct {
	svc atomic.Pointer[application.QueryService]
}

func (p *pendingQueries) get() *application.QueryService { return p.svc.Load() }

func (p *pendingQueries) GetCompetitor(ctx context.Context, id string) (application.CompetitorProfile, error) {
	return p.get().GetCompetitor(ctx, id)
}

func (p *pendingQueries) SearchCompetitors(ctx context.Context, q string) []application.CompetitorSummary {
	return p.get().SearchCompetitors(ctx, q)
}

func (p *pendingQueries) SuggestCompetitors(ctx context.Context, q string) []application.CompetitorSummary {
	return p.get().SuggestCompetitors(ctx, q)
}

func (p *pendingQueries) EventRankings(
	ctx context.Context,
	eventID string,
	kind domain.RecordKind,
) ([]application.RankingEntry, error) {
	return p.get().EventRankings(ctx, eventID, kind)
}

func (p *pendingQueries) CompareCompetitors(
	ctx context.Context,
	eventID string,
	ids []string,
) (application.Comparison, error) {
	return p.get().CompareCompetitors(ctx, eventID, ids)
}

func (p *pendingQueries) CompetitorRecords(ctx context.Context, id string) ([]domain.EventRecords, error) {
	return p.get().CompetitorRecords(ctx, id)
}

func (p *pendingQueries) Events(ctx context.Context) []domain.Event {
	return p.get().Events(ctx)
}

// serve starts the listener immediately, answering 503 until ingestion
// completes, and runs until ctx is cancelled or a component fails.
func serve(ctx context.Context, cfg application.Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewPrometheusMetrics(reg)

	gate := application.NewGate()
	queries := &pendingQueries{}
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpapi.NewRouter(queries, httpapi.Options{
			Logger:    logger,
			Metrics:   metrics,
			Gatherer:  reg,
			Readiness: gate,
			RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst:     cfg.RateLimit.Burst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ds, err := loadDataset(gctx, cfg, logger, metrics)
		if err != nil {
			logger.Error("ingestion failed", zap.Error(err))
			return err
		}
		queries.svc.Store(ds.queries)
		gate.MarkReady()
		logger.Info("ready",
			zap.Int("competitors", ds.summary.Competitors),
			zap.Int("attempts", ds.summary.Attempts),
		)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
