// Package httpapi exposes the query service over HTTP with the routes of the
// public results API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-cuberank/internal/application"
	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

// Queries is the subset of the query service the HTTP layer needs.
type Queries interface {
	GetCompetitor(ctx context.Context, id string) (application.CompetitorProfile, error)
	SearchCompetitors(ctx context.Context, query string) []application.CompetitorSummary
	SuggestCompetitors(ctx context.Context, query string) []application.CompetitorSummary
	EventRankings(ctx context.Context, eventID string, kind domain.RecordKind) ([]application.RankingEntry, error)
	CompareCompetitors(ctx context.Context, eventID string, ids []string) (application.Comparison, error)
	CompetitorRecords(ctx context.Context, id string) ([]domain.EventRecords, error)
	Events(ctx context.Context) []domain.Event
}

// Readiness reports whether queries may be served.
type Readiness interface {
	Ready() bool
}

// UnknownCompetitorsHeader lists comparison ids that were not found.
const UnknownCompetitorsHeader = "X-Unknown-Competitors"

// Options configures the router. Zero values disable the corresponding
// feature: no logging, no metrics, no rate limit, always ready.
type Options struct {
	Logger    *zap.Logger
	Metrics   ports.MetricsCollector
	Gatherer  prometheus.Gatherer
	Readiness Readiness
	RateLimit rate.Limit
	Burst     int
}

type alwaysReady struct{}

func (alwaysReady) Ready() bool { return true }

type handler struct {
	svc    Queries
	logger *zap.Logger
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc Queries, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = ports.NopMetrics{}
	}
	if opts.Readiness == nil {
		opts.Readiness = alwaysReady{}
	}
	h := &handler{svc: svc, logger: opts.Logger}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, domain.ErrNotFound)
	})
	router.Use(requestIDMiddleware, accessLogMiddleware(opts.Logger, opts.Metrics))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !opts.Readiness.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := router.NewRoute().Subrouter()
	api.Use(rateLimitMiddleware(opts.RateLimit, opts.Burst, opts.Metrics), readinessMiddleware(opts.Readiness))
	api.HandleFunc("/competitors", h.searchCompetitors).Methods(http.MethodGet)
	api.HandleFunc("/competitors/suggest", h.suggestCompetitors).Methods(http.MethodGet)
	api.HandleFunc("/competitors/{id}", h.getCompetitor).Methods(http.MethodGet)
	api.HandleFunc("/competitors/{id}/records", h.competitorRecords).Methods(http.MethodGet)
	api.HandleFunc("/records/{event}/{kind:single|average}", h.eventRankings).Methods(http.MethodGet)
	api.HandleFunc("/records/{event}", h.compareCompetitors).Methods(http.MethodGet)
	api.HandleFunc("/events", h.events).Methods(http.MethodGet)

	return router
}

func (h *handler) searchCompetitors(w http.ResponseWriter, r *http.Request) {
	found := h.svc.SearchCompetitors(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"competitors": found})
}

func (h *handler) suggestCompetitors(w http.ResponseWriter, r *http.Request) {
	found := h.svc.SuggestCompetitors(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": found})
}

func (h *handler) getCompetitor(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetCompetitor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"competitor": newProfileJSON(profile)})
}

func (h *handler) competitorRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.CompetitorRecords(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make(map[string]pairJSON, len(recs))
	for _, rec := range recs {
		out[rec.EventID] = newPairJSON(rec.RecordPair)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) eventRankings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, _ := domain.ParseRecordKind(vars["kind"])
	entries, err := h.svc.EventRankings(r.Context(), vars["event"], kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) compareCompetitors(w http.ResponseWriter, r *http.Request) {
	cmp, err := h.svc.CompareCompetitors(r.Context(), mux.Vars(r)["event"], requestedIDs(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(cmp.Missing) > 0 {
		w.Header().Set(UnknownCompetitorsHeader, strings.Join(cmp.Missing, ","))
	}
	out := make([]comparisonJSON, 0, len(cmp.Records))
	for _, rec := range cmp.Records {
		p := newPairJSON(rec.RecordPair)
		out = append(out, comparisonJSON{CompetitorID: rec.CompetitorID, Single: p.Single, Average: p.Average})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.svc.Events(r.Context())})
}

// fail maps a query error to a status code. Only unexpected errors are logged.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, domain.ErrNotFound)
		return
	}
	h.logger.Error("query failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

// requestedIDs accepts both repeated (?ids=a&ids=b) and comma separated
// (?ids=a,b) forms.
func requestedIDs(r *http.Request) []string {
	var ids []string
	for _, v := range r.URL.Query()["ids"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// profileJSON renders an unknown gender as null.
type profileJSON struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Gender           *string `json:"gender"`
	Country          string  `json:"country"`
	CompetitionCount int     `json:"competition_count"`
	EventCount       int     `json:"event_count"`
}

func newProfileJSON(p application.CompetitorProfile) profileJSON {
	out := profileJSON{
		ID:               p.ID,
		Name:             p.Name,
		Country:          p.Country,
		CompetitionCount: p.CompetitionCount,
		EventCount:       p.EventCount,
	}
	if p.Gender != domain.GenderUnknown {
		g := string(p.Gender)
		out.Gender = &g
	}
	return out
}

type recordJSON struct {
	Time          domain.Duration `json:"time"`
	CompetitionID string          `json:"competition_id,omitempty"`
}

type pairJSON struct {
	Single  *recordJSON `json:"single"`
	Average *recordJSON `json:"average"`
}

type comparisonJSON struct {
	CompetitorID string      `json:"competitor_id"`
	Single       *recordJSON `json:"single"`
	Average      *recordJSON `json:"average"`
}

func newRecordJSON(rec *domain.Record) *recordJSON {
	if rec == nil {
		return nil
	}
	return &recordJSON{Time: rec.Value, CompetitionID: rec.Round.CompetitionID}
}

func newPairJSON(p domain.RecordPair) pairJSON {
	return pairJSON{Single: newRecordJSON(p.Single), Average: newRecordJSON(p.Average)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
