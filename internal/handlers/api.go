package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nexus-analytics/internal/config"
	"nexus-analytics/internal/errors"
	"nexus-analytics/internal/models"
	"nexus-analytics/internal/observability"
	"nexus-analytics/internal/services"
)

const (
	maxTopReps  = 5
	cacheMaxAge = "public, max-age=300"
)

type APIHandlers struct {
	dataset     *services.Dataset
	analytics   *services.Analytics
	predictor   *services.Predictor
	forecaster  *services.ForecastEngine
	encoders    *services.EncoderCache
	forecastCfg config.ForecastConfig
	logger      *slog.Logger
}

func NewAPIHandlers(
	dataset *services.Dataset,
	analytics *services.Analytics,
	predictor *services.Predictor,
	forecaster *services.ForecastEngine,
	forecastCfg config.ForecastConfig,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		dataset:     dataset,
		analytics:   analytics,
		predictor:   predictor,
		forecaster:  forecaster,
		encoders:    services.NewEncoderCache(),
		forecastCfg: forecastCfg,
		logger:      logger,
	}
}

// filtered applies the regions= and categories= query filters.
func (h *APIHandlers) filtered(r *http.Request) []models.Record {
	return h.dataset.Filter(
		splitParam(r.URL.Query().Get("regions")),
		splitParam(r.URL.Query().Get("categories")),
	)
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func cacheHeaders() map[string]string {
	return map[string]string{"Cache-Control": cacheMaxAge}
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Summary(h.filtered(r)), cacheHeaders())
}

func (h *APIHandlers) HandleDailySales(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.DailySeries(h.filtered(r)), cacheHeaders())
}

func (h *APIHandlers) HandleCategoryPerformance(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.CategoryPerformance(h.filtered(r)), cacheHeaders())
}

func (h *APIHandlers) HandleTopReps(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.TopReps(h.filtered(r), maxTopReps), cacheHeaders())
}

func (h *APIHandlers) HandlePareto(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Pareto(h.filtered(r)), cacheHeaders())
}

func (h *APIHandlers) HandleSalesHeatmap(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.SalesHeatmap(h.filtered(r)), cacheHeaders())
}

func (h *APIHandlers) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Correlation(h.filtered(r)), cacheHeaders())
}

// HandlePredict runs single-scenario inference against the persisted
// model. Encoders are built from the full reference table, not the
// filtered view, so codes stay consistent with training.
func (h *APIHandlers) HandlePredict(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var scenario models.Scenario
	if err := json.NewDecoder(r.Body).Decode(&scenario); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid scenario payload"), requestID)
		return
	}
	if err := validateScenario(scenario); err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	reference, version := h.dataset.Snapshot()
	if len(reference) == 0 {
		errors.WriteError(w, h.logger, errors.DataUnavailable("reference table is empty"), requestID)
		return
	}
	enc := h.encoders.For(version, reference)

	result, err := h.predictor.Predict(scenario, enc, time.Now())
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, result)
}

func validateScenario(s models.Scenario) error {
	if s.Quantity <= 0 {
		return errors.Validation("quantity must be positive")
	}
	if s.UnitPrice <= 0 {
		return errors.Validation("unit price must be positive")
	}
	if s.UnitCost <= 0 {
		return errors.Validation("unit cost must be positive")
	}
	if s.Discount < 0 || s.Discount > 1 {
		return errors.Validation("discount must be a fraction in [0,1]")
	}
	return nil
}

// HandleForecast fits a per-request model over the filtered table and
// projects the requested horizon.
func (h *APIHandlers) HandleForecast(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		errors.WriteError(w, h.logger, errors.BadRequest("days must be an integer"), requestID)
		return
	}
	if days < h.forecastCfg.MinHorizonDays || days > h.forecastCfg.MaxHorizonDays {
		errors.WriteError(w, h.logger, errors.Validation(fmt.Sprintf(
			"days must be between %d and %d", h.forecastCfg.MinHorizonDays, h.forecastCfg.MaxHorizonDays)), requestID)
		return
	}

	forecast, err := h.forecaster.Forecast(h.filtered(r), days)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, forecast)
}

// HandleSimulate runs the what-if projection. When the caller leaves
// both baselines at zero they are filled from the filtered table, which
// is the dashboard's behavior; explicit baselines win otherwise.
func (h *APIHandlers) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var input models.SimulationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "invalid simulation payload"), requestID)
		return
	}

	if input.BaseSales == 0 && input.BaseProfit == 0 {
		summary := h.analytics.Summary(h.filtered(r))
		input.BaseSales = summary.TotalSales
		input.BaseProfit = summary.TotalProfit
	}

	result, err := services.Simulate(input)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, result)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	records := h.dataset.Records()

	regions := make(map[string]struct{})
	categories := make(map[string]struct{})
	for _, rec := range records {
		regions[rec.Region] = struct{}{}
		categories[rec.Category] = struct{}{}
	}

	stats := map[string]any{
		"record_count":    len(records),
		"dataset_version": h.dataset.Version(),
		"regions":         len(regions),
		"categories":      len(categories),
	}

	errors.WriteSuccess(w, stats)
}
