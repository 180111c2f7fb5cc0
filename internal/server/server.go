package server

import (
	"log/slog"
	"net/http"

	"nexus-analytics/internal/config"
	"nexus-analytics/internal/handlers"
	"nexus-analytics/internal/services"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
}

func NewServer(
	dataset *services.Dataset,
	analytics *services.Analytics,
	predictor *services.Predictor,
	forecaster *services.ForecastEngine,
	forecastCfg config.ForecastConfig,
	logger *slog.Logger,
) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		apiHandlers: handlers.NewAPIHandlers(
			dataset, analytics, predictor, forecaster, forecastCfg, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// Aggregation endpoints, all accepting regions= and categories= filters
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/daily-sales", s.apiHandlers.HandleDailySales)
	s.mux.HandleFunc("GET /api/category-performance", s.apiHandlers.HandleCategoryPerformance)
	s.mux.HandleFunc("GET /api/top-reps", s.apiHandlers.HandleTopReps)
	s.mux.HandleFunc("GET /api/pareto", s.apiHandlers.HandlePareto)
	s.mux.HandleFunc("GET /api/sales-heatmap", s.apiHandlers.HandleSalesHeatmap)
	s.mux.HandleFunc("GET /api/correlation", s.apiHandlers.HandleCorrelation)

	// Model-backed endpoints
	s.mux.HandleFunc("POST /api/predict", s.apiHandlers.HandlePredict)
	s.mux.HandleFunc("GET /api/forecast", s.apiHandlers.HandleForecast)
	s.mux.HandleFunc("POST /api/simulate", s.apiHandlers.HandleSimulate)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
