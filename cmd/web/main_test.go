package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"nexus-analytics/internal/config"
	"nexus-analytics/internal/models"
	"nexus-analytics/internal/server"
	"nexus-analytics/internal/services"
)

// newTestServer wires the full service graph over a month of fixed
// data. The model artifacts point at nowhere, which is fine for every
// route except prediction.
func newTestServer() *server.Server {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	dataset := services.NewDataset(logger)
	var records []models.Record
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		records = append(records, models.Record{
			SaleDate:      start.AddDate(0, 0, i),
			Region:        "Europe",
			Category:      "Electronics",
			SalesRep:      "Alice",
			CustomerType:  "New",
			PaymentMethod: "Credit Card",
			Channel:       "Online",
			Quantity:      1 + i%3,
			UnitPrice:     100,
			UnitCost:      60,
		})
	}
	dataset.SetRecords(records)

	return server.NewServer(
		dataset,
		services.NewAnalytics(logger),
		services.NewPredictor("missing-model.json", "missing-scaler.json", logger),
		services.NewForecastEngine(logger),
		config.ForecastConfig{MinHorizonDays: 7, MaxHorizonDays: 90},
		logger,
	)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{"/health", http.StatusOK},
		{"/admin/stats", http.StatusOK},
		{"/api/summary", http.StatusOK},
		{"/api/daily-sales", http.StatusOK},
		{"/api/category-performance", http.StatusOK},
		{"/api/top-reps", http.StatusOK},
		{"/api/pareto", http.StatusOK},
		{"/api/sales-heatmap", http.StatusOK},
		{"/api/correlation", http.StatusOK},
		{"/api/forecast?days=7", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, "application/json") {
				t.Errorf("content-type = %q, want application/json", ct)
			}

			var result any
			if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
				t.Errorf("invalid json: %v", err)
			}
		})
	}
}

func TestServer_JSONEnvelope(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/summary", nil)
	srv.ServeHTTP(w, r)

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object in response")
	}

	if sales, ok := data["total_sales"].(float64); !ok || sales <= 0 {
		t.Errorf("total_sales = %v, want a positive number", data["total_sales"])
	}
	if orders, ok := data["orders"].(float64); !ok || orders != 30 {
		t.Errorf("orders = %v, want 30", data["orders"])
	}
}

func TestServer_PostRoutes(t *testing.T) {
	srv := newTestServer()

	// Simulation is self-contained; prediction needs artifacts that
	// this server deliberately lacks, so it degrades to 503.
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/simulate", strings.NewReader(`{"base_sales":1000,"base_profit":400}`))
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("simulate status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/api/predict", strings.NewReader(`{"quantity":1,"unit_price":10,"unit_cost":5}`))
	srv.ServeHTTP(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("predict status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestServer_HandleHealth(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode health JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	healthData, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected health data in response")
	}

	if status, ok := healthData["status"].(string); !ok || status != "healthy" {
		t.Errorf("health status = %v, want 'healthy'", healthData["status"])
	}

	if _, ok := healthData["timestamp"]; !ok {
		t.Error("health response should include timestamp")
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		method string
		path   string
	}{
		{"POST", "/api/summary"},
		{"DELETE", "/health"},
		{"GET", "/api/predict"},
		{"PUT", "/api/forecast"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
			}
		})
	}
}
