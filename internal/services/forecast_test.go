package services

import (
	"math"
	"testing"
	"time"

	"nexus-analytics/internal/errors"
	"nexus-analytics/internal/models"
)

// linearHistory builds one sale per day for n days starting at start,
// with revenue rising linearly.
func linearHistory(start time.Time, n int) []models.Record {
	records := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, models.Record{
			SaleDate:  start.AddDate(0, 0, i),
			Region:    "Europe",
			Quantity:  1,
			UnitPrice: 100 + float64(i)*10,
			UnitCost:  50,
		})
	}
	return records
}

func TestForecastEngine_Forecast(t *testing.T) {
	e := NewForecastEngine(nil)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	history := linearHistory(start, 30)

	forecast, err := e.Forecast(history, 14)
	if err != nil {
		t.Fatalf("Forecast() error: %v", err)
	}

	if forecast.HorizonDays != 14 {
		t.Errorf("HorizonDays = %d, want 14", forecast.HorizonDays)
	}
	if len(forecast.Points) != 14 {
		t.Fatalf("len(Points) = %d, want 14", len(forecast.Points))
	}
	if forecast.LastKnown != "2023-01-30" {
		t.Errorf("LastKnown = %s, want 2023-01-30", forecast.LastKnown)
	}

	// Projected dates are consecutive, starting the day after the last
	// observed date.
	expected := start.AddDate(0, 0, 30)
	for i, p := range forecast.Points {
		want := expected.AddDate(0, 0, i).Format("2006-01-02")
		if p.Date != want {
			t.Errorf("Points[%d].Date = %s, want %s", i, p.Date, want)
		}
		if math.IsNaN(p.PredictedSales) || math.IsInf(p.PredictedSales, 0) {
			t.Errorf("Points[%d].PredictedSales is non-finite: %v", i, p.PredictedSales)
		}
	}

	var sum float64
	for _, p := range forecast.Points {
		sum += p.PredictedSales
	}
	if math.Abs(sum-forecast.Total) > 1e-6 {
		t.Errorf("Total = %v, want sum of points %v", forecast.Total, sum)
	}
}

func TestForecastEngine_Deterministic(t *testing.T) {
	e := NewForecastEngine(nil)
	history := linearHistory(time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), 20)

	first, err := e.Forecast(history, 7)
	if err != nil {
		t.Fatalf("first Forecast() error: %v", err)
	}
	second, err := e.Forecast(history, 7)
	if err != nil {
		t.Fatalf("second Forecast() error: %v", err)
	}

	for i := range first.Points {
		if first.Points[i] != second.Points[i] {
			t.Errorf("point %d differs between identical fits: %+v vs %+v",
				i, first.Points[i], second.Points[i])
		}
	}
}

func TestForecastEngine_YearBoundaryExtrapolation(t *testing.T) {
	// Every date of 2023 observed, horizon reaching into 2024. A fit
	// whose features split the date into [day-of-year, year] has a
	// constant year column here and extrapolates to astronomically
	// wrong totals the moment the horizon crosses December 31; the
	// projections must stay on the scale of the observed series.
	e := NewForecastEngine(nil)
	history := linearHistory(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 365)

	forecast, err := e.Forecast(history, 14)
	if err != nil {
		t.Fatalf("Forecast() error: %v", err)
	}

	if forecast.LastKnown != "2023-12-31" {
		t.Fatalf("LastKnown = %s, want 2023-12-31", forecast.LastKnown)
	}
	if forecast.Points[0].Date != "2024-01-01" {
		t.Fatalf("Points[0].Date = %s, want 2024-01-01", forecast.Points[0].Date)
	}

	maxObserved := 100.0 + 364*10
	for i, p := range forecast.Points {
		if p.PredictedSales <= 0 || p.PredictedSales > 2*maxObserved {
			t.Errorf("Points[%d].PredictedSales = %v, outside observed scale (max daily %v)",
				i, p.PredictedSales, maxObserved)
		}
	}
}

func TestForecastEngine_FlatSeriesStaysFlat(t *testing.T) {
	// A constant series across a full year should project (near)
	// that constant into the next year.
	var records []models.Record
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		records = append(records, models.Record{
			SaleDate:  start.AddDate(0, 0, i),
			Quantity:  1,
			UnitPrice: 250,
		})
	}

	e := NewForecastEngine(nil)
	forecast, err := e.Forecast(records, 7)
	if err != nil {
		t.Fatalf("Forecast() error: %v", err)
	}

	for i, p := range forecast.Points {
		if math.Abs(p.PredictedSales-250) > 25 {
			t.Errorf("Points[%d].PredictedSales = %v, want ~250", i, p.PredictedSales)
		}
	}
}

func TestForecastEngine_SyntheticTable(t *testing.T) {
	// The out-of-the-box deployment: a seeded synthetic year ending
	// December 31, with the horizon crossing into the next year.
	records := GenerateSyntheticRecords(42)

	var maxDaily float64
	byDate := make(map[string]float64)
	for _, r := range records {
		key := r.SaleDate.Format("2006-01-02")
		byDate[key] += r.Revenue()
		if byDate[key] > maxDaily {
			maxDaily = byDate[key]
		}
	}

	e := NewForecastEngine(nil)
	forecast, err := e.Forecast(records, 7)
	if err != nil {
		t.Fatalf("Forecast() error: %v", err)
	}

	for i, p := range forecast.Points {
		if math.Abs(p.PredictedSales) > 2*maxDaily {
			t.Errorf("Points[%d].PredictedSales = %v, outside observed scale (max daily %v)",
				i, p.PredictedSales, maxDaily)
		}
	}
}

func TestForecastEngine_InsufficientHistory(t *testing.T) {
	e := NewForecastEngine(nil)

	// Two sales on the same calendar date collapse to one history point.
	sameDay := []models.Record{
		{SaleDate: time.Date(2023, 1, 5, 9, 0, 0, 0, time.UTC), Quantity: 1, UnitPrice: 100},
		{SaleDate: time.Date(2023, 1, 5, 17, 0, 0, 0, time.UTC), Quantity: 2, UnitPrice: 50},
	}

	_, err := e.Forecast(sameDay, 7)
	if err == nil {
		t.Fatal("single-date history should fail")
	}
	if !errors.Is(err, errors.CodeInsufficientHistory) {
		t.Errorf("expected INSUFFICIENT_HISTORY, got %v", err)
	}
}

func TestForecastEngine_EmptyTable(t *testing.T) {
	e := NewForecastEngine(nil)

	_, err := e.Forecast(nil, 7)
	if err == nil {
		t.Fatal("empty table should fail")
	}
	if !errors.Is(err, errors.CodeDataUnavailable) {
		t.Errorf("expected DATA_UNAVAILABLE, got %v", err)
	}
}

func TestForecastEngine_InvalidHorizon(t *testing.T) {
	e := NewForecastEngine(nil)

	_, err := e.Forecast(testRecords(), 0)
	if err == nil {
		t.Fatal("zero horizon should fail")
	}
	if !errors.Is(err, errors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}
