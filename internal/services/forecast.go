package services

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/sajari/regression"

	"nexus-analytics/internal/errors"
	"nexus-analytics/internal/models"
)

// minHistoryDays is the hard floor below which a fit is ill-defined.
const minHistoryDays = 2

// ForecastEngine fits a fresh regression on every invocation: daily
// sales totals against [days since the first observed date,
// day-of-week]. Nothing is cached across requests and no state is
// shared between concurrent callers, so repeated calls with the same
// table produce the same series at full training cost each time.
type ForecastEngine struct {
	logger *slog.Logger
}

func NewForecastEngine(logger *slog.Logger) *ForecastEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastEngine{logger: logger}
}

// Forecast aggregates the table into a daily series, fits the model,
// and projects horizon consecutive days starting the day after the
// last observed date. Each future day is predicted independently;
// there is no autoregressive dependency between forecasted days.
func (e *ForecastEngine) Forecast(records []models.Record, horizon int) (models.Forecast, error) {
	if horizon < 1 {
		return models.Forecast{}, errors.Validation(fmt.Sprintf("horizon must be positive, got %d", horizon))
	}
	if len(records) == 0 {
		return models.Forecast{}, errors.DataUnavailable("no records to forecast from")
	}

	daily := aggregateDaily(records)
	if len(daily) < minHistoryDays {
		return models.Forecast{}, errors.InsufficientHistory(
			fmt.Sprintf("forecasting needs at least %d distinct dates, got %d", minHistoryDays, len(daily)))
	}

	r := new(regression.Regression)
	r.SetObserved("daily_sales")
	r.SetVar(0, "days_since_start")
	r.SetVar(1, "day_of_week")

	anchor := daily[0].date
	for _, d := range daily {
		r.Train(regression.DataPoint(d.total, trendVars(d.date, anchor)))
	}

	if err := r.Run(); err != nil {
		// sajari surfaces underdetermined fits as a plain error;
		// keep the taxonomy deterministic for callers.
		return models.Forecast{}, errors.InsufficientHistoryWrap(err, "regression fit failed")
	}

	start := time.Now()
	lastDate := daily[len(daily)-1].date

	points := make([]models.ForecastPoint, 0, horizon)
	var total float64
	for i := 1; i <= horizon; i++ {
		day := lastDate.AddDate(0, 0, i)
		predicted, err := r.Predict(trendVars(day, anchor))
		if err != nil {
			return models.Forecast{}, errors.InternalWrap(err, "forecast prediction failed")
		}
		points = append(points, models.ForecastPoint{
			Date:           day.Format("2006-01-02"),
			PredictedSales: predicted,
		})
		total += predicted
	}

	e.logger.Debug("forecast complete",
		"horizon", horizon,
		"history_days", len(daily),
		"r2", r.R2,
		"duration", time.Since(start),
	)

	return models.Forecast{
		HorizonDays: horizon,
		LastKnown:   lastDate.Format("2006-01-02"),
		Points:      points,
		Total:       total,
	}, nil
}

// trendVars maps a date onto the fit space: a continuous elapsed-days
// term anchored at the first observed date, plus the weekday. A split
// [day-of-year, year] pair degenerates on single-year histories (the
// year column is constant, so the fit is unconstrained along it and
// next-year extrapolation leaves the scale of the data entirely);
// elapsed days stays continuous across year boundaries.
func trendVars(t, anchor time.Time) []float64 {
	days := math.Round(t.Sub(anchor).Hours() / 24)
	return []float64{
		days,
		float64(CalendarFrom(t).DayOfWeek),
	}
}

type dailyTotal struct {
	date  time.Time
	total float64
}

// aggregateDaily sums revenue per calendar date, sorted ascending.
func aggregateDaily(records []models.Record) []dailyTotal {
	byDate := make(map[time.Time]float64)
	for _, r := range records {
		y, m, d := r.SaleDate.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		byDate[day] += r.Revenue()
	}

	daily := make([]dailyTotal, 0, len(byDate))
	for date, total := range byDate {
		daily = append(daily, dailyTotal{date: date, total: total})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].date.Before(daily[j].date) })
	return daily
}
