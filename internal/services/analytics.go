package services

import (
	"log/slog"
	"math"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"nexus-analytics/internal/models"
)

// Analytics computes the aggregate views the dashboard consumes.
// Every method takes the (already filtered) table as an explicit
// argument; there is no ambient dataset state here.
type Analytics struct {
	logger *slog.Logger
}

func NewAnalytics(logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{logger: logger}
}

// Summary is the KPI header row: totals, margin, average order value.
func (a *Analytics) Summary(records []models.Record) models.Summary {
	var totalSales, totalProfit float64
	for _, r := range records {
		totalSales += r.Revenue()
		totalProfit += r.Profit()
	}

	margin := 0.0
	avgOrder := 0.0
	if totalSales != 0 {
		margin = totalProfit / totalSales * 100
	}
	if len(records) > 0 {
		avgOrder = totalSales / float64(len(records))
	}

	return models.Summary{
		TotalSales:    totalSales,
		TotalProfit:   totalProfit,
		Orders:        len(records),
		Margin:        margin,
		AvgOrderValue: avgOrder,
	}
}

// DailySeries sums sales and profit per calendar date and annotates a
// trailing 7-day moving average of sales. Days with fewer than 7
// predecessors average over what exists.
func (a *Analytics) DailySeries(records []models.Record) []models.DailyPoint {
	type dayAgg struct {
		sales  float64
		profit float64
	}
	byDate := make(map[string]*dayAgg)
	for _, r := range records {
		key := r.SaleDate.Format("2006-01-02")
		if byDate[key] == nil {
			byDate[key] = &dayAgg{}
		}
		byDate[key].sales += r.Revenue()
		byDate[key].profit += r.Profit()
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]models.DailyPoint, 0, len(dates))
	for i, d := range dates {
		start := i - 6
		if start < 0 {
			start = 0
		}
		sum := byDate[d].sales
		for _, p := range points[start:] {
			sum += p.Sales
		}
		ma := sum / float64(i-start+1)

		points = append(points, models.DailyPoint{
			Date:   d,
			Sales:  byDate[d].sales,
			Profit: byDate[d].profit,
			MA7:    ma,
		})
	}
	return points
}

// CategoryPerformance ranks product categories by sales, with each
// category's share of the leader for bar scaling.
func (a *Analytics) CategoryPerformance(records []models.Record) []models.CategoryPerformance {
	byCategory := make(map[string]float64)
	for _, r := range records {
		byCategory[r.Category] += r.Revenue()
	}

	out := make([]models.CategoryPerformance, 0, len(byCategory))
	var maxSales float64
	for cat, sales := range byCategory {
		out = append(out, models.CategoryPerformance{Category: cat, Sales: sales})
		maxSales = math.Max(maxSales, sales)
	}
	slices.SortFunc(out, func(x, y models.CategoryPerformance) int {
		if x.Sales > y.Sales {
			return -1
		}
		if x.Sales < y.Sales {
			return 1
		}
		return 0
	})

	if maxSales > 0 {
		for i := range out {
			out[i].ShareOfMax = out[i].Sales / maxSales * 100
		}
	}
	return out
}

// TopReps ranks region+rep composites by sales, capped at limit.
func (a *Analytics) TopReps(records []models.Record, limit int) []models.RepRevenue {
	byRep := make(map[string]float64)
	for _, r := range records {
		byRep[r.RegionRep()] += r.Revenue()
	}

	out := make([]models.RepRevenue, 0, len(byRep))
	for rep, sales := range byRep {
		out = append(out, models.RepRevenue{RegionRep: rep, Sales: sales})
	}
	slices.SortFunc(out, func(x, y models.RepRevenue) int {
		if x.Sales > y.Sales {
			return -1
		}
		if x.Sales < y.Sales {
			return 1
		}
		return 0
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Pareto computes the cumulative-share curve over region+rep
// composites sorted by descending sales, so callers can read off which
// sellers produce 80% of revenue. CumulativePct is non-decreasing and
// ends at 100 for any table with non-zero sales.
func (a *Analytics) Pareto(records []models.Record) []models.ParetoEntry {
	reps := a.TopReps(records, -1)

	var grandTotal float64
	for _, r := range reps {
		grandTotal += r.Sales
	}
	if grandTotal == 0 {
		return nil
	}

	out := make([]models.ParetoEntry, 0, len(reps))
	var running float64
	for _, r := range reps {
		running += r.Sales
		out = append(out, models.ParetoEntry{
			RegionRep:     r.RegionRep,
			Sales:         r.Sales,
			CumulativePct: running / grandTotal * 100,
		})
	}
	return out
}

var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// SalesHeatmap buckets sales into day-of-week x month cells, emitted
// Monday-first and January-first so the grid renders in calendar order.
func (a *Analytics) SalesHeatmap(records []models.Record) []models.HeatmapCell {
	totals := make(map[int]map[time.Month]float64)
	for _, r := range records {
		dow := (int(r.SaleDate.Weekday()) + 6) % 7
		if totals[dow] == nil {
			totals[dow] = make(map[time.Month]float64)
		}
		totals[dow][r.SaleDate.Month()] += r.Revenue()
	}

	cells := make([]models.HeatmapCell, 0, 7*12)
	for dow := 0; dow < 7; dow++ {
		for m := time.January; m <= time.December; m++ {
			cells = append(cells, models.HeatmapCell{
				Day:   weekdayNames[dow],
				Month: m.String(),
				Sales: totals[dow][m],
			})
		}
	}
	return cells
}

var correlationFields = []string{
	"quantity", "unit_price", "unit_cost", "discount",
	"sales_amount", "total_cost", "profit", "profit_margin",
}

// Correlation computes the Pearson correlation matrix over the numeric
// record fields. Undefined entries (zero-variance columns) come back
// as 0, never NaN, so the result is always JSON-safe.
func (a *Analytics) Correlation(records []models.Record) models.CorrelationMatrix {
	f := len(correlationFields)
	values := make([][]float64, f)
	for i := range values {
		values[i] = make([]float64, f)
	}
	result := models.CorrelationMatrix{Fields: correlationFields, Values: values}
	if len(records) < 2 {
		return result
	}

	data := make([]float64, 0, len(records)*f)
	for _, r := range records {
		data = append(data,
			float64(r.Quantity),
			r.UnitPrice,
			r.UnitCost,
			r.Discount,
			r.Revenue(),
			r.TotalCost(),
			r.Profit(),
			r.ProfitMargin(),
		)
	}

	x := mat.NewDense(len(records), f, data)
	corr := mat.NewSymDense(f, nil)
	stat.CorrelationMatrix(corr, x, nil)

	for i := 0; i < f; i++ {
		for j := 0; j < f; j++ {
			v := corr.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			values[i][j] = v
		}
	}
	return result
}
