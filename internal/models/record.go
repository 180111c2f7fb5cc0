package models

import "time"

// Record is one sales transaction. Discount is a fraction in [0,1]
// across the whole codebase.
type Record struct {
	SaleDate      time.Time
	Region        string
	Category      string
	SalesRep      string
	CustomerType  string
	PaymentMethod string
	Channel       string
	Quantity      int
	UnitPrice     float64
	UnitCost      float64
	Discount      float64
}

// Revenue is the discounted sale amount.
func (r Record) Revenue() float64 {
	return r.UnitPrice * float64(r.Quantity) * (1 - r.Discount)
}

// TotalCost is quantity times unit cost.
func (r Record) TotalCost() float64 {
	return r.UnitCost * float64(r.Quantity)
}

// Profit is revenue minus total cost.
func (r Record) Profit() float64 {
	return r.Revenue() - r.TotalCost()
}

// ProfitMargin is profit over revenue in percent, 0 when revenue is 0.
func (r Record) ProfitMargin() float64 {
	rev := r.Revenue()
	if rev == 0 {
		return 0
	}
	return r.Profit() / rev * 100
}

// RegionRep is the region + sales rep composite label used for
// rep-level aggregation and the matching encoded feature.
func (r Record) RegionRep() string {
	return r.Region + " - " + r.SalesRep
}

// Scenario is the caller-facing input for a single-point prediction.
// Categorical fields left empty default to code 0 at encoding time.
type Scenario struct {
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	UnitCost     float64 `json:"unit_cost"`
	Discount     float64 `json:"discount"`
	Region       string  `json:"region"`
	Category     string  `json:"category"`
	CustomerType string  `json:"customer_type"`
}

// Revenue mirrors Record.Revenue for scenario inputs.
func (s Scenario) Revenue() float64 {
	return s.UnitPrice * float64(s.Quantity) * (1 - s.Discount)
}

// TotalCost mirrors Record.TotalCost for scenario inputs.
func (s Scenario) TotalCost() float64 {
	return s.UnitCost * float64(s.Quantity)
}

type PredictionResult struct {
	PredictedSales   float64  `json:"predicted_sales"`
	ProjectedRevenue float64  `json:"projected_revenue"`
	ProjectedCost    float64  `json:"projected_cost"`
	ProjectedProfit  float64  `json:"projected_profit"`
	ProjectedMargin  float64  `json:"projected_margin"`
	FallbackFields   []string `json:"fallback_fields,omitempty"`
}

type ForecastPoint struct {
	Date           string  `json:"date"`
	PredictedSales float64 `json:"predicted_sales"`
}

type Forecast struct {
	HorizonDays int             `json:"horizon_days"`
	LastKnown   string          `json:"last_known_date"`
	Points      []ForecastPoint `json:"points"`
	Total       float64         `json:"total"`
}

type SimulationInput struct {
	BaseSales       float64 `json:"base_sales"`
	BaseProfit      float64 `json:"base_profit"`
	PriceChangePct  float64 `json:"price_change_pct"`
	VolumeChangePct float64 `json:"volume_change_pct"`
	CostChangePct   float64 `json:"cost_change_pct"`
	Elasticity      float64 `json:"elasticity"`
}

type SimulationResult struct {
	ImpliedVolumeChangePct float64 `json:"implied_volume_change_pct"`
	ProjectedSales         float64 `json:"projected_sales"`
	ProjectedCost          float64 `json:"projected_cost"`
	ProjectedProfit        float64 `json:"projected_profit"`
	SalesDeltaPct          float64 `json:"sales_delta_pct"`
	CostDeltaPct           float64 `json:"cost_delta_pct"`
	ProfitDeltaPct         float64 `json:"profit_delta_pct"`
}

type Summary struct {
	TotalSales    float64 `json:"total_sales"`
	TotalProfit   float64 `json:"total_profit"`
	Orders        int     `json:"orders"`
	Margin        float64 `json:"margin"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

type DailyPoint struct {
	Date   string  `json:"date"`
	Sales  float64 `json:"sales"`
	Profit float64 `json:"profit"`
	MA7    float64 `json:"ma7"`
}

type CategoryPerformance struct {
	Category   string  `json:"category"`
	Sales      float64 `json:"sales"`
	ShareOfMax float64 `json:"share_of_max"`
}

type RepRevenue struct {
	RegionRep string  `json:"region_rep"`
	Sales     float64 `json:"sales"`
}

type ParetoEntry struct {
	RegionRep     string  `json:"region_rep"`
	Sales         float64 `json:"sales"`
	CumulativePct float64 `json:"cumulative_pct"`
}

// HeatmapCell is one day-of-week x month bucket of summed sales.
type HeatmapCell struct {
	Day   string  `json:"day"`
	Month string  `json:"month"`
	Sales float64 `json:"sales"`
}

type CorrelationMatrix struct {
	Fields []string    `json:"fields"`
	Values [][]float64 `json:"values"`
}
