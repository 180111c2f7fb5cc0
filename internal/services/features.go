package services

import (
	"math"
	"time"

	"nexus-analytics/internal/models"
)

// FeatureColumns is the exact column order the persisted model was
// trained against. It is a versioned contract: retraining the external
// model and changing this list must happen together.
var FeatureColumns = [...]string{
	"quantity",
	"unit_cost",
	"unit_price",
	"discount",
	"year",
	"month",
	"day",
	"day_of_week",
	"day_of_year",
	"week",
	"total_cost",
	"profit",
	"profit_margin",
	"region_code",
	"sales_rep_code",
	"category_code",
	"customer_type_code",
	"payment_method_code",
	"channel_code",
	"region_rep_code",
}

// FeatureCount is the width every emitted matrix must have.
const FeatureCount = len(FeatureColumns)

// BuildMatrix emits one fixed-order feature row per record. Labels the
// encoders never saw map to the sentinel code 0, and any non-finite
// derived value is scrubbed to 0 so a model never receives NaN or Inf.
func BuildMatrix(records []models.Record, enc *EncoderSet) ([][]float64, error) {
	matrix := make([][]float64, 0, len(records))
	for _, r := range records {
		row, err := buildRow(r, enc, CalendarFrom(r.SaleDate))
		if err != nil {
			return nil, err
		}
		matrix = append(matrix, row)
	}
	return matrix, nil
}

// BuildScenarioVector reconstructs the training feature space from a
// sparse user scenario. The current time anchors the temporal columns;
// categorical fields the user did not supply default to code 0.
// fallback names the supplied labels that were unseen by the encoders
// and therefore degraded to the sentinel code.
func BuildScenarioVector(s models.Scenario, enc *EncoderSet, now time.Time) (vec []float64, fallback []string, err error) {
	rec := models.Record{
		SaleDate:     now,
		Region:       s.Region,
		Category:     s.Category,
		CustomerType: s.CustomerType,
		Quantity:     s.Quantity,
		UnitPrice:    s.UnitPrice,
		UnitCost:     s.UnitCost,
		Discount:     s.Discount,
	}

	row, err := buildRow(rec, enc, CalendarFrom(now))
	if err != nil {
		return nil, nil, err
	}

	if s.Region != "" {
		if _, ok, _ := enc.Region.Code(s.Region); !ok {
			fallback = append(fallback, "region")
		}
	}
	if s.Category != "" {
		if _, ok, _ := enc.Category.Code(s.Category); !ok {
			fallback = append(fallback, "category")
		}
	}
	if s.CustomerType != "" {
		if _, ok, _ := enc.CustomerType.Code(s.CustomerType); !ok {
			fallback = append(fallback, "customer_type")
		}
	}

	return row, fallback, nil
}

func buildRow(r models.Record, enc *EncoderSet, cal CalendarFeatures) ([]float64, error) {
	regionCode, _, err := enc.Region.Code(r.Region)
	if err != nil {
		return nil, err
	}
	repCode, _, err := enc.SalesRep.Code(r.SalesRep)
	if err != nil {
		return nil, err
	}
	categoryCode, _, err := enc.Category.Code(r.Category)
	if err != nil {
		return nil, err
	}
	customerCode, _, err := enc.CustomerType.Code(r.CustomerType)
	if err != nil {
		return nil, err
	}
	paymentCode, _, err := enc.PaymentMethod.Code(r.PaymentMethod)
	if err != nil {
		return nil, err
	}
	channelCode, _, err := enc.Channel.Code(r.Channel)
	if err != nil {
		return nil, err
	}
	regionRepCode, _, err := enc.RegionRep.Code(r.RegionRep())
	if err != nil {
		return nil, err
	}

	row := []float64{
		float64(r.Quantity),
		r.UnitCost,
		r.UnitPrice,
		r.Discount,
		float64(cal.Year),
		float64(cal.Month),
		float64(cal.Day),
		float64(cal.DayOfWeek),
		float64(cal.DayOfYear),
		float64(cal.Week),
		r.TotalCost(),
		r.Profit(),
		r.ProfitMargin(),
		float64(regionCode),
		float64(repCode),
		float64(categoryCode),
		float64(customerCode),
		float64(paymentCode),
		float64(channelCode),
		float64(regionRepCode),
	}

	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			row[i] = 0
		}
	}
	return row, nil
}
