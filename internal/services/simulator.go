package services

import (
	"nexus-analytics/internal/errors"
	"nexus-analytics/internal/models"
)

// Simulate applies the closed-form elasticity model to the baseline
// aggregates. No model, no I/O. With all deltas at zero the projected
// figures equal the baselines exactly.
//
// implied volume change = price change * elasticity, so a price
// increase with negative elasticity suppresses volume on top of any
// explicit volume delta.
func Simulate(in models.SimulationInput) (models.SimulationResult, error) {
	baseCost := in.BaseSales - in.BaseProfit

	if in.BaseSales == 0 {
		return models.SimulationResult{}, errors.DivisionByZero("baseline sales are zero; deltas are undefined")
	}
	if baseCost == 0 {
		return models.SimulationResult{}, errors.DivisionByZero("baseline cost is zero; deltas are undefined")
	}
	if in.BaseProfit == 0 {
		return models.SimulationResult{}, errors.DivisionByZero("baseline profit is zero; deltas are undefined")
	}

	impliedVolume := in.PriceChangePct * in.Elasticity
	volumeFactor := 1 + (in.VolumeChangePct+impliedVolume)/100
	priceFactor := 1 + in.PriceChangePct/100
	costFactor := 1 + in.CostChangePct/100

	projectedSales := in.BaseSales * volumeFactor * priceFactor
	projectedCost := baseCost * volumeFactor * costFactor
	projectedProfit := projectedSales - projectedCost

	return models.SimulationResult{
		ImpliedVolumeChangePct: impliedVolume,
		ProjectedSales:         projectedSales,
		ProjectedCost:          projectedCost,
		ProjectedProfit:        projectedProfit,
		SalesDeltaPct:          (projectedSales/in.BaseSales - 1) * 100,
		CostDeltaPct:           (projectedCost/baseCost - 1) * 100,
		ProfitDeltaPct:         (projectedProfit/in.BaseProfit - 1) * 100,
	}, nil
}
