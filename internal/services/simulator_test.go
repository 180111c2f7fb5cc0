package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nexus-analytics/internal/errors"
	"nexus-analytics/internal/models"
)

func TestSimulate_Identity(t *testing.T) {
	in := models.SimulationInput{
		BaseSales:  100000,
		BaseProfit: 30000,
	}

	out, err := Simulate(in)
	require.NoError(t, err)

	require.InDelta(t, 100000, out.ProjectedSales, 1e-9)
	require.InDelta(t, 70000, out.ProjectedCost, 1e-9)
	require.InDelta(t, 30000, out.ProjectedProfit, 1e-9)
	require.InDelta(t, 0, out.SalesDeltaPct, 1e-9)
	require.InDelta(t, 0, out.CostDeltaPct, 1e-9)
	require.InDelta(t, 0, out.ProfitDeltaPct, 1e-9)
	require.InDelta(t, 0, out.ImpliedVolumeChangePct, 1e-9)
}

func TestSimulate_PriceIncreaseWithElasticity(t *testing.T) {
	// +10% price at elasticity -1.5 implies -15% volume, so sales land
	// at 100000 * 0.85 * 1.10 = 93500 and cost at 80000 * 0.85 = 68000.
	in := models.SimulationInput{
		BaseSales:      100000,
		BaseProfit:     20000,
		PriceChangePct: 10,
		Elasticity:     -1.5,
	}

	out, err := Simulate(in)
	require.NoError(t, err)

	require.InDelta(t, -15, out.ImpliedVolumeChangePct, 1e-9)
	require.InDelta(t, 93500, out.ProjectedSales, 1e-6)
	require.InDelta(t, 68000, out.ProjectedCost, 1e-6)
	require.InDelta(t, 25500, out.ProjectedProfit, 1e-6)
	require.InDelta(t, -6.5, out.SalesDeltaPct, 1e-9)
	require.InDelta(t, -15, out.CostDeltaPct, 1e-9)
	require.InDelta(t, 25500.0/20000*100-100, out.ProfitDeltaPct, 1e-9)
}

func TestSimulate_VolumeAndCostChanges(t *testing.T) {
	in := models.SimulationInput{
		BaseSales:       1000,
		BaseProfit:      400,
		VolumeChangePct: 20,
		CostChangePct:   -10,
	}

	out, err := Simulate(in)
	require.NoError(t, err)

	require.InDelta(t, 1200, out.ProjectedSales, 1e-9)
	require.InDelta(t, 600*1.2*0.9, out.ProjectedCost, 1e-9)
	require.InDelta(t, 1200-648, out.ProjectedProfit, 1e-9)
}

func TestSimulate_ZeroBaselines(t *testing.T) {
	tests := []struct {
		name string
		in   models.SimulationInput
	}{
		{"zero sales", models.SimulationInput{BaseSales: 0, BaseProfit: 10}},
		{"zero cost", models.SimulationInput{BaseSales: 100, BaseProfit: 100}},
		{"zero profit", models.SimulationInput{BaseSales: 100, BaseProfit: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(tt.in)
			require.Error(t, err)
			require.True(t, errors.Is(err, errors.CodeDivisionByZero),
				"expected DIVISION_BY_ZERO, got %v", err)
		})
	}
}
