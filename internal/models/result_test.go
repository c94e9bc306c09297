package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationResult_Finalize(t *testing.T) {
	r := NewSimulationResult()
	r.TotalRevenue = 1_000_000.3
	r.TotalOperationalCost = 410_958.9
	r.TotalCancellationCost = 120_000
	r.TotalLostTrackingCost = 1234.7

	r.Finalize()

	assert.Equal(t, r.TotalRevenue-(r.TotalOperationalCost+r.TotalCancellationCost+r.TotalLostTrackingCost), r.NetProfitLoss)
}

func TestSimulationResult_CostBreakdownOrder(t *testing.T) {
	r := NewSimulationResult()
	r.TotalRevenue = 10
	r.TotalOperationalCost = 3
	r.Finalize()

	om := r.CostBreakdown()
	assert.Equal(t, []string{
		"total_revenue",
		"total_operational_cost",
		"total_cancellation_cost",
		"total_lost_tracking_cost",
		"net_profit_loss",
	}, om.Keys())

	data, err := json.Marshal(om)
	require.NoError(t, err)
	assert.Equal(t, `{"total_revenue":10,"total_operational_cost":3,"total_cancellation_cost":0,"total_lost_tracking_cost":0,"net_profit_loss":7}`, string(data))
}

func TestNewSimulationResult_EmptyTablesSerializeAsArrays(t *testing.T) {
	data, err := json.Marshal(NewSimulationResult())
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"cancellation_sources":[]`)
	assert.Contains(t, s, `"maintenance_impact":[]`)
	assert.Contains(t, s, `"redundancy_analysis":[]`)
	assert.NotContains(t, s, "airport_downtime")
}

func TestCancellationRows_Sorted(t *testing.T) {
	rows := CancellationRows(map[string]int{"LHR": 2, "CDG": 5, "AMS": 2})

	require.Len(t, rows, 3)
	assert.Equal(t, "CDG", rows[0].AirportCode)
	assert.Equal(t, "AMS", rows[1].AirportCode)
	assert.Equal(t, "LHR", rows[2].AirportCode)
}

func TestProblematicRouteRows_Sorted(t *testing.T) {
	rows := ProblematicRouteRows(map[string]float64{"LHR-CDG": 1.5, "MAD-LIS": 30})

	require.Len(t, rows, 2)
	assert.Equal(t, "MAD-LIS", rows[0].Route)
	assert.Equal(t, 30.0, rows[0].LostMinutes)
}

func TestSoleCoverageMinutes(t *testing.T) {
	r := NewSimulationResult()
	r.RedundancyAnalysis = []RedundancyEntry{{RadarName: "Frankfurt Radar", SoleCoverageMinutes: 42}}

	assert.Equal(t, 42.0, r.SoleCoverageMinutes("Frankfurt Radar"))
	assert.Equal(t, 0.0, r.SoleCoverageMinutes("Munich Radar"))
}

func TestRadar_StateTransitions(t *testing.T) {
	r := Radar{ID: "radar-1", IsActive: true, RangeNM: 250}

	off := r.Deactivate(HoursPtr(4))
	assert.False(t, off.IsActive)
	require.NotNil(t, off.ReactivationTime)
	assert.Equal(t, 4.0, *off.ReactivationTime)
	assert.True(t, r.IsActive, "original value must not change")

	on := off.Activate()
	assert.True(t, on.IsActive)
	assert.Nil(t, on.ReactivationTime)
}

func TestFinancialConfig(t *testing.T) {
	f := DefaultFinancialConfig()
	assert.NoError(t, f.Validate())
	assert.InDelta(t, 500000.0/8760, f.RadarCostPerHour(), 1e-9)
	assert.InDelta(t, 500000.0/365, f.RadarCostPerDay(), 1e-9)

	f.CancellationCost = -1
	assert.Error(t, f.Validate())
}
