package models

import (
	"sort"

	"github.com/iancoleman/orderedmap"
)

// CancellationSource количество отмен по аэропорту вылета
type CancellationSource struct {
	AirportCode   string `json:"airport_code" msgpack:"airport_code"`
	Cancellations int    `json:"cancellations" msgpack:"cancellations"`
}

// MaintenanceImpact плановые и аварийные простои радара
type MaintenanceImpact struct {
	RadarName     string  `json:"radar_name" msgpack:"radar_name"`
	Outages       int     `json:"outages" msgpack:"outages"`
	DowntimeHours float64 `json:"downtime_hours" msgpack:"downtime_hours"`
}

// ProblematicRoute минуты без сопровождения по маршруту "FROM-TO"
type ProblematicRoute struct {
	Route       string  `json:"route" msgpack:"route"`
	LostMinutes float64 `json:"lost_minutes" msgpack:"lost_minutes"`
}

// RedundancyEntry минуты, когда радар был единственным источником покрытия
type RedundancyEntry struct {
	RadarName           string  `json:"radar_name" msgpack:"radar_name"`
	SoleCoverageMinutes float64 `json:"sole_coverage_minutes" msgpack:"sole_coverage_minutes"`
}

// InactiveRadarValue оценка "что если" для выключенного радара
type InactiveRadarValue struct {
	RadarName          string  `json:"radar_name" msgpack:"radar_name"`
	PotentialPnlChange float64 `json:"potential_pnl_change" msgpack:"potential_pnl_change"`
}

// AirportDowntime минуты, проведенные аэропортом без покрытия
type AirportDowntime struct {
	AirportCode string  `json:"airport_code" msgpack:"airport_code"`
	Minutes     float64 `json:"minutes" msgpack:"minutes"`
}

// SimulationResult отчет пакетного анализа или живой симуляции
type SimulationResult struct {
	TotalFlights int     `json:"total_flights" msgpack:"total_flights"`
	TotalDays    float64 `json:"total_days" msgpack:"total_days"`

	CancelledFlights             int     `json:"cancelled_flights" msgpack:"cancelled_flights"`
	TotalFlightsWithLostTracking int     `json:"total_flights_with_lost_tracking" msgpack:"total_flights_with_lost_tracking"`
	LostFlightMinutes            float64 `json:"lost_flight_minutes" msgpack:"lost_flight_minutes"`

	CancellationSources []CancellationSource `json:"cancellation_sources" msgpack:"cancellation_sources"`
	MaintenanceImpact   []MaintenanceImpact  `json:"maintenance_impact" msgpack:"maintenance_impact"`
	ProblematicRoutes   []ProblematicRoute   `json:"problematic_routes" msgpack:"problematic_routes"`
	RedundancyAnalysis  []RedundancyEntry    `json:"redundancy_analysis" msgpack:"redundancy_analysis"`

	TotalRevenue          float64 `json:"total_revenue" msgpack:"total_revenue"`
	TotalOperationalCost  float64 `json:"total_operational_cost" msgpack:"total_operational_cost"`
	TotalCancellationCost float64 `json:"total_cancellation_cost" msgpack:"total_cancellation_cost"`
	TotalLostTrackingCost float64 `json:"total_lost_tracking_cost" msgpack:"total_lost_tracking_cost"`
	NetProfitLoss         float64 `json:"net_profit_loss" msgpack:"net_profit_loss"`

	InactiveRadarAnalysis []InactiveRadarValue `json:"inactive_radar_analysis" msgpack:"inactive_radar_analysis"`

	AirportDowntime []AirportDowntime `json:"airport_downtime,omitempty" msgpack:"airport_downtime,omitempty"`
}

// NewSimulationResult возвращает отчет с пустыми (не nil) таблицами
func NewSimulationResult() *SimulationResult {
	return &SimulationResult{
		CancellationSources:   []CancellationSource{},
		MaintenanceImpact:     []MaintenanceImpact{},
		ProblematicRoutes:     []ProblematicRoute{},
		RedundancyAnalysis:    []RedundancyEntry{},
		InactiveRadarAnalysis: []InactiveRadarValue{},
	}
}

// Finalize вычисляет итоговую прибыль один раз из сумм
func (r *SimulationResult) Finalize() {
	r.NetProfitLoss = r.TotalRevenue - (r.TotalOperationalCost + r.TotalCancellationCost + r.TotalLostTrackingCost)
}

// CostBreakdown возвращает таблицу затрат в фиксированном порядке
func (r *SimulationResult) CostBreakdown() *orderedmap.OrderedMap {
	om := orderedmap.New()
	om.Set("total_revenue", r.TotalRevenue)
	om.Set("total_operational_cost", r.TotalOperationalCost)
	om.Set("total_cancellation_cost", r.TotalCancellationCost)
	om.Set("total_lost_tracking_cost", r.TotalLostTrackingCost)
	om.Set("net_profit_loss", r.NetProfitLoss)
	return om
}

// SoleCoverageMinutes возвращает минуты единственного покрытия для радара
func (r *SimulationResult) SoleCoverageMinutes(radarName string) float64 {
	for _, e := range r.RedundancyAnalysis {
		if e.RadarName == radarName {
			return e.SoleCoverageMinutes
		}
	}
	return 0
}

// Ниже функции сборки строк отчета из аккумуляторов.
// Порядок задается явно: по убыванию значения, при равенстве по ключу.

// CancellationRows строит таблицу отмен
func CancellationRows(m map[string]int) []CancellationSource {
	rows := make([]CancellationSource, 0, len(m))
	for code, n := range m {
		rows = append(rows, CancellationSource{AirportCode: code, Cancellations: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Cancellations != rows[j].Cancellations {
			return rows[i].Cancellations > rows[j].Cancellations
		}
		return rows[i].AirportCode < rows[j].AirportCode
	})
	return rows
}

// ProblematicRouteRows строит таблицу проблемных маршрутов
func ProblematicRouteRows(m map[string]float64) []ProblematicRoute {
	rows := make([]ProblematicRoute, 0, len(m))
	for route, minutes := range m {
		rows = append(rows, ProblematicRoute{Route: route, LostMinutes: minutes})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LostMinutes != rows[j].LostMinutes {
			return rows[i].LostMinutes > rows[j].LostMinutes
		}
		return rows[i].Route < rows[j].Route
	})
	return rows
}

// AirportDowntimeRows строит таблицу простоя аэропортов
func AirportDowntimeRows(m map[string]float64) []AirportDowntime {
	rows := make([]AirportDowntime, 0, len(m))
	for code, minutes := range m {
		rows = append(rows, AirportDowntime{AirportCode: code, Minutes: minutes})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Minutes != rows[j].Minutes {
			return rows[i].Minutes > rows[j].Minutes
		}
		return rows[i].AirportCode < rows[j].AirportCode
	})
	return rows
}
