package models

import "fmt"

const (
	HoursPerYear = 365 * 24
	DaysPerYear  = 365
)

// FinancialConfig редактируемые пользователем финансовые параметры
type FinancialConfig struct {
	RadarCostPerYear          float64 `json:"radar_cost_per_year" msgpack:"radar_cost_per_year"`
	FlightRevenue             float64 `json:"flight_revenue" msgpack:"flight_revenue"`
	CancellationCost          float64 `json:"cancellation_cost" msgpack:"cancellation_cost"`
	LostTrackingCostPerMinute float64 `json:"lost_tracking_cost_per_minute" msgpack:"lost_tracking_cost_per_minute"`
}

// DefaultFinancialConfig возвращает параметры по умолчанию
func DefaultFinancialConfig() FinancialConfig {
	return FinancialConfig{
		RadarCostPerYear:          500000,
		FlightRevenue:             200,
		CancellationCost:          10000,
		LostTrackingCostPerMinute: 1,
	}
}

// RadarCostPerHour стоимость эксплуатации одного радара в час
func (f FinancialConfig) RadarCostPerHour() float64 {
	return f.RadarCostPerYear / HoursPerYear
}

// RadarCostPerDay стоимость эксплуатации одного радара в сутки
func (f FinancialConfig) RadarCostPerDay() float64 {
	return f.RadarCostPerYear / DaysPerYear
}

// Validate проверяет неотрицательность параметров.
// Используется только на входе API.
func (f FinancialConfig) Validate() error {
	switch {
	case f.RadarCostPerYear < 0:
		return fmt.Errorf("radar_cost_per_year must not be negative")
	case f.FlightRevenue < 0:
		return fmt.Errorf("flight_revenue must not be negative")
	case f.CancellationCost < 0:
		return fmt.Errorf("cancellation_cost must not be negative")
	case f.LostTrackingCostPerMinute < 0:
		return fmt.Errorf("lost_tracking_cost_per_minute must not be negative")
	}
	return nil
}
