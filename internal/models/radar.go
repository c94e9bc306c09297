package models

// DefaultRadarRangeNM радиус действия радара по умолчанию
const DefaultRadarRangeNM = 250.0

// Radar радарная станция.
//
// Радар неактивен тогда и только тогда, когда у него есть момент
// восстановления или он выключен вручную без такого момента.
// ReactivationTime хранится в часах симуляции и никогда не изменяется
// через указатель: при смене значения присваивается новый указатель.
type Radar struct {
	ID               string   `json:"id" msgpack:"id"`
	Name             string   `json:"name" msgpack:"name"`
	Position         Point    `json:"position" msgpack:"position"`
	RangeNM          float64  `json:"range_nm" msgpack:"range_nm"`
	IsActive         bool     `json:"is_active" msgpack:"is_active"`
	ReactivationTime *float64 `json:"reactivation_time,omitempty" msgpack:"reactivation_time,omitempty"`
}

// Covers проверяет, попадает ли точка в зону действия радара
func (r Radar) Covers(p Point) bool {
	return DistanceNM(p, r.Position) <= r.RangeNM
}

// Activate возвращает копию радара во включенном состоянии
func (r Radar) Activate() Radar {
	r.IsActive = true
	r.ReactivationTime = nil
	return r
}

// Deactivate возвращает копию выключенного радара.
// Если until == nil, радар остается выключенным до ручного включения.
func (r Radar) Deactivate(until *float64) Radar {
	r.IsActive = false
	r.ReactivationTime = until
	return r
}

// HoursPtr helper для момента восстановления
func HoursPtr(h float64) *float64 {
	return &h
}
