package models

// Visibility статус сопровождения воздушного судна
type Visibility string

const (
	VisibilityTracked Visibility = "tracked"
	VisibilityLost    Visibility = "lost"
)

const (
	// DefaultAircraftSpeedKnots крейсерская скорость
	DefaultAircraftSpeedKnots = 450.0
	// DefaultCruiseAltitudeFeet крейсерская высота
	DefaultCruiseAltitudeFeet = 35000.0
)

// Aircraft воздушное судно в полете.
// Position всегда равна LerpPoint(origin, destination, min(Progress, 1)).
type Aircraft struct {
	ID            string     `json:"id" msgpack:"id"`
	FlightNumber  string     `json:"flight_number" msgpack:"flight_number"`
	Origin        string     `json:"origin" msgpack:"origin"`
	Destination   string     `json:"destination" msgpack:"destination"`
	Position      Point      `json:"position" msgpack:"position"`
	Altitude      float64    `json:"altitude" msgpack:"altitude"`
	Speed         float64    `json:"speed" msgpack:"speed"`
	Heading       float64    `json:"heading" msgpack:"heading"`
	Visibility    Visibility `json:"visibility" msgpack:"visibility"`
	Progress      float64    `json:"progress" msgpack:"progress"`
	TotalDistance float64    `json:"total_distance" msgpack:"total_distance"`
	StartTime     float64    `json:"start_time" msgpack:"start_time"`

	// EverLost отмечает рейс, хотя бы раз терявший сопровождение
	EverLost bool `json:"ever_lost" msgpack:"ever_lost"`
}

// RouteKey возвращает ключ маршрута вида "FROM-TO"
func (a Aircraft) RouteKey() string {
	return RouteKey(a.Origin, a.Destination)
}

// IsTracked проверяет, сопровождается ли судно
func (a Aircraft) IsTracked() bool {
	return a.Visibility == VisibilityTracked
}
