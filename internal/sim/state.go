package sim

import (
	"maps"
	"slices"
	"strconv"

	"github.com/flybeeper/radarsim/internal/models"
)

// LiveMetrics накопленные показатели живой симуляции
type LiveMetrics struct {
	// Все попытки вылета, включая отмененные
	TotalSpawnedFlights     int     `json:"total_spawned_flights" msgpack:"total_spawned_flights"`
	CancelledFlights        int     `json:"cancelled_flights" msgpack:"cancelled_flights"`
	Arrivals                int     `json:"arrivals" msgpack:"arrivals"`
	FlightsWithLostTracking int     `json:"flights_with_lost_tracking" msgpack:"flights_with_lost_tracking"`
	LostFlightMinutes       float64 `json:"lost_flight_minutes" msgpack:"lost_flight_minutes"`

	Revenue          float64 `json:"revenue" msgpack:"revenue"`
	OperationalCost  float64 `json:"operational_cost" msgpack:"operational_cost"`
	CancellationCost float64 `json:"cancellation_cost" msgpack:"cancellation_cost"`
	LostTrackingCost float64 `json:"lost_tracking_cost" msgpack:"lost_tracking_cost"`

	CancellationSources map[string]int     `json:"cancellation_sources" msgpack:"cancellation_sources"`
	ProblematicRoutes   map[string]float64 `json:"problematic_routes" msgpack:"problematic_routes"`
	AirportDowntime     map[string]float64 `json:"airport_downtime" msgpack:"airport_downtime"`
}

// NewLiveMetrics возвращает обнуленные метрики
func NewLiveMetrics() LiveMetrics {
	return LiveMetrics{
		CancellationSources: make(map[string]int),
		ProblematicRoutes:   make(map[string]float64),
		AirportDowntime:     make(map[string]float64),
	}
}

// Costs суммарные затраты
func (m LiveMetrics) Costs() float64 {
	return m.OperationalCost + m.CancellationCost + m.LostTrackingCost
}

// NetProfitLoss текущий результат
func (m LiveMetrics) NetProfitLoss() float64 {
	return m.Revenue - m.Costs()
}

func (m LiveMetrics) clone() LiveMetrics {
	m.CancellationSources = maps.Clone(m.CancellationSources)
	m.ProblematicRoutes = maps.Clone(m.ProblematicRoutes)
	m.AirportDowntime = maps.Clone(m.AirportDowntime)
	if m.CancellationSources == nil {
		m.CancellationSources = make(map[string]int)
	}
	if m.ProblematicRoutes == nil {
		m.ProblematicRoutes = make(map[string]float64)
	}
	if m.AirportDowntime == nil {
		m.AirportDowntime = make(map[string]float64)
	}
	return m
}

// State полное состояние живой симуляции. Значение: функции движка
// принимают состояние и возвращают следующее, не изменяя исходное.
type State struct {
	// Clock симулированное время в часах от начала
	Clock    float64                `json:"clock_hours" msgpack:"clock_hours"`
	Airports []models.Airport       `json:"airports" msgpack:"airports"`
	Radars   []models.Radar         `json:"radars" msgpack:"radars"`
	Aircraft []models.Aircraft      `json:"aircraft" msgpack:"aircraft"`
	Finance  models.FinancialConfig `json:"finance" msgpack:"finance"`
	Metrics  LiveMetrics            `json:"metrics" msgpack:"metrics"`

	// Funds казна игрового варианта
	Funds float64 `json:"funds" msgpack:"funds"`
	// Seq счетчик для генерации идентификаторов
	Seq uint64 `json:"seq" msgpack:"seq"`
}

// Clone возвращает независимую копию состояния
func (s State) Clone() State {
	s.Airports = slices.Clone(s.Airports)
	s.Radars = slices.Clone(s.Radars)
	s.Aircraft = slices.Clone(s.Aircraft)
	s.Metrics = s.Metrics.clone()
	return s
}

func (s *State) nextID(prefix string) string {
	s.Seq++
	return prefix + "-" + strconv.FormatUint(s.Seq, 10)
}

// ActiveRadars возвращает включенные радары
func (s State) ActiveRadars() []models.Radar {
	out := make([]models.Radar, 0, len(s.Radars))
	for _, r := range s.Radars {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

// FindRadar ищет радар по идентификатору
func (s State) FindRadar(id string) (int, bool) {
	for i := range s.Radars {
		if s.Radars[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// FindAircraft ищет судно по идентификатору
func (s State) FindAircraft(id string) (int, bool) {
	for i := range s.Aircraft {
		if s.Aircraft[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Counts сводные счетчики для снимка
type Counts struct {
	Aircraft          int     `json:"aircraft" msgpack:"aircraft"`
	Tracked           int     `json:"tracked" msgpack:"tracked"`
	Lost              int     `json:"lost" msgpack:"lost"`
	ActiveRadars      int     `json:"active_radars" msgpack:"active_radars"`
	TotalRadars       int     `json:"total_radars" msgpack:"total_radars"`
	UncoveredAirports int     `json:"uncovered_airports" msgpack:"uncovered_airports"`
	TimeOfDay         float64 `json:"time_of_day" msgpack:"time_of_day"`
	Day               int     `json:"day" msgpack:"day"`
}

// Counts подсчитывает сводные показатели
func (s State) Counts() Counts {
	c := Counts{
		Aircraft:    len(s.Aircraft),
		TotalRadars: len(s.Radars),
		Day:         int(s.Clock / 24),
	}
	c.TimeOfDay = s.Clock - float64(c.Day)*24
	for _, ac := range s.Aircraft {
		if ac.IsTracked() {
			c.Tracked++
		} else {
			c.Lost++
		}
	}
	for _, r := range s.Radars {
		if r.IsActive {
			c.ActiveRadars++
		}
	}
	for _, ap := range s.Airports {
		if !ap.IsCovered {
			c.UncoveredAirports++
		}
	}
	return c
}
