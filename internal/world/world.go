// Package world содержит статические реестры аэропортов, граф маршрутов
// и предопределенные радарные площадки.
package world

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/pkg/rand"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// ErrEmptyRegistry реестр без аэропортов
var ErrEmptyRegistry = errors.New("world registry has no airports")

// RadarSite предопределенная площадка радара.
// RangeNM == 0 означает радиус по умолчанию из настроек движка.
type RadarSite struct {
	Name     string
	Position models.Point
	RangeNM  float64
}

// Registry исходные данные мира (встроенные или загруженные из БД)
type Registry struct {
	Airports   []models.Airport
	Routes     []Route
	RadarSites []RadarSite
	HubTiers   map[string]float64
}

// DefaultRegistry возвращает встроенный реестр
func DefaultRegistry() Registry {
	tiers := make(map[string]float64, len(hubTiers))
	for code, w := range hubTiers {
		tiers[code] = w
	}
	return Registry{
		Airports: DefaultAirports(),
		Routes:   DefaultRoutes(),
		HubTiers: tiers,
	}
}

// World неизменяемый после создания граф аэропортов и маршрутов.
// Безопасен для одновременного чтения.
type World struct {
	airports    []models.Airport
	byCode      map[string]int
	plans       []models.FlightPlan
	cumWeights  []float64
	totalWeight float64
	sites       []RadarSite
}

// Default строит мир из встроенного реестра
func Default() *World {
	w, err := New(DefaultRegistry(), nil)
	if err != nil {
		panic(fmt.Sprintf("world: built-in registry is invalid: %v", err))
	}
	return w
}

// New проверяет реестр один раз и строит двунаправленный граф маршрутов.
// Маршруты с неизвестными аэропортами и петли отбрасываются с предупреждением.
func New(reg Registry, logger *utils.Logger) (*World, error) {
	if logger == nil {
		logger = utils.Discard()
	}
	if len(reg.Airports) == 0 {
		return nil, ErrEmptyRegistry
	}

	w := &World{
		byCode: make(map[string]int, len(reg.Airports)),
	}
	for _, ap := range reg.Airports {
		if _, dup := w.byCode[ap.Code]; dup {
			logger.WithField("airport", ap.Code).Warn("Duplicate airport dropped")
			continue
		}
		ap.IsCovered = false
		w.byCode[ap.Code] = len(w.airports)
		w.airports = append(w.airports, ap)
	}

	tier := func(code string) float64 {
		if t, ok := reg.HubTiers[code]; ok && t > 0 {
			return t
		}
		return 1
	}

	seen := make(map[string]bool, len(reg.Routes)*2)
	addPlan := func(from, to string) {
		key := models.RouteKey(from, to)
		if seen[key] {
			return
		}
		seen[key] = true
		weight := tier(from) * tier(to)
		w.plans = append(w.plans, models.FlightPlan{From: from, To: to, Weight: weight})
		w.totalWeight += weight
		w.cumWeights = append(w.cumWeights, w.totalWeight)
	}

	var forward, reverse []Route
	for _, r := range reg.Routes {
		_, okFrom := w.byCode[r.From]
		_, okTo := w.byCode[r.To]
		if !okFrom || !okTo || r.From == r.To {
			logger.WithFields(map[string]interface{}{
				"from": r.From,
				"to":   r.To,
			}).Warn("Invalid route dropped")
			continue
		}
		forward = append(forward, r)
		reverse = append(reverse, Route{From: r.To, To: r.From})
	}
	for _, r := range forward {
		addPlan(r.From, r.To)
	}
	for _, r := range reverse {
		addPlan(r.From, r.To)
	}

	if len(reg.RadarSites) > 0 {
		w.sites = append(w.sites, reg.RadarSites...)
	} else {
		for _, ap := range w.airports {
			w.sites = append(w.sites, RadarSite{
				Name:     ap.Name + " Radar",
				Position: ap.Position,
			})
		}
	}

	logger.WithFields(map[string]interface{}{
		"airports":     len(w.airports),
		"flight_plans": len(w.plans),
		"radar_sites":  len(w.sites),
	}).Debug("World registry loaded")

	return w, nil
}

// Airports возвращает копию списка аэропортов
func (w *World) Airports() []models.Airport {
	out := make([]models.Airport, len(w.airports))
	copy(out, w.airports)
	return out
}

// Airport ищет аэропорт по коду
func (w *World) Airport(code string) (models.Airport, bool) {
	idx, ok := w.byCode[code]
	if !ok {
		return models.Airport{}, false
	}
	return w.airports[idx], true
}

// AirportCount количество аэропортов
func (w *World) AirportCount() int {
	return len(w.airports)
}

// FlightPlans возвращает копию графа маршрутов
func (w *World) FlightPlans() []models.FlightPlan {
	out := make([]models.FlightPlan, len(w.plans))
	copy(out, w.plans)
	return out
}

// RadarSites возвращает копию списка площадок радаров
func (w *World) RadarSites() []RadarSite {
	out := make([]RadarSite, len(w.sites))
	copy(out, w.sites)
	return out
}

// PickRoute выбирает маршрут с учетом весов хабов.
// ok == false, если граф пуст.
func (w *World) PickRoute(rng rand.Source) (models.FlightPlan, bool) {
	if len(w.plans) == 0 || w.totalWeight <= 0 {
		return models.FlightPlan{}, false
	}
	target := rng.Float64() * w.totalWeight
	lo, hi := 0, len(w.cumWeights)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if w.cumWeights[mid] > target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return w.plans[lo], true
}

// RandomPair выбирает случайную пару аэропортов.
// Пара может оказаться некорректной (одинаковые коды).
func (w *World) RandomPair(rng rand.Source) models.FlightPlan {
	from := w.airports[rng.Intn(len(w.airports))]
	to := w.airports[rng.Intn(len(w.airports))]
	return models.FlightPlan{From: from.Code, To: to.Code, Weight: 1}
}

// Resolve возвращает аэропорты маршрута. ok == false для неизвестных
// кодов и для маршрутов с совпадающими концами.
func (w *World) Resolve(plan models.FlightPlan) (origin, destination models.Airport, ok bool) {
	origin, okFrom := w.Airport(plan.From)
	destination, okTo := w.Airport(plan.To)
	if !okFrom || !okTo || origin.Code == destination.Code {
		return models.Airport{}, models.Airport{}, false
	}
	return origin, destination, true
}

// FlightNumber генерирует номер рейса вида "LH123"
func FlightNumber(rng rand.Source) string {
	return airlineCodes[rng.Intn(len(airlineCodes))] + strconv.Itoa(100+rng.Intn(900))
}
