// Package sim implements the real-time tick engine: the per-step advancement
// of radars, aircraft, spawning and economic accrual, plus the commands that
// mutate a simulation state.
package sim

import (
	"math"

	"github.com/flybeeper/radarsim/internal/coverage"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/rand"
)

// TickReport итоги одного шага
type TickReport struct {
	Dt               float64  `json:"dt_hours"`
	Reactivated      []string `json:"reactivated,omitempty"`
	Failed           []string `json:"failed,omitempty"`
	Arrivals         int      `json:"arrivals"`
	SpawnAttempts    int      `json:"spawn_attempts"`
	Spawns           int      `json:"spawns"`
	Cancellations    int      `json:"cancellations"`
	Revenue          float64  `json:"revenue"`
	OperationalCost  float64  `json:"operational_cost"`
	CancellationCost float64  `json:"cancellation_cost"`
	LostTrackingCost float64  `json:"lost_tracking_cost"`
	InFlightBefore   int      `json:"in_flight_before"`
	InFlightAfter    int      `json:"in_flight_after"`
	CoverageChanged  bool     `json:"coverage_changed"`
}

// Engine движок реального времени. Не потокобезопасен: принадлежит
// одной горутине-владельцу состояния.
type Engine struct {
	cfg   Config
	world *world.World
	rng   rand.Source
}

// NewEngine создает движок
func NewEngine(cfg Config, w *world.World, rng rand.Source) *Engine {
	return &Engine{cfg: cfg, world: w, rng: rng}
}

// Config возвращает параметры движка
func (e *Engine) Config() Config {
	return e.cfg
}

// World возвращает граф маршрутов
func (e *Engine) World() *world.World {
	return e.world
}

// TargetFleetSize целевое число судов в воздухе на момент clock (часы)
func (e *Engine) TargetFleetSize(clock float64) float64 {
	switch e.cfg.FleetMode {
	case FleetRamp:
		if e.cfg.RampHours <= 0 || clock >= e.cfg.RampHours {
			return e.cfg.BaseFleet
		}
		return e.cfg.BaseFleet * clock / e.cfg.RampHours
	default:
		wave := math.Sin(clock*math.Pi/12 - 3*math.Pi/4)
		return e.cfg.BaseFleet + math.Max(0, wave)*e.cfg.PeakFleet
	}
}

// Advance продвигает симуляцию на dt часов и возвращает новое состояние.
// Исходное состояние не изменяется.
//
// Порядок шагов: часы, переходы радаров, покрытие аэропортов, движение
// судов, порождение рейсов, начисления.
func (e *Engine) Advance(prev State, dt float64) (State, TickReport) {
	s := prev.Clone()
	rep := TickReport{
		Dt:             dt,
		InFlightBefore: len(s.Aircraft),
	}
	if dt <= 0 {
		rep.InFlightAfter = len(s.Aircraft)
		return s, rep
	}

	s.Clock += dt

	e.transitionRadars(&s, dt, &rep)

	active := coverage.Active(s.Radars)
	coverage.RefreshAirports(s.Airports, active)

	e.advanceAircraft(&s, dt, active, &rep)
	e.spawnFlights(&s, active, &rep)
	e.accrue(&s, dt, active, &rep)

	rep.InFlightAfter = len(s.Aircraft)
	return s, rep
}

func (e *Engine) transitionRadars(s *State, dt float64, rep *TickReport) {
	for i, r := range s.Radars {
		if !r.IsActive && r.ReactivationTime != nil && s.Clock >= *r.ReactivationTime {
			s.Radars[i] = r.Activate()
			rep.Reactivated = append(rep.Reactivated, r.ID)
		}
	}

	if e.cfg.FailureRatePerHour <= 0 {
		rep.CoverageChanged = len(rep.Reactivated) > 0
		return
	}

	p := e.cfg.FailureRatePerHour * dt
	for i, r := range s.Radars {
		if !r.IsActive || e.rng.Float64() >= p {
			continue
		}
		repair := rand.Uniform(e.rng, e.cfg.RepairMinHours, e.cfg.RepairMaxHours)
		s.Radars[i] = r.Deactivate(models.HoursPtr(s.Clock + repair))
		rep.Failed = append(rep.Failed, r.ID)
	}
	rep.CoverageChanged = len(rep.Reactivated) > 0 || len(rep.Failed) > 0
}

func (e *Engine) advanceAircraft(s *State, dt float64, active []models.Radar, rep *TickReport) {
	kept := s.Aircraft[:0]
	for _, ac := range s.Aircraft {
		if ac.TotalDistance <= 0 || ac.Speed <= 0 {
			kept = append(kept, ac)
			continue
		}
		origin, destination, ok := e.world.Resolve(models.FlightPlan{From: ac.Origin, To: ac.Destination})
		if !ok {
			kept = append(kept, ac)
			continue
		}

		prevProgress := ac.Progress
		wasTracked := ac.IsTracked()
		ac.Progress += dt * ac.Speed / ac.TotalDistance

		if e.cfg.RevenueMode == RevenueProrated && wasTracked {
			rev := s.Finance.FlightRevenue * (math.Min(ac.Progress, 1) - prevProgress)
			s.Metrics.Revenue += rev
			rep.Revenue += rev
		}

		if ac.Progress >= 1 {
			rep.Arrivals++
			s.Metrics.Arrivals++
			if e.cfg.RevenueMode != RevenueProrated {
				s.Metrics.Revenue += s.Finance.FlightRevenue
				rep.Revenue += s.Finance.FlightRevenue
			}
			continue
		}

		pos := models.LerpPoint(origin.Position, destination.Position, ac.Progress)
		if pos != ac.Position {
			ac.Heading = models.Bearing(ac.Position, pos)
		}
		ac.Position = pos
		if coverage.IsCovered(pos, active) {
			ac.Visibility = models.VisibilityTracked
		} else {
			ac.Visibility = models.VisibilityLost
		}
		kept = append(kept, ac)
	}
	// обнуляем хвост, чтобы не держать ссылки
	clear(s.Aircraft[len(kept):])
	s.Aircraft = kept
}

func (e *Engine) pickPlan() models.FlightPlan {
	if e.cfg.RandomRouteShare > 0 && e.rng.Float64() < e.cfg.RandomRouteShare {
		return e.world.RandomPair(e.rng)
	}
	if plan, ok := e.world.PickRoute(e.rng); ok {
		return plan
	}
	return e.world.RandomPair(e.rng)
}

func (e *Engine) spawnFlights(s *State, active []models.Radar, rep *TickReport) {
	target := e.TargetFleetSize(s.Clock)

	for float64(len(s.Aircraft)) < target && rep.SpawnAttempts < e.cfg.MaxSpawnAttemptsPerTick {
		if e.rng.Float64() >= e.cfg.SpawnContinueProbability {
			break
		}
		rep.SpawnAttempts++

		origin, destination, ok := e.world.Resolve(e.pickPlan())
		if !ok {
			continue
		}
		distance := models.DistanceNM(origin.Position, destination.Position)
		if distance <= 0 {
			continue
		}

		s.Metrics.TotalSpawnedFlights++

		if !coverage.IsCovered(origin.Position, active) {
			rep.Cancellations++
			rep.CancellationCost += s.Finance.CancellationCost
			s.Metrics.CancelledFlights++
			s.Metrics.CancellationCost += s.Finance.CancellationCost
			s.Metrics.CancellationSources[origin.Code]++
			continue
		}

		s.Aircraft = append(s.Aircraft, models.Aircraft{
			ID:            s.nextID("ac"),
			FlightNumber:  world.FlightNumber(e.rng),
			Origin:        origin.Code,
			Destination:   destination.Code,
			Position:      origin.Position,
			Altitude:      e.cfg.CruiseAltitudeFeet,
			Speed:         e.cfg.AircraftSpeedKnots,
			Heading:       models.Bearing(origin.Position, destination.Position),
			Visibility:    models.VisibilityTracked,
			TotalDistance: distance,
			StartTime:     s.Clock,
		})
		rep.Spawns++
	}
}

// RadarCostPerHour стоимость часа работы одного активного радара с учетом
// надбавки за превышение бесплатного лимита
func (e *Engine) RadarCostPerHour(s State) float64 {
	cost := s.Finance.RadarCostPerHour()
	total := len(s.Radars)
	free := e.cfg.Game.FreeRadarCount
	if e.cfg.Game.SurchargePerRadarHour > 0 && total > free {
		cost += float64(total-free) * e.cfg.Game.SurchargePerRadarHour / float64(total)
	}
	return cost
}

func (e *Engine) accrue(s *State, dt float64, active []models.Radar, rep *TickReport) {
	minutes := dt * 60

	for i := range s.Aircraft {
		ac := &s.Aircraft[i]
		if ac.Visibility != models.VisibilityLost {
			continue
		}
		cost := minutes * s.Finance.LostTrackingCostPerMinute
		s.Metrics.LostFlightMinutes += minutes
		s.Metrics.LostTrackingCost += cost
		s.Metrics.ProblematicRoutes[ac.RouteKey()] += minutes
		rep.LostTrackingCost += cost
		if !ac.EverLost {
			ac.EverLost = true
			s.Metrics.FlightsWithLostTracking++
		}
	}

	op := float64(len(active)) * e.RadarCostPerHour(*s) * dt
	s.Metrics.OperationalCost += op
	rep.OperationalCost = op

	for _, ap := range s.Airports {
		if !ap.IsCovered {
			s.Metrics.AirportDowntime[ap.Code] += minutes
		}
	}
}
