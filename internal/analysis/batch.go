package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/brunoga/deep"

	"github.com/flybeeper/radarsim/internal/coverage"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/rand"
)

// maintenanceSlot плановое обслуживание одного радара в конкретный день
type maintenanceSlot struct {
	radar int // индекс в исходном списке, -1 если обслуживания нет
	start float64
}

// activeSet набор радаров, работающих в данный момент, и их индексы в
// исходном списке
type activeSet struct {
	radars []models.Radar
	index  []int
}

type slotKey struct {
	major       bool
	maintenance int
}

// batch состояние одного прогона
type batch struct {
	cfg     Config
	finance models.FinancialConfig
	world   *world.World
	rng     rand.Source
	days    int

	radars   []models.Radar
	inactive []models.Radar

	majorDays   map[int]bool
	majorRadars map[int]bool
	schedule    []maintenanceSlot
	sets        map[slotKey]activeSet

	result        *models.SimulationResult
	cancellations map[string]int
	routes        map[string]float64
	sole          []float64
	counterfact   map[string]float64
	impacts       []models.MaintenanceImpact
}

// RunBatch прогоняет days суток трафика над копией сети с крупными отказами
// и ежедневным обслуживанием. Контекст проверяется на границе каждого дня.
func RunBatch(ctx context.Context, in Input, days int, rng rand.Source, progress ProgressFunc) (*models.SimulationResult, error) {
	if in.World == nil {
		return nil, ErrNoWorld
	}
	if days <= 0 || (in.Config.MaxDays > 0 && days > in.Config.MaxDays) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}
	if rng == nil {
		rng = rand.NewTimeSeeded()
	}

	b := newBatch(in, days, rng)
	b.scheduleMajorOutages()
	b.scheduleMaintenance()

	lastPercent := 0
	for day := 0; day < days; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := 0; i < b.cfg.FlightsPerDay; i++ {
			b.flight(day)
		}
		if progress != nil {
			percent := int(math.Round(float64(day+1) / float64(days) * 100))
			if percent > lastPercent {
				lastPercent = percent
				progress(percent)
			}
		}
	}

	return b.finish(), nil
}

func newBatch(in Input, days int, rng rand.Source) *batch {
	radars := deep.MustCopy(in.Radars)
	b := &batch{
		cfg:           in.Config,
		finance:       in.Finance,
		world:         in.World,
		rng:           rng,
		days:          days,
		radars:        radars,
		majorDays:     make(map[int]bool),
		majorRadars:   make(map[int]bool),
		schedule:      make([]maintenanceSlot, days),
		sets:          make(map[slotKey]activeSet),
		result:        models.NewSimulationResult(),
		cancellations: make(map[string]int),
		routes:        make(map[string]float64),
		sole:          make([]float64, len(radars)),
		counterfact:   make(map[string]float64),
		impacts:       make([]models.MaintenanceImpact, len(radars)),
	}
	if b.cfg.AircraftSpeedKnots <= 0 {
		b.cfg.AircraftSpeedKnots = models.DefaultAircraftSpeedKnots
	}

	prorated := in.Finance.RadarCostPerDay() * float64(days)
	activeAtStart := 0
	for i, r := range radars {
		b.impacts[i] = models.MaintenanceImpact{RadarName: r.Name}
		if r.IsActive {
			activeAtStart++
			continue
		}
		b.inactive = append(b.inactive, r)
		b.counterfact[r.Name] = -prorated
	}
	for d := range b.schedule {
		b.schedule[d].radar = -1
	}

	b.result.TotalDays = float64(days)
	b.result.TotalOperationalCost = float64(activeAtStart) * prorated
	return b
}

// scheduleMajorOutages выбирает различные дни крупных отказов и
// перемешанную долю радаров, которые выключаются в эти дни
func (b *batch) scheduleMajorOutages() {
	n := b.cfg.MajorOutageDays
	if n > b.days {
		n = b.days
	}
	if n <= 0 {
		return
	}
	for _, d := range rand.Perm(b.rng, b.days)[:n] {
		b.majorDays[d] = true
	}

	count := int(math.Floor(float64(len(b.radars)) * b.cfg.MajorOutageFraction))
	window := b.cfg.MajorOutageEndHour - b.cfg.MajorOutageStartHour
	for _, idx := range rand.Perm(b.rng, len(b.radars))[:count] {
		b.majorRadars[idx] = true
		b.impacts[idx].Outages += n
		b.impacts[idx].DowntimeHours += float64(n) * window
	}
}

// scheduleMaintenance назначает на каждый день один изначально активный
// радар. При малом числе активных радаров обслуживание не проводится.
func (b *batch) scheduleMaintenance() {
	var candidates []int
	for i, r := range b.radars {
		if r.IsActive {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 || len(candidates) < b.cfg.MaintenanceMinActive {
		return
	}
	startMax := b.cfg.MaintenanceStartHourMax
	if startMax <= 0 {
		startMax = 1
	}
	for d := 0; d < b.days; d++ {
		idx := candidates[b.rng.Intn(len(candidates))]
		b.schedule[d] = maintenanceSlot{radar: idx, start: float64(b.rng.Intn(startMax))}
		b.impacts[idx].Outages++
		b.impacts[idx].DowntimeHours += b.cfg.MaintenanceHours
	}
}

// activeAt возвращает набор работающих радаров в заданный день и час
func (b *batch) activeAt(day int, hour float64) activeSet {
	key := slotKey{maintenance: -1}
	if b.majorDays[day] && hour >= b.cfg.MajorOutageStartHour && hour < b.cfg.MajorOutageEndHour {
		key.major = true
	}
	if day < len(b.schedule) {
		slot := b.schedule[day]
		if slot.radar >= 0 && hour >= slot.start && hour < slot.start+b.cfg.MaintenanceHours {
			key.maintenance = slot.radar
		}
	}

	if set, ok := b.sets[key]; ok {
		return set
	}
	var set activeSet
	for i, r := range b.radars {
		if !r.IsActive || i == key.maintenance || (key.major && b.majorRadars[i]) {
			continue
		}
		set.radars = append(set.radars, r)
		set.index = append(set.index, i)
	}
	b.sets[key] = set
	return set
}

func (b *batch) pickPlan() (models.FlightPlan, bool) {
	if b.rng.Float64() < b.cfg.PredictableShare {
		if plan, ok := b.world.PickRoute(b.rng); ok {
			return plan, true
		}
	}
	if b.world.AirportCount() == 0 {
		return models.FlightPlan{}, false
	}
	return b.world.RandomPair(b.rng), true
}

// creditInactive делит value поровну между выключенными радарами,
// которые покрыли бы точку
func (b *batch) creditInactive(p models.Point, value float64) {
	n := coverage.Count(p, b.inactive)
	if n == 0 {
		return
	}
	share := value / float64(n)
	for _, r := range b.inactive {
		if r.Covers(p) {
			b.counterfact[r.Name] += share
		}
	}
}

// flight моделирует один рейс: проверку вылета и поминутный проход маршрута
func (b *batch) flight(day int) {
	plan, ok := b.pickPlan()
	if !ok {
		return
	}
	origin, destination, ok := b.world.Resolve(plan)
	if !ok {
		return
	}
	b.result.TotalFlights++

	departure := b.rng.Float64() * 24
	if !coverage.IsCovered(origin.Position, b.activeAt(day, departure).radars) {
		b.result.CancelledFlights++
		b.result.TotalCancellationCost += b.finance.CancellationCost
		b.cancellations[origin.Code]++
		b.creditInactive(origin.Position, b.finance.CancellationCost)
		return
	}

	b.result.TotalRevenue += b.finance.FlightRevenue

	distance := models.DistanceNM(origin.Position, destination.Position)
	steps := int(math.Ceil(distance / b.cfg.AircraftSpeedKnots * 60))
	lost := 0
	for t := 0; t < steps; t++ {
		hour := departure + float64(t)/60
		currentDay := day + int(math.Floor(hour/24))
		pos := models.LerpPoint(origin.Position, destination.Position, float64(t)/float64(steps))

		set := b.activeAt(currentDay, math.Mod(hour, 24))
		class, sole := coverage.Classify(pos, set.radars)
		switch class {
		case coverage.Uncovered:
			lost++
			b.creditInactive(pos, b.finance.LostTrackingCostPerMinute)
		case coverage.Sole:
			b.sole[set.index[sole]]++
		}
	}

	if lost > 0 {
		minutes := float64(lost)
		b.result.TotalFlightsWithLostTracking++
		b.result.LostFlightMinutes += minutes
		b.result.TotalLostTrackingCost += minutes * b.finance.LostTrackingCostPerMinute
		b.routes[models.RouteKey(origin.Code, destination.Code)] += minutes
	}
}

func (b *batch) finish() *models.SimulationResult {
	r := b.result
	r.CancellationSources = models.CancellationRows(b.cancellations)
	r.ProblematicRoutes = models.ProblematicRouteRows(b.routes)

	r.MaintenanceImpact = b.impacts
	sort.SliceStable(r.MaintenanceImpact, func(i, j int) bool {
		return r.MaintenanceImpact[i].DowntimeHours > r.MaintenanceImpact[j].DowntimeHours
	})

	// минуты единственного покрытия суммируются по имени радара
	byName := make(map[string]float64, len(b.radars))
	order := make([]string, 0, len(b.radars))
	for i, radar := range b.radars {
		if _, seen := byName[radar.Name]; !seen {
			order = append(order, radar.Name)
		}
		byName[radar.Name] += b.sole[i]
	}
	for _, name := range order {
		r.RedundancyAnalysis = append(r.RedundancyAnalysis, models.RedundancyEntry{RadarName: name, SoleCoverageMinutes: byName[name]})
	}
	sort.SliceStable(r.RedundancyAnalysis, func(i, j int) bool {
		return r.RedundancyAnalysis[i].SoleCoverageMinutes > r.RedundancyAnalysis[j].SoleCoverageMinutes
	})

	for _, radar := range b.inactive {
		if _, ok := b.counterfact[radar.Name]; !ok {
			continue
		}
		r.InactiveRadarAnalysis = append(r.InactiveRadarAnalysis, models.InactiveRadarValue{
			RadarName:          radar.Name,
			PotentialPnlChange: b.counterfact[radar.Name],
		})
		delete(b.counterfact, radar.Name)
	}
	sort.SliceStable(r.InactiveRadarAnalysis, func(i, j int) bool {
		return r.InactiveRadarAnalysis[i].PotentialPnlChange > r.InactiveRadarAnalysis[j].PotentialPnlChange
	})

	r.Finalize()
	return r
}
