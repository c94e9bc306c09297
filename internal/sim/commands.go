package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/flybeeper/radarsim/internal/coverage"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/pkg/rand"
)

var (
	// ErrRadarNotFound радар с таким идентификатором отсутствует
	ErrRadarNotFound = errors.New("radar not found")
	// ErrInsufficientFunds в казне не хватает средств на постройку
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrRadarCapacity достигнут лимит радаров
	ErrRadarCapacity = errors.New("radar capacity reached")
	// ErrInvalidFraction доля вне [0,1]
	ErrInvalidFraction = errors.New("fraction must be within [0,1]")
)

// NewState возвращает пустое состояние с аэропортами из реестра
func (e *Engine) NewState(finance models.FinancialConfig) State {
	s := State{
		Airports: e.world.Airports(),
		Finance:  finance,
		Metrics:  NewLiveMetrics(),
		Funds:    e.cfg.Game.StartingFunds,
	}
	refreshCoverage(&s)
	return s
}

func refreshCoverage(s *State) {
	coverage.RefreshAirports(s.Airports, coverage.Active(s.Radars))
}

func (e *Engine) repairInstant(s State) *float64 {
	if e.cfg.RepairHours <= 0 {
		return nil
	}
	return models.HoursPtr(s.Clock + e.cfg.RepairHours)
}

// LoadDefaultRadars заменяет радары предопределенным набором, сбрасывает
// часы, суда, метрики и казну
func (e *Engine) LoadDefaultRadars(prev State) State {
	s := State{
		Airports: e.world.Airports(),
		Finance:  prev.Finance,
		Metrics:  NewLiveMetrics(),
		Funds:    e.cfg.Game.StartingFunds,
		Seq:      prev.Seq,
	}
	for _, site := range e.world.RadarSites() {
		rangeNM := site.RangeNM
		if rangeNM <= 0 {
			rangeNM = e.cfg.RadarRangeNM
		}
		s.Radars = append(s.Radars, models.Radar{
			ID:       s.nextID("radar"),
			Name:     site.Name,
			Position: site.Position,
			RangeNM:  rangeNM,
			IsActive: true,
		})
	}
	refreshCoverage(&s)
	return s
}

// ToggleRadar переключает радар. Выключение назначает восстановление через
// RepairHours, включение снимает момент восстановления.
func (e *Engine) ToggleRadar(prev State, id string) (State, error) {
	idx, ok := prev.FindRadar(id)
	if !ok {
		return prev, fmt.Errorf("%w: %s", ErrRadarNotFound, id)
	}
	s := prev.Clone()
	r := s.Radars[idx]
	if r.IsActive {
		s.Radars[idx] = r.Deactivate(e.repairInstant(s))
	} else {
		s.Radars[idx] = r.Activate()
	}
	refreshCoverage(&s)
	return s, nil
}

// BulkOutage выключает случайную долю радаров с фиксированной задержкой
// восстановления. Возвращает идентификаторы выключенных.
func (e *Engine) BulkOutage(prev State, fraction float64, rng rand.Source) (State, []string, error) {
	if fraction < 0 || fraction > 1 || math.IsNaN(fraction) {
		return prev, nil, ErrInvalidFraction
	}
	if rng == nil {
		rng = e.rng
	}
	s := prev.Clone()
	count := int(math.Floor(float64(len(s.Radars)) * fraction))
	order := rand.Perm(rng, len(s.Radars))

	ids := make([]string, 0, count)
	until := e.repairInstant(s)
	for _, idx := range order[:count] {
		s.Radars[idx] = s.Radars[idx].Deactivate(until)
		ids = append(ids, s.Radars[idx].ID)
	}
	refreshCoverage(&s)
	return s, ids, nil
}

// NewRadar параметры добавляемого радара
type NewRadar struct {
	Name     string       `json:"name"`
	Position models.Point `json:"position"`
	RangeNM  float64      `json:"range_nm"`
}

// AddRadar добавляет радар. В игровом варианте проверяет лимит и казну;
// при отказе состояние не меняется.
func (e *Engine) AddRadar(prev State, req NewRadar) (State, models.Radar, error) {
	if e.cfg.Game.Enabled {
		if e.cfg.Game.MaxRadars > 0 && len(prev.Radars) >= e.cfg.Game.MaxRadars {
			return prev, models.Radar{}, fmt.Errorf("%w: limit %d", ErrRadarCapacity, e.cfg.Game.MaxRadars)
		}
		if prev.Funds < e.cfg.Game.BuildCost {
			return prev, models.Radar{}, fmt.Errorf("%w: need %.0f, have %.0f", ErrInsufficientFunds, e.cfg.Game.BuildCost, prev.Funds)
		}
	}

	s := prev.Clone()
	if e.cfg.Game.Enabled {
		s.Funds -= e.cfg.Game.BuildCost
	}

	rangeNM := req.RangeNM
	if rangeNM <= 0 {
		rangeNM = e.cfg.RadarRangeNM
	}
	name := req.Name
	if name == "" || radarNameTaken(s, name) {
		name = uniqueRadarName(s, name)
	}

	r := models.Radar{
		ID:       s.nextID("radar"),
		Name:     name,
		Position: req.Position,
		RangeNM:  rangeNM,
		IsActive: true,
	}
	s.Radars = append(s.Radars, r)
	refreshCoverage(&s)
	return s, r, nil
}

func radarNameTaken(s State, name string) bool {
	for _, r := range s.Radars {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Имена радаров являются ключами отчетов, поэтому должны быть уникальны
func uniqueRadarName(s State, base string) string {
	if base == "" {
		base = "Radar"
	}
	for n := len(s.Radars) + 1; ; n++ {
		name := fmt.Sprintf("%s %d", base, n)
		if !radarNameTaken(s, name) {
			return name
		}
	}
}

// RemoveRadar удаляет радар
func (e *Engine) RemoveRadar(prev State, id string) (State, error) {
	idx, ok := prev.FindRadar(id)
	if !ok {
		return prev, fmt.Errorf("%w: %s", ErrRadarNotFound, id)
	}
	s := prev.Clone()
	s.Radars = append(s.Radars[:idx], s.Radars[idx+1:]...)
	refreshCoverage(&s)
	return s, nil
}

// DeactivateRadars выключает радары без момента восстановления.
// Неизвестные идентификаторы пропускаются. Возвращает число выключенных.
func (e *Engine) DeactivateRadars(prev State, ids []string) (State, int) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s := prev.Clone()
	n := 0
	for i, r := range s.Radars {
		if _, ok := set[r.ID]; ok {
			s.Radars[i] = r.Deactivate(nil)
			n++
		}
	}
	refreshCoverage(&s)
	return s, n
}

// SetFinancialConfig заменяет финансовые параметры.
// Накопленные суммы не пересчитываются.
func (e *Engine) SetFinancialConfig(prev State, fc models.FinancialConfig) State {
	s := prev.Clone()
	s.Finance = fc
	return s
}
