// Package coverage answers "which radars see this point" against a set of
// active radars. Linear scan; the modeled scale is tens of radars.
package coverage

import "github.com/flybeeper/radarsim/internal/models"

// Class классификация покрытия точки
type Class int

const (
	Uncovered Class = iota
	Sole
	Redundant
)

func (c Class) String() string {
	switch c {
	case Uncovered:
		return "uncovered"
	case Sole:
		return "sole"
	case Redundant:
		return "redundant"
	default:
		return "unknown"
	}
}

// Active фильтрует список радаров, оставляя включенные
func Active(radars []models.Radar) []models.Radar {
	out := make([]models.Radar, 0, len(radars))
	for _, r := range radars {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

// Covering возвращает все радары из active, покрывающие точку
func Covering(p models.Point, active []models.Radar) []models.Radar {
	var out []models.Radar
	for _, r := range active {
		if r.Covers(p) {
			out = append(out, r)
		}
	}
	return out
}

// Count количество радаров, покрывающих точку
func Count(p models.Point, active []models.Radar) int {
	n := 0
	for i := range active {
		if active[i].Covers(p) {
			n++
		}
	}
	return n
}

// IsCovered проверяет, покрыта ли точка хотя бы одним радаром
func IsCovered(p models.Point, active []models.Radar) bool {
	for i := range active {
		if active[i].Covers(p) {
			return true
		}
	}
	return false
}

// Classify классифицирует покрытие точки. Для Sole возвращает индекс
// единственного радара в active, иначе -1.
func Classify(p models.Point, active []models.Radar) (Class, int) {
	sole := -1
	for i := range active {
		if !active[i].Covers(p) {
			continue
		}
		if sole >= 0 {
			return Redundant, -1
		}
		sole = i
	}
	if sole < 0 {
		return Uncovered, -1
	}
	return Sole, sole
}

// RefreshAirports пересчитывает флаг IsCovered в переданном срезе
func RefreshAirports(airports []models.Airport, active []models.Radar) {
	for i := range airports {
		airports[i].IsCovered = IsCovered(airports[i].Position, active)
	}
}
