package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/brunoga/deep"

	"github.com/flybeeper/radarsim/internal/coverage"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/pkg/rand"
)

// RadarSoleCoverage минуты, когда радар был единственным источником покрытия
type RadarSoleCoverage struct {
	RadarID             string  `json:"radar_id"`
	RadarName           string  `json:"radar_name"`
	SoleCoverageMinutes float64 `json:"sole_coverage_minutes"`
}

// RedundancyResult кандидаты на отключение и полный рейтинг по возрастанию
// минут единственного покрытия
type RedundancyResult struct {
	Suggested []string            `json:"suggested_radar_ids"`
	Ranking   []RadarSoleCoverage `json:"ranking"`
}

// FindRedundant прогоняет короткую симуляцию без отказов над включенными
// радарами и предлагает долю RedundancyShare наименее нужных.
func FindRedundant(ctx context.Context, in Input, rng rand.Source) (*RedundancyResult, error) {
	if in.World == nil {
		return nil, ErrNoWorld
	}
	res := &RedundancyResult{Suggested: []string{}, Ranking: []RadarSoleCoverage{}}

	active := coverage.Active(deep.MustCopy(in.Radars))
	if len(active) == 0 {
		return res, nil
	}
	if rng == nil {
		rng = rand.NewTimeSeeded()
	}
	speed := in.Config.AircraftSpeedKnots
	if speed <= 0 {
		speed = models.DefaultAircraftSpeedKnots
	}

	minutes := make([]float64, len(active))
	for day := 0; day < in.Config.RedundancyDays; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := 0; i < in.Config.RedundancyFlightsPerDay; i++ {
			plan, ok := in.World.PickRoute(rng)
			if !ok {
				break
			}
			origin, destination, ok := in.World.Resolve(plan)
			if !ok || !coverage.IsCovered(origin.Position, active) {
				continue
			}

			steps := int(math.Ceil(models.DistanceNM(origin.Position, destination.Position) / speed * 60))
			for t := 0; t < steps; t++ {
				pos := models.LerpPoint(origin.Position, destination.Position, float64(t)/float64(steps))
				if class, sole := coverage.Classify(pos, active); class == coverage.Sole {
					minutes[sole]++
				}
			}
		}
	}

	for i, r := range active {
		res.Ranking = append(res.Ranking, RadarSoleCoverage{
			RadarID:             r.ID,
			RadarName:           r.Name,
			SoleCoverageMinutes: minutes[i],
		})
	}
	sort.SliceStable(res.Ranking, func(i, j int) bool {
		return res.Ranking[i].SoleCoverageMinutes < res.Ranking[j].SoleCoverageMinutes
	})

	count := int(math.Ceil(float64(len(active)) * in.Config.RedundancyShare))
	if count > len(res.Ranking) {
		count = len(res.Ranking)
	}
	for _, row := range res.Ranking[:count] {
		res.Suggested = append(res.Suggested, row.RadarID)
	}
	return res, nil
}
