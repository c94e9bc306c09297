package benchmarks

// Бенчмарки геометрии и покрытия
//
// Ожидаемые результаты:
// - DistanceNM: < 100 ns/op, 0 allocs/op
// - Classify (24 радара): < 2µs/op
// - RefreshAirports (все аэропорты, 24 радара): < 100µs/op

import (
	"fmt"
	"testing"

	"github.com/flybeeper/radarsim/internal/coverage"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/sim"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/rand"
)

func defaultRadars(b *testing.B) []models.Radar {
	b.Helper()
	e := sim.NewEngine(sim.DefaultConfig(), world.Default(), rand.New(1))
	return e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig())).Radars
}

// BenchmarkDistanceNM расстояние по большому кругу
func BenchmarkDistanceNM(b *testing.B) {
	london := models.Point{Lat: 51.47, Lng: -0.45}
	rome := models.Point{Lat: 41.80, Lng: 12.25}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = models.DistanceNM(london, rome)
	}
}

// BenchmarkGeohash кодирование позиции радара для гео-индекса
func BenchmarkGeohash(b *testing.B) {
	p := models.Point{Lat: 48.35, Lng: 11.78}
	for _, precision := range []int{5, 7, 9} {
		b.Run(fmt.Sprintf("Precision%d", precision), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = p.Geohash(precision)
			}
		})
	}
}

// BenchmarkClassify классификация точки по числу покрывающих радаров
func BenchmarkClassify(b *testing.B) {
	active := coverage.Active(defaultRadars(b))
	points := []models.Point{
		{Lat: 50.0, Lng: 8.6},
		{Lat: 40.0, Lng: -3.7},
		{Lat: 64.0, Lng: -22.0},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = coverage.Classify(points[i%len(points)], active)
	}
}

// BenchmarkRefreshAirports пересчет покрытия всех аэропортов
func BenchmarkRefreshAirports(b *testing.B) {
	active := coverage.Active(defaultRadars(b))
	airports := world.Default().Airports()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		coverage.RefreshAirports(airports, active)
	}
}
