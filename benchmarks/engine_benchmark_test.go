package benchmarks

// Бенчмарки движка реального времени
//
// Ожидаемые результаты:
// - Advance (≈1000 судов, шаг 1 мин): < 2ms/op
// - Clone: < 200µs/op

import (
	"testing"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/sim"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/rand"
)

// warmState прогоняет движок до дневного пика трафика
func warmState(b *testing.B) (*sim.Engine, sim.State) {
	b.Helper()
	e := sim.NewEngine(sim.DefaultConfig(), world.Default(), rand.New(42))
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))
	for s.Clock < 15 {
		s, _ = e.Advance(s, 0.25)
	}
	return e, s
}

// BenchmarkAdvance один шаг симуляции при полном трафике
func BenchmarkAdvance(b *testing.B) {
	e, s := warmState(b)
	b.ReportMetric(float64(len(s.Aircraft)), "aircraft")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// шаг всегда от одного состояния, чтобы нагрузка не менялась
		_, _ = e.Advance(s, 1.0/60)
	}
}

// BenchmarkClone глубокая копия состояния для снимка
func BenchmarkClone(b *testing.B) {
	_, s := warmState(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Clone()
	}
}
