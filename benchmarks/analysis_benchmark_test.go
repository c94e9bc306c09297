package benchmarks

// Бенчмарки пакетного анализа
//
// Ожидаемые результаты:
// - RunBatch (1 сутки, 5000 рейсов): < 1s/op
// - FindRedundant: < 2s/op

import (
	"context"
	"testing"

	"github.com/flybeeper/radarsim/internal/analysis"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/rand"
)

func analysisInput(b *testing.B) analysis.Input {
	b.Helper()
	return analysis.Input{
		World:   world.Default(),
		Radars:  defaultRadars(b),
		Finance: models.DefaultFinancialConfig(),
		Config:  analysis.DefaultConfig(),
	}
}

// BenchmarkRunBatch одни сутки трафика с отказами и обслуживанием
func BenchmarkRunBatch(b *testing.B) {
	in := analysisInput(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := analysis.RunBatch(ctx, in, 1, rand.New(int64(i)), nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFindRedundant поиск радаров с наименьшим единственным покрытием
func BenchmarkFindRedundant(b *testing.B) {
	in := analysisInput(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := analysis.FindRedundant(ctx, in, rand.New(int64(i))); err != nil {
			b.Fatal(err)
		}
	}
}
