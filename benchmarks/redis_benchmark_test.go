package benchmarks

// Redis бенчмарки кэша снимков и гео-индекса радаров
//
// Для запуска требуется Redis сервер:
// docker run -d -p 6379:6379 redis:alpine
//
// Ожидаемые результаты:
// - SaveSnapshot (≈1000 судов): < 5ms
// - IndexRadars (24 радара): < 2ms
// - RadarsNear (500км): < 1ms

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flybeeper/radarsim/internal/config"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/repository"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// setupRedisForBenchmark создает репозиторий на отдельной БД
func setupRedisForBenchmark(b *testing.B) *repository.RedisRepository {
	b.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:       "localhost:6379",
		DB:         15,
		MaxRetries: 1,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		b.Skip("Redis not available:", err)
	}
	client.FlushDB(ctx)
	b.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	cfg := &config.RedisConfig{SnapshotTTL: time.Minute}
	return repository.NewRedisRepositoryWithClient(client, cfg, utils.Discard())
}

// BenchmarkRedisOperations операции кэша
func BenchmarkRedisOperations(b *testing.B) {
	repo := setupRedisForBenchmark(b)
	ctx := context.Background()
	snap := benchSnapshot(b)
	radars := snap.State.Radars

	b.Run("SaveSnapshot", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if err := repo.SaveSnapshot(ctx, snap); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("LoadSnapshot", func(b *testing.B) {
		if err := repo.SaveSnapshot(ctx, snap); err != nil {
			b.Fatal(err)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := repo.LoadSnapshot(ctx); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("IndexRadars", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if err := repo.IndexRadars(ctx, radars); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("RadarsNear", func(b *testing.B) {
		if err := repo.IndexRadars(ctx, radars); err != nil {
			b.Fatal(err)
		}
		center := models.Point{Lat: 50.0, Lng: 8.6}

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := repo.RadarsNear(ctx, center, 500); err != nil {
				b.Fatal(err)
			}
		}
	})
}
