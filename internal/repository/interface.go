package repository

import (
	"context"
	"errors"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/internal/world"
)

// ErrNotFound запись отсутствует или истекла
var ErrNotFound = errors.New("not found")

// SnapshotStore кэш последнего снимка, отчета и гео-индекса радаров
type SnapshotStore interface {
	// Проверка соединения
	Ping(ctx context.Context) error
	Close() error

	// Снимок симуляции
	SaveSnapshot(ctx context.Context, snap *service.Snapshot) error
	LoadSnapshot(ctx context.Context) (*service.Snapshot, error)

	// Отчеты анализа
	SaveReport(ctx context.Context, id string, report *models.SimulationResult) error
	LatestReport(ctx context.Context) (*models.SimulationResult, error)

	// Гео-индекс радаров
	IndexRadars(ctx context.Context, radars []models.Radar) error
	RadarsNear(ctx context.Context, center models.Point, radiusKM float64) ([]RadarHit, error)
}

// RegistryRepository источник реестра мира
type RegistryRepository interface {
	Ping(ctx context.Context) error
	Close() error
	LoadRegistry(ctx context.Context) (world.Registry, error)
}

// RadarHit радар из гео-индекса с расстоянием до точки запроса
type RadarHit struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Position   models.Point `json:"position"`
	RangeNM    float64      `json:"range_nm"`
	IsActive   bool         `json:"is_active"`
	Geohash    string       `json:"geohash"`
	DistanceKM float64      `json:"distance_km"`
}

// Ensure implementations
var _ SnapshotStore = (*RedisRepository)(nil)
var _ service.SnapshotSink = (*RedisRepository)(nil)
var _ RegistryRepository = (*SQLRegistry)(nil)
