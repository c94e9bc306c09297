package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/flybeeper/radarsim/internal/config"
	"github.com/flybeeper/radarsim/internal/metrics"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/pkg/utils"
)

const (
	// Ключи
	SnapshotKey      = "radarsim:snapshot"       // последний снимок (msgpack)
	LatestReportKey  = "radarsim:report:latest"  // последний отчет анализа (JSON)
	ReportPrefix     = "radarsim:report:"        // radarsim:report:{job_id}
	RadarsGeoKey     = "radarsim:radars:geo"     // GEO индекс радаров
	RadarPrefix      = "radarsim:radar:"         // radarsim:radar:{id}
	RadarsIndexedKey = "radarsim:radars:indexed" // SET идентификаторов в индексе

	// ReportTTL время жизни отчетов по идентификатору задачи
	ReportTTL = 24 * time.Hour

	// GeohashPrecision точность geohash в хешах радаров
	GeohashPrecision = 7

	// Redis GEO не принимает широты за пределами проекции Меркатора
	maxGeoLatitude = 85.05112878
)

// RedisRepository кэш снимков симуляции, отчетов и гео-индекс радаров
type RedisRepository struct {
	client *redis.Client
	logger *utils.Logger
	config *config.RedisConfig
}

// NewRedisRepository создает новый Redis репозиторий
func NewRedisRepository(cfg *config.RedisConfig, logger *utils.Logger) (*RedisRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	opt.MinIdleConns = cfg.MinIdleConns
	opt.ConnMaxIdleTime = 30 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	return NewRedisRepositoryWithClient(redis.NewClient(opt), cfg, logger), nil
}

// NewRedisRepositoryWithClient оборачивает готовый клиент
func NewRedisRepositoryWithClient(client *redis.Client, cfg *config.RedisConfig, logger *utils.Logger) *RedisRepository {
	if logger == nil {
		logger = utils.DefaultLogger()
	}
	return &RedisRepository{client: client, logger: logger, config: cfg}
}

// Ping проверяет соединение с Redis
func (r *RedisRepository) Ping(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	if err != nil {
		metrics.RedisConnectionStatus.Set(0)
		return fmt.Errorf("redis ping failed: %w", err)
	}
	metrics.RedisConnectionStatus.Set(1)
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// GetClient возвращает Redis клиент
func (r *RedisRepository) GetClient() *redis.Client {
	return r.client
}

func (r *RedisRepository) observe(op string, start time.Time, err error) {
	metrics.RedisOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RedisOperationErrors.WithLabelValues(op).Inc()
	}
}

func (r *RedisRepository) snapshotTTL() time.Duration {
	if r.config == nil {
		return 0
	}
	return r.config.SnapshotTTL
}

// EncodeSnapshot сериализует снимок в msgpack по json-тегам
func EncodeSnapshot(snap *service.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot обратная операция к EncodeSnapshot
func DecodeSnapshot(data []byte) (*service.Snapshot, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var snap service.Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveSnapshot сохраняет последний снимок с TTL
func (r *RedisRepository) SaveSnapshot(ctx context.Context, snap *service.Snapshot) (err error) {
	start := time.Now()
	defer func() { r.observe("save_snapshot", start, err) }()

	data, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err = r.client.Set(ctx, SnapshotKey, data, r.snapshotTTL()).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	r.logger.WithField("version", snap.Version).WithField("bytes", len(data)).Debug("Saved snapshot to Redis")
	return nil
}

// LoadSnapshot читает последний снимок
func (r *RedisRepository) LoadSnapshot(ctx context.Context) (snap *service.Snapshot, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			r.observe("load_snapshot", start, nil)
			return
		}
		r.observe("load_snapshot", start, err)
	}()

	data, err := r.client.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap, err = DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// SaveReport сохраняет отчет анализа по идентификатору и как последний
func (r *RedisRepository) SaveReport(ctx context.Context, id string, report *models.SimulationResult) (err error) {
	start := time.Now()
	defer func() { r.observe("save_report", start, err) }()

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, ReportPrefix+id, data, ReportTTL)
	pipe.Set(ctx, LatestReportKey, data, 0)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	r.logger.WithField("job_id", id).Info("Saved analysis report to Redis")
	return nil
}

// LatestReport последний сохраненный отчет
func (r *RedisRepository) LatestReport(ctx context.Context) (*models.SimulationResult, error) {
	return r.loadReport(ctx, LatestReportKey)
}

// Report отчет по идентификатору задачи
func (r *RedisRepository) Report(ctx context.Context, id string) (*models.SimulationResult, error) {
	return r.loadReport(ctx, ReportPrefix+id)
}

func (r *RedisRepository) loadReport(ctx context.Context, key string) (*models.SimulationResult, error) {
	start := time.Now()
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.observe("load_report", start, nil)
		return nil, ErrNotFound
	}
	r.observe("load_report", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var report models.SimulationResult
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

func clampGeoLatitude(lat float64) float64 {
	if lat > maxGeoLatitude {
		return maxGeoLatitude
	}
	if lat < -maxGeoLatitude {
		return -maxGeoLatitude
	}
	return lat
}

// IndexRadars заменяет гео-индекс радаров текущим набором
func (r *RedisRepository) IndexRadars(ctx context.Context, radars []models.Radar) (err error) {
	start := time.Now()
	defer func() { r.observe("index_radars", start, err) }()

	stale, err := r.client.SMembers(ctx, RadarsIndexedKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read radar index: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, RadarsGeoKey, RadarsIndexedKey)
	for _, id := range stale {
		pipe.Del(ctx, RadarPrefix+id)
	}

	if len(radars) > 0 {
		locations := make([]*redis.GeoLocation, 0, len(radars))
		ids := make([]interface{}, 0, len(radars))
		for _, radar := range radars {
			locations = append(locations, &redis.GeoLocation{
				Name:      radar.ID,
				Longitude: radar.Position.Lng,
				Latitude:  clampGeoLatitude(radar.Position.Lat),
			})
			ids = append(ids, radar.ID)

			pipe.HSet(ctx, RadarPrefix+radar.ID, map[string]interface{}{
				"name":      radar.Name,
				"lat":       radar.Position.Lat,
				"lng":       radar.Position.Lng,
				"range_nm":  radar.RangeNM,
				"is_active": radar.IsActive,
				"geohash":   radar.Position.Geohash(GeohashPrecision),
			})
		}
		pipe.GeoAdd(ctx, RadarsGeoKey, locations...)
		pipe.SAdd(ctx, RadarsIndexedKey, ids...)
	}

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index radars: %w", err)
	}

	r.logger.WithField("radars", len(radars)).Debug("Indexed radars in Redis")
	return nil
}

// RadarsNear радары в радиусе radiusKM от точки, ближние первыми
func (r *RedisRepository) RadarsNear(ctx context.Context, center models.Point, radiusKM float64) (hits []RadarHit, err error) {
	start := time.Now()
	defer func() { r.observe("radars_near", start, err) }()

	locations, err := r.client.GeoSearchLocation(ctx, RadarsGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   clampGeoLatitude(center.Lat),
			Radius:     radiusKM,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search radars: %w", err)
	}
	if len(locations) == 0 {
		return []RadarHit{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(locations))
	for i, loc := range locations {
		cmds[i] = pipe.HGetAll(ctx, RadarPrefix+loc.Name)
	}
	if _, err = pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load radars: %w", err)
	}
	err = nil

	hits = make([]RadarHit, 0, len(locations))
	for i, loc := range locations {
		data, cmdErr := cmds[i].Result()
		if cmdErr != nil || len(data) == 0 {
			r.logger.WithField("radar_id", loc.Name).Warn("Radar hash missing for indexed radar")
			continue
		}
		hit, parseErr := parseRadarHash(loc.Name, data)
		if parseErr != nil {
			r.logger.WithField("radar_id", loc.Name).WithError(parseErr).Warn("Failed to parse radar hash")
			continue
		}
		hit.DistanceKM = loc.Dist
		hits = append(hits, hit)
	}
	return hits, nil
}

func parseRadarHash(id string, data map[string]string) (RadarHit, error) {
	hit := RadarHit{ID: id, Name: data["name"], Geohash: data["geohash"]}

	var err error
	if hit.Position.Lat, err = strconv.ParseFloat(data["lat"], 64); err != nil {
		return hit, fmt.Errorf("lat: %w", err)
	}
	if hit.Position.Lng, err = strconv.ParseFloat(data["lng"], 64); err != nil {
		return hit, fmt.Errorf("lng: %w", err)
	}
	if hit.RangeNM, err = strconv.ParseFloat(data["range_nm"], 64); err != nil {
		return hit, fmt.Errorf("range_nm: %w", err)
	}
	// go-redis пишет bool как "1"/"0"
	if hit.IsActive, err = strconv.ParseBool(data["is_active"]); err != nil {
		return hit, fmt.Errorf("is_active: %w", err)
	}
	return hit, nil
}
