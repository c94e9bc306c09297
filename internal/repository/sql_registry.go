package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/flybeeper/radarsim/internal/config"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// SQLRegistry загружает реестр аэропортов, маршрутов и площадок радаров
// из MySQL или PostgreSQL.
//
// Ожидаемые таблицы:
//
//	airports(code, name, latitude, longitude, hub_tier)
//	routes(origin, destination, enabled)
//	radar_sites(name, latitude, longitude, range_nm)
type SQLRegistry struct {
	db     *sql.DB
	driver string
	logger *utils.Logger
	config *config.WorldConfig
}

// NewSQLRegistry открывает пул соединений к базе реестра
func NewSQLRegistry(cfg *config.WorldConfig, logger *utils.Logger) (*SQLRegistry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("world config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("world DSN is required")
	}
	driver := cfg.DBDriver
	if driver == "" {
		driver = "mysql"
	}
	if driver != "mysql" && driver != "postgres" {
		return nil, fmt.Errorf("unsupported world driver %q", driver)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	// Настройки connection pool
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	return &SQLRegistry{
		db:     db,
		driver: driver,
		logger: logger,
		config: cfg,
	}, nil
}

// Ping проверяет соединение с базой
func (r *SQLRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает пул соединений
func (r *SQLRegistry) Close() error {
	return r.db.Close()
}

// LoadRegistry читает реестр целиком
func (r *SQLRegistry) LoadRegistry(ctx context.Context) (world.Registry, error) {
	if r.config != nil && r.config.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.LoadTimeout)
		defer cancel()
	}

	reg := world.Registry{HubTiers: make(map[string]float64)}

	airports, err := r.loadAirports(ctx, reg.HubTiers)
	if err != nil {
		return world.Registry{}, err
	}
	reg.Airports = airports

	if reg.Routes, err = r.loadRoutes(ctx); err != nil {
		return world.Registry{}, err
	}
	if reg.RadarSites, err = r.loadRadarSites(ctx); err != nil {
		return world.Registry{}, err
	}

	r.logger.WithFields(map[string]interface{}{
		"driver":      r.driver,
		"airports":    len(reg.Airports),
		"routes":      len(reg.Routes),
		"radar_sites": len(reg.RadarSites),
	}).Info("Loaded world registry from database")

	return reg, nil
}

func (r *SQLRegistry) loadAirports(ctx context.Context, tiers map[string]float64) ([]models.Airport, error) {
	query := `
		SELECT code, name, latitude, longitude, COALESCE(hub_tier, 1)
		FROM airports
		ORDER BY code`

	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query))
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	var airports []models.Airport
	for rows.Next() {
		var (
			a    models.Airport
			tier float64
		)
		if err := rows.Scan(&a.Code, &a.Name, &a.Position.Lat, &a.Position.Lng, &tier); err != nil {
			r.logger.WithField("error", err).Warn("Failed to scan airport row")
			continue
		}
		if err := a.Position.Validate(); err != nil {
			r.logger.WithField("code", a.Code).WithError(err).Warn("Skipping airport with invalid position")
			continue
		}
		airports = append(airports, a)
		tiers[a.Code] = tier
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating airports: %w", err)
	}
	return airports, nil
}

func (r *SQLRegistry) loadRoutes(ctx context.Context) ([]world.Route, error) {
	query := `
		SELECT origin, destination
		FROM routes
		WHERE enabled = ?
		ORDER BY origin, destination`

	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query), true)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []world.Route
	for rows.Next() {
		var route world.Route
		if err := rows.Scan(&route.From, &route.To); err != nil {
			r.logger.WithField("error", err).Warn("Failed to scan route row")
			continue
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating routes: %w", err)
	}
	return routes, nil
}

func (r *SQLRegistry) loadRadarSites(ctx context.Context) ([]world.RadarSite, error) {
	query := `
		SELECT name, latitude, longitude, COALESCE(range_nm, 0)
		FROM radar_sites
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query))
	if err != nil {
		return nil, fmt.Errorf("failed to query radar sites: %w", err)
	}
	defer rows.Close()

	var sites []world.RadarSite
	for rows.Next() {
		var site world.RadarSite
		if err := rows.Scan(&site.Name, &site.Position.Lat, &site.Position.Lng, &site.RangeNM); err != nil {
			r.logger.WithField("error", err).Warn("Failed to scan radar site row")
			continue
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating radar sites: %w", err)
	}
	return sites, nil
}

// rebind переводит плейсхолдеры ? в $N для postgres
func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
