package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment string
	Server      ServerConfig
	Redis       RedisConfig
	MQTT        MQTTConfig
	World       WorldConfig
	Auth        AuthConfig
	Simulation  SimulationConfig
	Analysis    AnalysisConfig
	Finance     FinanceConfig
	Game        GameConfig
	Performance PerformanceConfig
	Monitoring  MonitoringConfig
	Log         LogConfig
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Address        string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// RedisConfig конфигурация Redis (кэш последнего снимка и отчета).
// Пустой URL отключает кэш.
type RedisConfig struct {
	URL              string
	Password         string
	DB               int
	PoolSize         int
	MinIdleConns     int
	SnapshotTTL      time.Duration
	SnapshotInterval time.Duration
}

// MQTTConfig конфигурация MQTT транспорта команд.
// Пустой URL отключает транспорт.
type MQTTConfig struct {
	URL          string
	ClientID     string
	Username     string
	Password     string
	CleanSession bool
	TopicPrefix  string
}

// WorldConfig источник реестра аэропортов и маршрутов.
// Пустой DSN означает встроенный реестр.
type WorldConfig struct {
	DBDriver     string
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
	LoadTimeout  time.Duration
}

// AuthConfig конфигурация аутентификации команд.
// Пустой токен отключает проверку.
type AuthConfig struct {
	Token string
}

// SimulationConfig параметры движка реального времени
type SimulationConfig struct {
	TickInterval    time.Duration
	MaxStep         time.Duration
	SpeedMultiplier float64
	StartPaused     bool
	Seed            int64

	FleetMode                string
	BaseFleet                float64
	PeakFleet                float64
	RampHours                float64
	MaxSpawnAttemptsPerTick  int
	SpawnContinueProbability float64
	RandomRouteShare         float64
	RevenueMode              string

	AircraftSpeedKnots float64
	CruiseAltitudeFeet float64
	RadarRangeNM       float64
	RepairHours        float64
	BulkOutageFraction float64

	FailureRatePerHour float64
	RepairMinHours     float64
	RepairMaxHours     float64
}

// AnalysisConfig параметры пакетного анализа и поиска избыточных радаров
type AnalysisConfig struct {
	FlightsPerDay           int
	PredictableShare        float64
	MajorOutageDays         int
	MajorOutageFraction     float64
	MajorOutageStartHour    float64
	MajorOutageEndHour      float64
	MaintenanceHours        float64
	MaintenanceStartHourMax int
	MaintenanceMinActive    int
	MaxDays                 int

	RedundancyDays          int
	RedundancyFlightsPerDay int
	RedundancyShare         float64

	JobTTL     time.Duration
	JobHistory int
}

// FinanceConfig финансовые параметры по умолчанию
type FinanceConfig struct {
	RadarCostPerYear          float64
	FlightRevenue             float64
	CancellationCost          float64
	LostTrackingCostPerMinute float64
}

// GameConfig игровой вариант: казна, стоимость постройки, лимит радаров
type GameConfig struct {
	Enabled               bool
	StartingFunds         float64
	BuildCost             float64
	MaxRadars             int
	FreeRadarCount        int
	SurchargePerRadarHour float64
}

// PerformanceConfig конфигурация производительности
type PerformanceConfig struct {
	WebSocketPingInterval time.Duration
	WebSocketPongTimeout  time.Duration
	WebSocketSendBuffer   int
	BroadcastInterval     time.Duration
	RateLimitRPS          float64
	RateLimitBurst        int
}

// MonitoringConfig конфигурация мониторинга
type MonitoringConfig struct {
	MetricsEnabled bool
}

// LogConfig конфигурация логирования
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Defaults возвращает конфигурацию по умолчанию
func Defaults() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Address:        ":8090",
			Port:           "8090",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    120 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Redis: RedisConfig{
			PoolSize:         20,
			MinIdleConns:     2,
			SnapshotTTL:      time.Minute,
			SnapshotInterval: time.Second,
		},
		MQTT: MQTTConfig{
			ClientID:    "radarsim-api",
			TopicPrefix: "radarsim",
		},
		World: WorldConfig{
			DBDriver:     "mysql",
			MaxIdleConns: 2,
			MaxOpenConns: 5,
			LoadTimeout:  10 * time.Second,
		},
		Simulation: SimulationConfig{
			TickInterval:             50 * time.Millisecond,
			MaxStep:                  200 * time.Millisecond,
			SpeedMultiplier:          120,
			FleetMode:                "diurnal",
			BaseFleet:                500,
			PeakFleet:                500,
			RampHours:                2,
			MaxSpawnAttemptsPerTick:  64,
			SpawnContinueProbability: 0.5,
			RandomRouteShare:         0,
			RevenueMode:              "arrival",
			AircraftSpeedKnots:       450,
			CruiseAltitudeFeet:       35000,
			RadarRangeNM:             250,
			RepairHours:              4,
			BulkOutageFraction:       0.5,
			RepairMinHours:           2,
			RepairMaxHours:           6,
		},
		Analysis: AnalysisConfig{
			FlightsPerDay:           2000,
			PredictableShare:        0.75,
			MajorOutageDays:         2,
			MajorOutageFraction:     0.5,
			MajorOutageStartHour:    8,
			MajorOutageEndHour:      12,
			MaintenanceHours:        4,
			MaintenanceStartHourMax: 20,
			MaintenanceMinActive:    2,
			MaxDays:                 3650,
			RedundancyDays:          7,
			RedundancyFlightsPerDay: 500,
			RedundancyShare:         0.2,
			JobTTL:                  time.Hour,
			JobHistory:              32,
		},
		Finance: FinanceConfig{
			RadarCostPerYear:          500000,
			FlightRevenue:             200,
			CancellationCost:          10000,
			LostTrackingCostPerMinute: 1,
		},
		Game: GameConfig{
			StartingFunds: 10_000_000,
			BuildCost:     1_000_000,
			MaxRadars:     40,
		},
		Performance: PerformanceConfig{
			WebSocketPingInterval: 30 * time.Second,
			WebSocketPongTimeout:  60 * time.Second,
			WebSocketSendBuffer:   16,
			BroadcastInterval:     250 * time.Millisecond,
			RateLimitRPS:          100,
			RateLimitBurst:        200,
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
	}
}

// Load загружает конфигурацию из переменных окружения поверх значений по умолчанию
func Load() (*Config, error) {
	cfg := Defaults()

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.AllowedOrigins = getList("CORS_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PoolSize = getInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize)
	cfg.Redis.MinIdleConns = getInt("REDIS_MIN_IDLE_CONNS", cfg.Redis.MinIdleConns)
	cfg.Redis.SnapshotTTL = getDuration("REDIS_SNAPSHOT_TTL", cfg.Redis.SnapshotTTL)
	cfg.Redis.SnapshotInterval = getDuration("REDIS_SNAPSHOT_INTERVAL", cfg.Redis.SnapshotInterval)

	cfg.MQTT.URL = getEnv("MQTT_URL", cfg.MQTT.URL)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.CleanSession = getBool("MQTT_CLEAN_SESSION", cfg.MQTT.CleanSession)
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", cfg.MQTT.TopicPrefix)

	cfg.World.DBDriver = getEnv("WORLD_DB_DRIVER", cfg.World.DBDriver)
	cfg.World.DSN = getEnv("WORLD_DB_DSN", cfg.World.DSN)
	cfg.World.MaxIdleConns = getInt("WORLD_DB_MAX_IDLE_CONNS", cfg.World.MaxIdleConns)
	cfg.World.MaxOpenConns = getInt("WORLD_DB_MAX_OPEN_CONNS", cfg.World.MaxOpenConns)
	cfg.World.LoadTimeout = getDuration("WORLD_DB_LOAD_TIMEOUT", cfg.World.LoadTimeout)

	cfg.Auth.Token = getEnv("AUTH_TOKEN", cfg.Auth.Token)

	s := &cfg.Simulation
	s.TickInterval = getDuration("SIM_TICK_INTERVAL", s.TickInterval)
	s.MaxStep = getDuration("SIM_MAX_STEP", s.MaxStep)
	s.SpeedMultiplier = getFloat("SIM_SPEED_MULTIPLIER", s.SpeedMultiplier)
	s.StartPaused = getBool("SIM_START_PAUSED", s.StartPaused)
	s.Seed = getInt64("SIM_SEED", s.Seed)
	s.FleetMode = getEnv("SIM_FLEET_MODE", s.FleetMode)
	s.BaseFleet = getFloat("SIM_BASE_FLEET", s.BaseFleet)
	s.PeakFleet = getFloat("SIM_PEAK_FLEET", s.PeakFleet)
	s.RampHours = getFloat("SIM_RAMP_HOURS", s.RampHours)
	s.MaxSpawnAttemptsPerTick = getInt("SIM_MAX_SPAWN_ATTEMPTS", s.MaxSpawnAttemptsPerTick)
	s.SpawnContinueProbability = getFloat("SIM_SPAWN_CONTINUE_PROBABILITY", s.SpawnContinueProbability)
	s.RandomRouteShare = getFloat("SIM_RANDOM_ROUTE_SHARE", s.RandomRouteShare)
	s.RevenueMode = getEnv("SIM_REVENUE_MODE", s.RevenueMode)
	s.AircraftSpeedKnots = getFloat("SIM_AIRCRAFT_SPEED_KNOTS", s.AircraftSpeedKnots)
	s.CruiseAltitudeFeet = getFloat("SIM_CRUISE_ALTITUDE_FEET", s.CruiseAltitudeFeet)
	s.RadarRangeNM = getFloat("SIM_RADAR_RANGE_NM", s.RadarRangeNM)
	s.RepairHours = getFloat("SIM_REPAIR_HOURS", s.RepairHours)
	s.BulkOutageFraction = getFloat("SIM_BULK_OUTAGE_FRACTION", s.BulkOutageFraction)
	s.FailureRatePerHour = getFloat("SIM_FAILURE_RATE_PER_HOUR", s.FailureRatePerHour)
	s.RepairMinHours = getFloat("SIM_REPAIR_MIN_HOURS", s.RepairMinHours)
	s.RepairMaxHours = getFloat("SIM_REPAIR_MAX_HOURS", s.RepairMaxHours)

	a := &cfg.Analysis
	a.FlightsPerDay = getInt("ANALYSIS_FLIGHTS_PER_DAY", a.FlightsPerDay)
	a.PredictableShare = getFloat("ANALYSIS_PREDICTABLE_SHARE", a.PredictableShare)
	a.MajorOutageDays = getInt("ANALYSIS_MAJOR_OUTAGE_DAYS", a.MajorOutageDays)
	a.MajorOutageFraction = getFloat("ANALYSIS_MAJOR_OUTAGE_FRACTION", a.MajorOutageFraction)
	a.MajorOutageStartHour = getFloat("ANALYSIS_MAJOR_OUTAGE_START_HOUR", a.MajorOutageStartHour)
	a.MajorOutageEndHour = getFloat("ANALYSIS_MAJOR_OUTAGE_END_HOUR", a.MajorOutageEndHour)
	a.MaintenanceHours = getFloat("ANALYSIS_MAINTENANCE_HOURS", a.MaintenanceHours)
	a.MaintenanceStartHourMax = getInt("ANALYSIS_MAINTENANCE_START_HOUR_MAX", a.MaintenanceStartHourMax)
	a.MaintenanceMinActive = getInt("ANALYSIS_MAINTENANCE_MIN_ACTIVE", a.MaintenanceMinActive)
	a.MaxDays = getInt("ANALYSIS_MAX_DAYS", a.MaxDays)
	a.RedundancyDays = getInt("REDUNDANCY_DAYS", a.RedundancyDays)
	a.RedundancyFlightsPerDay = getInt("REDUNDANCY_FLIGHTS_PER_DAY", a.RedundancyFlightsPerDay)
	a.RedundancyShare = getFloat("REDUNDANCY_SHARE", a.RedundancyShare)
	a.JobTTL = getDuration("ANALYSIS_JOB_TTL", a.JobTTL)
	a.JobHistory = getInt("ANALYSIS_JOB_HISTORY", a.JobHistory)

	cfg.Finance.RadarCostPerYear = getFloat("FINANCE_RADAR_COST_PER_YEAR", cfg.Finance.RadarCostPerYear)
	cfg.Finance.FlightRevenue = getFloat("FINANCE_FLIGHT_REVENUE", cfg.Finance.FlightRevenue)
	cfg.Finance.CancellationCost = getFloat("FINANCE_CANCELLATION_COST", cfg.Finance.CancellationCost)
	cfg.Finance.LostTrackingCostPerMinute = getFloat("FINANCE_LOST_TRACKING_COST_PER_MINUTE", cfg.Finance.LostTrackingCostPerMinute)

	cfg.Game.Enabled = getBool("GAME_ENABLED", cfg.Game.Enabled)
	cfg.Game.StartingFunds = getFloat("GAME_STARTING_FUNDS", cfg.Game.StartingFunds)
	cfg.Game.BuildCost = getFloat("GAME_BUILD_COST", cfg.Game.BuildCost)
	cfg.Game.MaxRadars = getInt("GAME_MAX_RADARS", cfg.Game.MaxRadars)
	cfg.Game.FreeRadarCount = getInt("GAME_FREE_RADAR_COUNT", cfg.Game.FreeRadarCount)
	cfg.Game.SurchargePerRadarHour = getFloat("GAME_SURCHARGE_PER_RADAR_HOUR", cfg.Game.SurchargePerRadarHour)

	p := &cfg.Performance
	p.WebSocketPingInterval = getDuration("WEBSOCKET_PING_INTERVAL", p.WebSocketPingInterval)
	p.WebSocketPongTimeout = getDuration("WEBSOCKET_PONG_TIMEOUT", p.WebSocketPongTimeout)
	p.WebSocketSendBuffer = getInt("WEBSOCKET_SEND_BUFFER", p.WebSocketSendBuffer)
	p.BroadcastInterval = getDuration("BROADCAST_INTERVAL", p.BroadcastInterval)
	p.RateLimitRPS = getFloat("RATE_LIMIT_RPS", p.RateLimitRPS)
	p.RateLimitBurst = getInt("RATE_LIMIT_BURST", p.RateLimitBurst)

	cfg.Monitoring.MetricsEnabled = getBool("METRICS_ENABLED", cfg.Monitoring.MetricsEnabled)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getInt("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = getInt("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)

	// Валидация
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	s := c.Simulation
	if s.TickInterval <= 0 {
		return fmt.Errorf("SIM_TICK_INTERVAL must be positive")
	}
	if s.MaxStep <= 0 {
		return fmt.Errorf("SIM_MAX_STEP must be positive")
	}
	if s.SpeedMultiplier < 0 {
		return fmt.Errorf("SIM_SPEED_MULTIPLIER must not be negative")
	}
	if s.FleetMode != "diurnal" && s.FleetMode != "ramp" {
		return fmt.Errorf("SIM_FLEET_MODE must be diurnal or ramp, got %q", s.FleetMode)
	}
	if s.RevenueMode != "arrival" && s.RevenueMode != "prorated" {
		return fmt.Errorf("SIM_REVENUE_MODE must be arrival or prorated, got %q", s.RevenueMode)
	}
	if s.MaxSpawnAttemptsPerTick <= 0 {
		return fmt.Errorf("SIM_MAX_SPAWN_ATTEMPTS must be positive")
	}
	if !isProbability(s.SpawnContinueProbability) || !isProbability(s.RandomRouteShare) || !isProbability(s.BulkOutageFraction) {
		return fmt.Errorf("probabilities and fractions must be within [0,1]")
	}
	if s.AircraftSpeedKnots <= 0 {
		return fmt.Errorf("SIM_AIRCRAFT_SPEED_KNOTS must be positive")
	}
	if s.RadarRangeNM <= 0 {
		return fmt.Errorf("SIM_RADAR_RANGE_NM must be positive")
	}
	if s.FailureRatePerHour < 0 || s.RepairMinHours < 0 || s.RepairMaxHours < s.RepairMinHours {
		return fmt.Errorf("invalid failure model: rate %v, repair [%v,%v]", s.FailureRatePerHour, s.RepairMinHours, s.RepairMaxHours)
	}

	a := c.Analysis
	if a.FlightsPerDay < 0 || a.RedundancyFlightsPerDay < 0 {
		return fmt.Errorf("flights per day must not be negative")
	}
	if !isProbability(a.PredictableShare) || !isProbability(a.MajorOutageFraction) || !isProbability(a.RedundancyShare) {
		return fmt.Errorf("analysis shares must be within [0,1]")
	}
	if a.MajorOutageStartHour < 0 || a.MajorOutageEndHour > 24 || a.MajorOutageStartHour > a.MajorOutageEndHour {
		return fmt.Errorf("invalid major outage window [%v,%v)", a.MajorOutageStartHour, a.MajorOutageEndHour)
	}
	if a.MaintenanceStartHourMax <= 0 || a.MaintenanceStartHourMax > 24 {
		return fmt.Errorf("ANALYSIS_MAINTENANCE_START_HOUR_MAX must be between 1 and 24")
	}
	if a.MaxDays <= 0 || a.RedundancyDays <= 0 {
		return fmt.Errorf("analysis day limits must be positive")
	}
	if a.JobHistory <= 0 {
		return fmt.Errorf("ANALYSIS_JOB_HISTORY must be positive")
	}

	f := c.Finance
	if f.RadarCostPerYear < 0 || f.FlightRevenue < 0 || f.CancellationCost < 0 || f.LostTrackingCostPerMinute < 0 {
		return fmt.Errorf("financial parameters must not be negative")
	}

	if c.Game.MaxRadars < 0 || c.Game.BuildCost < 0 || c.Game.FreeRadarCount < 0 || c.Game.SurchargePerRadarHour < 0 {
		return fmt.Errorf("game parameters must not be negative")
	}

	if c.World.DSN != "" && c.World.DBDriver != "mysql" && c.World.DBDriver != "postgres" {
		return fmt.Errorf("WORLD_DB_DRIVER must be mysql or postgres, got %q", c.World.DBDriver)
	}

	if c.Performance.WebSocketSendBuffer <= 0 {
		return fmt.Errorf("WEBSOCKET_SEND_BUFFER must be positive")
	}
	if c.Performance.RateLimitRPS <= 0 || c.Performance.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}

	return nil
}

func isProbability(v float64) bool {
	return v >= 0 && v <= 1
}

// Helper функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// IsDevelopment проверяет, запущено ли приложение в режиме разработки
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
