package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP метрики
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radarsim_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarsim_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// WebSocket метрики
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radarsim_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesOut = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarsim_websocket_messages_out_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"type"},
	)

	WebSocketErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radarsim_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
	)

	// MQTT метрики
	MQTTMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarsim_mqtt_messages_received_total",
			Help: "Total number of MQTT command messages received",
		},
		[]string{"command"},
	)

	MQTTParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radarsim_mqtt_parse_errors_total",
			Help: "Total number of MQTT command parse errors",
		},
	)

	MQTTEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarsim_mqtt_events_published_total",
			Help: "Total number of events published to MQTT",
		},
		[]string{"topic"},
	)

	MQTTConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radarsim_mqtt_connection_status",
			Help: "MQTT connection status (1 = connected, 0 = disconnected)",
		},
	)

	// Redis метрики
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radarsim_redis_operation_duration_seconds",
			Help:    "Duration of Redis operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	RedisOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarsim_redis_operation_errors_total",
			Help: "Total number of Redis operation errors",
		},
		[]string{"operation"},
	)

	RedisConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radarsim_redis_connection_status",
			Help: "Redis connection status (1 = connected, 0 = disconnected)",
		},
	)

	// Движок симуляции
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radarsim_ticks_total",
			Help: "Total number of simulation ticks",
		},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "radarsim_tick_duration_seconds",
			Help:    "Wall time spent advancing the simulation by one tick",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	SimulationClockHours = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radarsim_clock_hours",
			Help: "Simulated time in hours since the last reset",
		},
	)

	AircraftInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radarsim_aircraft_in_flight",
			Help: "Number of aircraft in flight by visibility",
		},
		[]string{"visibility"}, // tracked, lost
	)

	RadarsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radarsim_radars",
			Help: "Number of radars by state",
		},
		[]string{"state"}, // active, inactive
	)

	UncoveredAirports = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radarsim_uncovered_airports",
			Help: "Number of airports without radar coverage",
		},
	)

	FlightsSpawned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radarsim_flights_spawned_total",
			Help: "Total number of flights that entered the air",
		},
	)

	FlightsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radarsim_flights_cancelled_total",
			Help: "Total number of flights cancelled at an uncovered origin",
		},
	)

	FlightsArrived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radarsim_flights_arrived_total",
			Help: "Total number of flights that reached their destination",
		},
	)

	RadarTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarsim_radar_transitions_total",
			Help: "Total number of radar state transitions inside the engine",
		},
		[]string{"kind"}, // failed, reactivated
	)

	NetProfitLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radarsim_net_profit_loss",
			Help: "Live net profit or loss of the simulated network",
		},
	)

	// Пакетный анализ
	AnalysisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radarsim_analysis_runs_total",
			Help: "Total number of analysis runs by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: batch/redundancy, status: success/error/cancelled
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radarsim_analysis_duration_seconds",
			Help:    "Duration of analysis runs in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// Общие метрики приложения
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "radarsim_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetAppInfo устанавливает информацию о версии приложения
func SetAppInfo(version, commit, buildTime string) {
	AppInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
