package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/flybeeper/radarsim/internal/auth"
	"github.com/flybeeper/radarsim/internal/config"
	"github.com/flybeeper/radarsim/internal/metrics"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// Version версия API
const Version = "1.0.0"

// Server HTTP сервер симулятора
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	logger      *utils.Logger
	config      *config.Config
	sim         Simulation
	hub         *Hub
	restHandler *RESTHandler
	wsHandler   *WebSocketHandler
	started     time.Time
}

// NewServer создает HTTP сервер. store может быть nil, если Redis отключен.
func NewServer(cfg *config.Config, s Simulation, store RadarStore, logger *utils.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(LoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.Performance.RateLimitRPS, cfg.Performance.RateLimitBurst))
	router.Use(SecurityHeadersMiddleware())
	if cfg.Monitoring.MetricsEnabled {
		router.Use(metrics.HTTPMetricsMiddleware())
	}

	hub := NewHub(s, cfg.Performance.BroadcastInterval, logger.WithField("component", "hub"))

	server := &Server{
		router:      router,
		logger:      logger,
		config:      cfg,
		sim:         s,
		hub:         hub,
		restHandler: NewRESTHandler(s, store, logger),
		wsHandler: NewWebSocketHandler(hub, WebSocketConfig{
			PingInterval:   cfg.Performance.WebSocketPingInterval,
			PongTimeout:    cfg.Performance.WebSocketPongTimeout,
			SendBuffer:     cfg.Performance.WebSocketSendBuffer,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, logger.WithField("component", "websocket")),
		started: time.Now(),
	}

	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	if s.config.Monitoring.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authMW := auth.NewMiddleware(auth.NewValidator(s.config.Auth.Token), s.logger)
	h := s.restHandler

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/snapshot", h.GetSnapshot)
		v1.GET("/airports", h.GetAirports)
		v1.GET("/radars", h.GetRadars)
		v1.GET("/radars/near", h.GetRadarsNear)
		v1.GET("/radars/:id/aircraft", h.GetRadarAircraft)
		v1.GET("/aircraft", h.GetAircraft)
		v1.GET("/aircraft/:id/radars", h.GetAircraftRadars)
		v1.GET("/report/live", h.GetLiveReport)
		v1.GET("/report/costs", h.GetCostBreakdown)
		v1.GET("/analysis/last", h.GetLastAnalysis)
		v1.GET("/analysis/jobs", h.GetJobs)
		v1.GET("/analysis/jobs/:id", h.GetJob)

		// Команды управления (Bearer token, если задан AUTH_TOKEN)
		cmd := v1.Group("/")
		cmd.Use(authMW.Authenticate())
		{
			cmd.POST("/radars", h.AddRadar)
			cmd.DELETE("/radars/:id", h.RemoveRadar)
			cmd.POST("/radars/:id/toggle", h.ToggleRadar)
			cmd.POST("/radars/bulk-outage", h.BulkOutage)
			cmd.POST("/radars/deactivate", h.DeactivateRadars)
			cmd.POST("/radars/load-defaults", h.LoadDefaultRadars)
			cmd.PUT("/finance", h.SetFinance)
			cmd.PUT("/speed", h.SetSpeed)
			cmd.POST("/pause", h.Pause)
			cmd.POST("/resume", h.Resume)
			cmd.POST("/step", h.Step)
			cmd.POST("/analysis/jobs", h.StartAnalysis)
			cmd.DELETE("/analysis/jobs/:id", h.CancelJob)
			cmd.POST("/analysis/redundancy", h.FindRedundant)
		}
	}

	s.router.GET("/ws/v1/snapshots", s.wsHandler.HandleWebSocket)
}

// Router возвращает gin engine (для тестов)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Hub менеджер рассылки WebSocket
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"address": s.config.Server.Address,
		"mode":    gin.Mode(),
	}).Info("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown корректное завершение сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthCheck(c *gin.Context) {
	snap := s.sim.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"timestamp":         time.Now().Unix(),
		"version":           Version,
		"uptime_seconds":    int64(time.Since(s.started).Seconds()),
		"snapshot_version":  snap.Version,
		"clock_hours":       snap.State.Clock,
		"running":           snap.Running,
		"websocket_clients": s.hub.ClientCount(),
	})
}

// ==================== Middleware ====================

// LoggerMiddleware логирование запросов
func LoggerMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.WithFields(fields).Warn("HTTP request failed")
			return
		}
		logger.WithFields(fields).Debug("HTTP request completed")
	}
}

// CORSMiddleware настройка CORS
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Location"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// RateLimitMiddleware ограничение частоты запросов
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			respondError(c, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests")
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware заголовки безопасности
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}
