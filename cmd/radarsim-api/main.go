package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flybeeper/radarsim/internal/config"
	"github.com/flybeeper/radarsim/internal/handler"
	"github.com/flybeeper/radarsim/internal/metrics"
	"github.com/flybeeper/radarsim/internal/mqtt"
	"github.com/flybeeper/radarsim/internal/repository"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/utils"
)

var (
	// Version, Commit и BuildTime устанавливаются при сборке через ldflags
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем логирование
	logger := utils.NewLogger(cfg.Log.Level, cfg.Log.Format,
		utils.WithFile(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups))
	utils.SetDefaultLogger(logger)
	logger.WithFields(map[string]interface{}{
		"version":     Version,
		"commit":      Commit,
		"environment": cfg.Environment,
	}).Info("Starting radar coverage simulator")
	metrics.SetAppInfo(Version, Commit, BuildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Реестр аэропортов: БД или встроенный
	w := loadWorld(ctx, cfg, logger)

	controller := service.NewController(w, service.OptionsFromConfig(cfg), logger.WithField("component", "controller"))
	controller.Start()
	defer controller.Stop()

	g, gctx := errgroup.WithContext(ctx)

	// Redis кэш (опционально). store остается nil-интерфейсом без Redis.
	var store handler.RadarStore
	if cfg.Redis.URL != "" {
		redisRepo, err := repository.NewRedisRepository(&cfg.Redis, logger.WithField("component", "redis"))
		if err != nil {
			logger.WithField("error", err).Fatal("Failed to initialize Redis repository")
		}
		defer redisRepo.Close()

		if err := redisRepo.Ping(ctx); err != nil {
			logger.WithField("error", err).Warn("Redis unavailable, snapshots will not be cached")
		} else {
			logger.Info("Connected to Redis")
			store = redisRepo
			persister := service.NewPersister(controller, redisRepo, cfg.Redis.SnapshotInterval, logger.WithField("component", "persister"))
			g.Go(func() error { return persister.Run(gctx) })
		}
	}

	// MQTT транспорт команд (опционально)
	if cfg.MQTT.URL != "" {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT, controller, logger.WithField("component", "mqtt"))
		if err != nil {
			logger.WithField("error", err).Fatal("Failed to initialize MQTT client")
		}
		defer mqttClient.Disconnect()
		if err := mqttClient.Connect(); err != nil {
			logger.WithField("error", err).Warn("MQTT broker unavailable, retrying in background")
		}
		events := mqtt.NewEvents(controller, mqttClient, mqttClient.Parser(), logger.WithField("component", "mqtt-events"))
		g.Go(func() error { return events.Run(gctx) })
	}

	// HTTP сервер и рассылка снимков
	server := handler.NewServer(cfg, controller, store, logger)
	g.Go(func() error { return server.Hub().Run(gctx) })
	g.Go(func() error {
		if err := server.Start(); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithField("error", err).Error("HTTP server shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithField("error", err).Error("Server stopped with error")
		controller.Stop()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// loadWorld загружает реестр из БД, при ошибке использует встроенный
func loadWorld(ctx context.Context, cfg *config.Config, logger *utils.Logger) *world.World {
	if cfg.World.DSN == "" {
		return world.Default()
	}

	registry, err := repository.NewSQLRegistry(&cfg.World, logger.WithField("component", "registry"))
	if err != nil {
		logger.WithField("error", err).Warn("Failed to open registry database, using built-in registry")
		return world.Default()
	}
	defer registry.Close()

	reg, err := registry.LoadRegistry(ctx)
	if err != nil {
		logger.WithField("error", err).Warn("Failed to load registry, using built-in registry")
		return world.Default()
	}

	w, err := world.New(reg, logger)
	if err != nil {
		logger.WithField("error", err).Warn("Invalid registry, using built-in registry")
		return world.Default()
	}
	logger.WithFields(map[string]interface{}{
		"airports": w.AirportCount(),
		"routes":   len(reg.Routes),
	}).Info("Loaded registry from database")
	return w
}
