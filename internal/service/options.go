package service

import (
	"time"

	"github.com/flybeeper/radarsim/internal/analysis"
	"github.com/flybeeper/radarsim/internal/config"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/sim"
)

// Options параметры контроллера
type Options struct {
	Sim      sim.Config
	Analysis analysis.Config
	Finance  models.FinancialConfig

	TickInterval    time.Duration
	MaxStep         time.Duration
	SpeedMultiplier float64
	StartPaused     bool
	// Seed 0 означает зерно от текущего времени
	Seed int64

	JobTTL           time.Duration
	JobHistory       int
	SubscriberBuffer int
	CommandBuffer    int
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() Options {
	return Options{
		Sim:              sim.DefaultConfig(),
		Analysis:         analysis.DefaultConfig(),
		Finance:          models.DefaultFinancialConfig(),
		TickInterval:     50 * time.Millisecond,
		MaxStep:          200 * time.Millisecond,
		SpeedMultiplier:  120,
		JobTTL:           time.Hour,
		JobHistory:       32,
		SubscriberBuffer: 4,
		CommandBuffer:    64,
	}
}

// OptionsFromConfig переносит настройки приложения в параметры контроллера
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	s := cfg.Simulation
	a := cfg.Analysis

	opts.Sim = sim.Config{
		FleetMode:                sim.FleetMode(s.FleetMode),
		BaseFleet:                s.BaseFleet,
		PeakFleet:                s.PeakFleet,
		RampHours:                s.RampHours,
		MaxSpawnAttemptsPerTick:  s.MaxSpawnAttemptsPerTick,
		SpawnContinueProbability: s.SpawnContinueProbability,
		RandomRouteShare:         s.RandomRouteShare,
		RevenueMode:              sim.RevenueMode(s.RevenueMode),
		AircraftSpeedKnots:       s.AircraftSpeedKnots,
		CruiseAltitudeFeet:       s.CruiseAltitudeFeet,
		RadarRangeNM:             s.RadarRangeNM,
		RepairHours:              s.RepairHours,
		BulkOutageFraction:       s.BulkOutageFraction,
		FailureRatePerHour:       s.FailureRatePerHour,
		RepairMinHours:           s.RepairMinHours,
		RepairMaxHours:           s.RepairMaxHours,
		Game: sim.GameConfig{
			Enabled:               cfg.Game.Enabled,
			StartingFunds:         cfg.Game.StartingFunds,
			BuildCost:             cfg.Game.BuildCost,
			MaxRadars:             cfg.Game.MaxRadars,
			FreeRadarCount:        cfg.Game.FreeRadarCount,
			SurchargePerRadarHour: cfg.Game.SurchargePerRadarHour,
		},
	}

	opts.Analysis = analysis.Config{
		FlightsPerDay:           a.FlightsPerDay,
		PredictableShare:        a.PredictableShare,
		MajorOutageDays:         a.MajorOutageDays,
		MajorOutageFraction:     a.MajorOutageFraction,
		MajorOutageStartHour:    a.MajorOutageStartHour,
		MajorOutageEndHour:      a.MajorOutageEndHour,
		MaintenanceHours:        a.MaintenanceHours,
		MaintenanceStartHourMax: a.MaintenanceStartHourMax,
		MaintenanceMinActive:    a.MaintenanceMinActive,
		AircraftSpeedKnots:      s.AircraftSpeedKnots,
		MaxDays:                 a.MaxDays,
		RedundancyDays:          a.RedundancyDays,
		RedundancyFlightsPerDay: a.RedundancyFlightsPerDay,
		RedundancyShare:         a.RedundancyShare,
	}

	opts.Finance = models.FinancialConfig{
		RadarCostPerYear:          cfg.Finance.RadarCostPerYear,
		FlightRevenue:             cfg.Finance.FlightRevenue,
		CancellationCost:          cfg.Finance.CancellationCost,
		LostTrackingCostPerMinute: cfg.Finance.LostTrackingCostPerMinute,
	}

	opts.TickInterval = s.TickInterval
	opts.MaxStep = s.MaxStep
	opts.SpeedMultiplier = s.SpeedMultiplier
	opts.StartPaused = s.StartPaused
	opts.Seed = s.Seed
	opts.JobTTL = a.JobTTL
	opts.JobHistory = a.JobHistory
	return opts
}
