package service

import (
	"time"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/sim"
)

// Snapshot неизменяемый снимок состояния симуляции. Публикуется после
// каждого шага и каждой команды; читатели не должны его изменять.
type Snapshot struct {
	Version uint64 `json:"version"`
	// RadarsVersion растет при любом изменении набора или состояния радаров
	RadarsVersion uint64    `json:"radars_version"`
	GeneratedAt   time.Time `json:"generated_at"`

	Running bool    `json:"running"`
	Speed   float64 `json:"speed"`

	State         sim.State  `json:"state"`
	Counts        sim.Counts `json:"counts"`
	TargetFleet   float64    `json:"target_fleet"`
	NetProfitLoss float64    `json:"net_profit_loss"`

	RedundantRadarIDs []string                 `json:"redundant_radar_ids"`
	AnalysisRunning   bool                     `json:"analysis_running"`
	LastAnalysis      *models.SimulationResult `json:"last_analysis,omitempty"`

	LastTick *sim.TickReport `json:"last_tick,omitempty"`
}
