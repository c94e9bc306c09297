// Package analysis runs offline what-if studies over a frozen copy of the
// radar network: the multi-day Monte-Carlo batch and the redundancy finder.
package analysis

import (
	"errors"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/world"
)

var (
	// ErrInvalidDays число дней вне допустимого диапазона
	ErrInvalidDays = errors.New("days must be positive")
	// ErrNoWorld не передан граф маршрутов
	ErrNoWorld = errors.New("world is required")
)

// Config параметры пакетного анализа
type Config struct {
	FlightsPerDay    int
	PredictableShare float64

	// Крупные отказы: MajorOutageDays случайных дней, доля радаров
	// выключена в окне [MajorOutageStartHour, MajorOutageEndHour)
	MajorOutageDays      int
	MajorOutageFraction  float64
	MajorOutageStartHour float64
	MajorOutageEndHour   float64

	// Ежедневное обслуживание одного активного радара
	MaintenanceHours        float64
	MaintenanceStartHourMax int
	MaintenanceMinActive    int

	AircraftSpeedKnots float64
	MaxDays            int

	RedundancyDays          int
	RedundancyFlightsPerDay int
	RedundancyShare         float64
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		FlightsPerDay:           2000,
		PredictableShare:        0.75,
		MajorOutageDays:         2,
		MajorOutageFraction:     0.5,
		MajorOutageStartHour:    8,
		MajorOutageEndHour:      12,
		MaintenanceHours:        4,
		MaintenanceStartHourMax: 20,
		MaintenanceMinActive:    2,
		AircraftSpeedKnots:      models.DefaultAircraftSpeedKnots,
		MaxDays:                 3650,
		RedundancyDays:          7,
		RedundancyFlightsPerDay: 500,
		RedundancyShare:         0.2,
	}
}

// Input снимок сети, над которым выполняется анализ
type Input struct {
	World   *world.World
	Radars  []models.Radar
	Finance models.FinancialConfig
	Config  Config
}

// ProgressFunc получает процент выполнения после каждого дня
type ProgressFunc func(percent int)
