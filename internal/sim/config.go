package sim

import "github.com/flybeeper/radarsim/internal/models"

// FleetMode закон изменения целевого размера флота
type FleetMode string

const (
	// FleetDiurnal суточная синусоида с пиком днем
	FleetDiurnal FleetMode = "diurnal"
	// FleetRamp линейный рост до плато за RampHours
	FleetRamp FleetMode = "ramp"
)

// RevenueMode способ начисления выручки
type RevenueMode string

const (
	// RevenueOnArrival выручка начисляется при прибытии
	RevenueOnArrival RevenueMode = "arrival"
	// RevenueProrated выручка начисляется пропорционально пройденной доле
	// маршрута, пока судно сопровождается
	RevenueProrated RevenueMode = "prorated"
)

// GameConfig параметры игрового варианта
type GameConfig struct {
	Enabled       bool
	StartingFunds float64
	BuildCost     float64
	MaxRadars     int

	// Надбавка сверх FreeRadarCount радаров, делится поровну на все радары
	FreeRadarCount        int
	SurchargePerRadarHour float64
}

// Config параметры движка реального времени
type Config struct {
	FleetMode FleetMode
	BaseFleet float64
	PeakFleet float64
	RampHours float64

	MaxSpawnAttemptsPerTick  int
	SpawnContinueProbability float64
	RandomRouteShare         float64

	RevenueMode RevenueMode

	AircraftSpeedKnots float64
	CruiseAltitudeFeet float64
	RadarRangeNM       float64

	// RepairHours задержка восстановления после ручного выключения
	// и массового отказа; 0 оставляет радар выключенным
	RepairHours        float64
	BulkOutageFraction float64

	// Случайные отказы; 0 отключает
	FailureRatePerHour float64
	RepairMinHours     float64
	RepairMaxHours     float64

	Game GameConfig
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		FleetMode:                FleetDiurnal,
		BaseFleet:                500,
		PeakFleet:                500,
		RampHours:                2,
		MaxSpawnAttemptsPerTick:  64,
		SpawnContinueProbability: 0.5,
		RevenueMode:              RevenueOnArrival,
		AircraftSpeedKnots:       models.DefaultAircraftSpeedKnots,
		CruiseAltitudeFeet:       models.DefaultCruiseAltitudeFeet,
		RadarRangeNM:             models.DefaultRadarRangeNM,
		RepairHours:              4,
		BulkOutageFraction:       0.5,
		RepairMinHours:           2,
		RepairMaxHours:           6,
	}
}
