package sim

import (
	"github.com/flybeeper/radarsim/internal/coverage"
	"github.com/flybeeper/radarsim/internal/models"
)

// LiveReport строит отчет по живым метрикам. Таблицы обслуживания,
// избыточности и выключенных радаров в живом отчете пусты.
func LiveReport(s State) *models.SimulationResult {
	m := s.Metrics
	r := models.NewSimulationResult()

	r.TotalFlights = m.TotalSpawnedFlights
	r.TotalDays = s.Clock / 24
	r.CancelledFlights = m.CancelledFlights
	r.TotalFlightsWithLostTracking = m.FlightsWithLostTracking
	r.LostFlightMinutes = m.LostFlightMinutes

	r.CancellationSources = models.CancellationRows(m.CancellationSources)
	r.ProblematicRoutes = models.ProblematicRouteRows(m.ProblematicRoutes)
	r.AirportDowntime = models.AirportDowntimeRows(m.AirportDowntime)

	r.TotalRevenue = m.Revenue
	r.TotalOperationalCost = m.OperationalCost
	r.TotalCancellationCost = m.CancellationCost
	r.TotalLostTrackingCost = m.LostTrackingCost
	r.Finalize()

	return r
}

// RadarsTracking возвращает активные радары, видящие судно
func RadarsTracking(s State, aircraftID string) ([]models.Radar, bool) {
	idx, ok := s.FindAircraft(aircraftID)
	if !ok {
		return nil, false
	}
	return coverage.Covering(s.Aircraft[idx].Position, s.ActiveRadars()), true
}

// AircraftVisibleBy возвращает суда в зоне радара. Выключенный радар
// не видит ничего.
func AircraftVisibleBy(s State, radarID string) ([]models.Aircraft, bool) {
	idx, ok := s.FindRadar(radarID)
	if !ok {
		return nil, false
	}
	r := s.Radars[idx]
	out := []models.Aircraft{}
	if !r.IsActive {
		return out, true
	}
	for _, ac := range s.Aircraft {
		if r.Covers(ac.Position) {
			out = append(out, ac)
		}
	}
	return out, true
}
