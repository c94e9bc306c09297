package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/pkg/rand"
)

func TestLoadDefaultRadars_ResetsState(t *testing.T) {
	e := newTestEngine(t, nil)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))
	for i := 0; i < 50; i++ {
		s, _ = e.Advance(s, 0.1)
	}
	require.NotEmpty(t, s.Aircraft)

	reloaded := e.LoadDefaultRadars(s)

	assert.Zero(t, reloaded.Clock)
	assert.Empty(t, reloaded.Aircraft)
	assert.Zero(t, reloaded.Metrics.OperationalCost)
	assert.Empty(t, reloaded.Metrics.CancellationSources)
	require.Len(t, reloaded.Radars, 24)
	assert.Equal(t, "London Heathrow Radar", reloaded.Radars[0].Name)
	assert.Equal(t, 250.0, reloaded.Radars[0].RangeNM)
	for _, ap := range reloaded.Airports {
		assert.True(t, ap.IsCovered, ap.Code)
	}

	// идентификаторы не повторяются между загрузками
	assert.NotEqual(t, s.Radars[0].ID, reloaded.Radars[0].ID)
}

func TestToggleRadar(t *testing.T) {
	e := newTestEngine(t, nil)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))
	s.Clock = 10
	id := s.Radars[0].ID

	off, err := e.ToggleRadar(s, id)
	require.NoError(t, err)
	assert.False(t, off.Radars[0].IsActive)
	require.NotNil(t, off.Radars[0].ReactivationTime)
	assert.Equal(t, 14.0, *off.Radars[0].ReactivationTime)
	assert.True(t, s.Radars[0].IsActive, "input state unchanged")

	on, err := e.ToggleRadar(off, id)
	require.NoError(t, err)
	assert.True(t, on.Radars[0].IsActive)
	assert.Nil(t, on.Radars[0].ReactivationTime)

	_, err = e.ToggleRadar(s, "radar-missing")
	assert.ErrorIs(t, err, ErrRadarNotFound)
}

func TestToggleRadar_NoRepairKeepsRadarOff(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.RepairHours = 0 })
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))

	off, err := e.ToggleRadar(s, s.Radars[0].ID)
	require.NoError(t, err)
	assert.False(t, off.Radars[0].IsActive)
	assert.Nil(t, off.Radars[0].ReactivationTime)
}

func TestBulkOutage(t *testing.T) {
	e := newTestEngine(t, nil)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))
	s.Clock = 2

	out, ids, err := e.BulkOutage(s, 0.5, rand.New(7))
	require.NoError(t, err)

	assert.Len(t, ids, 12)
	inactive := 0
	for _, r := range out.Radars {
		if !r.IsActive {
			inactive++
			require.NotNil(t, r.ReactivationTime)
			assert.Equal(t, 6.0, *r.ReactivationTime)
		}
	}
	assert.Equal(t, 12, inactive)

	_, _, err = e.BulkOutage(s, 1.5, nil)
	assert.ErrorIs(t, err, ErrInvalidFraction)
}

func TestBulkOutage_SameSeedSameRadars(t *testing.T) {
	e := newTestEngine(t, nil)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))

	_, a, err := e.BulkOutage(s, 0.5, rand.New(99))
	require.NoError(t, err)
	_, b, err := e.BulkOutage(s, 0.5, rand.New(99))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestAddRadar(t *testing.T) {
	e := newTestEngine(t, nil)
	s := e.NewState(models.DefaultFinancialConfig())
	ist, _ := e.World().Airport("IST")

	s, r, err := e.AddRadar(s, NewRadar{Position: ist.Position})
	require.NoError(t, err)

	assert.Equal(t, "Radar 1", r.Name)
	assert.Equal(t, 250.0, r.RangeNM)
	assert.True(t, r.IsActive)
	require.Len(t, s.Radars, 1)

	istIdx := -1
	for i, ap := range s.Airports {
		if ap.Code == "IST" {
			istIdx = i
		}
	}
	require.GreaterOrEqual(t, istIdx, 0)
	assert.True(t, s.Airports[istIdx].IsCovered)

	s, r2, err := e.AddRadar(s, NewRadar{Name: "Radar 1", Position: ist.Position})
	require.NoError(t, err)
	assert.NotEqual(t, r.Name, r2.Name, "names stay unique")
	assert.Len(t, s.Radars, 2)
}

func TestAddRadar_GameTreasury(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.Game = GameConfig{Enabled: true, StartingFunds: 150, BuildCost: 100, MaxRadars: 5}
	})
	s := e.NewState(models.DefaultFinancialConfig())
	require.Equal(t, 150.0, s.Funds)

	s, _, err := e.AddRadar(s, NewRadar{Position: models.Point{Lat: 50, Lng: 10}})
	require.NoError(t, err)
	assert.Equal(t, 50.0, s.Funds)

	rejected, _, err := e.AddRadar(s, NewRadar{Position: models.Point{Lat: 51, Lng: 10}})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, s, rejected)
	assert.Len(t, rejected.Radars, 1)
}

func TestAddRadar_GameCapacity(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.Game = GameConfig{Enabled: true, StartingFunds: 1000, BuildCost: 1, MaxRadars: 1}
	})
	s := e.NewState(models.DefaultFinancialConfig())

	s, _, err := e.AddRadar(s, NewRadar{Position: models.Point{Lat: 50, Lng: 10}})
	require.NoError(t, err)

	_, _, err = e.AddRadar(s, NewRadar{Position: models.Point{Lat: 51, Lng: 10}})
	assert.ErrorIs(t, err, ErrRadarCapacity)
	assert.Equal(t, 999.0, s.Funds)
}

func TestRemoveRadar(t *testing.T) {
	e := newTestEngine(t, nil)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))
	id := s.Radars[5].ID

	out, err := e.RemoveRadar(s, id)
	require.NoError(t, err)
	assert.Len(t, out.Radars, 23)
	_, found := out.FindRadar(id)
	assert.False(t, found)
	assert.Len(t, s.Radars, 24)

	_, err = e.RemoveRadar(out, id)
	assert.ErrorIs(t, err, ErrRadarNotFound)
}

func TestDeactivateRadars(t *testing.T) {
	e := newTestEngine(t, nil)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))

	out, n := e.DeactivateRadars(s, []string{s.Radars[0].ID, s.Radars[1].ID, "radar-unknown"})

	assert.Equal(t, 2, n)
	assert.False(t, out.Radars[0].IsActive)
	assert.Nil(t, out.Radars[0].ReactivationTime)
	assert.False(t, out.Radars[1].IsActive)
	assert.True(t, out.Radars[2].IsActive)

	// ручное выключение без срока не восстанавливается само
	for i := 0; i < 10; i++ {
		out, _ = e.Advance(out, 1)
	}
	assert.False(t, out.Radars[0].IsActive)
}

func TestSetFinancialConfig(t *testing.T) {
	e := newTestEngine(t, noSpawns)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))

	fc := models.FinancialConfig{RadarCostPerYear: 8760, FlightRevenue: 1, CancellationCost: 1, LostTrackingCostPerMinute: 1}
	s = e.SetFinancialConfig(s, fc)
	s, rep := e.Advance(s, 1)

	assert.Equal(t, fc, s.Finance)
	assert.InDelta(t, 24.0, rep.OperationalCost, 1e-9)
}

func TestRadarScopeQueries(t *testing.T) {
	e := newTestEngine(t, noSpawns)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))
	s.Aircraft = []models.Aircraft{flight(t, e, "LIS", "MAD", 0)}

	radars, ok := RadarsTracking(s, s.Aircraft[0].ID)
	require.True(t, ok)
	names := make([]string, 0, len(radars))
	for _, r := range radars {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "Lisbon Radar")
	assert.NotContains(t, names, "Helsinki Vantaa Radar")

	lisbon := s.Radars[20]
	require.Equal(t, "Lisbon Radar", lisbon.Name)
	visible, ok := AircraftVisibleBy(s, lisbon.ID)
	require.True(t, ok)
	assert.Len(t, visible, 1)

	s, err := e.ToggleRadar(s, lisbon.ID)
	require.NoError(t, err)
	visible, ok = AircraftVisibleBy(s, lisbon.ID)
	require.True(t, ok)
	assert.Empty(t, visible)

	_, ok = RadarsTracking(s, "ac-missing")
	assert.False(t, ok)
	_, ok = AircraftVisibleBy(s, "radar-missing")
	assert.False(t, ok)
}

func TestState_Counts(t *testing.T) {
	e := newTestEngine(t, noSpawns)
	s := e.LoadDefaultRadars(e.NewState(models.DefaultFinancialConfig()))
	s.Clock = 27.5
	lost := flight(t, e, "LHR", "CDG", 0.5)
	lost.ID = "lost"
	lost.Visibility = models.VisibilityLost
	s.Aircraft = []models.Aircraft{flight(t, e, "MAD", "LIS", 0.1), lost}
	s, _ = e.DeactivateRadars(s, []string{s.Radars[0].ID})

	c := s.Counts()

	assert.Equal(t, 2, c.Aircraft)
	assert.Equal(t, 1, c.Tracked)
	assert.Equal(t, 1, c.Lost)
	assert.Equal(t, 23, c.ActiveRadars)
	assert.Equal(t, 24, c.TotalRadars)
	assert.Equal(t, 1, c.Day)
	assert.InDelta(t, 3.5, c.TimeOfDay, 1e-9)
}
