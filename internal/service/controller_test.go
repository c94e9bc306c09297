package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/radarsim/internal/analysis"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/sim"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/utils"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Seed = 42
	opts.StartPaused = true
	opts.TickInterval = 5 * time.Millisecond
	opts.Analysis.FlightsPerDay = 20
	opts.Analysis.RedundancyFlightsPerDay = 50
	return opts
}

func startController(t *testing.T, opts Options) *Controller {
	t.Helper()
	c := NewController(world.Default(), opts, utils.Discard())
	c.Start()
	t.Cleanup(c.Stop)
	return c
}

func TestController_InitialSnapshot(t *testing.T) {
	c := NewController(world.Default(), testOptions(), utils.Discard())

	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Len(t, snap.State.Radars, 24)
	assert.Equal(t, 24, snap.Counts.ActiveRadars)
	assert.Zero(t, snap.Counts.UncoveredAirports)
	assert.False(t, snap.Running)
	assert.Equal(t, 120.0, snap.Speed)
	assert.NotNil(t, snap.RedundantRadarIDs)
}

func TestController_TickClampsWallDelta(t *testing.T) {
	opts := testOptions()
	opts.StartPaused = false
	c := NewController(world.Default(), opts, utils.Discard())

	now := time.Now()
	c.lastTick = now.Add(-10 * time.Second)
	c.tick(now)

	// 200 мс реального времени при x120
	assert.InDelta(t, 0.2*120/3600, c.Snapshot().State.Clock, 1e-12)
}

func TestController_PausedTickDoesNothing(t *testing.T) {
	c := NewController(world.Default(), testOptions(), utils.Discard())
	version := c.Snapshot().Version

	now := time.Now()
	c.lastTick = now.Add(-time.Second)
	c.tick(now)

	assert.Equal(t, version, c.Snapshot().Version)
	assert.Zero(t, c.Snapshot().State.Clock)
}

func TestController_RunsWhenResumed(t *testing.T) {
	c := startController(t, testOptions())
	ctx := context.Background()

	require.NoError(t, c.SetSpeed(ctx, 3600))
	require.NoError(t, c.SetRunning(ctx, true))

	require.Eventually(t, func() bool {
		return c.Snapshot().State.Clock > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, c.Snapshot().Running)

	assert.ErrorIs(t, c.SetSpeed(ctx, 0), ErrInvalidSpeed)
}

func TestController_CommandsDuringStart(t *testing.T) {
	c := NewController(world.Default(), testOptions(), utils.Discard())
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() { errs <- c.SetRunning(ctx, false) }()
	go func() { errs <- c.SetSpeed(ctx, 5) }()

	c.Start()
	t.Cleanup(c.Stop)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, 5.0, c.Snapshot().Speed)
	assert.False(t, c.Snapshot().Running)
}

func TestController_RadarCommands(t *testing.T) {
	c := startController(t, testOptions())
	ctx := context.Background()
	first := c.Snapshot().State.Radars[0]
	radarsVersion := c.Snapshot().RadarsVersion

	toggled, err := c.ToggleRadar(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.Equal(t, 23, c.Snapshot().Counts.ActiveRadars)
	assert.Greater(t, c.Snapshot().RadarsVersion, radarsVersion)

	_, err = c.ToggleRadar(ctx, "radar-missing")
	assert.ErrorIs(t, err, sim.ErrRadarNotFound)

	added, err := c.AddRadar(ctx, sim.NewRadar{Name: "North Sea", Position: models.Point{Lat: 56, Lng: 3}})
	require.NoError(t, err)
	assert.Equal(t, "North Sea", added.Name)
	assert.Len(t, c.Snapshot().State.Radars, 25)

	_, err = c.AddRadar(ctx, sim.NewRadar{Position: models.Point{Lat: 95, Lng: 3}})
	assert.Error(t, err)

	require.NoError(t, c.RemoveRadar(ctx, added.ID))
	assert.Len(t, c.Snapshot().State.Radars, 24)
	assert.ErrorIs(t, c.RemoveRadar(ctx, added.ID), sim.ErrRadarNotFound)

	ids, err := c.BulkOutage(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, ids, 12)

	require.NoError(t, c.LoadDefaultRadars(ctx))
	assert.Equal(t, 24, c.Snapshot().Counts.ActiveRadars)
}

func TestController_StepAndReport(t *testing.T) {
	c := startController(t, testOptions())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := c.Step(ctx, 0.1)
		require.NoError(t, err)
	}

	snap := c.Snapshot()
	assert.InDelta(t, 2.0, snap.State.Clock, 1e-9)
	assert.NotEmpty(t, snap.State.Aircraft)
	require.NotNil(t, snap.LastTick)

	report := c.LiveReport()
	assert.Equal(t, snap.State.Metrics.TotalSpawnedFlights, report.TotalFlights)
	assert.InDelta(t, 2.0/24, report.TotalDays, 1e-12)
	assert.Equal(t, snap.NetProfitLoss, report.NetProfitLoss)

	ac := snap.State.Aircraft[0]
	radars, ok := c.RadarsTracking(ac.ID)
	require.True(t, ok)
	assert.Equal(t, ac.IsTracked(), len(radars) > 0)
}

func TestController_SnapshotIsolated(t *testing.T) {
	c := startController(t, testOptions())
	ctx := context.Background()

	before := c.Snapshot()
	_, err := c.ToggleRadar(ctx, before.State.Radars[0].ID)
	require.NoError(t, err)

	assert.True(t, before.State.Radars[0].IsActive, "published snapshot must not change")
	assert.False(t, c.Snapshot().State.Radars[0].IsActive)
}

func TestController_SetFinancialConfig(t *testing.T) {
	c := startController(t, testOptions())
	ctx := context.Background()

	fc := models.DefaultFinancialConfig()
	fc.FlightRevenue = 300
	require.NoError(t, c.SetFinancialConfig(ctx, fc))
	assert.Equal(t, 300.0, c.Snapshot().State.Finance.FlightRevenue)

	fc.CancellationCost = -1
	assert.Error(t, c.SetFinancialConfig(ctx, fc))
}

func TestController_Subscribe(t *testing.T) {
	c := startController(t, testOptions())
	ch, unsubscribe := c.Subscribe()

	_, err := c.Step(context.Background(), 0.05)
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.InDelta(t, 0.05, snap.State.Clock, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("snapshot not delivered")
	}

	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
	unsubscribe()
}

func TestController_SlowSubscriberGetsLatest(t *testing.T) {
	opts := testOptions()
	opts.SubscriberBuffer = 1
	c := startController(t, opts)
	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	for i := 0; i < 5; i++ {
		_, err := c.Step(context.Background(), 0.01)
		require.NoError(t, err)
	}

	snap := <-ch
	assert.Equal(t, c.Snapshot().Version, snap.Version)
}

func TestController_StopClosesSubscriptions(t *testing.T) {
	c := NewController(world.Default(), testOptions(), utils.Discard())
	c.Start()
	ch, _ := c.Subscribe()

	c.Stop()

	_, open := <-ch
	assert.False(t, open)
	_, err := c.Step(context.Background(), 1)
	assert.ErrorIs(t, err, ErrStopped)
	c.Stop()
}

func TestController_Analysis(t *testing.T) {
	c := startController(t, testOptions())

	var mu sync.Mutex
	var completed []JobInfo
	c.OnAnalysisComplete(func(info JobInfo) {
		mu.Lock()
		completed = append(completed, info)
		mu.Unlock()
	})

	job, err := c.StartAnalysis(3)
	require.NoError(t, err)
	assert.Equal(t, JobRunning, job.Status)
	assert.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		info, err := c.Job(job.ID)
		return err == nil && info.Status == JobCompleted
	}, 10*time.Second, 10*time.Millisecond)

	info, err := c.Job(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, info.Progress)
	require.NotNil(t, info.Result)
	assert.Equal(t, 3.0, info.Result.TotalDays)
	assert.Same(t, info.Result, c.LastAnalysis())
	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.LastAnalysis == info.Result && !snap.AnalysisRunning
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(completed) == 1
	}, time.Second, 10*time.Millisecond)

	jobs := c.Jobs()
	require.Len(t, jobs, 1)
	assert.Nil(t, jobs[0].Result)
}

func TestController_AnalysisExclusiveAndCancellable(t *testing.T) {
	opts := testOptions()
	opts.Analysis.FlightsPerDay = 2000
	c := startController(t, opts)

	job, err := c.StartAnalysis(3650)
	require.NoError(t, err)

	_, err = c.StartAnalysis(1)
	assert.ErrorIs(t, err, ErrAnalysisRunning)

	require.NoError(t, c.CancelJob(job.ID))
	require.Eventually(t, func() bool {
		info, err := c.Job(job.ID)
		return err == nil && info.Status == JobCancelled
	}, 10*time.Second, 10*time.Millisecond)
	assert.Nil(t, c.LastAnalysis())

	_, err = c.StartAnalysis(1)
	assert.NoError(t, err)
}

func TestController_AnalysisErrors(t *testing.T) {
	c := startController(t, testOptions())

	_, err := c.StartAnalysis(0)
	assert.ErrorIs(t, err, analysis.ErrInvalidDays)

	_, err = c.Job("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, c.CancelJob("missing"), ErrJobNotFound)
}

func TestController_FindRedundantThenDeactivate(t *testing.T) {
	c := startController(t, testOptions())
	ctx := context.Background()

	res, err := c.FindRedundant(ctx)
	require.NoError(t, err)
	require.Len(t, res.Suggested, 5)
	assert.Equal(t, res.Suggested, c.Snapshot().RedundantRadarIDs)

	n, err := c.DeactivateRadars(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	snap := c.Snapshot()
	assert.Equal(t, 19, snap.Counts.ActiveRadars)
	assert.Empty(t, snap.RedundantRadarIDs)
	for _, id := range res.Suggested {
		idx, ok := snap.State.FindRadar(id)
		require.True(t, ok)
		assert.False(t, snap.State.Radars[idx].IsActive)
	}
}

func TestController_CommandHonoursContext(t *testing.T) {
	c := NewController(world.Default(), testOptions(), utils.Discard())
	defer c.Stop()

	// цикл не запущен, буфер команд переполнен
	for i := 0; i < cap(c.commands); i++ {
		c.commands <- command{fn: func() error { return nil }, done: make(chan error, 1)}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.SetRunning(ctx, true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
