package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brunoga/deep"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/flybeeper/radarsim/internal/analysis"
	"github.com/flybeeper/radarsim/internal/metrics"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/sim"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/rand"
	"github.com/flybeeper/radarsim/pkg/utils"
)

var (
	// ErrAnalysisRunning уже выполняется пакетный анализ
	ErrAnalysisRunning = errors.New("analysis already running")
	// ErrJobNotFound задача не найдена или вытеснена из истории
	ErrJobNotFound = errors.New("analysis job not found")
	// ErrStopped контроллер остановлен
	ErrStopped = errors.New("controller stopped")
	// ErrInvalidSpeed множитель скорости должен быть положительным
	ErrInvalidSpeed = errors.New("speed multiplier must be positive")
)

type command struct {
	name string
	fn   func() error
	done chan error
}

// Controller владеет состоянием симуляции. Все изменения выполняются
// в одной горутине: команды приходят через канал, шаги по таймеру.
type Controller struct {
	opts   Options
	world  *world.World
	engine *sim.Engine
	logger *utils.Logger

	commands chan command
	current  atomic.Pointer[Snapshot]

	subMu   sync.RWMutex
	subs    map[uint64]chan *Snapshot
	nextSub uint64

	jobMu      sync.Mutex
	jobs       *expirable.LRU[string, *Job]
	activeJob  *Job
	hooks      []func(JobInfo)
	lastResult atomic.Pointer[models.SimulationResult]
	seedSeq    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	// Поля ниже принадлежат горутине цикла
	state         sim.State
	running       bool
	speed         float64
	lastTick      time.Time
	version       uint64
	radarsVersion uint64
	redundant     []string
	lastReport    *sim.TickReport
}

// NewController создает контроллер с предопределенным набором радаров
func NewController(w *world.World, opts Options, logger *utils.Logger) *Controller {
	if logger == nil {
		logger = utils.DefaultLogger()
	}
	var rng rand.Source
	if opts.Seed != 0 {
		rng = rand.New(opts.Seed)
	} else {
		rng = rand.NewTimeSeeded()
	}
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		opts:     opts,
		world:    w,
		engine:   sim.NewEngine(opts.Sim, w, rng),
		logger:   logger,
		commands: make(chan command, opts.CommandBuffer),
		subs:     make(map[uint64]chan *Snapshot),
		jobs:     expirable.NewLRU[string, *Job](opts.JobHistory, nil, opts.JobTTL),
		ctx:      ctx,
		cancel:   cancel,
		running:  !opts.StartPaused,
		speed:    opts.SpeedMultiplier,
	}
	c.state = c.engine.LoadDefaultRadars(c.engine.NewState(opts.Finance))
	c.radarsVersion = 1
	c.publish()
	return c
}

// Start запускает цикл симуляции
func (c *Controller) Start() {
	// после запуска цикла эти поля принадлежат ему
	fields := map[string]interface{}{
		"tick_interval": c.opts.TickInterval,
		"speed":         c.speed,
		"running":       c.running,
		"radars":        len(c.state.Radars),
	}

	c.wg.Add(1)
	go c.loop()

	c.logger.WithFields(fields).Info("Simulation controller started")
}

// Stop останавливает цикл и текущий анализ, закрывает подписки
func (c *Controller) Stop() {
	c.once.Do(func() {
		c.cancel()
		c.wg.Wait()

		c.subMu.Lock()
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
		c.subMu.Unlock()
		metrics.SnapshotSubscribers.Set(0)

		c.logger.Info("Simulation controller stopped")
	})
}

func (c *Controller) loop() {
	defer c.wg.Done()

	interval := c.opts.TickInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	c.lastTick = time.Now()

	for {
		select {
		case <-c.ctx.Done():
			return
		case cmd := <-c.commands:
			metrics.CommandQueueDepth.Set(float64(len(c.commands)))
			err := cmd.fn()
			if err == nil {
				c.publish()
			}
			cmd.done <- err
		case now := <-ticker.C:
			c.tick(now)
		}
	}
}

func (c *Controller) tick(now time.Time) {
	wall := now.Sub(c.lastTick)
	c.lastTick = now
	if !c.running || wall <= 0 {
		return
	}
	if c.opts.MaxStep > 0 && wall > c.opts.MaxStep {
		wall = c.opts.MaxStep
	}
	c.step(wall.Seconds() * c.speed / 3600)
}

// step продвигает состояние на dt часов. Вызывается только из цикла.
func (c *Controller) step(dt float64) sim.TickReport {
	start := time.Now()
	next, rep := c.engine.Advance(c.state, dt)
	c.state = next
	if rep.CoverageChanged {
		c.radarsVersion++
	}
	c.lastReport = &rep

	metrics.TicksTotal.Inc()
	metrics.TickDuration.Observe(time.Since(start).Seconds())
	metrics.FlightsSpawned.Add(float64(rep.Spawns))
	metrics.FlightsCancelled.Add(float64(rep.Cancellations))
	metrics.FlightsArrived.Add(float64(rep.Arrivals))
	metrics.RadarTransitions.WithLabelValues("failed").Add(float64(len(rep.Failed)))
	metrics.RadarTransitions.WithLabelValues("reactivated").Add(float64(len(rep.Reactivated)))

	if len(rep.Failed) > 0 || len(rep.Reactivated) > 0 {
		c.logger.WithFields(map[string]interface{}{
			"clock":       c.state.Clock,
			"failed":      rep.Failed,
			"reactivated": rep.Reactivated,
		}).Info("Radar states changed")
	}

	c.publish()
	return rep
}

// publish строит снимок и раздает его подписчикам без блокировки.
// Медленный подписчик получает самый свежий снимок.
func (c *Controller) publish() {
	c.version++
	counts := c.state.Counts()
	snap := &Snapshot{
		Version:           c.version,
		RadarsVersion:     c.radarsVersion,
		GeneratedAt:       time.Now(),
		Running:           c.running,
		Speed:             c.speed,
		State:             deep.MustCopy(c.state),
		Counts:            counts,
		TargetFleet:       c.engine.TargetFleetSize(c.state.Clock),
		NetProfitLoss:     c.state.Metrics.NetProfitLoss(),
		RedundantRadarIDs: slices.Clone(c.redundant),
		AnalysisRunning:   c.analysisRunning(),
		LastAnalysis:      c.lastResult.Load(),
		LastTick:          c.lastReport,
	}
	if snap.RedundantRadarIDs == nil {
		snap.RedundantRadarIDs = []string{}
	}
	c.current.Store(snap)

	metrics.SimulationClockHours.Set(c.state.Clock)
	metrics.AircraftInFlight.WithLabelValues(string(models.VisibilityTracked)).Set(float64(counts.Tracked))
	metrics.AircraftInFlight.WithLabelValues(string(models.VisibilityLost)).Set(float64(counts.Lost))
	metrics.RadarsTotal.WithLabelValues("active").Set(float64(counts.ActiveRadars))
	metrics.RadarsTotal.WithLabelValues("inactive").Set(float64(counts.TotalRadars - counts.ActiveRadars))
	metrics.UncoveredAirports.Set(float64(counts.UncoveredAirports))
	metrics.NetProfitLoss.Set(snap.NetProfitLoss)

	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// вытесняем устаревший снимок
		select {
		case <-ch:
			metrics.SnapshotsDropped.Inc()
		default:
		}
		select {
		case ch <- snap:
		default:
			metrics.SnapshotsDropped.Inc()
		}
	}
}

// Snapshot возвращает последний опубликованный снимок
func (c *Controller) Snapshot() *Snapshot {
	return c.current.Load()
}

// World возвращает граф маршрутов
func (c *Controller) World() *world.World {
	return c.world
}

// Subscribe подписывает на снимки. Канал закрывается при отписке или
// остановке контроллера.
func (c *Controller) Subscribe() (<-chan *Snapshot, func()) {
	size := c.opts.SubscriberBuffer
	if size <= 0 {
		size = 1
	}
	ch := make(chan *Snapshot, size)

	c.subMu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = ch
	metrics.SnapshotSubscribers.Set(float64(len(c.subs)))
	c.subMu.Unlock()

	unsubscribe := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
			metrics.SnapshotSubscribers.Set(float64(len(c.subs)))
		}
	}
	return ch, unsubscribe
}

// exec выполняет fn в горутине цикла и ждет результата
func (c *Controller) exec(ctx context.Context, name string, fn func() error) error {
	cmd := command{name: name, fn: fn, done: make(chan error, 1)}

	select {
	case c.commands <- cmd:
		metrics.CommandQueueDepth.Set(float64(len(c.commands)))
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrStopped
	}

	select {
	case err := <-cmd.done:
		if err != nil {
			c.logger.WithField("command", name).WithError(err).Warn("Command rejected")
		} else {
			c.logger.WithField("command", name).Debug("Command applied")
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrStopped
	}
}

func (c *Controller) commitRadars(next sim.State) {
	c.state = next
	c.radarsVersion++
}

// ToggleRadar переключает радар
func (c *Controller) ToggleRadar(ctx context.Context, id string) (models.Radar, error) {
	var radar models.Radar
	err := c.exec(ctx, "toggle_radar", func() error {
		next, err := c.engine.ToggleRadar(c.state, id)
		if err != nil {
			return err
		}
		idx, _ := next.FindRadar(id)
		radar = next.Radars[idx]
		c.commitRadars(next)
		return nil
	})
	return radar, err
}

// BulkOutage выключает долю радаров. Отрицательная доля означает
// значение из настроек.
func (c *Controller) BulkOutage(ctx context.Context, fraction float64) ([]string, error) {
	if fraction < 0 {
		fraction = c.opts.Sim.BulkOutageFraction
	}
	var ids []string
	err := c.exec(ctx, "bulk_outage", func() error {
		next, out, err := c.engine.BulkOutage(c.state, fraction, nil)
		if err != nil {
			return err
		}
		ids = out
		c.commitRadars(next)
		return nil
	})
	return ids, err
}

// AddRadar добавляет радар
func (c *Controller) AddRadar(ctx context.Context, req sim.NewRadar) (models.Radar, error) {
	if err := req.Position.Validate(); err != nil {
		return models.Radar{}, err
	}
	var radar models.Radar
	err := c.exec(ctx, "add_radar", func() error {
		next, r, err := c.engine.AddRadar(c.state, req)
		if err != nil {
			return err
		}
		radar = r
		c.commitRadars(next)
		return nil
	})
	return radar, err
}

// RemoveRadar удаляет радар
func (c *Controller) RemoveRadar(ctx context.Context, id string) error {
	return c.exec(ctx, "remove_radar", func() error {
		next, err := c.engine.RemoveRadar(c.state, id)
		if err != nil {
			return err
		}
		c.commitRadars(next)
		return nil
	})
}

// DeactivateRadars выключает перечисленные радары. Пустой список означает
// последние предложенные поиском избыточных радаров.
func (c *Controller) DeactivateRadars(ctx context.Context, ids []string) (int, error) {
	var n int
	err := c.exec(ctx, "deactivate_radars", func() error {
		list := ids
		if len(list) == 0 {
			list = c.redundant
		}
		next, count := c.engine.DeactivateRadars(c.state, list)
		n = count
		c.redundant = nil
		c.commitRadars(next)
		return nil
	})
	return n, err
}

// LoadDefaultRadars сбрасывает симуляцию к предопределенному набору радаров
func (c *Controller) LoadDefaultRadars(ctx context.Context) error {
	return c.exec(ctx, "load_default_radars", func() error {
		c.commitRadars(c.engine.LoadDefaultRadars(c.state))
		c.redundant = nil
		c.lastReport = nil
		return nil
	})
}

// SetFinancialConfig заменяет финансовые параметры
func (c *Controller) SetFinancialConfig(ctx context.Context, fc models.FinancialConfig) error {
	if err := fc.Validate(); err != nil {
		return err
	}
	return c.exec(ctx, "set_finance", func() error {
		c.state = c.engine.SetFinancialConfig(c.state, fc)
		return nil
	})
}

// SetSpeed меняет множитель скорости симуляции
func (c *Controller) SetSpeed(ctx context.Context, speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	return c.exec(ctx, "set_speed", func() error {
		c.speed = speed
		return nil
	})
}

// SetRunning ставит симуляцию на паузу или снимает с нее
func (c *Controller) SetRunning(ctx context.Context, running bool) error {
	return c.exec(ctx, "set_running", func() error {
		c.running = running
		c.lastTick = time.Now()
		return nil
	})
}

// Step продвигает симуляцию на hours часов вне зависимости от паузы
func (c *Controller) Step(ctx context.Context, hours float64) (sim.TickReport, error) {
	var rep sim.TickReport
	err := c.exec(ctx, "step", func() error {
		rep = c.step(hours)
		return nil
	})
	return rep, err
}

// LiveReport строит отчет по живым метрикам последнего снимка
func (c *Controller) LiveReport() *models.SimulationResult {
	return sim.LiveReport(c.Snapshot().State)
}

// RadarsTracking радары, видящие судно
func (c *Controller) RadarsTracking(aircraftID string) ([]models.Radar, bool) {
	return sim.RadarsTracking(c.Snapshot().State, aircraftID)
}

// AircraftVisibleBy суда в зоне радара
func (c *Controller) AircraftVisibleBy(radarID string) ([]models.Aircraft, bool) {
	return sim.AircraftVisibleBy(c.Snapshot().State, radarID)
}

func (c *Controller) analysisRand() rand.Source {
	if c.opts.Seed != 0 {
		return rand.New(c.opts.Seed + c.seedSeq.Add(1))
	}
	return rand.NewTimeSeeded()
}

func (c *Controller) analysisInput(snap *Snapshot) analysis.Input {
	return analysis.Input{
		World:   c.world,
		Radars:  snap.State.Radars,
		Finance: snap.State.Finance,
		Config:  c.opts.Analysis,
	}
}

func (c *Controller) analysisRunning() bool {
	c.jobMu.Lock()
	defer c.jobMu.Unlock()
	return c.activeJob != nil && !c.activeJob.Done()
}

// OnAnalysisComplete регистрирует обработчик завершения анализа
func (c *Controller) OnAnalysisComplete(fn func(JobInfo)) {
	c.jobMu.Lock()
	defer c.jobMu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// StartAnalysis запускает пакетный анализ на days суток над текущим снимком.
// Одновременно выполняется не более одного анализа.
func (c *Controller) StartAnalysis(days int) (JobInfo, error) {
	if days <= 0 || (c.opts.Analysis.MaxDays > 0 && days > c.opts.Analysis.MaxDays) {
		return JobInfo{}, fmt.Errorf("%w: %d", analysis.ErrInvalidDays, days)
	}
	if c.ctx.Err() != nil {
		return JobInfo{}, ErrStopped
	}

	c.jobMu.Lock()
	if c.activeJob != nil && !c.activeJob.Done() {
		c.jobMu.Unlock()
		return JobInfo{}, ErrAnalysisRunning
	}
	ctx, cancel := context.WithCancel(c.ctx)
	job := newJob(uuid.NewString(), days, cancel)
	c.activeJob = job
	c.jobs.Add(job.id, job)
	hooks := slices.Clone(c.hooks)
	c.jobMu.Unlock()

	in := c.analysisInput(c.Snapshot())
	rng := c.analysisRand()

	c.logger.WithFields(map[string]interface{}{
		"job_id": job.id,
		"days":   days,
		"radars": len(in.Radars),
	}).Info("Analysis started")

	started := job.Info()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		start := time.Now()
		result, err := analysis.RunBatch(ctx, in, days, rng, job.setProgress)
		if err == nil {
			c.lastResult.Store(result)
		}
		job.finish(result, err)
		metrics.AnalysisDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())

		info := job.Info()
		metrics.AnalysisRuns.WithLabelValues("batch", string(info.Status)).Inc()
		entry := c.logger.WithField("job_id", job.id).WithField("duration", time.Since(start))
		if err != nil {
			entry.WithError(err).Warn("Analysis finished without result")
		} else {
			entry.WithField("net_profit_loss", result.NetProfitLoss).Info("Analysis completed")
		}

		// снимок с новым результатом и снятым флагом анализа
		c.exec(context.Background(), "analysis_finished", func() error { return nil })

		for _, hook := range hooks {
			hook(info)
		}
	}()

	return started, nil
}

// Job возвращает состояние задачи анализа
func (c *Controller) Job(id string) (JobInfo, error) {
	job, ok := c.jobs.Get(id)
	if !ok {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job.Info(), nil
}

// Jobs возвращает задачи из истории, новые первыми
func (c *Controller) Jobs() []JobInfo {
	jobs := c.jobs.Values()
	out := make([]JobInfo, 0, len(jobs))
	for _, job := range jobs {
		info := job.Info()
		info.Result = nil
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// CancelJob отменяет выполняющийся анализ
func (c *Controller) CancelJob(id string) error {
	job, ok := c.jobs.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !job.Done() {
		job.cancel()
	}
	return nil
}

// LastAnalysis последний успешный результат пакетного анализа
func (c *Controller) LastAnalysis() *models.SimulationResult {
	return c.lastResult.Load()
}

// FindRedundant ищет избыточные радары над текущим снимком и запоминает
// предложенные идентификаторы
func (c *Controller) FindRedundant(ctx context.Context) (*analysis.RedundancyResult, error) {
	start := time.Now()
	res, err := analysis.FindRedundant(ctx, c.analysisInput(c.Snapshot()), c.analysisRand())
	metrics.AnalysisDuration.WithLabelValues("redundancy").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnalysisRuns.WithLabelValues("redundancy", "error").Inc()
		return nil, err
	}
	metrics.AnalysisRuns.WithLabelValues("redundancy", "success").Inc()

	err = c.exec(ctx, "store_redundant", func() error {
		c.redundant = slices.Clone(res.Suggested)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
