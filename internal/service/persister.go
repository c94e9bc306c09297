package service

import (
	"context"
	"time"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// SnapshotSink внешнее хранилище снимков, гео-индекса радаров и отчетов
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	IndexRadars(ctx context.Context, radars []models.Radar) error
	SaveReport(ctx context.Context, id string, report *models.SimulationResult) error
}

// Persister сохраняет снимки контроллера не чаще interval, переиндексирует
// радары при смене RadarsVersion и сохраняет отчеты завершенных анализов.
type Persister struct {
	controller *Controller
	sink       SnapshotSink
	interval   time.Duration
	timeout    time.Duration
	logger     *utils.Logger
}

// NewPersister создает сохранение снимков во внешнее хранилище
func NewPersister(c *Controller, sink SnapshotSink, interval time.Duration, logger *utils.Logger) *Persister {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = utils.DefaultLogger()
	}
	p := &Persister{
		controller: c,
		sink:       sink,
		interval:   interval,
		timeout:    5 * time.Second,
		logger:     logger,
	}
	c.OnAnalysisComplete(p.saveReport)
	return p
}

// Run работает до отмены ctx или остановки контроллера
func (p *Persister) Run(ctx context.Context) error {
	snaps, unsubscribe := p.controller.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var (
		pending       *Snapshot
		radarsVersion uint64
	)
	p.handle(p.controller.Snapshot(), &radarsVersion)
	p.save(p.controller.Snapshot())

	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				p.save(pending)
			}
			return nil
		case snap, ok := <-snaps:
			if !ok {
				if pending != nil {
					p.save(pending)
				}
				return nil
			}
			p.handle(snap, &radarsVersion)
			pending = snap
		case <-ticker.C:
			if pending != nil {
				p.save(pending)
				pending = nil
			}
		}
	}
}

func (p *Persister) handle(snap *Snapshot, radarsVersion *uint64) {
	if snap == nil || snap.RadarsVersion == *radarsVersion {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.sink.IndexRadars(ctx, snap.State.Radars); err != nil {
		p.logger.WithError(err).Warn("Failed to index radars")
		return
	}
	*radarsVersion = snap.RadarsVersion
}

func (p *Persister) save(snap *Snapshot) {
	if snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.sink.SaveSnapshot(ctx, snap); err != nil {
		p.logger.WithField("version", snap.Version).WithError(err).Warn("Failed to save snapshot")
	}
}

func (p *Persister) saveReport(info JobInfo) {
	if info.Status != JobCompleted || info.Result == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.sink.SaveReport(ctx, info.ID, info.Result); err != nil {
		p.logger.WithField("job_id", info.ID).WithError(err).Warn("Failed to save analysis report")
	}
}
