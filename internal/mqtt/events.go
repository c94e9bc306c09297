package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// Publisher отправка сообщений в брокер
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// SnapshotSource источник снимков и событий анализа
type SnapshotSource interface {
	Snapshot() *service.Snapshot
	Subscribe() (<-chan *service.Snapshot, func())
	OnAnalysisComplete(fn func(service.JobInfo))
}

// RadarEvent состояние радаров после изменения
type RadarEvent struct {
	RadarsVersion     uint64         `json:"radars_version"`
	ClockHours        float64        `json:"clock_hours"`
	ActiveRadars      int            `json:"active_radars"`
	TotalRadars       int            `json:"total_radars"`
	UncoveredAirports int            `json:"uncovered_airports"`
	Radars            []models.Radar `json:"radars"`
}

// AnalysisEvent завершение пакетного анализа
type AnalysisEvent struct {
	JobID         string            `json:"job_id"`
	Days          int               `json:"days"`
	Status        service.JobStatus `json:"status"`
	Error         string            `json:"error,omitempty"`
	NetProfitLoss *float64          `json:"net_profit_loss,omitempty"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
}

// Events публикует события радаров и анализа
type Events struct {
	source    SnapshotSource
	publisher Publisher
	parser    *Parser
	logger    *utils.Logger
}

// NewEvents создает публикатор событий
func NewEvents(source SnapshotSource, publisher Publisher, parser *Parser, logger *utils.Logger) *Events {
	if logger == nil {
		logger = utils.DefaultLogger()
	}
	e := &Events{source: source, publisher: publisher, parser: parser, logger: logger}
	source.OnAnalysisComplete(e.publishAnalysis)
	return e
}

// Run публикует событие радаров при каждом изменении RadarsVersion
func (e *Events) Run(ctx context.Context) error {
	snaps, unsubscribe := e.source.Subscribe()
	defer unsubscribe()

	var version uint64
	if snap := e.source.Snapshot(); snap != nil {
		e.publishRadars(snap)
		version = snap.RadarsVersion
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if snap.RadarsVersion == version {
				continue
			}
			version = snap.RadarsVersion
			e.publishRadars(snap)
		}
	}
}

func (e *Events) publishRadars(snap *service.Snapshot) {
	e.publish(e.parser.EventTopic("radar"), RadarEvent{
		RadarsVersion:     snap.RadarsVersion,
		ClockHours:        snap.State.Clock,
		ActiveRadars:      snap.Counts.ActiveRadars,
		TotalRadars:       snap.Counts.TotalRadars,
		UncoveredAirports: snap.Counts.UncoveredAirports,
		Radars:            snap.State.Radars,
	})
}

func (e *Events) publishAnalysis(info service.JobInfo) {
	ev := AnalysisEvent{
		JobID:      info.ID,
		Days:       info.Days,
		Status:     info.Status,
		Error:      info.Error,
		FinishedAt: info.FinishedAt,
	}
	if info.Result != nil {
		pnl := info.Result.NetProfitLoss
		ev.NetProfitLoss = &pnl
	}
	e.publish(e.parser.EventTopic("analysis"), ev)
}

func (e *Events) publish(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		e.logger.WithField("topic", topic).WithError(err).Error("Failed to marshal event")
		return
	}
	if err := e.publisher.Publish(topic, payload); err != nil {
		e.logger.WithField("topic", topic).WithError(err).Debug("Failed to publish event")
	}
}
