package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal команды управления по источнику и результату
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radarsim_commands_total",
		Help: "Total number of control commands by source, command and status",
	}, []string{"source", "command", "status"}) // source: http/mqtt, status: ok/rejected

	// CommandQueueDepth текущая длина очереди команд контроллера
	CommandQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radarsim_command_queue_depth",
		Help: "Current number of commands waiting for the controller loop",
	})

	// SnapshotSubscribers количество подписчиков на снимки
	SnapshotSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radarsim_snapshot_subscribers",
		Help: "Current number of snapshot subscribers",
	})

	// SnapshotsDropped снимки, не доставленные медленным подписчикам
	SnapshotsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "radarsim_snapshots_dropped_total",
		Help: "Number of snapshots dropped because a subscriber was not ready",
	})
)

// ObserveCommand учитывает команду
func ObserveCommand(source, command string, err error) {
	status := "ok"
	if err != nil {
		status = "rejected"
	}
	CommandsTotal.WithLabelValues(source, command, status).Inc()
}
