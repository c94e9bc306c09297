package benchmarks

// Бенчмарки сериализации снимка и разбора команд
//
// Ожидаемые результаты:
// - EncodeSnapshot (msgpack) быстрее и компактнее JSON
// - ParseCommand: < 5µs/op

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/flybeeper/radarsim/internal/mqtt"
	"github.com/flybeeper/radarsim/internal/repository"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/pkg/utils"
)

func benchSnapshot(b *testing.B) *service.Snapshot {
	b.Helper()
	e, s := warmState(b)
	return &service.Snapshot{
		Version:       1,
		RadarsVersion: 1,
		GeneratedAt:   time.Now(),
		Speed:         120,
		State:         s,
		Counts:        s.Counts(),
		TargetFleet:   e.TargetFleetSize(s.Clock),
		NetProfitLoss: s.Metrics.NetProfitLoss(),
	}
}

// BenchmarkSnapshotCodec msgpack для Redis против JSON для WebSocket
func BenchmarkSnapshotCodec(b *testing.B) {
	snap := benchSnapshot(b)

	b.Run("MsgpackEncode", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			data, err := repository.EncodeSnapshot(snap)
			if err != nil {
				b.Fatal(err)
			}
			b.SetBytes(int64(len(data)))
		}
	})

	b.Run("JSONEncode", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			data, err := json.Marshal(snap)
			if err != nil {
				b.Fatal(err)
			}
			b.SetBytes(int64(len(data)))
		}
	})

	data, err := repository.EncodeSnapshot(snap)
	if err != nil {
		b.Fatal(err)
	}
	b.Run("MsgpackDecode", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := repository.DecodeSnapshot(data); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkParseCommand разбор MQTT команды
func BenchmarkParseCommand(b *testing.B) {
	parser := mqtt.NewParser("radarsim", utils.Discard())
	commands := []struct {
		name    string
		topic   string
		payload []byte
	}{
		{"Toggle", "radarsim/commands/toggle_radar", []byte(`{"request_id":"r1","radar_id":"radar-3"}`)},
		{"AddRadar", "radarsim/commands/add_radar", []byte(`{"request_id":"r2","radar":{"name":"North Sea","position":{"lat":56,"lng":3}}}`)},
		{"Step", "radarsim/commands/step", []byte(`{"hours":0.5}`)},
	}

	for _, cmd := range commands {
		b.Run(cmd.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := parser.Parse(cmd.topic, cmd.payload); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
