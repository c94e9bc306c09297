package mqtt

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/radarsim/internal/config"
	"github.com/flybeeper/radarsim/internal/models"
	"github.com/flybeeper/radarsim/internal/service"
	"github.com/flybeeper/radarsim/internal/sim"
	"github.com/flybeeper/radarsim/internal/world"
	"github.com/flybeeper/radarsim/pkg/utils"
)

func startController(t *testing.T) *service.Controller {
	t.Helper()
	opts := service.DefaultOptions()
	opts.Seed = 7
	opts.StartPaused = true
	opts.TickInterval = 5 * time.Millisecond
	opts.Analysis.FlightsPerDay = 20
	opts.Analysis.RedundancyFlightsPerDay = 50

	c := service.NewController(world.Default(), opts, utils.Discard())
	c.Start()
	t.Cleanup(c.Stop)
	return c
}

func TestDispatch_RadarCommands(t *testing.T) {
	c := startController(t)
	ctx := context.Background()
	id := c.Snapshot().State.Radars[0].ID

	data, err := Dispatch(ctx, c, &Command{Name: CmdToggleRadar, RadarID: id})
	require.NoError(t, err)
	radar, ok := data.(models.Radar)
	require.True(t, ok)
	assert.False(t, radar.IsActive)

	fraction := 0.5
	data, err = Dispatch(ctx, c, &Command{Name: CmdBulkOutage, Fraction: &fraction})
	require.NoError(t, err)
	assert.Len(t, data.(map[string]interface{})["deactivated"], 12)

	_, err = Dispatch(ctx, c, &Command{Name: CmdLoadDefaultRadars})
	require.NoError(t, err)
	assert.Equal(t, 24, c.Snapshot().Counts.ActiveRadars)

	data, err = Dispatch(ctx, c, &Command{Name: CmdAddRadar, Radar: &sim.NewRadar{Name: "Shetland", Position: models.Point{Lat: 60.2, Lng: -1.2}}})
	require.NoError(t, err)
	added := data.(models.Radar)
	assert.Len(t, c.Snapshot().State.Radars, 25)

	_, err = Dispatch(ctx, c, &Command{Name: CmdRemoveRadar, RadarID: added.ID})
	require.NoError(t, err)
	_, err = Dispatch(ctx, c, &Command{Name: CmdRemoveRadar, RadarID: added.ID})
	assert.ErrorIs(t, err, sim.ErrRadarNotFound)

	data, err = Dispatch(ctx, c, &Command{Name: CmdDeactivateRadars, RadarIDs: []string{id}})
	require.NoError(t, err)
	assert.Equal(t, 1, data.(map[string]interface{})["deactivated"])
}

func TestDispatch_RunControl(t *testing.T) {
	c := startController(t)
	ctx := context.Background()

	_, err := Dispatch(ctx, c, &Command{Name: CmdSetSpeed, Speed: 60})
	require.NoError(t, err)
	assert.Equal(t, 60.0, c.Snapshot().Speed)

	_, err = Dispatch(ctx, c, &Command{Name: CmdResume})
	require.NoError(t, err)
	assert.True(t, c.Snapshot().Running)

	_, err = Dispatch(ctx, c, &Command{Name: CmdPause})
	require.NoError(t, err)
	assert.False(t, c.Snapshot().Running)

	clock := c.Snapshot().State.Clock
	data, err := Dispatch(ctx, c, &Command{Name: CmdStep, Hours: 0.25})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, data.(sim.TickReport).Dt, 1e-12)
	assert.InDelta(t, clock+0.25, c.Snapshot().State.Clock, 1e-9)

	fc := models.DefaultFinancialConfig()
	fc.FlightRevenue = 250
	_, err = Dispatch(ctx, c, &Command{Name: CmdSetFinance, Finance: &fc})
	require.NoError(t, err)
	assert.Equal(t, 250.0, c.Snapshot().State.Finance.FlightRevenue)
}

func TestDispatch_Analysis(t *testing.T) {
	c := startController(t)
	ctx := context.Background()

	data, err := Dispatch(ctx, c, &Command{Name: CmdStartAnalysis, Days: 1})
	require.NoError(t, err)
	job := data.(service.JobInfo)

	require.Eventually(t, func() bool {
		info, err := c.Job(job.ID)
		return err == nil && info.Status == service.JobCompleted
	}, 10*time.Second, 10*time.Millisecond)

	_, err = Dispatch(ctx, c, &Command{Name: CmdCancelAnalysis, JobID: "missing"})
	assert.ErrorIs(t, err, service.ErrJobNotFound)

	_, err = Dispatch(ctx, c, &Command{Name: CmdFindRedundant})
	require.NoError(t, err)
	assert.NotEmpty(t, c.Snapshot().RedundantRadarIDs)

	_, err = Dispatch(ctx, c, &Command{Name: "launch"})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestClient_HandleForwardsCommand(t *testing.T) {
	c := startController(t)
	client, err := NewClient(&config.MQTTConfig{URL: "tcp://127.0.0.1:1", ClientID: "test", TopicPrefix: "radarsim"}, c, utils.Discard())
	require.NoError(t, err)
	t.Cleanup(client.Disconnect)

	// без соединения результат не публикуется, но команда выполняется
	client.handle("radarsim/commands/step", []byte(`{"hours":1}`))
	assert.InDelta(t, 1.0, c.Snapshot().State.Clock, 1e-9)

	client.handle("radarsim/commands/step", []byte(`{"hours":-1}`))
	assert.InDelta(t, 1.0, c.Snapshot().State.Clock, 1e-9)

	assert.False(t, client.IsConnected())
	assert.ErrorIs(t, client.Publish("radarsim/events/radar", nil), ErrNotConnected)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestClient_MessagesRunInArrivalOrder(t *testing.T) {
	c := startController(t)
	client, err := NewClient(&config.MQTTConfig{URL: "tcp://127.0.0.1:1", ClientID: "test", TopicPrefix: "radarsim"}, c, utils.Discard())
	require.NoError(t, err)
	t.Cleanup(client.Disconnect)

	handler := client.messageHandler()
	for i := 1; i <= 50; i++ {
		handler(nil, fakeMessage{
			topic:   "radarsim/commands/set_speed",
			payload: []byte(fmt.Sprintf(`{"speed":%d}`, i)),
		})
	}
	handler(nil, fakeMessage{topic: "radarsim/commands/step", payload: []byte(`{"hours":1}`)})

	// шаг отправлен последним, после него все set_speed уже выполнены
	require.Eventually(t, func() bool {
		return c.Snapshot().State.Clock > 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 50.0, c.Snapshot().Speed)
}

func TestClient_DisconnectStopsWorker(t *testing.T) {
	c := startController(t)
	client, err := NewClient(&config.MQTTConfig{URL: "tcp://127.0.0.1:1", ClientID: "test", TopicPrefix: "radarsim"}, c, utils.Discard())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		client.Disconnect()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect did not return")
	}

	// после отключения сообщения отбрасываются, обработчик не блокируется
	handler := client.messageHandler()
	for i := 0; i < commandQueueSize+1; i++ {
		handler(nil, fakeMessage{topic: "radarsim/commands/step", payload: []byte(`{"hours":1}`)})
	}
}

func TestNewClient_Validation(t *testing.T) {
	c := startController(t)

	_, err := NewClient(nil, c, utils.Discard())
	assert.Error(t, err)
	_, err = NewClient(&config.MQTTConfig{}, nil, utils.Discard())
	assert.Error(t, err)
	_, err = NewClient(&config.MQTTConfig{}, c, nil)
	assert.Error(t, err)
}

type fakePublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][][]byte)
	}
	p.messages[topic] = append(p.messages[topic], payload)
	return nil
}

func (p *fakePublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages[topic])
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "r-7", requestID([]byte(`{"request_id":"r-7","hours":-1}`)))
	assert.Empty(t, requestID([]byte(`not json`)))
	assert.Empty(t, requestID(nil))
}
