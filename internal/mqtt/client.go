package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/flybeeper/radarsim/internal/config"
	"github.com/flybeeper/radarsim/internal/metrics"
	"github.com/flybeeper/radarsim/pkg/utils"
)

// ErrNotConnected клиент не подключен к брокеру
var ErrNotConnected = errors.New("mqtt client is not connected")

// размер очереди входящих команд; при переполнении обработчик paho ждет
const commandQueueSize = 256

// Client MQTT транспорт команд симуляции
type Client struct {
	client    mqtt.Client
	config    *config.MQTTConfig
	logger    *utils.Logger
	parser    *Parser
	ctrl      Controller
	queue     chan mqtt.Message
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected bool
	mu        sync.RWMutex
}

// NewClient создает MQTT клиент, пересылающий команды в контроллер
func NewClient(cfg *config.MQTTConfig, ctrl Controller, logger *utils.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if ctrl == nil {
		return nil, fmt.Errorf("controller cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		config: cfg,
		logger: logger,
		parser: NewParser(cfg.TopicPrefix, logger),
		ctrl:   ctrl,
		queue:  make(chan mqtt.Message, commandQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(cfg.CleanSession)
	// обработчик вызывается последовательно, порядок команд сохраняется
	opts.SetOrderMatters(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	// Подписка после каждого (пере)подключения
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()

		c.logger.WithField("broker", cfg.URL).Info("Connected to MQTT broker")
		metrics.MQTTConnectionStatus.Set(1)

		topic := c.parser.CommandTopic()
		if token := client.Subscribe(topic, 1, c.messageHandler()); token.Wait() && token.Error() != nil {
			c.logger.WithFields(map[string]interface{}{
				"topic": topic,
				"error": token.Error(),
			}).Error("Failed to subscribe to topic")
		} else {
			c.logger.WithField("topic", topic).Info("Subscribed to MQTT topic")
		}
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.logger.WithField("error", err).Warn("Lost connection to MQTT broker")
		metrics.MQTTConnectionStatus.Set(0)
	})

	c.client = mqtt.NewClient(opts)

	c.wg.Add(1)
	go c.worker()

	return c, nil
}

// Connect подключается к MQTT брокеру
func (c *Client) Connect() error {
	c.logger.WithField("broker", c.config.URL).Info("Connecting to MQTT broker")

	// с ConnectRetry токен завершается только после подключения,
	// повторные попытки продолжаются в фоне
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connection timeout")
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	// Ждем подтверждения подключения
	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("connection timeout")
		case <-ticker.C:
			if c.IsConnected() {
				return nil
			}
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
}

// Disconnect отключается от брокера и дожидается обработки команд
func (c *Client) Disconnect() {
	c.logger.Info("Disconnecting from MQTT broker")

	c.cancel()

	if c.client.IsConnected() {
		c.client.Disconnect(1000)
	}

	c.wg.Wait()
	metrics.MQTTConnectionStatus.Set(0)
	c.logger.Info("MQTT client disconnected")
}

// IsConnected проверяет статус подключения
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Parser парсер топиков клиента
func (c *Client) Parser() *Parser {
	return c.parser
}

func (c *Client) messageHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		select {
		case c.queue <- msg:
		case <-c.ctx.Done():
		}
	}
}

// worker выполняет команды строго в порядке поступления
func (c *Client) worker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.queue:
			c.handle(msg.Topic(), msg.Payload())
		}
	}
}

// handle разбирает и выполняет одну команду, публикуя результат
func (c *Client) handle(topic string, payload []byte) {
	c.logger.WithFields(map[string]interface{}{
		"topic":        topic,
		"payload_size": len(payload),
	}).Debug("Received MQTT message")

	cmd, err := c.parser.Parse(topic, payload)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"topic": topic,
			"error": err,
		}).Warn("Failed to parse MQTT command")
		metrics.MQTTParseErrors.Inc()
		c.publishResult(Result{
			RequestID: requestID(payload),
			Command:   path.Base(topic),
			Status:    "error",
			Error:     err.Error(),
		})
		return
	}
	metrics.MQTTMessagesReceived.WithLabelValues(cmd.Name).Inc()

	ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
	defer cancel()

	data, err := Dispatch(ctx, c.ctrl, cmd)
	metrics.ObserveCommand("mqtt", cmd.Name, err)

	res := Result{RequestID: cmd.RequestID, Command: cmd.Name, Status: "ok", Data: data}
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
		res.Data = nil
		c.logger.WithFields(map[string]interface{}{
			"command":    cmd.Name,
			"request_id": cmd.RequestID,
			"error":      err,
		}).Warn("MQTT command failed")
	}

	c.publishResult(res)
}

func (c *Client) publishResult(res Result) {
	if err := c.PublishJSON(c.parser.EventTopic("result"), res); err != nil {
		c.logger.WithField("error", err).Debug("Failed to publish command result")
	}
}

// requestID достает request_id из тела, которое не прошло разбор
func requestID(payload []byte) string {
	var probe struct {
		RequestID string `json:"request_id"`
	}
	if json.Unmarshal(payload, &probe) != nil {
		return ""
	}
	return probe.RequestID
}

// PublishJSON публикует значение в JSON
func (c *Client) PublishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return c.Publish(topic, payload)
}

// Publish отправляет сообщение в MQTT топик с QoS 1
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	metrics.MQTTEventsPublished.WithLabelValues(topic).Inc()

	c.logger.WithFields(map[string]interface{}{
		"topic":        topic,
		"payload_size": len(payload),
	}).Debug("Published MQTT message")

	return nil
}

// GetStats возвращает статистику клиента
func (c *Client) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"connected":     c.connected,
		"client_id":     c.config.ClientID,
		"broker_url":    c.config.URL,
		"topic_prefix":  c.config.TopicPrefix,
		"clean_session": c.config.CleanSession,
	}
}
