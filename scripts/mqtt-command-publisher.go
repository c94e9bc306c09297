package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// PublisherConfig параметры отправки команд
type PublisherConfig struct {
	BrokerURL string
	Prefix    string
	ClientID  string
	Timeout   time.Duration

	// режим сбоев: периодически переключает случайные радары
	Chaos     bool
	ChaosRate time.Duration
	MaxMsgs   int
	RadarIDs  []string
}

// Result ответ симулятора в <prefix>/events/result
type Result struct {
	RequestID string          `json:"request_id"`
	Command   string          `json:"command"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func main() {
	var (
		brokerURL = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
		prefix    = flag.String("prefix", "radarsim", "Topic prefix")
		clientID  = flag.String("client", "radarsim-command-publisher", "MQTT client ID")
		command   = flag.String("command", "toggle_radar", "Command name")
		radarID   = flag.String("radar", "", "Radar ID for toggle_radar/remove_radar")
		fraction  = flag.Float64("fraction", -1, "Fraction for bulk_outage (-1 = server default)")
		hours     = flag.Float64("hours", 0, "Hours for step")
		days      = flag.Int("days", 0, "Days for start_analysis")
		speed     = flag.Float64("speed", 0, "Multiplier for set_speed")
		jobID     = flag.String("job", "", "Job ID for cancel_analysis")
		timeout   = flag.Duration("timeout", 10*time.Second, "Wait for result")
		chaos     = flag.Bool("chaos", false, "Toggle random radars continuously")
		chaosRate = flag.Duration("rate", 5*time.Second, "Chaos toggle interval")
		maxMsgs   = flag.Int("max", 0, "Max chaos commands (0 = unlimited)")
		radarsStr = flag.String("radars", "radar-1,radar-2,radar-3,radar-4,radar-5,radar-6", "Radar IDs for chaos mode (comma-separated)")
	)
	flag.Parse()

	cfg := &PublisherConfig{
		BrokerURL: *brokerURL,
		Prefix:    strings.Trim(*prefix, "/"),
		ClientID:  *clientID,
		Timeout:   *timeout,
		Chaos:     *chaos,
		ChaosRate: *chaosRate,
		MaxMsgs:   *maxMsgs,
		RadarIDs:  parseStringSlice(*radarsStr),
	}

	results := make(chan Result, 16)
	client := connect(cfg, results)
	defer client.Disconnect(250)

	if cfg.Chaos {
		runChaos(client, cfg, results)
		return
	}

	payload := map[string]interface{}{"request_id": uuid.NewString()}
	switch *command {
	case "toggle_radar", "remove_radar":
		payload["radar_id"] = *radarID
	case "bulk_outage":
		if *fraction >= 0 {
			payload["fraction"] = *fraction
		}
	case "step":
		payload["hours"] = *hours
	case "start_analysis":
		payload["days"] = *days
	case "set_speed":
		payload["speed"] = *speed
	case "cancel_analysis":
		payload["job_id"] = *jobID
	}

	if err := publish(client, cfg, *command, payload); err != nil {
		log.Fatalf("Publish failed: %v", err)
	}
	waitResult(results, payload["request_id"].(string), cfg.Timeout)
}

func connect(cfg *PublisherConfig, results chan<- Result) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		topic := cfg.Prefix + "/events/result"
		token := c.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			var res Result
			if err := json.Unmarshal(msg.Payload(), &res); err != nil {
				log.Printf("Malformed result: %v", err)
				return
			}
			select {
			case results <- res:
			default:
			}
		})
		token.Wait()
		if token.Error() != nil {
			log.Printf("Subscribe to %s failed: %v", topic, token.Error())
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		log.Fatalf("Failed to connect to %s: %v", cfg.BrokerURL, token.Error())
	}
	log.Printf("Connected to %s", cfg.BrokerURL)
	return client
}

func publish(client mqtt.Client, cfg *PublisherConfig, command string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/commands/%s", cfg.Prefix, command)
	token := client.Publish(topic, 1, false, data)
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("→ %s %s", topic, data)
	return nil
}

func waitResult(results <-chan Result, requestID string, timeout time.Duration) {
	deadline := time.After(timeout)
	for {
		select {
		case res := <-results:
			if res.RequestID != requestID {
				continue
			}
			printResult(res)
			return
		case <-deadline:
			log.Printf("No result for %s within %s", requestID, timeout)
			os.Exit(1)
		}
	}
}

func printResult(res Result) {
	if res.Status != "ok" {
		log.Printf("← %s %s: %s", res.Command, res.Status, res.Error)
		return
	}
	log.Printf("← %s ok %s", res.Command, string(res.Data))
}

// runChaos переключает случайные радары до сигнала или лимита
func runChaos(client mqtt.Client, cfg *PublisherConfig, results <-chan Result) {
	if len(cfg.RadarIDs) == 0 {
		log.Fatal("chaos mode requires -radars")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.ChaosRate)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sent := 0
	for {
		select {
		case <-sigChan:
			log.Printf("Stopped after %d commands", sent)
			return
		case res := <-results:
			printResult(res)
		case <-ticker.C:
			payload := map[string]interface{}{
				"request_id": uuid.NewString(),
				"radar_id":   cfg.RadarIDs[rng.Intn(len(cfg.RadarIDs))],
			}
			if err := publish(client, cfg, "toggle_radar", payload); err != nil {
				log.Printf("Publish failed: %v", err)
				continue
			}
			sent++
			if cfg.MaxMsgs > 0 && sent >= cfg.MaxMsgs {
				log.Printf("Reached limit of %d commands", sent)
				return
			}
		}
	}
}

func parseStringSlice(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
