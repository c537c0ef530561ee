// Package telemetry mirrors the station's readings and alerts onto an MQTT
// broker so a home automation setup can pick them up.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"deskie/internal/presence"
)

// Config holds MQTT client configuration
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

const (
	queueSize      = 64
	publishTimeout = 5 * time.Second
)

type message struct {
	topic    string
	payload  []byte
	retained bool
}

// Publisher publishes telemetry from a buffered channel. Publishing never
// blocks the caller; when the broker is slow messages are dropped.
type Publisher struct {
	client mqtt.Client
	prefix string
	queue  chan message
	done   chan struct{}
}

// Connect dials the broker and returns a publisher ready to Start.
func Connect(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetOnConnectHandler(connectHandler)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	log.Println("MQTT: Connected to broker:", cfg.Broker)

	return NewPublisher(client, cfg.TopicPrefix), nil
}

func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = "deskie"
	}
	return &Publisher{
		client: client,
		prefix: prefix,
		queue:  make(chan message, queueSize),
		done:   make(chan struct{}),
	}
}

// Start publishes queued messages until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	defer close(p.done)
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return
		case msg := <-p.queue:
			if err := p.publish(msg); err != nil {
				log.Printf("MQTT publish to %s failed: %v", msg.topic, err)
			}
		}
	}
}

func (p *Publisher) publish(msg message) error {
	token := p.client.Publish(msg.topic, 1, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out after %s", publishTimeout)
	}
	return token.Error()
}

func (p *Publisher) enqueue(suffix string, v interface{}, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", suffix, err)
	}
	select {
	case p.queue <- message{topic: p.prefix + "/" + suffix, payload: payload, retained: retained}:
		return nil
	default:
		return fmt.Errorf("telemetry queue full, dropped %s message", suffix)
	}
}

func (p *Publisher) PublishSample(s SampleMessage) error {
	return p.enqueue("sample", s, false)
}

// PublishMode is retained so late subscribers see the current mode.
func (p *Publisher) PublishMode(m ModeMessage) error {
	return p.enqueue("mode", m, true)
}

func (p *Publisher) Name() string { return "mqtt" }

// Send implements alert.Sink.
func (p *Publisher) Send(ctx context.Context, a presence.AwayAlert) error {
	return p.enqueue("alert", AlertMessage{
		At:              a.At,
		Mode:            string(a.Mode),
		DurationSeconds: a.Duration.Seconds(),
	}, false)
}

// Close disconnects from the broker, giving in-flight messages 250ms.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
	log.Println("MQTT: Disconnected")
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Println("MQTT: Connection established")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT: Connection lost: %v", err)
}
