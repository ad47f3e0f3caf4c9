// Package mqtt publishes live discharge telemetry to an MQTT broker so
// bench operators can watch a run from dashboards off the test floor.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremetrics "github.com/UWCubeSat/hs2-egse/core/metrics"
	"github.com/UWCubeSat/hs2-egse/infra/logger"
)

// Config describes the broker connection and topic layout.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "egse/telemetry"
	}
}

// Validate checks mandatory fields when the publisher is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required when enabled")
	}
	return nil
}

type pahoClient interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnected() bool
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Publisher implements metrics.SampleSink over an MQTT connection. One JSON
// message is published per sample on <prefix>/<session-id>.
type Publisher struct {
	cli   pahoClient
	topic string
	qos   byte
	log   logger.Logger
}

// samplePayload is the wire format of one published sample.
type samplePayload struct {
	SessionID      string  `json:"session_id"`
	Model          string  `json:"model"`
	Timestamp      string  `json:"timestamp"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	SetpointAmps   float64 `json:"setpoint_amps"`
	VoltageVolts   float64 `json:"voltage_volts"`
	CurrentAmps    float64 `json:"current_amps"`
	PowerWatts     float64 `json:"power_watts"`
}

// NewPublisher connects to the broker and returns a Publisher scoped to the
// given session.
func NewPublisher(cfg Config, sessionID string) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id := cfg.ClientID
	if id == "" {
		id = "egse-" + uuid.NewString()
	}
	log := logger.New("mqtt-publisher")
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(id)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return &Publisher{
		cli:   cli,
		topic: cfg.TopicPrefix + "/" + sessionID,
		qos:   cfg.QoS,
		log:   log,
	}, nil
}

// RecordSample publishes the sample. A slow broker only delays the fan-out
// goroutine, never the control loop.
func (p *Publisher) RecordSample(ev coremetrics.SampleEvent) error {
	payload, err := json.Marshal(samplePayload{
		SessionID:      ev.SessionID,
		Model:          ev.Model,
		Timestamp:      ev.Time.UTC().Format(time.RFC3339Nano),
		ElapsedSeconds: ev.Elapsed.Seconds(),
		SetpointAmps:   ev.Setpoint,
		VoltageVolts:   ev.Voltage,
		CurrentAmps:    ev.Current,
		PowerWatts:     ev.Power,
	})
	if err != nil {
		return err
	}
	token := p.cli.Publish(p.topic, p.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish sample: %w", token.Error())
	}
	return nil
}

// Topic returns the session's telemetry topic.
func (p *Publisher) Topic() string { return p.topic }

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
