package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/UWCubeSat/hs2-egse/core/metrics"
)

type mockToken struct{ err error }

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *mockToken) Error() error { return t.err }

type mockClient struct {
	connected  bool
	connectErr error
	publishErr error
	topics     []string
	payloads   [][]byte
}

func (m *mockClient) Connect() paho.Token {
	if m.connectErr == nil {
		m.connected = true
	}
	return &mockToken{err: m.connectErr}
}

func (m *mockClient) Disconnect(uint) { m.connected = false }

func (m *mockClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	m.topics = append(m.topics, topic)
	m.payloads = append(m.payloads, payload.([]byte))
	return &mockToken{err: m.publishErr}
}

func (m *mockClient) IsConnected() bool { return m.connected }

func withMockClient(t *testing.T, m *mockClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(*paho.ClientOptions) pahoClient { return m }
	t.Cleanup(func() { newMQTTClient = orig })
}

func TestPublisherPublishesSample(t *testing.T) {
	m := &mockClient{}
	withMockClient(t, m)

	p, err := NewPublisher(Config{Enabled: true, Broker: "tcp://localhost:1883"}, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "egse/telemetry/sess-1", p.Topic())

	ev := coremetrics.SampleEvent{
		SessionID: "sess-1",
		Model:     "KEL103",
		Time:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Elapsed:   3 * time.Second,
		Setpoint:  1.5,
		Voltage:   3.98,
		Current:   1.5,
		Power:     5.97,
	}
	require.NoError(t, p.RecordSample(ev))
	require.Len(t, m.payloads, 1)

	var got samplePayload
	require.NoError(t, json.Unmarshal(m.payloads[0], &got))
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, 3.0, got.ElapsedSeconds)
	assert.Equal(t, 3.98, got.VoltageVolts)

	require.NoError(t, p.Close())
	assert.False(t, m.connected)
}

func TestPublisherConnectError(t *testing.T) {
	withMockClient(t, &mockClient{connectErr: assert.AnError})
	_, err := NewPublisher(Config{Enabled: true, Broker: "tcp://localhost:1883"}, "s")
	assert.Error(t, err)
}

func TestPublisherPublishError(t *testing.T) {
	m := &mockClient{publishErr: assert.AnError}
	withMockClient(t, m)
	p, err := NewPublisher(Config{Enabled: true, Broker: "tcp://localhost:1883"}, "s")
	require.NoError(t, err)
	assert.Error(t, p.RecordSample(coremetrics.SampleEvent{}))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{Enabled: true}.Validate())
	assert.NoError(t, Config{Enabled: true, Broker: "tcp://x:1883"}.Validate())
}
