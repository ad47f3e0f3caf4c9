package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second, cfg.Session.SamplingInterval())
	assert.Equal(t, 10, cfg.Session.MaxLogFailures)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, "egse/telemetry", cfg.MQTT.TopicPrefix)
	assert.Equal(t, ":9090", cfg.Metrics.PrometheusPort)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := "session:\n  sampling_interval_seconds: 0.5\nserial:\n  baud: 9600\nmetrics:\n  prometheus_enabled: true\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.SamplingInterval())
	assert.Equal(t, 9600, cfg.Serial.Baud)
	assert.True(t, cfg.Metrics.PrometheusEnabled)
	// Unset fields still get defaults.
	assert.Equal(t, 10, cfg.Session.MaxLogFailures)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	data := `{"session":{"max_log_failures":3},"mqtt":{"enabled":true,"broker":"tcp://localhost:1883"}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Session.MaxLogFailures)
	assert.True(t, cfg.MQTT.Enabled)
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := "session:\n  sampling_interval_seconds: -1\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	path2 := filepath.Join(t.TempDir(), "cfg2.yaml")
	require.NoError(t, os.WriteFile(path2, []byte("mqtt:\n  enabled: true\n"), 0o644))
	_, err = Load(path2)
	assert.Error(t, err, "enabled mqtt requires a broker")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load("cfg.toml")
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serial:\n  baud: 9600\n"), 0o644))
	t.Setenv("EGSE_SERIAL__BAUD", "57600")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 57600, cfg.Serial.Baud)
}
