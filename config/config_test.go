package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "static", cfg.Location.Provider)
	assert.False(t, cfg.Location.AutoGrant)
	assert.Equal(t, "sunrise-sunset", cfg.Sun.Provider)
	assert.Equal(t, 10*time.Second, cfg.Sun.Timeout)
	assert.Equal(t, time.Second, cfg.Display.TickInterval)
	assert.Equal(t, "15:04", cfg.Display.TimeFormat)
	assert.Equal(t, 8045, cfg.API.Port)
	assert.True(t, cfg.API.Enabled)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "golden_hour", cfg.MQTT.TopicPrefix)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
location:
  latitude: 38.72
  longitude: -9.14
  auto_grant: true
sun:
  provider: open-meteo
  timeout: 3s
display:
  timezone: Europe/Lisbon
  tick_interval: 500ms
mqtt:
  enabled: true
  broker: tcp://broker:1883
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 38.72, cfg.Location.Latitude)
	assert.Equal(t, -9.14, cfg.Location.Longitude)
	assert.True(t, cfg.Location.AutoGrant)
	assert.Equal(t, "open-meteo", cfg.Sun.Provider)
	assert.Equal(t, 3*time.Second, cfg.Sun.Timeout)
	assert.Equal(t, "Europe/Lisbon", cfg.Display.Timezone)
	assert.Equal(t, 500*time.Millisecond, cfg.Display.TickInterval)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GOLDEN_HOUR_API_PORT", "9090")

	cfg, err := Load(writeFile(t, "api:\n  port: 8000\n"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.API.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeFile(t, "display:\n  tick_interval: 0s\n"))
	assert.ErrorContains(t, err, "tick_interval")

	_, err = Load(writeFile(t, "api:\n  port: 70000\n"))
	assert.ErrorContains(t, err, "api.port")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveLocationKeepsOtherSections(t *testing.T) {
	path := writeFile(t, "api:\n  port: 9000\nlocation:\n  latitude: 1\n")

	require.NoError(t, SaveLocation(path, LocationConfig{
		Provider:  "static",
		Latitude:  52.52,
		Longitude: 13.405,
		AutoGrant: true,
	}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 52.52, cfg.Location.Latitude)
	assert.Equal(t, 13.405, cfg.Location.Longitude)
	assert.True(t, cfg.Location.AutoGrant)
}

func TestSaveLocationCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.yaml")

	require.NoError(t, SaveLocation(path, LocationConfig{Provider: "ip"}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ip", cfg.Location.Provider)
}
