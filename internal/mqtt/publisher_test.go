package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"golden-hour/internal/display"
	"golden-hour/internal/goldenhour"
	"golden-hour/internal/session"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	mqtt.Client

	mu       sync.Mutex
	messages []message
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case []byte:
		body = string(p)
	}
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: body})
	return doneToken{}
}

func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) byTopic(topic string) []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []message
	for _, m := range c.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func snapshotAt(hour int) session.Snapshot {
	now := time.Date(2024, time.June, 21, hour, 0, 0, 0, time.UTC)
	w := goldenhour.DeriveWindow(
		time.Date(2024, time.June, 21, 7, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 21, 19, 0, 0, 0, time.UTC),
	)
	next := goldenhour.SelectNextGoldenHour(w, now)
	return session.Snapshot{
		ID:        "cycle-1",
		State:     session.StateDisplaying,
		Window:    &w,
		Next:      &next,
		Countdown: goldenhour.ComputeCountdown(next, now),
		UpdatedAt: now,
	}
}

func TestDisabledPublisher(t *testing.T) {
	p, err := NewPublisher(PublisherConfig{Enabled: false})
	require.NoError(t, err)

	p.Render(snapshotAt(6))
	assert.False(t, p.IsConnected())
	assert.NoError(t, p.PublishHomeAssistantDiscovery())
	p.Close()
}

func TestRenderPublishesTopics(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "goldenhour", display.Formatter{Location: time.UTC})

	p.Render(snapshotAt(6))
	p.Render(snapshotAt(7))

	countdowns := client.byTopic("goldenhour/countdown")
	require.Len(t, countdowns, 2)
	assert.Equal(t, "2h 0m 0s", countdowns[0].payload)
	assert.Equal(t, "1h 0m 0s", countdowns[1].payload)
	assert.False(t, countdowns[0].retained)

	states := client.byTopic("goldenhour/state")
	require.Len(t, states, 1, "state only on change")
	assert.Equal(t, "displaying", states[0].payload)
	assert.True(t, states[0].retained)

	next := client.byTopic("goldenhour/next_golden_hour")
	require.Len(t, next, 1)
	assert.Equal(t, "2024-06-21T08:00:00Z", next[0].payload)

	status := client.byTopic("goldenhour/status")
	require.Len(t, status, 1)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(status[0].payload), &doc))
	assert.Equal(t, "displaying", doc["state"])
	assert.Equal(t, "08:00", doc["display"].(map[string]interface{})["next_golden_hour"])
}

func TestRenderWithoutCountdown(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "gh", display.Formatter{Location: time.UTC})

	p.Render(session.Snapshot{ID: "c", State: session.StateAwaitingFix})

	assert.Empty(t, client.byTopic("gh/countdown"))
	assert.Len(t, client.byTopic("gh/state"), 1)
	assert.Empty(t, client.byTopic("gh/next_golden_hour"))
}

func TestHomeAssistantDiscovery(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, "gh", display.Formatter{Location: time.UTC})

	require.NoError(t, p.PublishHomeAssistantDiscovery())

	msgs := client.byTopic("homeassistant/sensor/golden_hour/next_golden_hour/config")
	require.Len(t, msgs, 1)
	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(msgs[0].payload), &cfg))
	assert.Equal(t, "gh/next_golden_hour", cfg["state_topic"])
	assert.Equal(t, "timestamp", cfg["device_class"])
	assert.True(t, p.IsConnected())
}
