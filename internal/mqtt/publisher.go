package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golden-hour/internal/display"
	"golden-hour/internal/log"
	"golden-hour/internal/session"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher mirrors session snapshots onto MQTT topics under a prefix.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	format      display.Formatter
	enabled     bool

	mu        sync.Mutex
	lastID    string
	lastState session.State
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
	Formatter   display.Formatter
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Warnf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Infof("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return newPublisher(client, cfg.TopicPrefix, cfg.Formatter), nil
}

func newPublisher(client mqtt.Client, prefix string, format display.Formatter) *Publisher {
	return &Publisher{
		client:      client,
		topicPrefix: prefix,
		format:      format,
		enabled:     true,
	}
}

func (p *Publisher) topic(name string) string {
	return fmt.Sprintf("%s/%s", p.topicPrefix, name)
}

// Render publishes the countdown on every call and the retained status
// document whenever the cycle or state changes.
func (p *Publisher) Render(s session.Snapshot) {
	if !p.enabled {
		return
	}

	p.mu.Lock()
	changed := s.ID != p.lastID || s.State != p.lastState
	p.lastID = s.ID
	p.lastState = s.State
	p.mu.Unlock()

	v := p.format.View(s, s.UpdatedAt)
	if v.Countdown != "" {
		p.publish(p.topic("countdown"), false, v.Countdown)
	}
	if !changed {
		return
	}

	p.publish(p.topic("state"), true, string(s.State))
	if s.Next != nil {
		p.publish(p.topic("next_golden_hour"), true, s.Next.Format(time.RFC3339))
	}

	status, err := json.Marshal(struct {
		session.Snapshot
		Display display.View `json:"display"`
	}{s, v})
	if err != nil {
		log.Errorf("Failed to marshal status: %v", err)
		return
	}
	p.publish(p.topic("status"), true, status)
}

func (p *Publisher) publish(topic string, retained bool, payload interface{}) {
	token := p.client.Publish(topic, 0, retained, payload)
	token.Wait()
	if token.Error() != nil {
		log.Warnf("Failed to publish to %s: %v", topic, token.Error())
	}
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	sensors := []struct {
		Name        string
		ID          string
		DeviceClass string
	}{
		{"Next Golden Hour", "next_golden_hour", "timestamp"},
		{"Golden Hour Countdown", "countdown", ""},
		{"Golden Hour State", "state", ""},
	}

	for _, sensor := range sensors {
		discoveryTopic := fmt.Sprintf("homeassistant/sensor/golden_hour/%s/config", sensor.ID)

		config := map[string]interface{}{
			"name":        sensor.Name,
			"unique_id":   fmt.Sprintf("golden_hour_%s", sensor.ID),
			"state_topic": p.topic(sensor.ID),
			"device": map[string]interface{}{
				"identifiers": []string{"golden_hour"},
				"name":        "Golden Hour",
			},
		}
		if sensor.DeviceClass != "" {
			config["device_class"] = sensor.DeviceClass
		}

		payload, err := json.Marshal(config)
		if err != nil {
			return fmt.Errorf("marshal discovery for %s: %w", sensor.ID, err)
		}
		token := p.client.Publish(discoveryTopic, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("publish discovery for %s: %w", sensor.ID, token.Error())
		}
	}

	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
