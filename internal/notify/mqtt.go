package notify

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/roomrelay/internal/models"
)

const (
	// TopicPrefix is prepended to the room ID to form the publish topic.
	TopicPrefix = "roomrelay/rooms/"

	mqttPublishTimeout = 2 * time.Second
)

// MQTTNotifier publishes messages with QoS 1 to an MQTT broker.
type MQTTNotifier struct {
	client mqtt.Client
}

// NewMQTTNotifier connects to brokerURL (e.g. tcp://localhost:1883).
func NewMQTTNotifier(brokerURL, clientID string, logger zerolog.Logger) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect failed: %w", token.Error())
	}

	return &MQTTNotifier{client: client}, nil
}

func (n *MQTTNotifier) Name() string { return "mqtt" }

// Notify publishes msg on roomrelay/rooms/<room>.
func (n *MQTTNotifier) Notify(ctx context.Context, msg *models.Message) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}

	token := n.client.Publish(Topic(msg.Room), 1, false, data)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}
		return nil
	case <-time.After(mqttPublishTimeout):
		return fmt.Errorf("publish timed out after %s", mqttPublishTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *MQTTNotifier) Close() error {
	n.client.Disconnect(250)
	return nil
}

// Topic returns the topic messages for room are published on.
func Topic(room string) string {
	return TopicPrefix + room
}
