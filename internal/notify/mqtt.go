package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/automaticats/feederd/internal/types"
	"github.com/automaticats/feederd/pkg/config"
)

const (
	defaultTopic      = "feederd/alerts"
	connectTimeout    = 10 * time.Second
	publishQoS        = 1
	disconnectQuiesce = 250 // ms
)

// MQTTNotifier publishes raised alerts to an MQTT broker so external
// automations (phone notifications, home dashboards) can react to low food
// and water conditions.
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
	logger *zap.SugaredLogger
}

// NewMQTTNotifier connects to the configured broker.
func NewMQTTNotifier(cfg config.MQTTData, logger *zap.SugaredLogger) (*MQTTNotifier, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "feederd"
	}
	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	logger.Infof("connected to MQTT broker %s, publishing alerts to %s", cfg.Broker, topic)

	return &MQTTNotifier{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// Notify publishes the alert as JSON. Publish failures are logged, not
// propagated; alerting must never disturb the monitoring loop.
func (n *MQTTNotifier) Notify(alert types.Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		n.logger.Errorf("failed to encode alert: %v", err)
		return
	}

	token := n.client.Publish(n.topic, publishQoS, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			n.logger.Errorf("failed to publish alert to MQTT: %v", err)
		}
	}()
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(disconnectQuiesce)
}
