package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fusionguard/config"
	"fusionguard/core/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttPublishTimeout = 5 * time.Second

// MQTTPublisher forwards snapshots to a broker topic as JSON.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	logger *utils.Logger
}

func NewMQTTPublisher(cfg config.MQTTConfig, logger *utils.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		logger.Printf("mqtt connected broker=%s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Errorf("mqtt connection lost: %v", err)
	}
	client := mqtt.NewClient(opts)
	if err := connectMQTT(client, cfg.Broker, mqttPublishTimeout); err != nil {
		return nil, err
	}
	return &MQTTPublisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// connectMQTT waits for the first connection. A client that fails is
// disconnected so its reconnect loop stops with it.
func connectMQTT(client mqtt.Client, broker string, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connect timeout: %s", broker)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (p *MQTTPublisher) Consume(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
