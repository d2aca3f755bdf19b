package mqtt

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config holds broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// QoS used for publishes. Print jobs default to at-least-once.
	QoS byte
}

// Client wraps a paho client with context-aware publishing.
type Client struct {
	client mqtt.Client
	qos    byte
}

// New connects to the broker. Returns nil if no broker is configured.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Broker == "" {
		return nil, nil
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, err)
	}
	return newClient(client, cfg.QoS), nil
}

func newClient(client mqtt.Client, qos byte) *Client {
	if qos == 0 {
		qos = 1
	}
	return &Client{client: client, qos: qos}
}

// Publish sends payload to topic and waits for the broker to acknowledge it
// or for ctx to end.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := wait(ctx, c.client.Publish(topic, c.qos, false, payload)); err != nil {
		return fmt.Errorf("publish to topic %s: %w", topic, err)
	}
	return nil
}

// Health reports whether the connection is up.
func (c *Client) Health(context.Context) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt connection closed")
	}
	return nil
}

// Close disconnects, allowing in-flight work 250ms to finish.
func (c *Client) Close() error {
	c.client.Disconnect(250)
	return nil
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timed out waiting for broker")
	}
}
