// Package mqtt publishes persisted alerts and live telemetry to an MQTT
// broker, one subtopic per vehicle.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	// reconnectCooldown throttles manual reconnect attempts.
	reconnectCooldown = 5 * time.Second
)

// Client is the broker-facing surface of the publisher.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	Publish(ctx context.Context, topic, payload string) error
	PublishAlert(ctx context.Context, vehicle *entities.Vehicle, alert *entities.VehicleAlert) error
}

type client struct {
	settings conf.Settings
	log      logger.Logger

	mu          sync.Mutex
	paho        paho.Client
	lastAttempt time.Time
}

// NewClient creates an MQTT publisher from settings.
func NewClient(settings *conf.Settings, log logger.Logger) (Client, error) {
	if settings.MQTT.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required")
	}
	return &client{settings: *settings, log: log}, nil
}

func (c *client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paho != nil && c.paho.IsConnected() {
		return nil
	}
	if since := time.Since(c.lastAttempt); since < reconnectCooldown && !c.lastAttempt.IsZero() {
		return fmt.Errorf("connection attempt too recent, retry in %s", reconnectCooldown-since)
	}
	c.lastAttempt = time.Now()

	clientID := c.settings.MQTT.ClientID
	if clientID == "" {
		clientID = c.settings.Main.Name
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.settings.MQTT.Broker)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	if c.settings.MQTT.Username != "" {
		opts.SetUsername(c.settings.MQTT.Username)
		opts.SetPassword(c.settings.MQTT.Password)
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		c.log.Info("mqtt connected", logger.String("broker", c.settings.MQTT.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warn("mqtt connection lost", logger.Error(err))
	})

	p := paho.NewClient(opts)
	token := p.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect failed: %w", err)
	}
	c.paho = p
	return nil
}

func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paho != nil {
		c.paho.Disconnect(250)
	}
}

func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paho != nil && c.paho.IsConnected()
}

func (c *client) Publish(ctx context.Context, topic, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	p := c.paho
	c.mu.Unlock()
	if p == nil || !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	token := p.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish timed out after %s", publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish failed: %w", err)
	}
	return nil
}

// PublishAlert publishes the alert JSON under <topic>/<license_plate>.
func (c *client) PublishAlert(ctx context.Context, vehicle *entities.Vehicle, alert *entities.VehicleAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	topic := fmt.Sprintf("%s/%s", c.settings.MQTT.Topic, vehicle.LicensePlate)
	return c.Publish(ctx, topic, string(payload))
}
