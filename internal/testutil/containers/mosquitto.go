//go:build integration

//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MosquittoContainer wraps a testcontainers Eclipse Mosquitto MQTT broker
// instance, used to verify the alert publisher against a real broker.
type MosquittoContainer struct {
	container  testcontainers.Container
	brokerURL  string
	host       string
	port       int
	configFile string
}

// MosquittoConfig holds configuration for Mosquitto container creation.
type MosquittoConfig struct {
	// Image tag (default: "2.0")
	ImageTag string
}

// DefaultMosquittoConfig returns a MosquittoConfig with sensible defaults.
func DefaultMosquittoConfig() MosquittoConfig {
	return MosquittoConfig{ImageTag: "2.0"}
}

// NewMosquittoContainer creates and starts a Mosquitto broker container
// that accepts anonymous connections. If config is nil, uses
// DefaultMosquittoConfig().
func NewMosquittoContainer(ctx context.Context, config *MosquittoConfig) (*MosquittoContainer, error) {
	if config == nil {
		defaultCfg := DefaultMosquittoConfig()
		config = &defaultCfg
	}

	// The stock image denies anonymous connections; mount a permissive
	// config for tests.
	configFile, err := createTempMosquittoConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create mosquitto config: %w", err)
	}

	req := testcontainers.ContainerRequest{
		Image:        fmt.Sprintf("eclipse-mosquitto:%s", config.ImageTag),
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-test.conf"},
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      configFile,
				ContainerFilePath: "/mosquitto-test.conf",
				FileMode:          0o644,
			},
		},
		WaitingFor: wait.ForLog("mosquitto version").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		_ = os.Remove(configFile)
		return nil, fmt.Errorf("failed to start Mosquitto container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(context.Background())
		_ = os.Remove(configFile)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, "1883")
	if err != nil {
		_ = container.Terminate(context.Background())
		_ = os.Remove(configFile)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	port := mappedPort.Int()
	mc := &MosquittoContainer{
		container:  container,
		brokerURL:  fmt.Sprintf("tcp://%s", net.JoinHostPort(host, strconv.Itoa(port))),
		host:       host,
		port:       port,
		configFile: configFile,
	}

	if err := mc.HealthCheck(ctx); err != nil {
		_ = container.Terminate(context.Background())
		_ = os.Remove(configFile)
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return mc, nil
}

func createTempMosquittoConfig() (string, error) {
	configContent := `listener 1883
allow_anonymous true
`
	tmpFile, err := os.CreateTemp("", "mosquitto-*.conf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp config: %w", err)
	}
	if _, err := tmpFile.WriteString(configContent); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to close temp config: %w", err)
	}
	return tmpFile.Name(), nil
}

// GetBrokerURL returns the MQTT broker URL (e.g., "tcp://localhost:32783"),
// suitable for the server's mqtt.broker setting.
func (c *MosquittoContainer) GetBrokerURL(t *testing.T) string {
	t.Helper()
	if c.brokerURL == "" {
		t.Fatal("broker URL is empty")
	}
	return c.brokerURL
}

// GetHost returns the host address where the broker is accessible.
func (c *MosquittoContainer) GetHost() string {
	return c.host
}

// GetPort returns the mapped port where MQTT is accessible.
func (c *MosquittoContainer) GetPort() int {
	return c.port
}

// HealthCheck verifies the broker accepts a connection.
func (c *MosquittoContainer) HealthCheck(_ context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.brokerURL)
	opts.SetClientID("healthcheck")
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetAutoReconnect(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("health check timeout after 5s")
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to connect to broker: %w", token.Error())
	}
	client.Disconnect(250)
	return nil
}

// CreateClient creates a raw paho client connected to this broker, for
// subscribing to topics the publisher under test writes. The caller is
// responsible for disconnecting the client.
func (c *MosquittoContainer) CreateClient(clientID string, opts ...func(*mqtt.ClientOptions)) (mqtt.Client, error) {
	mqttOpts := mqtt.NewClientOptions()
	mqttOpts.AddBroker(c.brokerURL)
	mqttOpts.SetClientID(clientID)
	mqttOpts.SetConnectTimeout(10 * time.Second)
	mqttOpts.SetAutoReconnect(true)

	for _, opt := range opts {
		opt(mqttOpts)
	}

	client := mqtt.NewClient(mqttOpts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect timeout for client %s", clientID)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect client: %w", token.Error())
	}
	return client, nil
}

// Terminate stops and removes the Mosquitto container and cleans up the
// temporary config file.
func (c *MosquittoContainer) Terminate(ctx context.Context) error {
	var terminateErr error
	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			terminateErr = fmt.Errorf("failed to terminate container: %w", err)
		}
	}
	if c.configFile != "" {
		if err := os.Remove(c.configFile); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: failed to remove temp config file %s: %v\n", c.configFile, err)
		}
	}
	return terminateErr
}
