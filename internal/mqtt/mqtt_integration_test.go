//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/testutil/containers"
)

var mosquittoContainer *containers.MosquittoContainer

func TestMain(m *testing.M) {
	var err error
	mosquittoContainer, err = containers.NewMosquittoContainer(context.Background(), nil)
	if err != nil {
		log.Fatalf("failed to start Mosquitto container: %v", err)
	}
	terminate := containers.NewCleanupOnce(func() error {
		return mosquittoContainer.Terminate(context.Background())
	})
	code := m.Run()
	if err := terminate.Do(); err != nil {
		log.Printf("failed to terminate Mosquitto container: %v", err)
	}
	os.Exit(code)
}

func testSettings(t *testing.T, clientID string) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.MQTT.Enabled = true
	settings.MQTT.Broker = mosquittoContainer.GetBrokerURL(t)
	settings.MQTT.ClientID = clientID
	settings.MQTT.Topic = "fleetpredict/alerts"
	return settings
}

func connectedClient(t *testing.T, clientID string) Client {
	t.Helper()
	client, err := NewClient(testSettings(t, clientID), logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.NoError(t, err)
	require.NoError(t, client.Connect(t.Context()))
	t.Cleanup(client.Disconnect)
	return client
}

func TestClientConnect(t *testing.T) {
	client := connectedClient(t, "fleet-connect-test")
	assert.True(t, client.IsConnected())

	t.Run("connect is idempotent when connected", func(t *testing.T) {
		assert.NoError(t, client.Connect(t.Context()))
	})
}

func TestClientRequiresBroker(t *testing.T) {
	settings := &conf.Settings{}
	_, err := NewClient(settings, logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker address is required")
}

func TestClientPublishRoundTrip(t *testing.T) {
	received := make(chan paho.Message, 1)
	subscriber, err := mosquittoContainer.CreateClient("fleet-raw-subscriber")
	require.NoError(t, err)
	defer subscriber.Disconnect(250)

	token := subscriber.Subscribe("fleetpredict/test/roundtrip", 1, func(_ paho.Client, msg paho.Message) {
		received <- msg
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	client := connectedClient(t, "fleet-publish-test")
	require.NoError(t, client.Publish(t.Context(), "fleetpredict/test/roundtrip", `{"speed":62.5}`))

	select {
	case msg := <-received:
		assert.Equal(t, `{"speed":62.5}`, string(msg.Payload()))
	case <-time.After(5 * time.Second):
		t.Fatal("published message never arrived")
	}
}

func TestClientPublishAlert(t *testing.T) {
	received := make(chan paho.Message, 1)
	subscriber, err := mosquittoContainer.CreateClient("fleet-alert-subscriber")
	require.NoError(t, err)
	defer subscriber.Disconnect(250)

	token := subscriber.Subscribe("fleetpredict/alerts/+", 1, func(_ paho.Client, msg paho.Message) {
		received <- msg
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	client := connectedClient(t, "fleet-alert-test")

	vehicle := &entities.Vehicle{ID: 7, LicensePlate: "SIM-042"}
	alert := &entities.VehicleAlert{
		ID:        13,
		VehicleID: vehicle.ID,
		AlertType: entities.AlertTypeHighEngineTemp,
		Severity:  entities.SeverityHigh,
		Message:   "Engine temperature above 105C for 3 consecutive readings",
	}
	require.NoError(t, client.PublishAlert(t.Context(), vehicle, alert))

	select {
	case msg := <-received:
		assert.Equal(t, "fleetpredict/alerts/SIM-042", msg.Topic())

		var got entities.VehicleAlert
		require.NoError(t, json.Unmarshal(msg.Payload(), &got))
		assert.Equal(t, uint(13), got.ID)
		assert.Equal(t, entities.AlertTypeHighEngineTemp, got.AlertType)
		assert.Equal(t, entities.SeverityHigh, got.Severity)
	case <-time.After(5 * time.Second):
		t.Fatal("published alert never arrived")
	}
}

func TestClientPublishWhenNotConnected(t *testing.T) {
	client, err := NewClient(testSettings(t, "fleet-disconnected-test"), logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.NoError(t, err)

	err = client.Publish(t.Context(), "fleetpredict/test/nope", "payload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestClientReconnectCooldown(t *testing.T) {
	settings := testSettings(t, "fleet-cooldown-test")
	settings.MQTT.Broker = "tcp://127.0.0.1:1" // nothing listens here

	client, err := NewClient(settings, logger.NewSlogLogger(nil, logger.LogLevelError, nil))
	require.NoError(t, err)

	require.Error(t, client.Connect(t.Context()))

	err = client.Connect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection attempt too recent")
}
