//go:build integration

package notification

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/testutil/containers"
)

var ntfyContainer *containers.NtfyContainer

func TestMain(m *testing.M) {
	var err error
	ntfyContainer, err = containers.NewNtfyContainer(context.Background(), nil)
	if err != nil {
		log.Fatalf("failed to start ntfy container: %v", err)
	}
	if err := ntfyContainer.HealthCheck(context.Background()); err != nil {
		_ = ntfyContainer.Terminate(context.Background())
		log.Fatalf("ntfy container unhealthy: %v", err)
	}
	code := m.Run()
	_ = ntfyContainer.Terminate(context.Background())
	os.Exit(code)
}

func quietLog() logger.Logger {
	return logger.NewSlogLogger(nil, logger.LogLevelError, nil)
}

// ntfyURL builds a shoutrrr ntfy URL against the test container.
func ntfyURL(ctx context.Context, topic string) string {
	return fmt.Sprintf("ntfy://%s/%s?scheme=http", ntfyContainer.GetHost(ctx), topic)
}

func TestShoutrrrProviderSendsToNtfy(t *testing.T) {
	ctx := t.Context()
	topic := "fleet-alerts"

	provider := NewShoutrrrProvider("ntfy", true, []string{ntfyURL(ctx, topic)}, quietLog(), 10*time.Second)
	require.NoError(t, provider.ValidateConfig())

	n := NewNotification(TypeAlert, PriorityHigh, "Vehicle alert", "Engine temperature above 105C on SIM-001")
	require.NoError(t, provider.Send(ctx, n))

	require.Eventually(t, func() bool {
		msgs, err := ntfyContainer.PollMessages(ctx, topic)
		return err == nil && len(msgs) == 1
	}, 10*time.Second, 200*time.Millisecond, "message never reached ntfy")

	msgs, err := ntfyContainer.PollMessages(ctx, topic)
	require.NoError(t, err)
	assert.Equal(t, "Vehicle alert", msgs[0].Title)
	assert.Contains(t, msgs[0].Message, "SIM-001")
}

func TestShoutrrrProviderDisabledIsNoop(t *testing.T) {
	ctx := t.Context()
	topic := "fleet-disabled"

	provider := NewShoutrrrProvider("ntfy", false, []string{ntfyURL(ctx, topic)}, quietLog(), 10*time.Second)
	require.NoError(t, provider.ValidateConfig())
	require.NoError(t, provider.Send(ctx, NewNotification(TypeInfo, PriorityLow, "nope", "should not arrive")))

	msgs, err := ntfyContainer.PollMessages(ctx, topic)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestShoutrrrProviderRejectsMalformedURL(t *testing.T) {
	provider := NewShoutrrrProvider("broken", true, []string{"not-a-scheme://"}, quietLog(), time.Second)
	assert.Error(t, provider.ValidateConfig())
}

func TestShoutrrrProviderAuthenticatedTopic(t *testing.T) {
	ctx := t.Context()

	authContainer, err := containers.NewNtfyContainer(ctx, &containers.NtfyConfig{
		ImageTag:   "latest",
		EnableAuth: true,
	})
	require.NoError(t, err)
	defer func() { _ = authContainer.Terminate(context.Background()) }()

	const (
		topic    = "fleet-secure"
		username = "fleetops"
		password = "fleetops-pass"
	)
	require.NoError(t, authContainer.AddUser(ctx, username, password))
	require.NoError(t, authContainer.GrantAccess(ctx, username, topic, "rw"))

	url := fmt.Sprintf("ntfy://%s:%s@%s/%s?scheme=http",
		username, password, authContainer.GetHost(ctx), topic)
	provider := NewShoutrrrProvider("ntfy-auth", true, []string{url}, quietLog(), 10*time.Second)
	require.NoError(t, provider.ValidateConfig())

	n := NewNotification(TypeWarning, PriorityMedium, "Maintenance due", "SIM-002 is 300 km from its service interval")
	require.NoError(t, provider.Send(ctx, n))

	require.Eventually(t, func() bool {
		msgs, err := authContainer.PollMessagesWithAuth(ctx, topic, username, password)
		return err == nil && len(msgs) == 1
	}, 10*time.Second, 200*time.Millisecond, "authenticated message never reached ntfy")

	// Anonymous poll is denied when default access is deny-all.
	_, err = authContainer.PollMessages(ctx, topic)
	assert.Error(t, err)
}
