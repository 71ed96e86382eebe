//go:build integration

package containers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NtfyContainer wraps a testcontainers ntfy server, the push target the
// shoutrrr provider is verified against.
type NtfyContainer struct {
	container   testcontainers.Container
	host        string
	port        int
	authEnabled bool
}

// NtfyConfig holds configuration for ntfy container creation.
type NtfyConfig struct {
	// Image tag for binwiederhier/ntfy (default: "latest")
	ImageTag string
	// EnableAuth starts the server with deny-all default access; grant
	// per-topic access with AddUser and GrantAccess.
	EnableAuth bool
}

// DefaultNtfyConfig returns an NtfyConfig with sensible defaults.
func DefaultNtfyConfig() NtfyConfig {
	return NtfyConfig{ImageTag: "latest"}
}

// NtfyMessage is one message read back from a topic.
type NtfyMessage struct {
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
	Title   string `json:"title"`
	Time    int64  `json:"time"`
}

// NewNtfyContainer creates and starts an ntfy container. If config is nil,
// uses DefaultNtfyConfig().
func NewNtfyContainer(ctx context.Context, config *NtfyConfig) (*NtfyContainer, error) {
	if config == nil {
		defaultCfg := DefaultNtfyConfig()
		config = &defaultCfg
	}

	req := testcontainers.ContainerRequest{
		Image:        fmt.Sprintf("binwiederhier/ntfy:%s", config.ImageTag),
		ExposedPorts: []string{"80/tcp"},
		Cmd:          []string{"serve", "--cache-file=/tmp/ntfy/cache.db"},
		Tmpfs:        map[string]string{"/tmp/ntfy": "rw"},
		WaitingFor: wait.ForHTTP("/v1/health").
			WithPort("80/tcp").
			WithStartupTimeout(30 * time.Second),
	}
	if config.EnableAuth {
		req.Env = map[string]string{
			"NTFY_AUTH_FILE":           "/tmp/ntfy/auth.db",
			"NTFY_AUTH_DEFAULT_ACCESS": "deny-all",
		}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start ntfy container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, "80")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	return &NtfyContainer{
		container:   container,
		host:        host,
		port:        mappedPort.Int(),
		authEnabled: config.EnableAuth,
	}, nil
}

// GetHost returns host:port, the form shoutrrr ntfy URLs embed.
func (c *NtfyContainer) GetHost(_ context.Context) string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// GetURL returns the server's base HTTP URL.
func (c *NtfyContainer) GetURL(ctx context.Context) string {
	return "http://" + c.GetHost(ctx)
}

// AddUser creates a regular user. With deny-all default access the user
// can reach nothing until GrantAccess is called. Requires EnableAuth.
func (c *NtfyContainer) AddUser(ctx context.Context, username, password string) error {
	if !c.authEnabled {
		return fmt.Errorf("cannot add user: authentication is not enabled")
	}
	return c.execNtfy(ctx, []string{"ntfy", "user", "add", username},
		tcexec.WithEnv([]string{"NTFY_PASSWORD=" + password}))
}

// GrantAccess gives username access to topic. Permission is "ro", "wo",
// or "rw". Requires EnableAuth.
func (c *NtfyContainer) GrantAccess(ctx context.Context, username, topic, permission string) error {
	if !c.authEnabled {
		return fmt.Errorf("cannot grant access: authentication is not enabled")
	}
	return c.execNtfy(ctx, []string{"ntfy", "access", username, topic, permission})
}

func (c *NtfyContainer) execNtfy(ctx context.Context, cmd []string, opts ...tcexec.ProcessOption) error {
	exitCode, output, err := c.container.Exec(ctx, cmd, opts...)
	if err != nil {
		return fmt.Errorf("failed to exec %s: %w", cmd[1], err)
	}
	if exitCode != 0 {
		out, _ := io.ReadAll(output)
		return fmt.Errorf("ntfy %s failed with exit code %d: %s", cmd[1], exitCode, string(out))
	}
	return nil
}

// PollMessages reads the cached messages of a topic anonymously.
func (c *NtfyContainer) PollMessages(ctx context.Context, topic string) ([]NtfyMessage, error) {
	return c.fetchMessages(ctx, topic, "", "")
}

// PollMessagesWithAuth reads the cached messages of a topic with Basic Auth.
func (c *NtfyContainer) PollMessagesWithAuth(ctx context.Context, topic, username, password string) ([]NtfyMessage, error) {
	return c.fetchMessages(ctx, topic, username, password)
}

func (c *NtfyContainer) fetchMessages(ctx context.Context, topic, username, password string) ([]NtfyMessage, error) {
	url := fmt.Sprintf("%s/%s/json?poll=1", c.GetURL(ctx), topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if username != "" {
		req.SetBasicAuth(username, password)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll messages: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("poll request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// The poll endpoint streams newline-delimited JSON.
	var messages []NtfyMessage
	for line := range strings.SplitSeq(strings.TrimSpace(string(body)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg NtfyMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, fmt.Errorf("failed to parse message JSON: %w", err)
		}
		// keepalive/open events carry no message
		if msg.Message == "" && msg.ID == "" {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// HealthCheck pings the server's /v1/health endpoint.
func (c *NtfyContainer) HealthCheck(ctx context.Context) error {
	return WaitForHTTP(c.GetURL(ctx)+"/v1/health", 5*time.Second)
}

// Terminate stops and removes the ntfy container.
func (c *NtfyContainer) Terminate(ctx context.Context) error {
	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}
	return nil
}
