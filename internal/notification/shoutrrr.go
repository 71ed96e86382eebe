package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// Provider pushes notifications to an external channel.
type Provider interface {
	Name() string
	ValidateConfig() error
	Send(ctx context.Context, n *Notification) error
}

// ShoutrrrProvider delivers notifications through shoutrrr sender URLs
// (smtp://, telegram://, ntfy://, ...).
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	log     logger.Logger
	timeout time.Duration

	sender *router.ServiceRouter
}

// NewShoutrrrProvider creates a provider for the given sender URLs.
func NewShoutrrrProvider(name string, enabled bool, urls []string, log logger.Logger, timeout time.Duration) *ShoutrrrProvider {
	return &ShoutrrrProvider{
		name:    name,
		enabled: enabled,
		urls:    urls,
		log:     log,
		timeout: timeout,
	}
}

// Name returns the provider name.
func (p *ShoutrrrProvider) Name() string { return p.name }

// ValidateConfig builds the sender router, failing on malformed URLs.
func (p *ShoutrrrProvider) ValidateConfig() error {
	if !p.enabled || len(p.urls) == 0 {
		return nil
	}
	sender, err := shoutrrr.CreateSender(p.urls...)
	if err != nil {
		return fmt.Errorf("invalid notification URLs: %w", err)
	}
	p.sender = sender
	return nil
}

// Send pushes the notification to every configured URL.
func (p *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if !p.enabled || len(p.urls) == 0 {
		return nil
	}
	if p.sender == nil {
		if err := p.ValidateConfig(); err != nil {
			return err
		}
	}

	params := &types.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}

	done := make(chan []error, 1)
	go func() {
		done <- p.sender.Send(n.Message, params)
	}()

	timeout := p.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case errs := <-done:
		for _, err := range errs {
			if err != nil {
				return fmt.Errorf("notification send failed: %w", err)
			}
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("notification send timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
