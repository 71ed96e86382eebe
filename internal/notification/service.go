package notification

import (
	"context"
	"sync"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/logger"
)

const (
	// defaultMaxNotifications bounds the in-memory feed.
	defaultMaxNotifications = 500
	// subscriberBuffer is the per-subscriber channel capacity; slow
	// consumers lose entries rather than blocking Create.
	subscriberBuffer = 16
	pushTimeout      = 30 * time.Second
)

// ServiceConfig tunes the notification service.
type ServiceConfig struct {
	MaxNotifications int
	// MinPushPriority is the lowest priority forwarded to providers.
	MinPushPriority string
	Providers       []Provider
	Log             logger.Logger
}

// Service keeps the bounded in-memory feed, fans entries out to
// subscribers, and pushes qualifying entries to external providers.
type Service struct {
	config *ServiceConfig

	mu      sync.RWMutex
	entries []*Notification

	subMu sync.Mutex
	subs  map[chan *Notification]struct{}

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewService creates a notification service.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.MaxNotifications <= 0 {
		config.MaxNotifications = defaultMaxNotifications
	}
	if config.Log == nil {
		config.Log = logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	}
	return &Service{
		config:  config,
		subs:    make(map[chan *Notification]struct{}),
		stopped: make(chan struct{}),
	}
}

// Create appends a notification to the feed, fans it out to subscribers,
// and pushes it to providers when its priority qualifies.
func (s *Service) Create(n *Notification) {
	s.mu.Lock()
	s.entries = append(s.entries, n)
	if len(s.entries) > s.config.MaxNotifications {
		s.entries = s.entries[len(s.entries)-s.config.MaxNotifications:]
	}
	s.mu.Unlock()

	s.subMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- n:
		default:
		}
	}
	s.subMu.Unlock()

	if s.shouldPush(n.Priority) {
		go s.push(n)
	}
}

func (s *Service) shouldPush(priority string) bool {
	if len(s.config.Providers) == 0 {
		return false
	}
	min := s.config.MinPushPriority
	if min == "" {
		min = PriorityHigh
	}
	return PriorityRank(priority) >= PriorityRank(min)
}

func (s *Service) push(n *Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	for _, provider := range s.config.Providers {
		if err := provider.Send(ctx, n); err != nil {
			s.config.Log.Error("notification push failed",
				logger.String("provider", provider.Name()),
				logger.Error(err))
		}
	}
}

// List returns the feed, newest first, up to limit entries. Zero or
// negative means all.
func (s *Service) List(limit int) []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*Notification, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// MarkRead flags a notification read; returns false when the ID is unknown.
func (s *Service) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.entries {
		if n.ID == id {
			n.Read = true
			return true
		}
	}
	return false
}

// UnreadCount returns the number of unread entries.
func (s *Service) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.entries {
		if !n.Read {
			count++
		}
	}
	return count
}

// Subscribe returns a channel receiving every new notification. Call the
// returned cancel function to detach.
func (s *Service) Subscribe() (<-chan *Notification, func()) {
	ch := make(chan *Notification, subscriberBuffer)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Stop detaches all subscribers.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.subMu.Lock()
		for ch := range s.subs {
			delete(s.subs, ch)
			close(ch)
		}
		s.subMu.Unlock()
	})
}
