package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/observability/metrics"
	"github.com/fleetpredict/fleetpredict-go/internal/state"
	"github.com/fleetpredict/fleetpredict-go/internal/telemetry"
	gocache "github.com/patrickmn/go-cache"
)

const (
	// saveAlertTimeout is the context deadline for persisting one alert.
	saveAlertTimeout = 3 * time.Second
	// cleanupTimeout is the context deadline for the periodic alert deletion.
	cleanupTimeout = 5 * time.Second
	// cleanupInterval is how often the retention cleanup goroutine runs.
	cleanupInterval = 1 * time.Hour
)

// ActionFunc is called once per persisted alert, outside any lock. Side
// effects (notification push, MQTT, pub/sub) hang off this callback.
type ActionFunc func(vehicle *entities.Vehicle, alert *entities.VehicleAlert)

// Engine runs the pattern checks over each vehicle's rolling window and
// persists deduplicated alerts.
type Engine struct {
	settings   conf.PatternSettings
	alerts     repository.AlertRepository
	tasks      repository.MaintenanceRepository
	readings   repository.TelemetryRepository
	actionFunc ActionFunc
	metrics    *metrics.Metrics
	log        logger.Logger

	// stateStore is nil when Redis is disabled; dedup then relies on the
	// local cache plus the persisted-alert query.
	stateStore *state.Store

	// dedup is the in-process cooldown layer: key (vehicle, type), value
	// ignored. Entries expire after the cooldown window.
	dedup *gocache.Cache

	windows *telemetry.WindowTracker

	cleanupStop chan struct{}
}

// NewEngine creates a pattern engine.
func NewEngine(
	settings conf.PatternSettings,
	alerts repository.AlertRepository,
	tasks repository.MaintenanceRepository,
	readings repository.TelemetryRepository,
	stateStore *state.Store,
	windows *telemetry.WindowTracker,
	actionFunc ActionFunc,
	m *metrics.Metrics,
	log logger.Logger,
) *Engine {
	cooldown := settings.Cooldown.Std()
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	return &Engine{
		settings:   settings,
		alerts:     alerts,
		tasks:      tasks,
		readings:   readings,
		stateStore: stateStore,
		windows:    windows,
		actionFunc: actionFunc,
		metrics:    m,
		log:        log,
		dedup:      gocache.New(cooldown, 10*time.Minute),
	}
}

// Run consumes accepted readings until the channel closes or ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context, ch <-chan *telemetry.Message) {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			e.HandleMessage(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// HandleMessage appends the reading to the vehicle's window, evaluates all
// checks, and persists any new alerts. Returns the alerts created.
func (e *Engine) HandleMessage(ctx context.Context, msg *telemetry.Message) []*entities.VehicleAlert {
	window := e.windows.Append(msg.Vehicle.ID, msg.Reading)
	return e.Evaluate(ctx, msg.Vehicle, window)
}

// Evaluate runs the checks over the given window, newest first.
func (e *Engine) Evaluate(ctx context.Context, vehicle *entities.Vehicle, window []entities.TelemetryReading) []*entities.VehicleAlert {
	if len(window) == 0 || vehicle.IsDeleted {
		return nil
	}
	start := time.Now()
	defer func() {
		e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	lastTask, err := e.tasks.LastCompletedTask(ctx, vehicle.ID)
	if err != nil && !errors.Is(err, repository.ErrTaskNotFound) {
		e.log.Error("last completed task lookup failed",
			logger.Uint64("vehicle_id", uint64(vehicle.ID)),
			logger.Error(err))
	}

	findings := RunChecks(&CheckContext{
		Vehicle:           vehicle,
		Readings:          window,
		LastCompletedTask: lastTask,
		Thresholds:        e.settings.Thresholds,
		Now:               time.Now(),
	})
	if len(findings) == 0 {
		return nil
	}

	recent, err := e.recentTypes(ctx, vehicle.ID)
	if err != nil {
		e.log.Error("alert dedup query failed",
			logger.Uint64("vehicle_id", uint64(vehicle.ID)),
			logger.Error(err))
		return nil
	}

	var created []*entities.VehicleAlert
	for i := range findings {
		f := &findings[i]
		if e.isSuppressed(ctx, vehicle.ID, f.Type, recent) {
			e.metrics.AlertsSuppressed.WithLabelValues(f.Type).Inc()
			continue
		}
		alert := e.persistFinding(vehicle, f)
		if alert == nil {
			continue
		}
		recent[f.Type] = struct{}{}
		created = append(created, alert)
		if e.actionFunc != nil {
			e.actionFunc(vehicle, alert)
		}
	}
	return created
}

// recentTypes loads the persisted dedup set for the cooldown window.
func (e *Engine) recentTypes(ctx context.Context, vehicleID uint) (map[string]struct{}, error) {
	since := time.Now().Add(-e.cooldown())
	types, err := e.alerts.RecentAlertTypes(ctx, vehicleID, since)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set, nil
}

func (e *Engine) cooldown() time.Duration {
	if d := e.settings.Cooldown.Std(); d > 0 {
		return d
	}
	return time.Hour
}

// isSuppressed consults the three dedup layers: local cache, Redis, then
// the persisted-alert set already loaded for this evaluation.
func (e *Engine) isSuppressed(ctx context.Context, vehicleID uint, alertType string, recent map[string]struct{}) bool {
	key := dedupCacheKey(vehicleID, alertType)
	if _, hit := e.dedup.Get(key); hit {
		return true
	}
	if e.stateStore != nil {
		hit, err := e.stateStore.CheckAlertDedup(ctx, vehicleID, alertType)
		if err != nil {
			e.log.Warn("redis dedup check failed", logger.Error(err))
		} else if hit {
			return true
		}
	}
	_, hit := recent[alertType]
	return hit
}

func (e *Engine) persistFinding(vehicle *entities.Vehicle, f *Finding) *entities.VehicleAlert {
	confidence := f.Confidence
	alert := &entities.VehicleAlert{
		VehicleID:     vehicle.ID,
		AlertType:     f.Type,
		Severity:      f.Severity,
		Message:       f.Message,
		Confidence:    &confidence,
		TimeframeText: f.Timeframe,
	}
	if isMaintenanceSuggestion(f.Type) {
		status := entities.SuggestionPending
		alert.SuggestionStatus = &status
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), saveAlertTimeout)
	defer cancel()
	if err := e.alerts.CreateAlert(saveCtx, alert); err != nil {
		e.log.Error("failed to persist alert",
			logger.Uint64("vehicle_id", uint64(vehicle.ID)),
			logger.String("alert_type", f.Type),
			logger.Error(err))
		return nil
	}

	e.dedup.SetDefault(dedupCacheKey(vehicle.ID, f.Type), struct{}{})
	if e.stateStore != nil {
		if err := e.stateStore.SetAlertDedup(saveCtx, vehicle.ID, f.Type, e.cooldown()); err != nil {
			e.log.Warn("redis dedup set failed", logger.Error(err))
		}
	}
	e.metrics.AlertsRaised.WithLabelValues(f.Type, f.Severity).Inc()

	e.log.Info("alert raised",
		logger.Uint64("vehicle_id", uint64(vehicle.ID)),
		logger.String("alert_type", f.Type),
		logger.String("severity", f.Severity))
	return alert
}

// isMaintenanceSuggestion reports whether alerts of this type carry the
// accept/dismiss suggestion workflow.
func isMaintenanceSuggestion(alertType string) bool {
	return alertType == entities.AlertTypeMaintenanceMileage ||
		alertType == entities.AlertTypeMaintenanceTime
}

func dedupCacheKey(vehicleID uint, alertType string) string {
	return fmt.Sprintf("%d:%s", vehicleID, alertType)
}

// StartRetentionCleanup starts a background goroutine that periodically
// deletes read alerts and telemetry readings older than the configured
// retention. A value of 0 disables cleanup.
func (e *Engine) StartRetentionCleanup() {
	retentionDays := e.settings.RetentionDays
	if retentionDays <= 0 {
		return
	}
	e.stopCleanup()
	e.cleanupStop = make(chan struct{})
	stopCh := e.cleanupStop
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.runRetentionCleanup(retentionDays)
			case <-stopCh:
				return
			}
		}
	}()
}

// runRetentionCleanup performs one retention pass: read alerts and raw
// readings older than the cutoff are removed.
func (e *Engine) runRetentionCleanup(retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	alertsDeleted, err := e.alerts.DeleteReadAlertsBefore(cleanupCtx, cutoff)
	if err != nil {
		e.log.Error("alert retention cleanup failed", logger.Error(err))
	}

	var readingsDeleted int64
	if e.readings != nil {
		readingsDeleted, err = e.readings.DeleteReadingsBefore(cleanupCtx, cutoff)
		if err != nil {
			e.log.Error("reading retention cleanup failed", logger.Error(err))
		}
	}

	if alertsDeleted > 0 || readingsDeleted > 0 {
		e.log.Info("retention cleanup completed",
			logger.Int64("alerts_deleted", alertsDeleted),
			logger.Int64("readings_deleted", readingsDeleted),
			logger.Int("retention_days", retentionDays))
	}
}

func (e *Engine) stopCleanup() {
	if e.cleanupStop != nil {
		close(e.cleanupStop)
		e.cleanupStop = nil
	}
}

// Stop shuts down background goroutines.
func (e *Engine) Stop() {
	e.stopCleanup()
}
