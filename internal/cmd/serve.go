package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetpredict/fleetpredict-go/internal/api"
	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/timeseries"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/mqtt"
	"github.com/fleetpredict/fleetpredict-go/internal/notification"
	"github.com/fleetpredict/fleetpredict-go/internal/observability/metrics"
	"github.com/fleetpredict/fleetpredict-go/internal/patterns"
	"github.com/fleetpredict/fleetpredict-go/internal/soc"
	"github.com/fleetpredict/fleetpredict-go/internal/state"
	"github.com/fleetpredict/fleetpredict-go/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion pipeline, pattern engine, and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	settings, err := conf.Load()
	if err != nil {
		return err
	}

	log := logger.NewSlogLogger(os.Stdout, logger.ParseLevel(settings.Main.LogLevel),
		[]logger.Field{logger.String("service", settings.Main.Name)})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Primary datastore.
	manager, err := datastore.Open(settings.Database)
	if err != nil {
		return err
	}
	defer manager.Close()
	if err := manager.Initialize(); err != nil {
		return err
	}

	db := manager.DB()
	vehicleRepo := repository.NewVehicleRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	telemetryRepo := repository.NewTelemetryRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	runbookRepo := repository.NewRunbookRepository(db)

	if err := soc.SeedDefaults(ctx, runbookRepo); err != nil {
		return err
	}

	m := metrics.New()

	// Optional Redis live state.
	var stateStore *state.Store
	if settings.Redis.Enabled {
		stateStore, err = state.New(ctx, settings.Redis.Addr, settings.Redis.Password,
			settings.Redis.DB, settings.Redis.StateTTL.Std())
		if err != nil {
			return err
		}
		defer stateStore.Close()
		log.Info("redis state store connected", logger.String("addr", settings.Redis.Addr))
	}

	// Optional TimescaleDB batch writer.
	var tsStore *timeseries.Store
	if settings.Timescale.Enabled {
		tsStore, err = timeseries.New(ctx, settings.Timescale.DSN,
			settings.Timescale.BatchSize, settings.Timescale.FlushInterval.Std(), log)
		if err != nil {
			return err
		}
		defer tsStore.Close()
		if err := tsStore.EnsureSchema(ctx); err != nil {
			return err
		}
		log.Info("timescale store ready")
	}

	// Optional MQTT publisher.
	var mqttClient mqtt.Client
	if settings.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(settings, log)
		if err != nil {
			return err
		}
		if err := mqttClient.Connect(ctx); err != nil {
			// The paho client keeps retrying in the background.
			log.Warn("initial mqtt connect failed", logger.Error(err))
		}
		defer mqttClient.Disconnect()
	}

	// Notification feed and external push.
	provider := notification.NewShoutrrrProvider("shoutrrr", len(settings.Notification.URLs) > 0,
		settings.Notification.URLs, log, 0)
	if err := provider.ValidateConfig(); err != nil {
		return err
	}
	notification.Initialize(&notification.ServiceConfig{
		MinPushPriority: settings.Notification.MinPushSeverity,
		Providers:       []notification.Provider{provider},
		Log:             log,
	})
	notifier := notification.MustGetService()
	defer notifier.Stop()

	// Pipeline.
	dispatcher := telemetry.NewDispatcher(
		settings.Telemetry.DBChannelSize,
		settings.Telemetry.StateChannelSize,
		settings.Telemetry.EngineChannelSize,
		m)
	hub := telemetry.NewHub()
	windows := telemetry.NewWindowTracker(settings.Telemetry.WindowSize)

	dbWriter := telemetry.NewDBWriter(dispatcher.DBChan, telemetryRepo, vehicleRepo, tsStore, m, log)

	actionFunc := buildAlertActions(notifier, stateStore, mqttClient, log)
	engine := patterns.NewEngine(settings.Patterns, alertRepo, maintenanceRepo,
		telemetryRepo, stateStore, windows, actionFunc, m, log)
	engine.StartRetentionCleanup()
	defer engine.Stop()

	controller := api.New(api.Dependencies{
		Settings:    settings,
		Log:         log,
		Metrics:     m,
		Vehicles:    vehicleRepo,
		Alerts:      alertRepo,
		Telemetry:   telemetryRepo,
		Maintenance: maintenanceRepo,
		Runbooks:    runbookRepo,
		Dispatcher:  dispatcher,
		Hub:         hub,
		Health:      patterns.NewHealthEvaluator(alertRepo, maintenanceRepo, telemetryRepo, settings.Patterns.Thresholds),
		Executor:    soc.NewExecutor(alertRepo, runbookRepo, maintenanceRepo, log),
		StateStore:  stateStore,
		Timescale:   tsStore,
		MQTT:        mqttClient,
		PingDB:      manager.Ping,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dbWriter.Run(gctx)
		return nil
	})
	if stateStore != nil {
		stateWriter := telemetry.NewStateWriter(dispatcher.StateChan, stateStore, log)
		g.Go(func() error {
			stateWriter.Run(gctx)
			return nil
		})
	} else {
		g.Go(func() error {
			drain(gctx, dispatcher.StateChan)
			return nil
		})
	}
	g.Go(func() error {
		notification.SetPatternEngineActive(true)
		defer notification.SetPatternEngineActive(false)
		engine.Run(gctx, dispatcher.EngineChan)
		return nil
	})
	g.Go(func() error {
		log.Info("http server starting",
			logger.String("host", settings.Server.Host),
			logger.Int("port", settings.Server.Port))
		if err := controller.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return controller.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	dispatcher.Close()
	log.Info("shutdown complete")
	return err
}

// buildAlertActions composes the side effects applied to every persisted
// alert: the in-app feed (with external push for high/critical), the Redis
// alert channel, and the MQTT topic.
func buildAlertActions(
	notifier *notification.Service,
	stateStore *state.Store,
	mqttClient mqtt.Client,
	log logger.Logger,
) patterns.ActionFunc {
	return func(vehicle *entities.Vehicle, alert *entities.VehicleAlert) {
		n := notification.NewNotification(notification.TypeAlert, alert.Severity,
			"Vehicle alert: "+vehicle.DisplayName(), alert.Message).
			WithMetadata("vehicle_id", vehicle.ID).
			WithMetadata("alert_id", alert.ID).
			WithMetadata("alert_type", alert.AlertType)
		notifier.Create(n)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if stateStore != nil {
			if err := stateStore.PublishAlert(ctx, alert); err != nil {
				log.Warn("redis alert publish failed", logger.Error(err))
			}
		}
		if mqttClient != nil && mqttClient.IsConnected() {
			if err := mqttClient.PublishAlert(ctx, vehicle, alert); err != nil {
				log.Warn("mqtt alert publish failed", logger.Error(err))
			}
		}
	}
}

// drain discards messages on an unused pipeline channel so the dispatcher
// never counts drops against a disabled stage.
func drain(ctx context.Context, ch <-chan *telemetry.Message) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
