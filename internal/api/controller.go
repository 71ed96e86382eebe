// Package api implements the HTTP surface: the REST endpoints under
// /api/v2, the telemetry websockets, and the Prometheus exposition
// endpoint. Read endpoints are public; mutating endpoints require the
// configured bearer token.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/timeseries"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/mqtt"
	"github.com/fleetpredict/fleetpredict-go/internal/observability/metrics"
	"github.com/fleetpredict/fleetpredict-go/internal/patterns"
	"github.com/fleetpredict/fleetpredict-go/internal/soc"
	"github.com/fleetpredict/fleetpredict-go/internal/state"
	"github.com/fleetpredict/fleetpredict-go/internal/telemetry"
)

// QueryValueTrue is the canonical truthy query parameter value.
const QueryValueTrue = "true"

// Dependencies collects everything the controller needs. Optional
// subsystems (redis, timescale, mqtt) may be nil.
type Dependencies struct {
	Settings *conf.Settings
	Log      logger.Logger
	Metrics  *metrics.Metrics

	Vehicles    repository.VehicleRepository
	Alerts      repository.AlertRepository
	Telemetry   repository.TelemetryRepository
	Maintenance repository.MaintenanceRepository
	Runbooks    repository.RunbookRepository

	Dispatcher *telemetry.Dispatcher
	Hub        *telemetry.Hub
	Health     *patterns.HealthEvaluator
	Executor   *soc.Executor

	StateStore *state.Store
	Timescale  *timeseries.Store
	MQTT       mqtt.Client

	// PingDB reports primary database reachability for the health endpoint.
	PingDB func(ctx context.Context) error
}

// Controller wires the echo server to the application services.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	deps Dependencies
	log  logger.Logger
}

// New creates the controller and registers all routes.
func New(deps Dependencies) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:  e,
		Group: e.Group("/api/v2"),
		deps:  deps,
		log:   deps.Log,
	}

	c.initVehicleRoutes()
	c.initAlertRoutes()
	c.initSOCRoutes()
	c.initTelemetryRoutes()
	c.initNotificationRoutes()
	c.initHealthRoutes()

	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	return c
}

// Start begins serving on the configured address. Blocks until shutdown.
func (c *Controller) Start() error {
	addr := c.deps.Settings.Server.Host + ":" + strconv.Itoa(c.deps.Settings.Server.Port)
	return c.Echo.Start(addr)
}

// Shutdown stops the HTTP server gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

// authMiddleware enforces the configured bearer token on mutating
// endpoints. An empty token disables auth.
func (c *Controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token := c.deps.Settings.Server.AuthToken
		if token == "" {
			return next(ctx)
		}
		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or missing bearer token"})
		}
		return next(ctx)
	}
}

// HandleError logs the error and returns a JSON error envelope.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	c.logErrorIfEnabled(message, logger.Error(err))
	return ctx.JSON(code, map[string]string{"error": message})
}

func (c *Controller) logErrorIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Error(msg, fields...)
	}
}

func (c *Controller) logInfoIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Info(msg, fields...)
	}
}

// parseUintParam parses a uint route parameter.
func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
