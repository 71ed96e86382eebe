package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fleetpredict/fleetpredict-go/internal/notification"
)

const healthCheckTimeout = 2 * time.Second

// initHealthRoutes registers the liveness endpoint.
func (c *Controller) initHealthRoutes() {
	c.Group.GET("/healthz", c.GetHealthz)
}

// GetHealthz reports the status of every backing subsystem. The endpoint
// returns 503 when the primary database is unreachable; optional
// subsystems degrade the report without failing it.
func (c *Controller) GetHealthz(ctx echo.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthCheckTimeout)
	defer cancel()

	components := map[string]string{}
	healthy := true

	if c.deps.PingDB != nil {
		if err := c.deps.PingDB(reqCtx); err != nil {
			components["database"] = "unreachable"
			healthy = false
		} else {
			components["database"] = "ok"
		}
	}

	if c.deps.StateStore != nil {
		if err := c.deps.StateStore.Ping(reqCtx); err != nil {
			components["redis"] = "unreachable"
		} else {
			components["redis"] = "ok"
		}
	}

	if c.deps.Timescale != nil {
		if err := c.deps.Timescale.Ping(reqCtx); err != nil {
			components["timescale"] = "unreachable"
		} else {
			components["timescale"] = "ok"
		}
	}

	if c.deps.MQTT != nil {
		if c.deps.MQTT.IsConnected() {
			components["mqtt"] = "ok"
		} else {
			components["mqtt"] = "disconnected"
		}
	}

	if notification.IsPatternEngineActive() {
		components["pattern_engine"] = "running"
	} else {
		components["pattern_engine"] = "stopped"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":     status,
		"components": components,
	}
	if c.deps.Hub != nil {
		body["websockets"] = c.deps.Hub.SubscriberCount()
	}
	return ctx.JSON(code, body)
}
