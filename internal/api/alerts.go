package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
)

const defaultAlertPageSize = 50

// initAlertRoutes registers the alert endpoints.
func (c *Controller) initAlertRoutes() {
	alerts := c.Group.Group("/alerts")

	alerts.GET("", c.ListAlerts)
	alerts.GET("/:id", c.GetAlert)

	protected := alerts.Group("", c.authMiddleware)
	protected.PATCH("/:id/read", c.MarkAlertRead)
	protected.POST("/:id/suggestion", c.ResolveAlertSuggestion)
}

// ListAlerts returns paginated alerts, newest first.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	filter := repository.AlertFilter{
		AlertType: ctx.QueryParam("alert_type"),
		Severity:  ctx.QueryParam("severity"),
		Limit:     defaultAlertPageSize,
	}

	if vehicleParam := ctx.QueryParam("vehicle_id"); vehicleParam != "" {
		v, err := strconv.ParseUint(vehicleParam, 10, 64)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vehicle_id"})
		}
		filter.VehicleID = uint(v)
	}
	if ctx.QueryParam("unread") == QueryValueTrue {
		filter.UnreadOnly = true
	}
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		if v, err := strconv.Atoi(limitParam); err == nil && v > 0 {
			filter.Limit = v
		}
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		if v, err := strconv.Atoi(offsetParam); err == nil && v >= 0 {
			filter.Offset = v
		}
	}

	alerts, total, err := c.deps.Alerts.ListAlerts(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alerts", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetAlert returns a single alert by ID, together with the remediation
// playbook for its type when one is configured.
func (c *Controller) GetAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alert ID"})
	}

	reqCtx := ctx.Request().Context()
	alert, err := c.deps.Alerts.GetAlert(reqCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		return c.HandleError(ctx, err, "Failed to get alert", http.StatusInternalServerError)
	}

	playbook, err := c.deps.Runbooks.GetPlaybookByAlertType(reqCtx, alert.AlertType)
	if err != nil && !errors.Is(err, repository.ErrPlaybookNotFound) {
		return c.HandleError(ctx, err, "Failed to load playbook", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alert":    alert,
		"playbook": playbook,
	})
}

// MarkAlertRead stamps the alert's read timestamp. Marking an already-read
// alert is a no-op.
func (c *Controller) MarkAlertRead(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alert ID"})
	}

	if err := c.deps.Alerts.MarkAlertRead(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		return c.HandleError(ctx, err, "Failed to mark alert read", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "read": true})
}

// ResolveAlertSuggestion accepts or dismisses a maintenance suggestion.
// Accepting creates a preventive task.
func (c *Controller) ResolveAlertSuggestion(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alert ID"})
	}

	var body struct {
		Action string `json:"action"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.Action != "accept" && body.Action != "dismiss" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Action must be accept or dismiss"})
	}

	result, err := c.deps.Executor.ResolveSuggestion(ctx.Request().Context(), id, body.Action == "accept")
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		var enhanced *errors.EnhancedError
		if errors.As(err, &enhanced) && enhanced.Category() == errors.CategoryValidation {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Alert carries no maintenance suggestion"})
		}
		return c.HandleError(ctx, err, "Failed to resolve suggestion", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("maintenance suggestion resolved",
		logger.Uint64("alert_id", uint64(id)),
		logger.String("action", result.Action))

	return ctx.JSON(http.StatusOK, result)
}
