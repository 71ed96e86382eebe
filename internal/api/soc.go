package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/soc"
)

const defaultSummaryLimit = 50

// initSOCRoutes registers the SOC view and runbook endpoints.
func (c *Controller) initSOCRoutes() {
	c.Group.GET("/soc/summary", c.GetSOCSummary)
	c.Group.GET("/playbooks", c.ListPlaybooks)
	c.Group.GET("/runbooks", c.ListRunbooks)

	c.Group.POST("/runbooks/:id/execute", c.ExecuteRunbook, c.authMiddleware)
}

// GetSOCSummary returns unresolved high/critical alerts decorated with
// their playbooks and applicable runbooks.
func (c *Controller) GetSOCSummary(ctx echo.Context) error {
	limit := defaultSummaryLimit
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		if v, err := strconv.Atoi(limitParam); err == nil && v > 0 {
			limit = v
		}
	}

	summary, err := soc.BuildSummary(ctx.Request().Context(), c.deps.Alerts, c.deps.Runbooks, limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to build SOC summary", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, summary)
}

// ListPlaybooks returns all playbooks.
func (c *Controller) ListPlaybooks(ctx echo.Context) error {
	playbooks, err := c.deps.Runbooks.ListPlaybooks(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list playbooks", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"playbooks": playbooks,
		"count":     len(playbooks),
	})
}

// ListRunbooks returns runbooks; ?active=true restricts to active ones.
func (c *Controller) ListRunbooks(ctx echo.Context) error {
	onlyActive := ctx.QueryParam("active") == QueryValueTrue

	runbooks, err := c.deps.Runbooks.ListRunbooks(ctx.Request().Context(), onlyActive)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list runbooks", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"runbooks": runbooks,
		"count":    len(runbooks),
	})
}

// ExecuteRunbook runs a runbook action against an alert.
func (c *Controller) ExecuteRunbook(ctx echo.Context) error {
	runbookID, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid runbook ID"})
	}

	var body struct {
		AlertID uint `json:"alert_id"`
	}
	if err := ctx.Bind(&body); err != nil || body.AlertID == 0 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "alert_id is required"})
	}

	result, err := c.deps.Executor.Execute(ctx.Request().Context(), runbookID, body.AlertID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRunbookNotFound):
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Runbook not found"})
		case errors.Is(err, repository.ErrAlertNotFound):
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		case errors.Is(err, soc.ErrRunbookNotApplicable):
			return ctx.JSON(http.StatusConflict, map[string]string{"error": "Runbook not applicable to this alert"})
		}
		return c.HandleError(ctx, err, "Failed to execute runbook", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("runbook executed",
		logger.String("runbook", result.Runbook),
		logger.String("action", result.Action),
		logger.Uint64("alert_id", uint64(result.AlertID)))

	return ctx.JSON(http.StatusOK, result)
}
