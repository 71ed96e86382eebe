package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
)

const defaultReadingsLimit = 30

// initVehicleRoutes registers the vehicle registry endpoints.
func (c *Controller) initVehicleRoutes() {
	vehicles := c.Group.Group("/vehicles")

	vehicles.GET("", c.ListVehicles)
	vehicles.GET("/types", c.ListVehicleTypes)
	vehicles.GET("/:id", c.GetVehicle)
	vehicles.GET("/:id/health", c.GetVehicleHealth)
	vehicles.GET("/:id/telemetry", c.GetVehicleTelemetry)

	protected := vehicles.Group("", c.authMiddleware)
	protected.POST("", c.CreateVehicle)
	protected.POST("/types", c.CreateVehicleType)
	protected.DELETE("/:id", c.DeleteVehicle)
}

// ListVehicles returns registered vehicles, optionally filtered by status.
func (c *Controller) ListVehicles(ctx echo.Context) error {
	filter := repository.VehicleFilter{
		Status: ctx.QueryParam("status"),
	}
	if ctx.QueryParam("include_deleted") == QueryValueTrue {
		filter.IncludeDeleted = true
	}

	vehicles, err := c.deps.Vehicles.ListVehicles(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list vehicles", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"vehicles": vehicles,
		"count":    len(vehicles),
	})
}

// GetVehicle returns a single vehicle by ID.
func (c *Controller) GetVehicle(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vehicle ID"})
	}

	vehicle, err := c.deps.Vehicles.GetVehicle(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Vehicle not found"})
		}
		return c.HandleError(ctx, err, "Failed to get vehicle", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, vehicle)
}

// GetVehicleHealth returns the traffic-light health status for a vehicle.
func (c *Controller) GetVehicleHealth(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vehicle ID"})
	}

	reqCtx := ctx.Request().Context()
	vehicle, err := c.deps.Vehicles.GetVehicle(reqCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Vehicle not found"})
		}
		return c.HandleError(ctx, err, "Failed to get vehicle", http.StatusInternalServerError)
	}

	health, err := c.deps.Health.Evaluate(reqCtx, vehicle)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to evaluate vehicle health", http.StatusInternalServerError)
	}

	threshold := c.deps.Settings.Telemetry.EngineOnThreshold.Std()
	if threshold <= 0 {
		threshold = 90 * time.Second
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"vehicle_id": vehicle.ID,
		"status":     health.Status,
		"reasons":    health.Reasons,
		"engine_on":  vehicle.EngineOn(time.Now().UTC(), threshold),
	})
}

// GetVehicleTelemetry returns recent readings for a vehicle, newest first.
func (c *Controller) GetVehicleTelemetry(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vehicle ID"})
	}

	limit := defaultReadingsLimit
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		if v, err := strconv.Atoi(limitParam); err == nil && v > 0 {
			limit = v
		}
	}

	readings, err := c.deps.Telemetry.RecentReadings(ctx.Request().Context(), id, limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list telemetry", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
	})
}

// CreateVehicle registers a new vehicle.
func (c *Controller) CreateVehicle(ctx echo.Context) error {
	var vehicle entities.Vehicle
	if err := ctx.Bind(&vehicle); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if vehicle.LicensePlate == "" || vehicle.VIN == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "License plate and VIN are required"})
	}
	if vehicle.Status == "" {
		vehicle.Status = entities.VehicleStatusActive
	}

	if err := c.deps.Vehicles.CreateVehicle(ctx.Request().Context(), &vehicle); err != nil {
		return c.HandleError(ctx, err, "Failed to create vehicle", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("vehicle registered",
		logger.String("license_plate", vehicle.LicensePlate),
		logger.Uint64("id", uint64(vehicle.ID)))

	return ctx.JSON(http.StatusCreated, vehicle)
}

// DeleteVehicle soft-deletes a vehicle; its telemetry and alert history
// stay queryable.
func (c *Controller) DeleteVehicle(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid vehicle ID"})
	}

	if err := c.deps.Vehicles.SoftDeleteVehicle(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Vehicle not found"})
		}
		return c.HandleError(ctx, err, "Failed to delete vehicle", http.StatusInternalServerError)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// ListVehicleTypes returns all vehicle types.
func (c *Controller) ListVehicleTypes(ctx echo.Context) error {
	types, err := c.deps.Vehicles.ListVehicleTypes(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list vehicle types", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"types": types,
		"count": len(types),
	})
}

// CreateVehicleType creates a vehicle type.
func (c *Controller) CreateVehicleType(ctx echo.Context) error {
	var vt entities.VehicleType
	if err := ctx.Bind(&vt); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if vt.Name == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Type name is required"})
	}

	if err := c.deps.Vehicles.CreateVehicleType(ctx.Request().Context(), &vt); err != nil {
		return c.HandleError(ctx, err, "Failed to create vehicle type", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusCreated, vt)
}
