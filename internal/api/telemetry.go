package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"github.com/fleetpredict/fleetpredict-go/internal/telemetry"
)

// maxPayloadBytes bounds a single telemetry payload.
const maxPayloadBytes = 64 << 10

// Rejection reasons reported on the telemetry_rejected counter.
const (
	rejectBadPayload     = "bad_payload"
	rejectNoIdentifier   = "no_identifier"
	rejectUnknownVehicle = "unknown_vehicle"
)

// ingestError is a telemetry rejection with a client-facing message.
type ingestError struct {
	reason  string
	message string
}

func (e *ingestError) Error() string { return e.message }

// initTelemetryRoutes registers the HTTP ingest endpoint and both
// websocket endpoints.
func (c *Controller) initTelemetryRoutes() {
	c.Group.POST("/telemetry", c.IngestTelemetry)

	c.Echo.GET("/ws/telemetry", c.TelemetryIngestSocket)
	c.Echo.GET("/ws/vehicles/:id/telemetry", c.TelemetrySubscribeSocket)
}

// IngestTelemetry accepts one telemetry payload over HTTP for producers
// that cannot hold a websocket open.
func (c *Controller) IngestTelemetry(ctx echo.Context) error {
	data, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxPayloadBytes))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
	}

	msg, err := c.ingest(ctx.Request().Context(), data)
	if err != nil {
		var rej *ingestError
		if errors.As(err, &rej) {
			code := http.StatusBadRequest
			if rej.reason == rejectUnknownVehicle {
				code = http.StatusNotFound
			}
			return ctx.JSON(code, map[string]string{"error": rej.message})
		}
		return c.HandleError(ctx, err, "Failed to ingest telemetry", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusAccepted, map[string]any{
		"ok":         true,
		"vehicle_id": msg.Vehicle.ID,
		"timestamp":  msg.Reading.Timestamp,
	})
}

// ingest parses and resolves one payload, dispatches it into the pipeline,
// and rebroadcasts it to live subscribers. Rejections return *ingestError
// and bump the rejected counter.
func (c *Controller) ingest(ctx context.Context, data []byte) (*telemetry.Message, error) {
	payload, err := telemetry.ParsePayload(data)
	if err != nil {
		c.rejectTelemetry(rejectBadPayload)
		return nil, &ingestError{reason: rejectBadPayload, message: "Invalid telemetry payload"}
	}

	ref := payload.Ref()
	if ref.ID == 0 && ref.LicensePlate == "" && ref.VIN == "" {
		c.rejectTelemetry(rejectNoIdentifier)
		return nil, &ingestError{reason: rejectNoIdentifier, message: "Payload must identify a vehicle by vehicle_id, license_plate, or vin"}
	}

	vehicle, err := c.deps.Vehicles.FindVehicle(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrVehicleNotFound) {
			c.rejectTelemetry(rejectUnknownVehicle)
			return nil, &ingestError{reason: rejectUnknownVehicle, message: "Vehicle not found"}
		}
		return nil, err
	}

	reading := payload.Reading(vehicle.ID, time.Now().UTC())

	// The db writer persists mileage asynchronously; the maintenance-due
	// check must already see the odometer value this reading carries.
	// Advance monotonically so an out-of-order payload never rolls it back.
	if reading.Mileage != nil && *reading.Mileage > vehicle.CurrentMileage {
		vehicle.CurrentMileage = *reading.Mileage
	}

	msg := &telemetry.Message{Vehicle: vehicle, Reading: reading}

	if c.deps.Metrics != nil {
		c.deps.Metrics.TelemetryReceived.Inc()
	}
	c.deps.Dispatcher.Dispatch(msg)
	if c.deps.Hub != nil {
		c.deps.Hub.Broadcast(&reading)
	}
	return msg, nil
}

func (c *Controller) rejectTelemetry(reason string) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.TelemetryRejected.WithLabelValues(reason).Inc()
	}
}
