package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/patterns"
)

func TestIngestTelemetry(t *testing.T) {
	tc := newTestController(t, "")
	createAPIVehicle(t, tc.db, "SIM-001", "1HGBH41JXMN109001")

	t.Run("accepted and dispatched", func(t *testing.T) {
		rec := tc.request(http.MethodPost, "/api/v2/telemetry",
			`{"license_plate":"SIM-001","speed_kmh":62.5,"engine_temperature_c":90.0}`, "")
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok":true`)
		assert.Contains(t, rec.Body.String(), `"vehicle_id":1`)

		// The reading reaches every pipeline stage.
		require.Len(t, tc.dispatcher.DBChan, 1)
		require.Len(t, tc.dispatcher.StateChan, 1)
		require.Len(t, tc.dispatcher.EngineChan, 1)

		msg := <-tc.dispatcher.EngineChan
		assert.Equal(t, "SIM-001", msg.Vehicle.LicensePlate)
		require.NotNil(t, msg.Reading.SpeedKmh)
		assert.InDelta(t, 62.5, *msg.Reading.SpeedKmh, 1e-9)
	})

	t.Run("resolves by vin", func(t *testing.T) {
		rec := tc.request(http.MethodPost, "/api/v2/telemetry",
			`{"vin":"1HGBH41JXMN109001","fuel_level_pct":55}`, "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("broadcasts to live subscribers", func(t *testing.T) {
		sub := tc.hub.Subscribe(1)
		defer sub.Close()

		rec := tc.request(http.MethodPost, "/api/v2/telemetry",
			`{"vehicle_id":1,"rpm":2100}`, "")
		require.Equal(t, http.StatusAccepted, rec.Code)

		select {
		case payload := <-sub.C:
			assert.Contains(t, string(payload), `"rpm":2100`)
		default:
			t.Fatal("subscriber received nothing")
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		rec := tc.request(http.MethodPost, "/api/v2/telemetry", `{"speed_kmh":`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid telemetry payload")
	})

	t.Run("missing identifier", func(t *testing.T) {
		rec := tc.request(http.MethodPost, "/api/v2/telemetry", `{"speed_kmh":40}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "must identify a vehicle")
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		rec := tc.request(http.MethodPost, "/api/v2/telemetry", `{"license_plate":"NOPE-999"}`, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Vehicle not found")
	})

	t.Run("advances the mileage snapshot before dispatch", func(t *testing.T) {
		vehicleType := &entities.VehicleType{Name: "Cargo Van", MaintenanceIntervalKm: 10000}
		require.NoError(t, tc.db.Create(vehicleType).Error)
		vehicle := createAPIVehicle(t, tc.db, "SIM-777", "7HGBH41JXMN109007")
		require.NoError(t, tc.db.Model(vehicle).Updates(map[string]any{
			"current_mileage": 9400, "vehicle_type_id": vehicleType.ID,
		}).Error)

		// Drain messages queued by earlier subtests.
		for len(tc.dispatcher.EngineChan) > 0 {
			<-tc.dispatcher.EngineChan
		}

		rec := tc.request(http.MethodPost, "/api/v2/telemetry",
			`{"license_plate":"SIM-777","mileage":9600}`, "")
		require.Equal(t, http.StatusAccepted, rec.Code)

		// The db writer persists mileage after the fact; the dispatched
		// snapshot must already carry the reading's odometer.
		msg := <-tc.dispatcher.EngineChan
		assert.Equal(t, 9600, msg.Vehicle.CurrentMileage)

		// 9600 km is inside the 500 km due-soon buffer of the 10000 km
		// interval, so the maintenance check fires on this snapshot.
		findings := patterns.RunChecks(&patterns.CheckContext{
			Vehicle:    msg.Vehicle,
			Readings:   []entities.TelemetryReading{msg.Reading},
			Thresholds: conf.DefaultThresholds(),
			Now:        time.Now(),
		})
		types := make([]string, 0, len(findings))
		for i := range findings {
			types = append(types, findings[i].Type)
		}
		assert.Contains(t, types, entities.AlertTypeMaintenanceMileage)

		t.Run("stale odometer never rolls the snapshot back", func(t *testing.T) {
			rec := tc.request(http.MethodPost, "/api/v2/telemetry",
				`{"license_plate":"SIM-777","mileage":9100}`, "")
			require.Equal(t, http.StatusAccepted, rec.Code)

			msg := <-tc.dispatcher.EngineChan
			assert.Equal(t, 9400, msg.Vehicle.CurrentMileage, "stored mileage wins over an older reading")
		})
	})

	t.Run("retired vehicle is unknown", func(t *testing.T) {
		retired := createAPIVehicle(t, tc.db, "SIM-002", "2HGBH41JXMN109002")
		require.NoError(t, tc.db.Model(retired).Update("is_deleted", true).Error)

		rec := tc.request(http.MethodPost, "/api/v2/telemetry", `{"license_plate":"SIM-002"}`, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
