package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
)

func TestParsePayload(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		data := []byte(`{
			"license_plate": "SIM-001",
			"timestamp": "2026-08-23T10:15:00Z",
			"speed_kmh": 82.5,
			"fuel_level_pct": 64.2,
			"engine_temperature_c": 91.0,
			"rpm": 2400,
			"mileage": 45210,
			"brake_status": false
		}`)
		p, err := ParsePayload(data)
		require.NoError(t, err)
		assert.Equal(t, "SIM-001", p.LicensePlate)
		require.NotNil(t, p.SpeedKmh)
		assert.InDelta(t, 82.5, *p.SpeedKmh, 1e-9)
		require.NotNil(t, p.RPM)
		assert.Equal(t, 2400, *p.RPM)
		assert.Nil(t, p.Latitude, "absent sensors decode to nil")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParsePayload([]byte(`{"speed_kmh": `))
		assert.Error(t, err)
	})

	t.Run("empty object", func(t *testing.T) {
		p, err := ParsePayload([]byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, repository.VehicleRef{}, p.Ref())
	})
}

func TestPayloadRef(t *testing.T) {
	p := &Payload{VehicleID: 7, LicensePlate: "SIM-001", VIN: "1HGBH41JXMN109001"}
	ref := p.Ref()
	assert.Equal(t, uint(7), ref.ID)
	assert.Equal(t, "SIM-001", ref.LicensePlate)
	assert.Equal(t, "1HGBH41JXMN109001", ref.VIN)
}

func TestPayloadParsedTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	t.Run("missing falls back to now", func(t *testing.T) {
		p := &Payload{}
		assert.Equal(t, now, p.ParsedTimestamp(now))
	})

	t.Run("zulu suffix", func(t *testing.T) {
		p := &Payload{Timestamp: "2026-08-23T10:15:00Z"}
		got := p.ParsedTimestamp(now)
		assert.Equal(t, time.Date(2026, 8, 23, 10, 15, 0, 0, time.UTC), got.UTC())
	})

	t.Run("explicit offset", func(t *testing.T) {
		p := &Payload{Timestamp: "2026-08-23T10:15:00-05:00"}
		got := p.ParsedTimestamp(now)
		assert.Equal(t, time.Date(2026, 8, 23, 15, 15, 0, 0, time.UTC), got.UTC())
	})

	t.Run("naive timestamp is read as UTC", func(t *testing.T) {
		p := &Payload{Timestamp: "2026-08-23T10:15:00"}
		got := p.ParsedTimestamp(now)
		assert.True(t, got.Equal(time.Date(2026, 8, 23, 10, 15, 0, 0, time.UTC)))
	})

	t.Run("fractional seconds", func(t *testing.T) {
		p := &Payload{Timestamp: "2026-08-23T10:15:00.123456Z"}
		got := p.ParsedTimestamp(now)
		assert.Equal(t, 123456000, got.Nanosecond())
	})

	t.Run("garbage falls back to now", func(t *testing.T) {
		p := &Payload{Timestamp: "yesterday"}
		assert.Equal(t, now, p.ParsedTimestamp(now))
	})
}

func TestPayloadReading(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	t.Run("lat/lng aliases normalize", func(t *testing.T) {
		lat, lng := 4.711, -74.0721
		p := &Payload{Lat: &lat, Lng: &lng}
		reading := p.Reading(3, now)
		assert.Equal(t, uint(3), reading.VehicleID)
		require.NotNil(t, reading.Latitude)
		assert.InDelta(t, 4.711, *reading.Latitude, 1e-9)
		require.NotNil(t, reading.Longitude)
		assert.InDelta(t, -74.0721, *reading.Longitude, 1e-9)
	})

	t.Run("canonical fields win over aliases", func(t *testing.T) {
		canonical, alias := 1.0, 2.0
		p := &Payload{Latitude: &canonical, Lat: &alias}
		reading := p.Reading(3, now)
		require.NotNil(t, reading.Latitude)
		assert.InDelta(t, 1.0, *reading.Latitude, 1e-9)
	})

	t.Run("carries sensors through", func(t *testing.T) {
		speed := 40.0
		braking := true
		p := &Payload{SpeedKmh: &speed, BrakeStatus: &braking, Timestamp: "2026-08-23T10:15:00Z"}
		reading := p.Reading(9, now)
		require.NotNil(t, reading.SpeedKmh)
		assert.InDelta(t, 40.0, *reading.SpeedKmh, 1e-9)
		require.NotNil(t, reading.BrakeStatus)
		assert.True(t, *reading.BrakeStatus)
		assert.Equal(t, time.Date(2026, 8, 23, 10, 15, 0, 0, time.UTC), reading.Timestamp.UTC())
		assert.Nil(t, reading.FuelLevelPct)
	})
}
