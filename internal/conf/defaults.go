package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers the default value for every setting. Detection
// thresholds mirror the values the fleet has been tuned against; override
// any of them in config.yaml or via FLEETPREDICT_* environment variables.
func setDefaults(v *viper.Viper) {
	v.SetDefault("main.name", "fleetpredict")
	v.SetDefault("main.loglevel", "info")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "fleetpredict.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("timescale.enabled", false)
	v.SetDefault("timescale.dsn", "")
	v.SetDefault("timescale.batchsize", 500)
	v.SetDefault("timescale.flushinterval", (100 * time.Millisecond).String())

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.statettl", (30 * time.Second).String())

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.authtoken", "")
	v.SetDefault("server.telemetrytoken", "")

	v.SetDefault("telemetry.windowsize", 30)
	v.SetDefault("telemetry.dbchannelsize", 10000)
	v.SetDefault("telemetry.statechannelsize", 10000)
	v.SetDefault("telemetry.enginechannelsize", 10000)
	v.SetDefault("telemetry.engineonthreshold", (90 * time.Second).String())

	v.SetDefault("patterns.cooldown", time.Hour.String())
	v.SetDefault("patterns.retentiondays", 0)
	v.SetDefault("patterns.thresholds.enginetemphighc", 105)
	v.SetDefault("patterns.thresholds.fueldroppctperwindow", 8)
	v.SetDefault("patterns.thresholds.fuelwindowsize", 5)
	v.SetDefault("patterns.thresholds.speedvarianceharshkmh", 35)
	v.SetDefault("patterns.thresholds.speedwindowsize", 4)
	v.SetDefault("patterns.thresholds.idleminutesthreshold", 10)
	v.SetDefault("patterns.thresholds.idlerpmmax", 900)
	v.SetDefault("patterns.thresholds.idlespeedmaxkmh", 2)
	v.SetDefault("patterns.thresholds.maintenancekmbuffer", 500)
	v.SetDefault("patterns.thresholds.maintenancedaysbuffer", 7)
	v.SetDefault("patterns.thresholds.anomalystdmultiplier", 2.5)
	v.SetDefault("patterns.thresholds.anomalywindowsize", 20)

	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.minpushseverity", "high")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.clientid", "fleetpredict")
	v.SetDefault("mqtt.topic", "fleetpredict/alerts")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
}

// DefaultThresholds returns the built-in detection thresholds; used by tests
// and by the engine when constructed without loaded settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EngineTempHighC:       105,
		FuelDropPctPerWindow:  8,
		FuelWindowSize:        5,
		SpeedVarianceHarshKmh: 35,
		SpeedWindowSize:       4,
		IdleMinutesThreshold:  10,
		IdleRPMMax:            900,
		IdleSpeedMaxKmh:       2,
		MaintenanceKmBuffer:   500,
		MaintenanceDaysBuffer: 7,
		AnomalyStdMultiplier:  2.5,
		AnomalyWindowSize:     20,
	}
}
