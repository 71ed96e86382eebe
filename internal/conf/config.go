// Package conf loads and exposes runtime configuration for fleetpredict-go.
// Settings come from a YAML config file with environment variable overrides
// (FLEETPREDICT_ prefix); a .env file is honored for local development.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the root configuration tree.
type Settings struct {
	Main struct {
		Name     string `yaml:"name" mapstructure:"name"`
		LogLevel string `yaml:"loglevel" mapstructure:"loglevel"`
	} `yaml:"main" mapstructure:"main"`

	Database Database `yaml:"database" mapstructure:"database"`

	// Timescale enables the dedicated time-series store for raw telemetry.
	// When disabled, readings are persisted through the primary database.
	Timescale struct {
		Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
		DSN           string   `yaml:"dsn" mapstructure:"dsn"`
		BatchSize     int      `yaml:"batchsize" mapstructure:"batchsize"`
		FlushInterval Duration `yaml:"flushinterval" mapstructure:"flushinterval"`
	} `yaml:"timescale" mapstructure:"timescale"`

	Redis struct {
		Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
		Addr     string   `yaml:"addr" mapstructure:"addr"`
		Password string   `yaml:"password" mapstructure:"password"`
		DB       int      `yaml:"db" mapstructure:"db"`
		StateTTL Duration `yaml:"statettl" mapstructure:"statettl"`
	} `yaml:"redis" mapstructure:"redis"`

	Server struct {
		Host string `yaml:"host" mapstructure:"host"`
		Port int    `yaml:"port" mapstructure:"port"`
		// AuthToken protects mutating API endpoints; empty disables auth.
		AuthToken string `yaml:"authtoken" mapstructure:"authtoken"`
		// TelemetryToken is the optional ?token= required on the ingest socket.
		TelemetryToken string `yaml:"telemetrytoken" mapstructure:"telemetrytoken"`
	} `yaml:"server" mapstructure:"server"`

	Telemetry struct {
		// WindowSize is the number of recent readings kept per vehicle for
		// pattern evaluation.
		WindowSize        int      `yaml:"windowsize" mapstructure:"windowsize"`
		DBChannelSize     int      `yaml:"dbchannelsize" mapstructure:"dbchannelsize"`
		StateChannelSize  int      `yaml:"statechannelsize" mapstructure:"statechannelsize"`
		EngineChannelSize int      `yaml:"enginechannelsize" mapstructure:"enginechannelsize"`
		// EngineOnThreshold is how recent the last reading must be for a
		// vehicle to count as running.
		EngineOnThreshold Duration `yaml:"engineonthreshold" mapstructure:"engineonthreshold"`
	} `yaml:"telemetry" mapstructure:"telemetry"`

	Patterns PatternSettings `yaml:"patterns" mapstructure:"patterns"`

	Notification struct {
		// URLs are shoutrrr sender URLs (smtp://, telegram://, ...).
		URLs []string `yaml:"urls" mapstructure:"urls"`
		// MinPushSeverity is the lowest severity pushed externally.
		MinPushSeverity string `yaml:"minpushseverity" mapstructure:"minpushseverity"`
	} `yaml:"notification" mapstructure:"notification"`

	MQTT struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Broker   string `yaml:"broker" mapstructure:"broker"`
		ClientID string `yaml:"clientid" mapstructure:"clientid"`
		Topic    string `yaml:"topic" mapstructure:"topic"`
		Username string `yaml:"username" mapstructure:"username"`
		Password string `yaml:"password" mapstructure:"password"`
	} `yaml:"mqtt" mapstructure:"mqtt"`
}

// Supported database backends.
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// Database selects and configures the relational backend.
type Database struct {
	// Type selects the GORM driver: "sqlite" or "mysql".
	Type string `yaml:"type" mapstructure:"type"`
	// Path is the sqlite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DSN is the mysql connection string.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// PatternSettings holds detection thresholds and alert lifecycle tuning.
type PatternSettings struct {
	Thresholds Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
	// Cooldown suppresses repeat alerts of the same type per vehicle.
	Cooldown Duration `yaml:"cooldown" mapstructure:"cooldown"`
	// RetentionDays controls periodic deletion of old read alerts; 0 disables.
	RetentionDays int `yaml:"retentiondays" mapstructure:"retentiondays"`
}

// Thresholds are the tunable constants for the detection checks.
type Thresholds struct {
	EngineTempHighC       float64 `yaml:"enginetemphighc" mapstructure:"enginetemphighc"`
	FuelDropPctPerWindow  float64 `yaml:"fueldroppctperwindow" mapstructure:"fueldroppctperwindow"`
	FuelWindowSize        int     `yaml:"fuelwindowsize" mapstructure:"fuelwindowsize"`
	SpeedVarianceHarshKmh float64 `yaml:"speedvarianceharshkmh" mapstructure:"speedvarianceharshkmh"`
	SpeedWindowSize       int     `yaml:"speedwindowsize" mapstructure:"speedwindowsize"`
	IdleMinutesThreshold  int     `yaml:"idleminutesthreshold" mapstructure:"idleminutesthreshold"`
	IdleRPMMax            int     `yaml:"idlerpmmax" mapstructure:"idlerpmmax"`
	IdleSpeedMaxKmh       float64 `yaml:"idlespeedmaxkmh" mapstructure:"idlespeedmaxkmh"`
	MaintenanceKmBuffer   int     `yaml:"maintenancekmbuffer" mapstructure:"maintenancekmbuffer"`
	MaintenanceDaysBuffer int     `yaml:"maintenancedaysbuffer" mapstructure:"maintenancedaysbuffer"`
	AnomalyStdMultiplier  float64 `yaml:"anomalystdmultiplier" mapstructure:"anomalystdmultiplier"`
	AnomalyWindowSize     int     `yaml:"anomalywindowsize" mapstructure:"anomalywindowsize"`
}

var (
	settings   *Settings
	settingsMu sync.RWMutex
)

// Load reads configuration from file and environment and stores the global
// settings instance. Missing config files are not an error; defaults apply.
func Load() (*Settings, error) {
	// .env is optional; used for local development only.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/fleetpredict")
	v.AddConfigPath("/etc/fleetpredict")

	v.SetEnvPrefix("FLEETPREDICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	settingsMu.Lock()
	settings = s
	settingsMu.Unlock()
	return s, nil
}

// GetSettings returns the loaded settings, or nil before Load succeeds.
func GetSettings() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// SetSettingsForTesting replaces the global settings; tests only.
func SetSettingsForTesting(s *Settings) {
	settingsMu.Lock()
	settings = s
	settingsMu.Unlock()
}

// Validate rejects configurations the service cannot run with.
func (s *Settings) Validate() error {
	switch s.Database.Type {
	case DatabaseSQLite, DatabaseMySQL:
	default:
		return fmt.Errorf("database.type must be sqlite or mysql, got %q", s.Database.Type)
	}
	if s.Database.Type == DatabaseMySQL && s.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for mysql")
	}
	if s.Timescale.Enabled && s.Timescale.DSN == "" {
		return fmt.Errorf("timescale.dsn is required when timescale is enabled")
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if s.Telemetry.WindowSize < 1 {
		return fmt.Errorf("telemetry.windowsize must be positive")
	}
	return nil
}
