// Package patterns evaluates rolling telemetry windows against the
// predictive-maintenance checks and turns findings into persisted alerts.
package patterns

import (
	"fmt"
	"math"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// Finding is one detection produced by a check. At most one finding per
// check per evaluation.
type Finding struct {
	Type       string
	Severity   string
	Message    string
	Confidence float64
	// Timeframe is a short operator-facing urgency hint, e.g. "Immediate"
	// or "Within 300 km". Empty when the check has no time dimension.
	Timeframe string
}

// CheckContext carries everything a check may need. Readings are newest
// first; LastCompletedTask is nil when the vehicle has no completed
// maintenance.
type CheckContext struct {
	Vehicle           *entities.Vehicle
	Readings          []entities.TelemetryReading
	LastCompletedTask *entities.MaintenanceTask
	Thresholds        conf.Thresholds
	Now               time.Time
}

// Check inspects the context and returns a finding, or nil.
type Check func(ctx *CheckContext) *Finding

// AllChecks returns the full check set in evaluation order.
func AllChecks() []Check {
	return []Check{
		CheckHighEngineTemp,
		CheckAnomalousFuel,
		CheckHarshDriving,
		CheckProlongedIdle,
		CheckMaintenanceMileage,
		CheckMaintenanceTime,
		CheckStatisticalAnomaly,
	}
}

// RunChecks evaluates every check against the context.
func RunChecks(ctx *CheckContext) []Finding {
	var findings []Finding
	for _, check := range AllChecks() {
		if f := check(ctx); f != nil {
			findings = append(findings, *f)
		}
	}
	return findings
}

// CheckHighEngineTemp fires when any of the five most recent readings is at
// or above the temperature threshold. Ten degrees past the threshold
// escalates to critical.
func CheckHighEngineTemp(ctx *CheckContext) *Finding {
	thresh := ctx.Thresholds.EngineTempHighC
	readings := ctx.Readings
	if len(readings) > 5 {
		readings = readings[:5]
	}
	for i := range readings {
		t := readings[i].EngineTemperatureC
		if t == nil || *t < thresh {
			continue
		}
		severity := entities.SeverityHigh
		if *t >= thresh+10 {
			severity = entities.SeverityCritical
		}
		return &Finding{
			Type:       entities.AlertTypeHighEngineTemp,
			Severity:   severity,
			Message:    fmt.Sprintf("Engine temperature high (%g °C). Recommend inspection.", *t),
			Confidence: 0.95,
			Timeframe:  "Immediate",
		}
	}
	return nil
}

// CheckAnomalousFuel fires when the fuel level falls by at least the
// configured percentage across the fuel window.
func CheckAnomalousFuel(ctx *CheckContext) *Finding {
	window := ctx.Thresholds.FuelWindowSize
	if len(ctx.Readings) < window {
		return nil
	}
	var fuels []float64
	for i := 0; i < window; i++ {
		if f := ctx.Readings[i].FuelLevelPct; f != nil {
			fuels = append(fuels, *f)
		}
	}
	if len(fuels) < 2 {
		return nil
	}
	// Readings are newest first, so the drop is oldest minus newest.
	drop := fuels[len(fuels)-1] - fuels[0]
	if drop < ctx.Thresholds.FuelDropPctPerWindow {
		return nil
	}
	return &Finding{
		Type:       entities.AlertTypeAnomalousFuel,
		Severity:   entities.SeverityHigh,
		Message:    fmt.Sprintf("Rapid fuel drop (%.1f%% in window). Possible leak or anomaly.", drop),
		Confidence: 0.75,
	}
}

// CheckHarshDriving fires when the speed spread over the speed window
// reaches the harsh-driving threshold. Missing speeds count as zero.
func CheckHarshDriving(ctx *CheckContext) *Finding {
	window := ctx.Thresholds.SpeedWindowSize
	if len(ctx.Readings) < window || window < 2 {
		return nil
	}
	speeds := make([]float64, window)
	for i := 0; i < window; i++ {
		if s := ctx.Readings[i].SpeedKmh; s != nil {
			speeds[i] = *s
		}
	}
	if populationStd(speeds) < ctx.Thresholds.SpeedVarianceHarshKmh {
		return nil
	}
	return &Finding{
		Type:       entities.AlertTypeHarshDriving,
		Severity:   entities.SeverityMedium,
		Message:    "Harsh acceleration/braking detected. Consider smoother driving.",
		Confidence: 0.70,
	}
}

// CheckProlongedIdle fires after enough consecutive readings with low RPM
// and near-zero speed. The run length is a proxy for idle minutes.
func CheckProlongedIdle(ctx *CheckContext) *Finding {
	minCount := ctx.Thresholds.IdleMinutesThreshold / 2
	if minCount < 5 {
		minCount = 5
	}
	if len(ctx.Readings) < minCount {
		return nil
	}
	idleCount := 0
	for i := range ctx.Readings {
		r := &ctx.Readings[i]
		speed := 0.0
		if r.SpeedKmh != nil {
			speed = *r.SpeedKmh
		}
		if r.RPM != nil && *r.RPM <= ctx.Thresholds.IdleRPMMax && speed <= ctx.Thresholds.IdleSpeedMaxKmh {
			idleCount++
		} else {
			idleCount = 0
		}
		if idleCount >= minCount {
			return &Finding{
				Type:       entities.AlertTypeProlongedIdle,
				Severity:   entities.SeverityLow,
				Message:    "Prolonged idling detected. Consider reducing engine idle time.",
				Confidence: 0.80,
			}
		}
	}
	return nil
}

// CheckMaintenanceMileage recommends preventive maintenance when the
// odometer approaches the vehicle type's mileage interval, anchored at the
// last completed task (or zero when none exists).
func CheckMaintenanceMileage(ctx *CheckContext) *Finding {
	vt := ctx.Vehicle.VehicleType
	if vt == nil || vt.MaintenanceIntervalKm <= 0 || ctx.Vehicle.CurrentMileage <= 0 {
		return nil
	}
	lastMileage := 0
	if ctx.LastCompletedTask != nil && ctx.LastCompletedTask.MileageAtMaintenance != nil {
		lastMileage = *ctx.LastCompletedTask.MileageAtMaintenance
	}
	nextDue := lastMileage + vt.MaintenanceIntervalKm
	mileage := ctx.Vehicle.CurrentMileage
	if mileage < nextDue-ctx.Thresholds.MaintenanceKmBuffer {
		return nil
	}
	kmLeft := nextDue - mileage
	if kmLeft < 0 {
		kmLeft = 0
	}
	return &Finding{
		Type:       entities.AlertTypeMaintenanceMileage,
		Severity:   entities.SeverityMedium,
		Message:    fmt.Sprintf("Preventive maintenance due soon (next due ~%d km, current %d km).", nextDue, mileage),
		Confidence: 0.90,
		Timeframe:  fmt.Sprintf("Within %d km", kmLeft),
	}
}

// CheckMaintenanceTime recommends preventive maintenance when the days
// since the last completed task approach the vehicle type's interval.
// Vehicles with no completed maintenance are skipped; the mileage check
// covers them.
func CheckMaintenanceTime(ctx *CheckContext) *Finding {
	vt := ctx.Vehicle.VehicleType
	if vt == nil || vt.MaintenanceIntervalDays <= 0 {
		return nil
	}
	task := ctx.LastCompletedTask
	if task == nil || task.CompletionDate == nil {
		return nil
	}
	since := int(ctx.Now.Sub(*task.CompletionDate).Hours() / 24)
	if since < vt.MaintenanceIntervalDays-ctx.Thresholds.MaintenanceDaysBuffer {
		return nil
	}
	daysLeft := vt.MaintenanceIntervalDays - since
	if daysLeft < 0 {
		daysLeft = 0
	}
	return &Finding{
		Type:       entities.AlertTypeMaintenanceTime,
		Severity:   entities.SeverityMedium,
		Message:    fmt.Sprintf("Preventive maintenance due by time (interval %d days, %d days since last).", vt.MaintenanceIntervalDays, since),
		Confidence: 0.90,
		Timeframe:  fmt.Sprintf("Within %d days", daysLeft),
	}
}

// CheckStatisticalAnomaly fires when the newest temperature or RPM sample
// deviates from the window mean by more than the configured multiple of
// the standard deviation. Temperature anomalies outrank RPM anomalies.
func CheckStatisticalAnomaly(ctx *CheckContext) *Finding {
	window := ctx.Thresholds.AnomalyWindowSize
	k := ctx.Thresholds.AnomalyStdMultiplier
	if len(ctx.Readings) < window {
		return nil
	}
	var temps, rpms []float64
	for i := 0; i < window; i++ {
		r := &ctx.Readings[i]
		if r.EngineTemperatureC != nil {
			temps = append(temps, *r.EngineTemperatureC)
		}
		if r.RPM != nil {
			rpms = append(rpms, float64(*r.RPM))
		}
	}
	latest := &ctx.Readings[0]

	if len(temps) >= 5 && latest.EngineTemperatureC != nil {
		mean := meanOf(temps)
		std := populationStd(temps)
		if std > 0 && math.Abs(*latest.EngineTemperatureC-mean) >= k*std {
			return &Finding{
				Type:       entities.AlertTypeStatisticalAnomaly,
				Severity:   entities.SeverityMedium,
				Message:    fmt.Sprintf("Engine temperature anomaly (%g °C vs recent mean %.1f).", *latest.EngineTemperatureC, mean),
				Confidence: 0.65,
			}
		}
	}
	if len(rpms) >= 5 && latest.RPM != nil {
		mean := meanOf(rpms)
		std := populationStd(rpms)
		if std > 0 && math.Abs(float64(*latest.RPM)-mean) >= k*std {
			return &Finding{
				Type:       entities.AlertTypeStatisticalAnomaly,
				Severity:   entities.SeverityLow,
				Message:    fmt.Sprintf("RPM anomaly (%d vs recent mean %.0f).", *latest.RPM, mean),
				Confidence: 0.60,
			}
		}
	}
	return nil
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStd returns the population standard deviation.
func populationStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanOf(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
