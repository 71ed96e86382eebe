package cmd

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetpredict/fleetpredict-go/internal/logger"
)

// Simulated fleet base coordinates; each vehicle drifts around them.
const (
	simBaseLat = 4.7110
	simBaseLng = -74.0721
)

const simReconnectDelay = 5 * time.Second

// simProfile drives per-tick telemetry generation for one vehicle class.
type simProfile struct {
	SpeedMin, SpeedMax float64
	FuelDrain          float64
	TempMin, TempMax   float64
	RPMIdle            int
	RPMDriveMin        int
	RPMDriveMax        int
	IdleProb           float64
}

var simProfiles = map[string]simProfile{
	"Sedan":        {20, 100, 0.02, 85, 98, 800, 1500, 3500, 0.1},
	"Van":          {15, 85, 0.03, 88, 100, 750, 1400, 3200, 0.15},
	"Pickup":       {10, 95, 0.035, 87, 102, 700, 1600, 3800, 0.12},
	"Box Truck":    {0, 70, 0.04, 90, 105, 650, 1800, 3000, 0.2},
	"Bus":          {0, 60, 0.05, 88, 102, 600, 1200, 2500, 0.25},
	"Cargo Truck":  {0, 80, 0.06, 92, 108, 550, 1400, 2800, 0.18},
	"Motorcycle":   {0, 120, 0.025, 80, 95, 1200, 3000, 6000, 0.08},
	"Taxi":         {0, 50, 0.03, 86, 98, 750, 1500, 3000, 0.4},
	"Delivery Van": {5, 70, 0.035, 87, 100, 700, 1400, 3200, 0.3},
	"Ambulance":    {0, 110, 0.055, 90, 104, 650, 1600, 3500, 0.2},
}

// simState is the evolving state of one simulated vehicle.
type simState struct {
	fuel    float64
	mileage int
	lat     float64
	lng     float64
}

func newSimulateCommand() *cobra.Command {
	var (
		url      string
		interval time.Duration
		token    string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run 10 websocket telemetry simulators against a fleetpredict server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd.Context(), url, interval, token)
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://127.0.0.1:8080/ws/telemetry", "telemetry websocket URL")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "delay between readings per vehicle")
	cmd.Flags().StringVar(&token, "token", "", "optional ingest token")
	return cmd
}

func runSimulate(parent context.Context, url string, interval time.Duration, token string) error {
	log := logger.NewSlogLogger(os.Stdout, logger.LogLevelInfo, nil)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if token != "" {
		url += "?token=" + token
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sv := range seedVehicles {
		plate, typeName := sv.Plate, sv.TypeName
		g.Go(func() error {
			simulateVehicle(gctx, plate, typeName, url, interval, log)
			return nil
		})
	}
	return g.Wait()
}

// simulateVehicle keeps one vehicle connected, sending a reading every
// interval and reconnecting on failure.
func simulateVehicle(ctx context.Context, plate, typeName, url string, interval time.Duration, log logger.Logger) {
	vlog := log.With(logger.String("vehicle", plate))
	state := &simState{
		fuel:    30 + rand.Float64()*65,
		mileage: 5000 + rand.Intn(75000),
		lat:     simBaseLat + (rand.Float64()-0.5)*0.02,
		lng:     simBaseLng + (rand.Float64()-0.5)*0.02,
	}

	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			vlog.Warn("connect failed", logger.Error(err))
			select {
			case <-time.After(simReconnectDelay):
				continue
			case <-ctx.Done():
				return
			}
		}
		vlog.Info("connected")

		if err := sendLoop(ctx, conn, plate, typeName, state, interval, vlog); err != nil {
			vlog.Warn("connection lost", logger.Error(err))
		}
		conn.Close()
	}
}

func sendLoop(ctx context.Context, conn *websocket.Conn, plate, typeName string, state *simState, interval time.Duration, log logger.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		payload := nextReading(plate, typeName, state)
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var reply struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}
		if err := conn.ReadJSON(&reply); err != nil {
			return err
		}
		if !reply.OK {
			log.Warn("reading rejected", logger.String("error", reply.Error))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// nextReading advances the vehicle state one tick and renders the payload.
func nextReading(plate, typeName string, state *simState) map[string]any {
	profile, ok := simProfiles[typeName]
	if !ok {
		profile = simProfiles["Sedan"]
	}

	isIdle := rand.Float64() < profile.IdleProb
	var speed, temp float64
	var rpm int
	if isIdle {
		speed = 0
		rpm = profile.RPMIdle
		temp = profile.TempMin + rand.Float64()*(profile.TempMax-profile.TempMin)/2
	} else {
		speed = profile.SpeedMin + rand.Float64()*(profile.SpeedMax-profile.SpeedMin)
		rpm = profile.RPMDriveMin + rand.Intn(profile.RPMDriveMax-profile.RPMDriveMin+1)
		temp = profile.TempMin + rand.Float64()*(profile.TempMax-profile.TempMin)
	}

	state.fuel -= profile.FuelDrain * (1 + speed/80)
	if state.fuel < 5 {
		state.fuel = 5
	}
	state.mileage += int(speed * 0.001)
	state.lat += (rand.Float64() - 0.5) * 0.0002
	state.lng += (rand.Float64() - 0.5) * 0.0002

	throttle := 0.0
	if !isIdle {
		throttle = 15 + rand.Float64()*55
	}

	return map[string]any{
		"license_plate":        plate,
		"timestamp":            time.Now().UTC().Format(time.RFC3339Nano),
		"speed_kmh":            round2(speed),
		"fuel_level_pct":       round2(state.fuel),
		"engine_temperature_c": round2(temp),
		"latitude":             state.lat,
		"longitude":            state.lng,
		"rpm":                  rpm,
		"mileage":              state.mileage,
		"voltage":              round2(12.0 + rand.Float64()*0.8 - 0.3),
		"throttle_pct":         round2(throttle),
		"brake_status":         isIdle || (speed < 5 && rand.Float64() < 0.3),
	}
}

func round2(v float64) float64 {
	return float64(int(v*100)) / 100
}
