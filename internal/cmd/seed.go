package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
	"github.com/fleetpredict/fleetpredict-go/internal/soc"
)

// seedVehicleTypes are the demo maintenance profiles.
var seedVehicleTypes = []entities.VehicleType{
	{Name: "Sedan", Description: "Passenger sedan", MaintenanceIntervalDays: 90, MaintenanceIntervalKm: 10000},
	{Name: "Van", Description: "Cargo/passenger van", MaintenanceIntervalDays: 90, MaintenanceIntervalKm: 12000},
	{Name: "Pickup", Description: "Light-duty pickup", MaintenanceIntervalDays: 90, MaintenanceIntervalKm: 10000},
	{Name: "Box Truck", Description: "Medium box truck", MaintenanceIntervalDays: 60, MaintenanceIntervalKm: 8000},
	{Name: "Bus", Description: "Passenger bus", MaintenanceIntervalDays: 60, MaintenanceIntervalKm: 15000},
	{Name: "Cargo Truck", Description: "Heavy cargo truck", MaintenanceIntervalDays: 45, MaintenanceIntervalKm: 7500},
	{Name: "Motorcycle", Description: "Motorcycle / courier", MaintenanceIntervalDays: 30, MaintenanceIntervalKm: 5000},
	{Name: "Taxi", Description: "Taxi / ride-hail", MaintenanceIntervalDays: 60, MaintenanceIntervalKm: 12000},
	{Name: "Delivery Van", Description: "Last-mile delivery van", MaintenanceIntervalDays: 60, MaintenanceIntervalKm: 10000},
	{Name: "Ambulance", Description: "Emergency / service vehicle", MaintenanceIntervalDays: 30, MaintenanceIntervalKm: 6000},
}

// seedVehicles is the demo fleet; one vehicle per type, plates SIM-001
// through SIM-010 so simulators can resolve them by license plate.
var seedVehicles = []struct {
	Plate    string
	VIN      string
	Make     string
	Model    string
	Year     int
	TypeName string
}{
	{"SIM-001", "1HGBH41JXMN109001", "Toyota", "Camry", 2022, "Sedan"},
	{"SIM-002", "2HGBH41JXMN109002", "Ford", "Transit", 2021, "Van"},
	{"SIM-003", "3HGBH41JXMN109003", "Chevrolet", "Silverado", 2023, "Pickup"},
	{"SIM-004", "4HGBH41JXMN109004", "Mercedes-Benz", "Sprinter", 2022, "Box Truck"},
	{"SIM-005", "5HGBH41JXMN109005", "Freightliner", "M2 Bus", 2020, "Bus"},
	{"SIM-006", "6HGBH41JXMN109006", "Volvo", "VNL", 2021, "Cargo Truck"},
	{"SIM-007", "7HGBH41JXMN109007", "Honda", "CB500X", 2023, "Motorcycle"},
	{"SIM-008", "8HGBH41JXMN109008", "Hyundai", "Sonata", 2022, "Taxi"},
	{"SIM-009", "9HGBH41JXMN109009", "Ram", "ProMaster", 2022, "Delivery Van"},
	{"SIM-010", "0HGBH41JXMN109010", "Ford", "F-450 Ambulance", 2021, "Ambulance"},
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo vehicle types, a simulated fleet, and SOC defaults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context())
		},
	}
}

func runSeed(ctx context.Context) error {
	settings, err := conf.Load()
	if err != nil {
		return err
	}
	log := logger.NewSlogLogger(os.Stdout, logger.ParseLevel(settings.Main.LogLevel), nil)

	manager, err := datastore.Open(settings.Database)
	if err != nil {
		return err
	}
	defer manager.Close()
	if err := manager.Initialize(); err != nil {
		return err
	}

	db := manager.DB()
	vehicleRepo := repository.NewVehicleRepository(db)
	runbookRepo := repository.NewRunbookRepository(db)

	existing, err := vehicleRepo.ListVehicleTypes(ctx)
	if err != nil {
		return err
	}
	typeIDs := make(map[string]uint, len(existing))
	for _, vt := range existing {
		typeIDs[vt.Name] = vt.ID
	}
	for i := range seedVehicleTypes {
		vt := seedVehicleTypes[i]
		if _, ok := typeIDs[vt.Name]; ok {
			continue
		}
		if err := vehicleRepo.CreateVehicleType(ctx, &vt); err != nil {
			return fmt.Errorf("seeding vehicle type %s: %w", vt.Name, err)
		}
		typeIDs[vt.Name] = vt.ID
		log.Info("vehicle type created", logger.String("name", vt.Name))
	}

	created := 0
	for _, sv := range seedVehicles {
		_, err := vehicleRepo.FindVehicle(ctx, repository.VehicleRef{LicensePlate: sv.Plate})
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrVehicleNotFound) {
			return err
		}

		typeID := typeIDs[sv.TypeName]
		vehicle := entities.Vehicle{
			LicensePlate:   sv.Plate,
			VIN:            sv.VIN,
			Make:           sv.Make,
			Model:          sv.Model,
			Year:           sv.Year,
			Status:         entities.VehicleStatusActive,
			CurrentMileage: 5000 + rand.Intn(80000),
			VehicleTypeID:  &typeID,
		}
		if err := vehicleRepo.CreateVehicle(ctx, &vehicle); err != nil {
			return fmt.Errorf("seeding vehicle %s: %w", sv.Plate, err)
		}
		created++
		log.Info("vehicle created",
			logger.String("license_plate", sv.Plate),
			logger.String("model", sv.Make+" "+sv.Model))
	}

	if err := soc.SeedDefaults(ctx, runbookRepo); err != nil {
		return err
	}

	log.Info("seed complete",
		logger.Int("vehicles_created", created),
		logger.Int("vehicle_types", len(typeIDs)))
	return nil
}
