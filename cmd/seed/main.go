// Command seed loads demo data: an owner, a sacco admin, a superuser, one
// sacco with routes and a vehicle that is ready to apply.
package main

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matatu_hub/internal/config"
	"matatu_hub/internal/controllers"
	"matatu_hub/internal/geo"
	"matatu_hub/internal/logger"
	"matatu_hub/internal/models"
)

const demoPassword = "matatu123"

func main() {
	cfg := config.Load()
	logger.Setup(logger.Options{Level: cfg.LogLevel})

	if _, err := config.InitDB(cfg); err != nil {
		logrus.WithError(err).Fatal("database init failed")
	}
	db := config.GetDB()

	if err := db.Transaction(seed); err != nil {
		logrus.WithError(err).Fatal("seeding failed")
	}
	logrus.Info("seed complete; every demo user signs in with " + demoPassword)
}

func seed(tx *gorm.DB) error {
	hash, err := controllers.HashPassword(demoPassword)
	if err != nil {
		return err
	}

	owner, err := user(tx, "Wanjiru Owner", "owner@matatu.test", "0711000001", hash)
	if err != nil {
		return err
	}
	admin, err := user(tx, "Kamau Admin", "admin@matatu.test", "0711000002", hash)
	if err != nil {
		return err
	}
	root, err := user(tx, "Ops Root", "root@matatu.test", "0711000003", hash)
	if err != nil {
		return err
	}

	rate := 10.0
	sacco := models.Sacco{
		Name:               "Super Metro",
		Location:           "Nairobi",
		RegistrationNumber: "SM-2008-001",
		ContactNumber:      "0709000000",
		Email:              "info@supermetro.test",
		CommissionRate:     &rate,
		SaccoAdminID:       &admin.ID,
	}
	if err := tx.Where(models.Sacco{RegistrationNumber: sacco.RegistrationNumber}).FirstOrCreate(&sacco).Error; err != nil {
		return err
	}

	for _, ra := range []models.RoleAssignment{
		{UserID: owner.ID, Role: models.RoleVehicleOwner},
		{UserID: admin.ID, Role: models.RoleSaccoAdmin, SaccoID: &sacco.ID},
		{UserID: root.ID, Role: models.RoleSuperuser},
	} {
		ra := ra
		q := tx.Where("user_id = ? AND role = ?", ra.UserID, ra.Role)
		if err := q.FirstOrCreate(&ra).Error; err != nil {
			return err
		}
	}

	rongai, err := geo.ToWKB(`{"type":"LineString","coordinates":[[36.8219,-1.2864],[36.7820,-1.3326],[36.7437,-1.3962]]}`)
	if err != nil {
		return err
	}
	routes := []models.Route{
		{
			StartLocation: "CBD", EndLocation: "Rongai", Distance: 22, DurationMinutes: 60, Fare: 100,
			AvgDailyTrips: 10, FuelCostPerKm: 18, MaintenanceCostPerMonth: 15000,
			PeakHoursMultiplier: 1.2, SeasonalVariance: 0.05, Geometry: rongai,
			Stages: []models.Stage{
				{Name: "Railways", Seq: 1, Lat: -1.2900, Lng: 36.8280},
				{Name: "Langata", Seq: 2, Lat: -1.3326, Lng: 36.7820},
				{Name: "Rongai", Seq: 3, Lat: -1.3962, Lng: 36.7437},
			},
		},
		{
			StartLocation: "CBD", EndLocation: "Kitengela", Distance: 32, DurationMinutes: 80, Fare: 150,
			AvgDailyTrips: 7, FuelCostPerKm: 18, MaintenanceCostPerMonth: 18000, PeakHoursMultiplier: 1.1,
		},
	}
	for i := range routes {
		routes[i].SaccoID = sacco.ID
		var existing models.Route
		err := tx.Where("sacco_id = ? AND start_location = ? AND end_location = ?", sacco.ID, routes[i].StartLocation, routes[i].EndLocation).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(&routes[i]).Error; err != nil {
			return err
		}
	}

	vehicle := models.Vehicle{
		OwnerID:              owner.ID,
		RegistrationNumber:   "KDA 123A",
		Make:                 "Isuzu",
		VehicleModel:         "NQR",
		Year:                 2019,
		VehicleType:          "minibus",
		FuelType:             "diesel",
		SeatingCapacity:      33,
		FuelConsumptionPerKm: 0.2,
		MonthlyInsurance:     12000,
		MonthlyMaintenance:   8000,
	}
	if err := tx.Where(models.Vehicle{RegistrationNumber: vehicle.RegistrationNumber}).FirstOrCreate(&vehicle).Error; err != nil {
		return err
	}

	expiry := time.Now().AddDate(1, 0, 0)
	for _, dt := range models.RequiredDocumentTypes {
		doc := models.VehicleDocument{
			VehicleID:    vehicle.ID,
			DocumentType: dt,
			DocumentName: string(dt),
			FileRef:      "seed/" + vehicle.RegistrationNumber + "/" + string(dt) + ".pdf",
			ExpiryDate:   &expiry,
			UploadedAt:   time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&doc).Error; err != nil {
			return err
		}
	}
	return nil
}

func user(tx *gorm.DB, name, email, phone, hash string) (models.User, error) {
	u := models.User{Name: name, Email: email, Phone: phone, Password: hash}
	err := tx.Where(models.User{Email: email}).FirstOrCreate(&u).Error
	return u, err
}
