package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"matatu_hub/internal/authz"
	"matatu_hub/internal/models"
	"matatu_hub/internal/notify"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db      *gorm.DB
	owner   models.User
	admin   models.User
	super   models.User
	sacco   models.Sacco
	other   models.Sacco
	routes  []models.Route
	vehicle models.Vehicle
}

func (f fixture) adminPrincipal() authz.Principal {
	return authz.Principal{UserID: f.admin.ID, Roles: []models.Role{models.RoleSaccoAdmin}, AdminSaccoIDs: []uint{f.sacco.ID}}
}

func (f fixture) superPrincipal() authz.Principal {
	return authz.Principal{UserID: f.super.ID, Roles: []models.Role{models.RoleSuperuser}, Superuser: true}
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := setupTestDB(t)
	f := fixture{db: db}

	f.owner = models.User{Name: "Otieno", Email: "owner@example.com", Phone: "0700000001"}
	f.admin = models.User{Name: "Achieng", Email: "admin@example.com"}
	f.super = models.User{Name: "Root", Email: "root@example.com"}
	for _, u := range []*models.User{&f.owner, &f.admin, &f.super} {
		mustCreate(t, db, u)
	}

	rate := 10.0
	f.sacco = models.Sacco{Name: "Super Metro", RegistrationNumber: "SM-1", CommissionRate: &rate, SaccoAdminID: &f.admin.ID}
	f.other = models.Sacco{Name: "Embassava", RegistrationNumber: "EM-1"}
	mustCreate(t, db, &f.sacco)
	mustCreate(t, db, &f.other)

	f.routes = []models.Route{
		{StartLocation: "CBD", EndLocation: "Rongai", Distance: 20, Fare: 100, SaccoID: f.sacco.ID},
		{StartLocation: "CBD", EndLocation: "Kitengela", Distance: 30, Fare: 150, SaccoID: f.sacco.ID},
		{StartLocation: "CBD", EndLocation: "Umoja", Distance: 12, Fare: 80, SaccoID: f.other.ID},
	}
	mustCreate(t, db, &f.routes)

	f.vehicle = models.Vehicle{
		OwnerID:              f.owner.ID,
		RegistrationNumber:   "KDA 123A",
		SeatingCapacity:      14,
		FuelConsumptionPerKm: 0.15,
		MonthlyInsurance:     2000,
		MonthlyMaintenance:   3000,
	}
	mustCreate(t, db, &f.vehicle)
	f.uploadDocs(t, f.vehicle.ID, models.RequiredDocumentTypes...)
	return f
}

func (f fixture) uploadDocs(t *testing.T, vehicleID uint, types ...models.DocumentType) {
	t.Helper()
	for _, d := range types {
		mustCreate(t, f.db, &models.VehicleDocument{
			VehicleID:    vehicleID,
			DocumentType: d,
			FileRef:      "docs/" + string(d) + ".pdf",
			UploadedAt:   time.Now(),
		})
	}
}

func (f fixture) newVehicle(t *testing.T, reg string, docs ...models.DocumentType) models.Vehicle {
	t.Helper()
	v := models.Vehicle{OwnerID: f.owner.ID, RegistrationNumber: reg, SeatingCapacity: 14}
	mustCreate(t, f.db, &v)
	f.uploadDocs(t, v.ID, docs...)
	return v
}

// recordingNotifier captures events and can be told to fail.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, evt notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// tickingClock returns strictly increasing times so ordering by
// requested_at is deterministic.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

func newService(f fixture) (*JoinRequestService, *recordingNotifier) {
	rec := &recordingNotifier{}
	svc := NewJoinRequestService(f.db, rec)
	svc.Now = tickingClock()
	return svc, rec
}

func (f fixture) reload(t *testing.T, id uint) models.SaccoJoinRequest {
	t.Helper()
	var req models.SaccoJoinRequest
	if err := f.db.First(&req, id).Error; err != nil {
		t.Fatalf("reload request %d: %v", id, err)
	}
	return req
}

func (f fixture) reloadVehicle(t *testing.T, id uint) models.Vehicle {
	t.Helper()
	var v models.Vehicle
	if err := f.db.First(&v, id).Error; err != nil {
		t.Fatalf("reload vehicle %d: %v", id, err)
	}
	return v
}
