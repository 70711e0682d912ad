package models

import "gorm.io/gorm"

// liveRequestIndex keeps at most one live request per (vehicle, sacco).
// Partial indexes are supported by both Postgres and SQLite.
const liveRequestIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_join_requests_live
ON sacco_join_requests (vehicle_id, sacco_id)
WHERE status IN ('pending', 'under_review') AND deleted_at IS NULL`

func All() []interface{} {
	return []interface{}{
		&User{},
		&RoleAssignment{},
		&Sacco{},
		&Route{},
		&Stage{},
		&Vehicle{},
		&VehicleDocument{},
		&SaccoJoinRequest{},
		&NotificationLog{},
	}
}

// Migrate creates or updates every table and the live request index.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return err
	}
	return db.Exec(liveRequestIndex).Error
}
