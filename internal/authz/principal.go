// Package authz resolves who is calling. A Principal is built per request
// from active role assignments and never cached on the user row.
package authz

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"matatu_hub/internal/models"
)

var ErrUnknownUser = errors.New("user does not exist")

type Principal struct {
	UserID        uint          `json:"user_id"`
	Roles         []models.Role `json:"roles"`
	AdminSaccoIDs []uint        `json:"admin_sacco_ids,omitempty"`
	Superuser     bool          `json:"superuser"`
}

func (p Principal) Has(role models.Role) bool {
	if p.Superuser {
		return true
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanAdminister reports whether p may decide join requests for s. A
// superuser always qualifies. Anyone else must be the sacco's registered
// admin and hold an active sacco_admin assignment for it, so deactivating
// the assignment revokes access without touching the sacco row.
func (p Principal) CanAdminister(s models.Sacco) bool {
	if p.Superuser {
		return true
	}
	return s.AdministeredBy(p.UserID) && p.AdminsSacco(s.ID)
}

// AdminsSacco reports whether p holds a sacco_admin assignment for saccoID.
func (p Principal) AdminsSacco(saccoID uint) bool {
	for _, id := range p.AdminSaccoIDs {
		if id == saccoID {
			return true
		}
	}
	return false
}

// Resolve loads the principal for userID from role_assignments.
func Resolve(ctx context.Context, db *gorm.DB, userID uint) (Principal, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return Principal{}, err
	}
	if count == 0 {
		return Principal{}, ErrUnknownUser
	}

	var assignments []models.RoleAssignment
	if err := db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return Principal{}, err
	}

	p := Principal{UserID: userID, Roles: []models.Role{}}
	seen := map[models.Role]bool{}
	for _, a := range assignments {
		if !seen[a.Role] {
			seen[a.Role] = true
			p.Roles = append(p.Roles, a.Role)
		}
		switch a.Role {
		case models.RoleSuperuser:
			p.Superuser = true
		case models.RoleSaccoAdmin:
			if a.SaccoID != nil {
				p.AdminSaccoIDs = append(p.AdminSaccoIDs, *a.SaccoID)
			}
		}
	}
	return p, nil
}
