package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleSuperAdmin  UserRole = "super_admin"
	RoleAdmin       UserRole = "admin"
	RoleDonor       UserRole = "donor"
	RoleVolunteer   UserRole = "volunteer"
	RoleCampManager UserRole = "camp_manager"
	RoleVictim      UserRole = "victim"
)

// Privileged roles bypass ownership checks.
func (r UserRole) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDonor, RoleVolunteer, RoleCampManager, RoleVictim:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"uniqueIndex;size:100;not null"`
	PasswordHash string   `gorm:"not null"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:victim"`
}
