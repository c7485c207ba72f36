package models

import "time"

const (
	ActionCreateDonation = "CREATE_DONATION"
	ActionUpdateDonation = "UPDATE_DONATION"
	ActionDeleteDonation = "DELETE_DONATION"
	ActionRegister       = "REGISTER"
	ActionLogin          = "LOGIN"
)

// AuditEntry is append-only. ActorID is nil for system actions.
type AuditEntry struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index;not null"`

	ActorID *uint `gorm:"index"`
	Actor   *User `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL"`

	Entity   string `gorm:"size:50"` // "donation", "user"
	EntityID uint
	Action   string `gorm:"size:50;not null;index"`
	Detail   string `gorm:"type:text"`
}
