package models

import "time"

type AuditLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	UserID uint
	User   User

	Entity   string `gorm:"size:50;not null"` // "catalog", "package", "approval", "poam"
	EntityID string `gorm:"size:64"`
	Action   string `gorm:"size:50;not null"` // "create", "phase_change", "decision"
	Details  string `gorm:"type:text"`
}
