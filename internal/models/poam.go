package models

import (
	"time"

	"gorm.io/gorm"
)

type POAMPriority string
type POAMStatus string

const (
	POAMLow      POAMPriority = "low"
	POAMMedium   POAMPriority = "medium"
	POAMHigh     POAMPriority = "high"
	POAMCritical POAMPriority = "critical"

	POAMOpen       POAMStatus = "open"
	POAMMitigating POAMStatus = "mitigating"
	POAMClosed     POAMStatus = "closed"
)

// POAM is an organization-scoped remediation item. There is deliberately no
// foreign key to a Control or ATOPackage; the Source field carries a copied
// reference for reporting only.
type POAM struct {
	gorm.Model
	OrganizationID uint
	Organization   Organization

	Title            string       `gorm:"size:255;not null"`
	Description      string       `gorm:"type:text"`
	Source           string       `gorm:"size:255"` // e.g. "assessment AC-2 / package FY26 ATO"
	Priority         POAMPriority `gorm:"type:varchar(20);not null"`
	Status           POAMStatus   `gorm:"type:varchar(20);not null"`
	ResponsibleParty string       `gorm:"size:255"`
	MitigationPlan   string       `gorm:"type:text"`
	ResidualRisk     string       `gorm:"size:20"` // low / medium / high

	TargetDate     *time.Time
	CompletionDate *time.Time
}
