package models

import "gorm.io/gorm"

// Organization owns systems, ATO packages, evidence and POA&Ms. Catalog
// entities are shared reference data and are not organization-scoped.
type Organization struct {
	gorm.Model
	Name         string `gorm:"size:255;not null"`
	OrgType      string `gorm:"size:100"` // agency, contractor, service provider
	ContactName  string `gorm:"size:255"`
	ContactEmail string `gorm:"size:255"`
	ContactPhone string `gorm:"size:50"`
	Notes        string `gorm:"type:text"`

	Systems []System `gorm:"constraint:OnDelete:CASCADE"`
	POAMs   []POAM   `gorm:"constraint:OnDelete:CASCADE"`
}

type SystemType string

const (
	SystemGeneralSupport SystemType = "general_support"
	SystemMajorApp       SystemType = "major_application"
	SystemMinorApp       SystemType = "minor_application"
)

type System struct {
	gorm.Model
	OrganizationID uint
	Organization   Organization

	Name        string     `gorm:"size:255;not null"`
	SystemType  SystemType `gorm:"type:varchar(50);not null"`
	ImpactLevel string     `gorm:"size:20"` // low / moderate / high
	Boundary    string     `gorm:"type:text"`

	Packages []ATOPackage `gorm:"constraint:OnDelete:CASCADE"`
}
