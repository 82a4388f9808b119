package models

import (
	"time"

	"gorm.io/gorm"
)

type PackageStatus string
type PackagePhase string

const (
	PackageDraft       PackageStatus = "draft"
	PackageInProgress  PackageStatus = "in_progress"
	PackageUnderReview PackageStatus = "under_review"
	PackageApproved    PackageStatus = "approved"
	PackageRejected    PackageStatus = "rejected"
	PackageExpired     PackageStatus = "expired"

	PhasePreparation           PackagePhase = "preparation"
	PhaseInitialAssessment     PackagePhase = "initial_assessment"
	PhaseControlImplementation PackagePhase = "control_implementation"
	PhaseTesting               PackagePhase = "testing"
	PhaseValidation            PackagePhase = "validation"
	PhaseFinalReview           PackagePhase = "final_review"
	PhaseAuthorization         PackagePhase = "authorization"
	PhaseMonitoring            PackagePhase = "monitoring"
)

// ATOPackage is one authorization effort for one system. Phase moves forward
// only through workflow.AdvancePhase; a rejected approval forces it back to
// control_implementation.
type ATOPackage struct {
	gorm.Model
	SystemID uint
	System   System

	Name      string        `gorm:"size:255;not null"`
	CatalogID string        `gorm:"size:36;index"` // baseline catalog, set at scoping
	Status    PackageStatus `gorm:"type:varchar(30);not null"`
	Phase     PackagePhase  `gorm:"type:varchar(40);not null"`

	ValidFrom  *time.Time
	ValidUntil *time.Time

	LastAssessment *time.Time
	NextAssessment *time.Time

	Assessments []ControlAssessment `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
}

type AssessmentStatus string

const (
	AssessmentNotImplemented       AssessmentStatus = "not_implemented"
	AssessmentPlanned              AssessmentStatus = "planned"
	AssessmentPartiallyImplemented AssessmentStatus = "partially_implemented"
	AssessmentImplemented          AssessmentStatus = "implemented"
	AssessmentNotApplicable        AssessmentStatus = "not_applicable"
)

// ControlAssessment tracks one in-scope catalog control for one package. The
// control is referenced, not copied; many packages may assess the same
// control concurrently.
type ControlAssessment struct {
	gorm.Model
	PackageID uint   `gorm:"index:idx_pkg_control,unique"`
	ControlID string `gorm:"size:36;index:idx_pkg_control,unique;not null"`
	Control   Control

	Status              AssessmentStatus `gorm:"type:varchar(30);not null"`
	ImplementationNotes string           `gorm:"type:text"`
	TestResults         string           `gorm:"type:text"`
	TestedDate          *time.Time
}
