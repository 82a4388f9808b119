package models

import (
	"time"

	"gorm.io/gorm"
)

type ArtifactStatus string

const (
	ArtifactDraft    ArtifactStatus = "draft"
	ArtifactInReview ArtifactStatus = "in_review"
	ArtifactApproved ArtifactStatus = "approved"
	ArtifactArchived ArtifactStatus = "archived"
	ArtifactRejected ArtifactStatus = "rejected"
)

// Artifact is an evidence record. FileRef is an opaque reference returned by
// the storage collaborator; the core never inspects file bytes.
type Artifact struct {
	gorm.Model
	OrganizationID uint
	Organization   Organization

	Name         string         `gorm:"size:255;not null"`
	ArtifactType string         `gorm:"size:100"` // ssp, sar, scan_report, policy
	Status       ArtifactStatus `gorm:"type:varchar(30);not null"`
	FileRef      string         `gorm:"size:512"`
	Version      int            `gorm:"not null;default:1"`
	CreatedBy    uint           // acting principal id from the identity collaborator

	Revisions []ArtifactRevision `gorm:"constraint:OnDelete:CASCADE"`
}

type ArtifactRevision struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	ArtifactID uint `gorm:"index;not null"`

	Version   int    `gorm:"not null"`
	FileRef   string `gorm:"size:512"`
	Notes     string `gorm:"type:text"`
	CreatedBy uint
}

// ControlArtifact associates evidence with a catalog control, many-to-many.
type ControlArtifact struct {
	gorm.Model
	ControlID  string `gorm:"size:36;index:idx_control_artifact,unique;not null"`
	ArtifactID uint   `gorm:"index:idx_control_artifact,unique;not null"`
	Artifact   Artifact

	AssociationType string `gorm:"size:50"` // implements, tests, documents
	Notes           string `gorm:"type:text"`
}

type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "pending"
	DocumentApproved  DocumentStatus = "approved"
	DocumentRejected  DocumentStatus = "rejected"
	DocumentNeedsWork DocumentStatus = "needs_work"
)

// Document is a package-level deliverable (SSP, SAR, ATO letter draft).
type Document struct {
	gorm.Model
	PackageID uint
	Package   ATOPackage

	Title        string         `gorm:"size:255;not null"`
	DocumentType string         `gorm:"size:100"`
	Status       DocumentStatus `gorm:"type:varchar(30);not null"`
	FileRef      string         `gorm:"size:512"`
	CreatedBy    uint
}

// ContinuityPlan is the contingency/continuity-of-operations deliverable for
// a system; it exists chiefly as an approval target.
type ContinuityPlan struct {
	gorm.Model
	SystemID uint
	System   System

	Title      string `gorm:"size:255;not null"`
	FileRef    string `gorm:"size:512"`
	LastTested *time.Time
	CreatedBy  uint
}
