package models

import "time"

type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalNeedsWork ApprovalStatus = "needs_work"
)

// EntityKind names the one entity an approval targets.
type EntityKind string

const (
	KindDocument          EntityKind = "document"
	KindControlAssessment EntityKind = "control_assessment"
	KindATOPackage        EntityKind = "ato_package"
	KindContinuityPlan    EntityKind = "continuity_plan"
	KindPOAM              EntityKind = "poam"
)

// Approval records one decision by one approver against exactly one target
// entity. The target is a tagged (kind, id) pair rather than five nullable
// foreign keys; workflow.CreateApproval validates it at creation.
type Approval struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time

	EntityKind EntityKind `gorm:"type:varchar(30);index:idx_approval_target;not null"`
	EntityID   uint       `gorm:"index:idx_approval_target;not null"`

	ApproverID uint
	Approver   User

	Status     ApprovalStatus `gorm:"type:varchar(20);not null"`
	Comments   string         `gorm:"type:text"`
	ApprovedAt *time.Time
}
