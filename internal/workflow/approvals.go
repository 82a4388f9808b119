package workflow

import (
	"time"

	"atoforge/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TargetRef names the one entity an approval applies to.
type TargetRef struct {
	Kind models.EntityKind
	ID   uint
}

// CreateApproval opens a pending approval against exactly one target entity.
// The tagged (kind, id) pair is validated here, at the single entry point,
// instead of a nullable-column check at every call site.
func CreateApproval(db *gorm.DB, target TargetRef, approverID uint) (*models.Approval, error) {
	if err := validateTarget(db, target); err != nil {
		return nil, err
	}

	approval := models.Approval{
		ID:         uuid.NewString(),
		EntityKind: target.Kind,
		EntityID:   target.ID,
		ApproverID: approverID,
		Status:     models.ApprovalPending,
	}
	if err := db.Create(&approval).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func validateTarget(db *gorm.DB, target TargetRef) error {
	if target.ID == 0 {
		return &InvalidTargetError{Kind: target.Kind, ID: target.ID}
	}

	var err error
	switch target.Kind {
	case models.KindDocument:
		err = db.First(&models.Document{}, target.ID).Error
	case models.KindControlAssessment:
		err = db.First(&models.ControlAssessment{}, target.ID).Error
	case models.KindATOPackage:
		err = db.First(&models.ATOPackage{}, target.ID).Error
	case models.KindContinuityPlan:
		err = db.First(&models.ContinuityPlan{}, target.ID).Error
	case models.KindPOAM:
		err = db.First(&models.POAM{}, target.ID).Error
	default:
		return &InvalidTargetError{Kind: target.Kind, ID: target.ID}
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &InvalidTargetError{Kind: target.Kind, ID: target.ID}
		}
		return err
	}
	return nil
}

// RecordDecision applies an approver's decision. Approving is a pure state
// update; rejecting or requesting rework on a package or one of its control
// assessments also forces the owning package back to control_implementation.
func RecordDecision(db *gorm.DB, approvalID string, status models.ApprovalStatus, comments string) (*models.Approval, error) {
	switch status {
	case models.ApprovalApproved, models.ApprovalRejected, models.ApprovalNeedsWork:
	default:
		return nil, ErrInvalidDecision
	}

	var out *models.Approval
	err := db.Transaction(func(tx *gorm.DB) error {
		var approval models.Approval
		if err := tx.First(&approval, "id = ?", approvalID).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"status":   status,
			"comments": comments,
		}
		if status == models.ApprovalApproved {
			now := time.Now().UTC()
			updates["approved_at"] = now
			approval.ApprovedAt = &now
		}
		if err := tx.Model(&approval).Updates(updates).Error; err != nil {
			return err
		}
		approval.Status = status
		approval.Comments = comments

		if status == models.ApprovalRejected || status == models.ApprovalNeedsWork {
			if err := rollbackForDecision(tx, &approval); err != nil {
				return err
			}
		}
		out = &approval
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rollbackForDecision finds the package behind a rejected target and returns
// it to control_implementation. Targets other than packages and control
// assessments carry no workflow side effect.
func rollbackForDecision(tx *gorm.DB, approval *models.Approval) error {
	var packageID uint
	switch approval.EntityKind {
	case models.KindATOPackage:
		packageID = approval.EntityID
	case models.KindControlAssessment:
		var a models.ControlAssessment
		if err := tx.First(&a, approval.EntityID).Error; err != nil {
			return err
		}
		packageID = a.PackageID
	default:
		return nil
	}

	var pkg models.ATOPackage
	if err := tx.First(&pkg, packageID).Error; err != nil {
		return err
	}
	if !phaseAfter(pkg.Phase, models.PhaseControlImplementation) {
		return nil // nothing to roll back
	}

	newStatus := models.PackageInProgress
	if approval.Status == models.ApprovalRejected {
		newStatus = models.PackageRejected
	}
	return tx.Model(&pkg).Updates(map[string]any{
		"phase":  models.PhaseControlImplementation,
		"status": newStatus,
	}).Error
}

func phaseAfter(p, reference models.PackagePhase) bool {
	pi, ri := -1, -1
	for i, ph := range phaseOrder {
		if ph == p {
			pi = i
		}
		if ph == reference {
			ri = i
		}
	}
	return pi > ri
}

// ApprovalsFor lists approvals recorded against one entity.
func ApprovalsFor(db *gorm.DB, target TargetRef) ([]models.Approval, error) {
	var approvals []models.Approval
	err := db.Where("entity_kind = ? AND entity_id = ?", target.Kind, target.ID).
		Order("created_at asc").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return approvals, nil
}
