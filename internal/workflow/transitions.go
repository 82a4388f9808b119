package workflow

import (
	"time"

	"atoforge/internal/models"

	"gorm.io/gorm"
)

// phaseOrder is the single source of truth for the forward progression of an
// ATO package. The only backward edge is the forced return to
// control_implementation on a rejected approval, applied by RecordDecision.
var phaseOrder = []models.PackagePhase{
	models.PhasePreparation,
	models.PhaseInitialAssessment,
	models.PhaseControlImplementation,
	models.PhaseTesting,
	models.PhaseValidation,
	models.PhaseFinalReview,
	models.PhaseAuthorization,
	models.PhaseMonitoring,
}

func nextPhase(p models.PackagePhase) (models.PackagePhase, bool) {
	for i, ph := range phaseOrder {
		if ph == p && i+1 < len(phaseOrder) {
			return phaseOrder[i+1], true
		}
	}
	return "", false
}

// AdvancePhase moves the package one phase forward, provided the phase's
// completeness predicate holds.
func AdvancePhase(db *gorm.DB, packageID uint) (*models.ATOPackage, error) {
	var pkg models.ATOPackage
	if err := db.First(&pkg, packageID).Error; err != nil {
		return nil, err
	}
	next, ok := nextPhase(pkg.Phase)
	if !ok {
		return nil, &InvalidTransitionError{From: string(pkg.Phase), To: string(pkg.Phase)}
	}
	return TransitionTo(db, packageID, next)
}

// TransitionTo moves the package to exactly the next phase in order; any
// other target fails with InvalidTransitionError. The predicate check and the
// phase write happen in one transaction, and the write is a compare-and-swap
// on the observed phase so two concurrent transitions cannot both win.
func TransitionTo(db *gorm.DB, packageID uint, to models.PackagePhase) (*models.ATOPackage, error) {
	var out *models.ATOPackage
	err := db.Transaction(func(tx *gorm.DB) error {
		var pkg models.ATOPackage
		if err := tx.First(&pkg, packageID).Error; err != nil {
			return err
		}

		next, ok := nextPhase(pkg.Phase)
		if !ok || next != to {
			return &InvalidTransitionError{From: string(pkg.Phase), To: string(to)}
		}

		if err := checkPredicate(tx, &pkg, to); err != nil {
			return err
		}

		updates := map[string]any{"phase": to}
		switch to {
		case models.PhaseInitialAssessment:
			if pkg.Status == models.PackageDraft {
				updates["status"] = models.PackageInProgress
			}
		case models.PhaseFinalReview:
			updates["status"] = models.PackageUnderReview
		case models.PhaseAuthorization:
			updates["status"] = models.PackageApproved
			now := time.Now().UTC()
			if pkg.ValidFrom == nil {
				updates["valid_from"] = now
				pkg.ValidFrom = &now
			}
			if pkg.ValidUntil == nil {
				until := pkg.ValidFrom.AddDate(3, 0, 0)
				updates["valid_until"] = until
			}
		case models.PhaseMonitoring:
			now := time.Now().UTC()
			nextAssessment := now.AddDate(1, 0, 0)
			updates["last_assessment"] = now
			updates["next_assessment"] = nextAssessment
		}

		res := tx.Model(&models.ATOPackage{}).
			Where("id = ? AND phase = ?", pkg.ID, pkg.Phase).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPhaseConflict
		}

		if err := tx.First(&pkg, packageID).Error; err != nil {
			return err
		}
		out = &pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func checkPredicate(tx *gorm.DB, pkg *models.ATOPackage, to models.PackagePhase) error {
	switch to {
	case models.PhaseInitialAssessment:
		var count int64
		if err := tx.Model(&models.ControlAssessment{}).
			Where("package_id = ?", pkg.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrEmptyScope
		}
		return nil

	case models.PhaseControlImplementation, models.PhaseFinalReview:
		return nil // documents intent, no gate

	case models.PhaseTesting:
		blockers, err := implementationBlockers(tx, pkg.ID)
		if err != nil {
			return err
		}
		if len(blockers) > 0 {
			return &IncompleteImplementationError{ControlCodes: blockers}
		}
		return nil

	case models.PhaseValidation:
		blockers, err := testingBlockers(tx, pkg.ID)
		if err != nil {
			return err
		}
		if len(blockers) > 0 {
			return &IncompleteTestingError{ControlCodes: blockers}
		}
		return nil

	case models.PhaseAuthorization:
		return checkApprovalGate(tx, pkg.ID)

	case models.PhaseMonitoring:
		if pkg.ValidFrom == nil || pkg.ValidFrom.After(time.Now().UTC()) {
			return ErrAuthorizationNotEffective
		}
		return nil
	}
	return &InvalidTransitionError{From: string(pkg.Phase), To: string(to)}
}

// implementationBlockers returns the codes of every in-scope control whose
// assessment is neither implemented nor not-applicable.
func implementationBlockers(tx *gorm.DB, packageID uint) ([]string, error) {
	var assessments []models.ControlAssessment
	if err := tx.Preload("Control").
		Where("package_id = ?", packageID).
		Find(&assessments).Error; err != nil {
		return nil, err
	}
	var codes []string
	for _, a := range assessments {
		switch a.Status {
		case models.AssessmentImplemented, models.AssessmentNotApplicable:
		default:
			codes = append(codes, a.Control.Code)
		}
	}
	return codes, nil
}

// testingBlockers returns the codes of implemented controls without a tested
// date.
func testingBlockers(tx *gorm.DB, packageID uint) ([]string, error) {
	var assessments []models.ControlAssessment
	if err := tx.Preload("Control").
		Where("package_id = ? AND status = ? AND tested_date IS NULL",
			packageID, models.AssessmentImplemented).
		Find(&assessments).Error; err != nil {
		return nil, err
	}
	var codes []string
	for _, a := range assessments {
		codes = append(codes, a.Control.Code)
	}
	return codes, nil
}

func checkApprovalGate(tx *gorm.DB, packageID uint) error {
	var approvals []models.Approval
	if err := tx.Where("entity_kind = ? AND entity_id = ?",
		models.KindATOPackage, packageID).
		Find(&approvals).Error; err != nil {
		return err
	}

	gate := &ApprovalGateError{}
	for _, a := range approvals {
		switch a.Status {
		case models.ApprovalApproved:
			gate.Approved++
		case models.ApprovalPending:
			gate.PendingIDs = append(gate.PendingIDs, a.ID)
		case models.ApprovalRejected:
			gate.RejectedIDs = append(gate.RejectedIDs, a.ID)
		}
	}
	if gate.Approved == 0 || len(gate.PendingIDs) > 0 || len(gate.RejectedIDs) > 0 {
		return gate
	}
	return nil
}

// RefreshPhase applies the automatic authorization -> monitoring transition
// once the validity window has started. Called from read paths; there is no
// background scheduler.
func RefreshPhase(db *gorm.DB, packageID uint) (*models.ATOPackage, error) {
	var pkg models.ATOPackage
	if err := db.First(&pkg, packageID).Error; err != nil {
		return nil, err
	}
	if pkg.Phase == models.PhaseAuthorization &&
		pkg.ValidFrom != nil && !pkg.ValidFrom.After(time.Now().UTC()) {
		return TransitionTo(db, packageID, models.PhaseMonitoring)
	}
	if pkg.Phase == models.PhaseMonitoring &&
		pkg.ValidUntil != nil && pkg.ValidUntil.Before(time.Now().UTC()) &&
		pkg.Status != models.PackageExpired {
		if err := db.Model(&pkg).Update("status", models.PackageExpired).Error; err != nil {
			return nil, err
		}
		pkg.Status = models.PackageExpired
	}
	return &pkg, nil
}
