package workflow

import (
	"fmt"
	"time"

	"atoforge/internal/models"

	"gorm.io/gorm"
)

// CreatePOAMFromAssessment opens a remediation item for a failing control
// assessment. Context is copied into the POA&M's text fields; there is
// deliberately no foreign key back to the assessment or its package.
func CreatePOAMFromAssessment(db *gorm.DB, assessmentID uint, priority models.POAMPriority, responsible string, targetDate *time.Time) (*models.POAM, error) {
	var a models.ControlAssessment
	if err := db.Preload("Control").First(&a, assessmentID).Error; err != nil {
		return nil, err
	}
	var pkg models.ATOPackage
	if err := db.Preload("System").First(&pkg, a.PackageID).Error; err != nil {
		return nil, err
	}

	poam := models.POAM{
		OrganizationID: pkg.System.OrganizationID,
		Title:          fmt.Sprintf("Remediate %s on %s", a.Control.Code, pkg.System.Name),
		Description: fmt.Sprintf("Control %s (%s) assessed as %s.\n\nNotes: %s",
			a.Control.Code, a.Control.Title, a.Status, a.ImplementationNotes),
		Source:           fmt.Sprintf("assessment %s / package %s", a.Control.Code, pkg.Name),
		Priority:         priority,
		Status:           models.POAMOpen,
		ResponsibleParty: responsible,
		TargetDate:       targetDate,
	}
	if err := db.Create(&poam).Error; err != nil {
		return nil, err
	}
	return &poam, nil
}

// poamOrder: open -> mitigating -> closed, forward only.
var poamOrder = map[models.POAMStatus]int{
	models.POAMOpen:       0,
	models.POAMMitigating: 1,
	models.POAMClosed:     2,
}

// AdvancePOAM moves a POA&M forward through its lifecycle. Closing records
// the completion date.
func AdvancePOAM(db *gorm.DB, poamID uint, status models.POAMStatus) (*models.POAM, error) {
	rank, ok := poamOrder[status]
	if !ok {
		return nil, ErrInvalidDecision
	}

	var poam models.POAM
	if err := db.First(&poam, poamID).Error; err != nil {
		return nil, err
	}
	if rank <= poamOrder[poam.Status] {
		return nil, &InvalidTransitionError{
			From: string(poam.Status),
			To:   string(status),
		}
	}

	updates := map[string]any{"status": status}
	if status == models.POAMClosed {
		now := time.Now().UTC()
		updates["completion_date"] = now
		poam.CompletionDate = &now
	}
	if err := db.Model(&poam).Updates(updates).Error; err != nil {
		return nil, err
	}
	poam.Status = status
	return &poam, nil
}
