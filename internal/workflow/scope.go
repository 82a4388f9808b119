package workflow

import (
	"time"

	"atoforge/internal/models"

	"gorm.io/gorm"
)

// ScopePackage establishes the package's baseline: one ControlAssessment per
// in-scope catalog control, created as not_implemented. An empty controlIDs
// slice scopes the full catalog. Controls already in scope are skipped, so
// re-scoping after a catalog grows is additive. The first scoping call pins
// the package's catalog; naming a different catalog later fails with
// CatalogMismatchError.
func ScopePackage(db *gorm.DB, packageID uint, catalogID string, controlIDs []string) (int, error) {
	created := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var pkg models.ATOPackage
		if err := tx.First(&pkg, packageID).Error; err != nil {
			return err
		}
		if pkg.CatalogID != "" && pkg.CatalogID != catalogID {
			return &CatalogMismatchError{
				PackageCatalogID:   pkg.CatalogID,
				RequestedCatalogID: catalogID,
			}
		}
		var cat models.Catalog
		if err := tx.First(&cat, "id = ?", catalogID).Error; err != nil {
			return err
		}

		q := tx.Where("catalog_id = ?", catalogID)
		if len(controlIDs) > 0 {
			q = q.Where("id IN ?", controlIDs)
		}
		var controls []models.Control
		if err := q.Find(&controls).Error; err != nil {
			return err
		}
		if len(controls) == 0 {
			return gorm.ErrRecordNotFound
		}

		var existing []models.ControlAssessment
		if err := tx.Where("package_id = ?", packageID).Find(&existing).Error; err != nil {
			return err
		}
		inScope := make(map[string]struct{}, len(existing))
		for _, a := range existing {
			inScope[a.ControlID] = struct{}{}
		}

		for _, ctl := range controls {
			if _, ok := inScope[ctl.ID]; ok {
				continue
			}
			a := models.ControlAssessment{
				PackageID: packageID,
				ControlID: ctl.ID,
				Status:    models.AssessmentNotImplemented,
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			created++
		}

		if pkg.CatalogID == "" {
			if err := tx.Model(&pkg).Update("catalog_id", catalogID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// SetAssessmentStatus updates one assessment, enforcing the
// enhancement-after-base rule: an enhancement cannot be marked implemented or
// not-applicable while the base control's assessment in the same package is
// still not_implemented.
func SetAssessmentStatus(db *gorm.DB, assessmentID uint, status models.AssessmentStatus, notes string) (*models.ControlAssessment, error) {
	var out *models.ControlAssessment
	err := db.Transaction(func(tx *gorm.DB) error {
		var a models.ControlAssessment
		if err := tx.Preload("Control").First(&a, assessmentID).Error; err != nil {
			return err
		}

		complete := status == models.AssessmentImplemented || status == models.AssessmentNotApplicable
		if complete && a.Control.BaseControlID != nil {
			var base models.Control
			if err := tx.First(&base, "id = ?", *a.Control.BaseControlID).Error; err != nil {
				return err
			}
			var baseAssessment models.ControlAssessment
			err := tx.Where("package_id = ? AND control_id = ?", a.PackageID, base.ID).
				First(&baseAssessment).Error
			if err == nil && baseAssessment.Status == models.AssessmentNotImplemented {
				return &EnhancementBeforeBaseError{
					EnhancementCode: a.Control.Code,
					BaseCode:        base.Code,
				}
			}
			if err != nil && err != gorm.ErrRecordNotFound {
				return err
			}
		}

		updates := map[string]any{"status": status}
		if notes != "" {
			updates["implementation_notes"] = notes
		}
		if err := tx.Model(&a).Updates(updates).Error; err != nil {
			return err
		}
		a.Status = status
		out = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordTestResults attaches test output and a tested date to an assessment.
func RecordTestResults(db *gorm.DB, assessmentID uint, results string, testedAt time.Time) error {
	res := db.Model(&models.ControlAssessment{}).
		Where("id = ?", assessmentID).
		Updates(map[string]any{
			"test_results": results,
			"tested_date":  testedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
