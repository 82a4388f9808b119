package workflow

import (
	"atoforge/internal/catalog"
	"atoforge/internal/models"

	"gorm.io/gorm"
)

// ControlCoverage reports whether one base control is fully addressed: the
// base and every one of its catalog enhancements has an assessment with
// status implemented or not_applicable. A control with no enhancements is
// addressed on its own status alone.
type ControlCoverage struct {
	BaseCode       string
	FullyAddressed bool
	Missing        []string // codes not yet satisfied, enhancement order
}

// CoverageReport summarizes scope completeness for one package.
type CoverageReport struct {
	PackageID      uint
	Controls       []ControlCoverage
	FullyAddressed int
}

// PackageCoverage computes the enhancement-aware completeness of a package
// against its baseline catalog. Enhancements without an assessment count as
// missing; an enhancement is never addressed independently of its base.
func PackageCoverage(db *gorm.DB, packageID uint) (*CoverageReport, error) {
	var pkg models.ATOPackage
	if err := db.First(&pkg, packageID).Error; err != nil {
		return nil, err
	}

	var assessments []models.ControlAssessment
	if err := db.Preload("Control").
		Where("package_id = ?", packageID).
		Find(&assessments).Error; err != nil {
		return nil, err
	}

	statusByControl := make(map[string]models.AssessmentStatus, len(assessments))
	for _, a := range assessments {
		statusByControl[a.ControlID] = a.Status
	}

	enhancements, err := catalog.ResolveEnhancements(db, pkg.CatalogID)
	if err != nil {
		return nil, err
	}

	report := &CoverageReport{PackageID: packageID}
	for _, a := range assessments {
		if a.Control.BaseControlID != nil {
			continue // enhancements roll up under their base
		}

		cov := ControlCoverage{BaseCode: a.Control.Code, FullyAddressed: true}
		if !satisfied(a.Status) {
			cov.FullyAddressed = false
			cov.Missing = append(cov.Missing, a.Control.Code)
		}
		for _, enh := range enhancements[a.Control.Code] {
			st, ok := statusByControl[enh.ID]
			if !ok || !satisfied(st) {
				cov.FullyAddressed = false
				cov.Missing = append(cov.Missing, enh.Code)
			}
		}

		if cov.FullyAddressed {
			report.FullyAddressed++
		}
		report.Controls = append(report.Controls, cov)
	}
	return report, nil
}

func satisfied(s models.AssessmentStatus) bool {
	return s == models.AssessmentImplemented || s == models.AssessmentNotApplicable
}
