package workflow

import (
	"errors"
	"testing"
	"time"

	"atoforge/internal/catalog"
	"atoforge/internal/database"
	"atoforge/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const baselineJSON = `{
  "catalog": {
    "metadata": {"title": "Test Baseline", "version": "5"},
    "groups": [{
      "id": "ac", "title": "Access Control",
      "controls": [
        {
          "id": "ac-2", "title": "Account Management",
          "controls": [
            {"id": "ac-2.1", "title": "Automated Management"},
            {"id": "ac-2.2", "title": "Temporary Accounts"}
          ]
        },
        {"id": "ac-3", "title": "Access Enforcement"}
      ]
    }]
  }
}`

type fixture struct {
	db  *gorm.DB
	org models.Organization
	pkg models.ATOPackage
	cat *models.Catalog

	// assessment id per control code
	assessments map[string]uint
}

func newFixture(t *testing.T, scoped bool) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{db: db, assessments: map[string]uint{}}

	f.org = models.Organization{Name: "Acme Federal"}
	if err := db.Create(&f.org).Error; err != nil {
		t.Fatalf("create org: %v", err)
	}
	system := models.System{
		OrganizationID: f.org.ID,
		Name:           "Payroll",
		SystemType:     models.SystemMajorApp,
		ImpactLevel:    "moderate",
	}
	if err := db.Create(&system).Error; err != nil {
		t.Fatalf("create system: %v", err)
	}
	f.pkg = models.ATOPackage{
		SystemID: system.ID,
		Name:     "FY26 ATO",
		Status:   models.PackageDraft,
		Phase:    models.PhasePreparation,
	}
	if err := db.Create(&f.pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}

	f.cat, err = catalog.Import(db, []byte(baselineJSON))
	if err != nil {
		t.Fatalf("import baseline: %v", err)
	}

	if scoped {
		if _, err := ScopePackage(db, f.pkg.ID, f.cat.ID, nil); err != nil {
			t.Fatalf("scope: %v", err)
		}
		var assessments []models.ControlAssessment
		if err := db.Preload("Control").Where("package_id = ?", f.pkg.ID).Find(&assessments).Error; err != nil {
			t.Fatalf("load assessments: %v", err)
		}
		for _, a := range assessments {
			f.assessments[a.Control.Code] = a.ID
		}
	}
	return f
}

func (f *fixture) mustAdvance(t *testing.T, want models.PackagePhase) {
	t.Helper()
	pkg, err := AdvancePhase(f.db, f.pkg.ID)
	if err != nil {
		t.Fatalf("advance to %s: %v", want, err)
	}
	if pkg.Phase != want {
		t.Fatalf("expected phase %s, got %s", want, pkg.Phase)
	}
	f.pkg = *pkg
}

func (f *fixture) setStatus(t *testing.T, code string, status models.AssessmentStatus) {
	t.Helper()
	if _, err := SetAssessmentStatus(f.db, f.assessments[code], status, ""); err != nil {
		t.Fatalf("set %s to %s: %v", code, status, err)
	}
}

func (f *fixture) implementAll(t *testing.T) {
	t.Helper()
	// base before enhancements
	f.setStatus(t, "AC-2", models.AssessmentImplemented)
	f.setStatus(t, "AC-2.1", models.AssessmentImplemented)
	f.setStatus(t, "AC-2.2", models.AssessmentNotApplicable)
	f.setStatus(t, "AC-3", models.AssessmentImplemented)
}

func (f *fixture) testAll(t *testing.T) {
	t.Helper()
	now := time.Now().UTC()
	for code, id := range f.assessments {
		if err := RecordTestResults(f.db, id, "pass", now); err != nil {
			t.Fatalf("record test for %s: %v", code, err)
		}
	}
}

// walks a scoped package to final_review with everything green
func (f *fixture) toFinalReview(t *testing.T) {
	t.Helper()
	f.mustAdvance(t, models.PhaseInitialAssessment)
	f.mustAdvance(t, models.PhaseControlImplementation)
	f.implementAll(t)
	f.mustAdvance(t, models.PhaseTesting)
	f.testAll(t)
	f.mustAdvance(t, models.PhaseValidation)
	f.mustAdvance(t, models.PhaseFinalReview)
}

func TestScopeCreatesOneAssessmentPerControl(t *testing.T) {
	f := newFixture(t, true)
	if len(f.assessments) != 4 {
		t.Fatalf("expected 4 assessments, got %d", len(f.assessments))
	}
	for code, id := range f.assessments {
		var a models.ControlAssessment
		if err := f.db.First(&a, id).Error; err != nil {
			t.Fatalf("load %s: %v", code, err)
		}
		if a.Status != models.AssessmentNotImplemented {
			t.Fatalf("%s must start not_implemented, got %s", code, a.Status)
		}
	}

	// re-scoping is additive, not duplicating
	created, err := ScopePackage(f.db, f.pkg.ID, f.cat.ID, nil)
	if err != nil {
		t.Fatalf("re-scope: %v", err)
	}
	if created != 0 {
		t.Fatalf("re-scope created %d duplicates", created)
	}
}

func TestScopeRejectsSecondCatalog(t *testing.T) {
	f := newFixture(t, true)

	other, err := catalog.Import(f.db, []byte(`{
	  "catalog": {
	    "metadata": {"title": "Other Baseline", "version": "1"},
	    "groups": [{
	      "id": "au", "title": "Audit",
	      "controls": [{"id": "au-2", "title": "Event Logging"}]
	    }]
	  }
	}`))
	if err != nil {
		t.Fatalf("import second catalog: %v", err)
	}

	_, err = ScopePackage(f.db, f.pkg.ID, other.ID, nil)
	var mismatch *CatalogMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected CatalogMismatchError, got %v", err)
	}
	if mismatch.PackageCatalogID != f.cat.ID || mismatch.RequestedCatalogID != other.ID {
		t.Fatalf("error carries wrong catalog ids: %+v", mismatch)
	}

	// nothing from the second catalog may enter scope
	var count int64
	f.db.Model(&models.ControlAssessment{}).Where("package_id = ?", f.pkg.ID).Count(&count)
	if count != 4 {
		t.Fatalf("expected 4 assessments after rejected scope, got %d", count)
	}
}

func TestAdvanceRequiresScope(t *testing.T) {
	f := newFixture(t, false)
	if _, err := AdvancePhase(f.db, f.pkg.ID); !errors.Is(err, ErrEmptyScope) {
		t.Fatalf("expected ErrEmptyScope, got %v", err)
	}
}

func TestOutOfOrderTransitionFails(t *testing.T) {
	f := newFixture(t, true)
	_, err := TransitionTo(f.db, f.pkg.ID, models.PhaseTesting)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != string(models.PhasePreparation) || invalid.To != string(models.PhaseTesting) {
		t.Fatalf("unexpected transition detail: %+v", invalid)
	}
}

func TestImplementationGateListsAllBlockers(t *testing.T) {
	f := newFixture(t, true)
	f.mustAdvance(t, models.PhaseInitialAssessment)
	f.mustAdvance(t, models.PhaseControlImplementation)

	f.setStatus(t, "AC-2", models.AssessmentImplemented)
	f.setStatus(t, "AC-2.1", models.AssessmentImplemented)
	f.setStatus(t, "AC-2.2", models.AssessmentPlanned)

	_, err := AdvancePhase(f.db, f.pkg.ID)
	var incomplete *IncompleteImplementationError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteImplementationError, got %v", err)
	}
	got := map[string]bool{}
	for _, code := range incomplete.ControlCodes {
		got[code] = true
	}
	if len(incomplete.ControlCodes) != 2 || !got["AC-2.2"] || !got["AC-3"] {
		t.Fatalf("expected blockers AC-2.2 and AC-3, got %v", incomplete.ControlCodes)
	}

	f.setStatus(t, "AC-2.2", models.AssessmentNotApplicable)
	f.setStatus(t, "AC-3", models.AssessmentImplemented)
	f.mustAdvance(t, models.PhaseTesting)
}

func TestTestingGateRequiresTestedDates(t *testing.T) {
	f := newFixture(t, true)
	f.mustAdvance(t, models.PhaseInitialAssessment)
	f.mustAdvance(t, models.PhaseControlImplementation)
	f.implementAll(t)
	f.mustAdvance(t, models.PhaseTesting)

	_, err := AdvancePhase(f.db, f.pkg.ID)
	var incomplete *IncompleteTestingError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteTestingError, got %v", err)
	}
	// AC-2.2 is not_applicable and needs no test date
	if len(incomplete.ControlCodes) != 3 {
		t.Fatalf("expected 3 untested controls, got %v", incomplete.ControlCodes)
	}

	f.testAll(t)
	f.mustAdvance(t, models.PhaseValidation)
}

func TestApprovalGateOnAuthorization(t *testing.T) {
	f := newFixture(t, true)
	f.toFinalReview(t)

	// no approvals at all
	_, err := AdvancePhase(f.db, f.pkg.ID)
	var gate *ApprovalGateError
	if !errors.As(err, &gate) {
		t.Fatalf("expected ApprovalGateError, got %v", err)
	}

	var approver models.User
	f.db.FirstOrCreate(&approver, models.User{Username: "ao@acme.gov", PasswordHash: "x", Role: models.RoleApprover})

	approval, err := CreateApproval(f.db, TargetRef{Kind: models.KindATOPackage, ID: f.pkg.ID}, approver.ID)
	if err != nil {
		t.Fatalf("create approval: %v", err)
	}

	// a pending approval still blocks
	if _, err := AdvancePhase(f.db, f.pkg.ID); !errors.As(err, &gate) {
		t.Fatalf("expected ApprovalGateError while pending, got %v", err)
	}

	if _, err := RecordDecision(f.db, approval.ID, models.ApprovalApproved, "lgtm"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	f.mustAdvance(t, models.PhaseAuthorization)

	var pkg models.ATOPackage
	f.db.First(&pkg, f.pkg.ID)
	if pkg.Status != models.PackageApproved {
		t.Fatalf("expected approved status, got %s", pkg.Status)
	}
	if pkg.ValidFrom == nil || pkg.ValidUntil == nil {
		t.Fatalf("validity window must be set on authorization")
	}
}

func TestRejectedAssessmentApprovalRollsPackageBack(t *testing.T) {
	f := newFixture(t, true)
	f.toFinalReview(t)

	var approver models.User
	f.db.FirstOrCreate(&approver, models.User{Username: "ao@acme.gov", PasswordHash: "x", Role: models.RoleApprover})

	approval, err := CreateApproval(f.db,
		TargetRef{Kind: models.KindControlAssessment, ID: f.assessments["AC-2"]}, approver.ID)
	if err != nil {
		t.Fatalf("create approval: %v", err)
	}
	if _, err := RecordDecision(f.db, approval.ID, models.ApprovalRejected, "evidence stale"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	var pkg models.ATOPackage
	f.db.First(&pkg, f.pkg.ID)
	if pkg.Phase != models.PhaseControlImplementation {
		t.Fatalf("expected rollback to control_implementation, got %s", pkg.Phase)
	}
	if pkg.Status != models.PackageRejected {
		t.Fatalf("expected rejected status, got %s", pkg.Status)
	}
}

func TestNeedsWorkOnPackageRollsBackInProgress(t *testing.T) {
	f := newFixture(t, true)
	f.toFinalReview(t)

	var approver models.User
	f.db.FirstOrCreate(&approver, models.User{Username: "ao@acme.gov", PasswordHash: "x", Role: models.RoleApprover})

	approval, err := CreateApproval(f.db, TargetRef{Kind: models.KindATOPackage, ID: f.pkg.ID}, approver.ID)
	if err != nil {
		t.Fatalf("create approval: %v", err)
	}
	if _, err := RecordDecision(f.db, approval.ID, models.ApprovalNeedsWork, "redo AC-3 narrative"); err != nil {
		t.Fatalf("needs_work: %v", err)
	}

	var pkg models.ATOPackage
	f.db.First(&pkg, f.pkg.ID)
	if pkg.Phase != models.PhaseControlImplementation || pkg.Status != models.PackageInProgress {
		t.Fatalf("expected in_progress at control_implementation, got %s/%s", pkg.Status, pkg.Phase)
	}
}

func TestCreateApprovalRejectsInvalidTargets(t *testing.T) {
	f := newFixture(t, true)

	var invalid *InvalidTargetError
	if _, err := CreateApproval(f.db, TargetRef{Kind: "widget", ID: 1}, 1); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTargetError for unknown kind, got %v", err)
	}
	if _, err := CreateApproval(f.db, TargetRef{Kind: models.KindDocument, ID: 9999}, 1); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTargetError for missing entity, got %v", err)
	}
	if _, err := CreateApproval(f.db, TargetRef{Kind: models.KindATOPackage, ID: 0}, 1); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTargetError for zero id, got %v", err)
	}
}

func TestEnhancementCannotCompleteBeforeBase(t *testing.T) {
	f := newFixture(t, true)

	_, err := SetAssessmentStatus(f.db, f.assessments["AC-2.1"], models.AssessmentImplemented, "")
	var blocked *EnhancementBeforeBaseError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected EnhancementBeforeBaseError, got %v", err)
	}
	if blocked.EnhancementCode != "AC-2.1" || blocked.BaseCode != "AC-2" {
		t.Fatalf("unexpected codes: %+v", blocked)
	}

	// planned is not completion and stays allowed
	if _, err := SetAssessmentStatus(f.db, f.assessments["AC-2.1"], models.AssessmentPlanned, ""); err != nil {
		t.Fatalf("planned should be allowed: %v", err)
	}

	f.setStatus(t, "AC-2", models.AssessmentImplemented)
	if _, err := SetAssessmentStatus(f.db, f.assessments["AC-2.1"], models.AssessmentImplemented, ""); err != nil {
		t.Fatalf("after base implemented: %v", err)
	}
}

func TestCoverageFlipsWithAnyEnhancement(t *testing.T) {
	f := newFixture(t, true)
	f.implementAll(t)

	report, err := PackageCoverage(f.db, f.pkg.ID)
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}

	byCode := map[string]ControlCoverage{}
	for _, cov := range report.Controls {
		byCode[cov.BaseCode] = cov
	}
	if !byCode["AC-2"].FullyAddressed || !byCode["AC-3"].FullyAddressed {
		t.Fatalf("expected all controls addressed, got %+v", report.Controls)
	}
	if report.FullyAddressed != 2 {
		t.Fatalf("expected 2 fully addressed, got %d", report.FullyAddressed)
	}

	// flipping one enhancement back flips the base aggregate
	f.setStatus(t, "AC-2.1", models.AssessmentPlanned)
	report, err = PackageCoverage(f.db, f.pkg.ID)
	if err != nil {
		t.Fatalf("coverage after flip: %v", err)
	}
	for _, cov := range report.Controls {
		if cov.BaseCode != "AC-2" {
			continue
		}
		if cov.FullyAddressed {
			t.Fatalf("AC-2 must not be fully addressed")
		}
		if len(cov.Missing) != 1 || cov.Missing[0] != "AC-2.1" {
			t.Fatalf("expected missing AC-2.1, got %v", cov.Missing)
		}
	}
}

func TestPOAMFromAssessmentAndLifecycle(t *testing.T) {
	f := newFixture(t, true)

	target := time.Now().UTC().AddDate(0, 3, 0)
	poam, err := CreatePOAMFromAssessment(f.db, f.assessments["AC-3"], models.POAMHigh, "ISSO", &target)
	if err != nil {
		t.Fatalf("create poam: %v", err)
	}
	if poam.OrganizationID != f.org.ID {
		t.Fatalf("poam must be organization-scoped")
	}
	if poam.Status != models.POAMOpen || poam.Priority != models.POAMHigh {
		t.Fatalf("unexpected poam state: %+v", poam)
	}

	if _, err := AdvancePOAM(f.db, poam.ID, models.POAMMitigating); err != nil {
		t.Fatalf("to mitigating: %v", err)
	}
	// backwards is rejected
	var invalid *InvalidTransitionError
	if _, err := AdvancePOAM(f.db, poam.ID, models.POAMOpen); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	closed, err := AdvancePOAM(f.db, poam.ID, models.POAMClosed)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.CompletionDate == nil {
		t.Fatalf("closing must record a completion date")
	}
}

func TestRefreshPhaseEntersMonitoring(t *testing.T) {
	f := newFixture(t, true)
	f.toFinalReview(t)

	var approver models.User
	f.db.FirstOrCreate(&approver, models.User{Username: "ao@acme.gov", PasswordHash: "x", Role: models.RoleApprover})
	approval, _ := CreateApproval(f.db, TargetRef{Kind: models.KindATOPackage, ID: f.pkg.ID}, approver.ID)
	if _, err := RecordDecision(f.db, approval.ID, models.ApprovalApproved, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	f.mustAdvance(t, models.PhaseAuthorization)

	pkg, err := RefreshPhase(f.db, f.pkg.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pkg.Phase != models.PhaseMonitoring {
		t.Fatalf("expected monitoring after validFrom reached, got %s", pkg.Phase)
	}
	if pkg.LastAssessment == nil || pkg.NextAssessment == nil {
		t.Fatalf("monitoring must set the assessment cadence")
	}
}
