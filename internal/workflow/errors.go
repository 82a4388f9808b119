package workflow

import (
	"errors"
	"fmt"
	"strings"

	"atoforge/internal/models"
)

// ErrEmptyScope blocks leaving preparation before any control assessment
// exists for the package.
var ErrEmptyScope = errors.New("package has no control assessments in scope")

// ErrPhaseConflict reports a lost race: another transition moved the package
// out of the observed phase while this one was being validated.
var ErrPhaseConflict = errors.New("package phase changed concurrently, retry")

// ErrAuthorizationNotEffective blocks entering monitoring before the
// package's validFrom date is set and reached.
var ErrAuthorizationNotEffective = errors.New("authorization validity window has not started")

// ErrInvalidDecision rejects a decision status outside
// approved/rejected/needs_work.
var ErrInvalidDecision = errors.New("decision status must be approved, rejected or needs_work")

// InvalidTransitionError reports a phase change outside the allowed order.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// IncompleteImplementationError lists every in-scope control whose assessment
// is not yet implemented or not-applicable. All blockers are reported at
// once so a caller can fix them in one pass.
type IncompleteImplementationError struct {
	ControlCodes []string
}

func (e *IncompleteImplementationError) Error() string {
	return fmt.Sprintf("implementation incomplete for controls: %s", strings.Join(e.ControlCodes, ", "))
}

// IncompleteTestingError lists every implemented control without a recorded
// tested date.
type IncompleteTestingError struct {
	ControlCodes []string
}

func (e *IncompleteTestingError) Error() string {
	return fmt.Sprintf("testing incomplete for controls: %s", strings.Join(e.ControlCodes, ", "))
}

// CatalogMismatchError rejects scoping a package against a catalog other
// than the one it was first scoped with. Re-baselining means scoping a new
// package, not mixing baselines inside one.
type CatalogMismatchError struct {
	PackageCatalogID   string
	RequestedCatalogID string
}

func (e *CatalogMismatchError) Error() string {
	return fmt.Sprintf("package is scoped against catalog %s, cannot scope controls from catalog %s",
		e.PackageCatalogID, e.RequestedCatalogID)
}

// EnhancementBeforeBaseError rejects completing an enhancement while its base
// control is still not implemented.
type EnhancementBeforeBaseError struct {
	EnhancementCode string
	BaseCode        string
}

func (e *EnhancementBeforeBaseError) Error() string {
	return fmt.Sprintf("enhancement %s cannot be completed while base %s is not implemented",
		e.EnhancementCode, e.BaseCode)
}

// ApprovalGateError blocks final review sign-off: authorization requires at
// least one approved decision on the package and no pending or rejected ones.
type ApprovalGateError struct {
	Approved    int
	PendingIDs  []string
	RejectedIDs []string
}

func (e *ApprovalGateError) Error() string {
	return fmt.Sprintf("approval gate not satisfied: %d approved, %d pending, %d rejected",
		e.Approved, len(e.PendingIDs), len(e.RejectedIDs))
}

// InvalidTargetError rejects an approval whose target kind is unknown or
// whose referenced entity does not exist.
type InvalidTargetError struct {
	Kind models.EntityKind
	ID   uint
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid approval target %s/%d", e.Kind, e.ID)
}
