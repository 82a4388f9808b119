package handlers

import (
	"errors"
	"net/http"

	"atoforge/internal/catalog"
	"atoforge/internal/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// writeError maps domain errors onto HTTP statuses. Blocked transitions
// return the full blocker list so the client can fix everything in one pass.
func writeError(c *gin.Context, err error) {
	var malformed *catalog.MalformedCatalogError
	var invalidTransition *workflow.InvalidTransitionError
	var incompleteImpl *workflow.IncompleteImplementationError
	var incompleteTest *workflow.IncompleteTestingError
	var enhBeforeBase *workflow.EnhancementBeforeBaseError
	var approvalGate *workflow.ApprovalGateError
	var invalidTarget *workflow.InvalidTargetError
	var catalogMismatch *workflow.CatalogMismatchError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

	case errors.As(err, &malformed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   err.Error(),
			"control": malformed.ControlCode,
		})

	case errors.Is(err, catalog.ErrDuplicateLink),
		errors.Is(err, workflow.ErrEmptyScope),
		errors.Is(err, workflow.ErrInvalidDecision),
		errors.Is(err, workflow.ErrAuthorizationNotEffective):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, workflow.ErrPhaseConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retry": true})

	case errors.As(err, &invalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"from":  invalidTransition.From,
			"to":    invalidTransition.To,
		})

	case errors.As(err, &incompleteImpl):
		c.JSON(http.StatusConflict, gin.H{
			"error":    err.Error(),
			"blocking": incompleteImpl.ControlCodes,
		})

	case errors.As(err, &incompleteTest):
		c.JSON(http.StatusConflict, gin.H{
			"error":    err.Error(),
			"blocking": incompleteTest.ControlCodes,
		})

	case errors.As(err, &enhBeforeBase):
		c.JSON(http.StatusConflict, gin.H{
			"error":       err.Error(),
			"enhancement": enhBeforeBase.EnhancementCode,
			"base":        enhBeforeBase.BaseCode,
		})

	case errors.As(err, &approvalGate):
		c.JSON(http.StatusConflict, gin.H{
			"error":    err.Error(),
			"approved": approvalGate.Approved,
			"pending":  approvalGate.PendingIDs,
			"rejected": approvalGate.RejectedIDs,
		})

	case errors.As(err, &catalogMismatch):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"scoped":    catalogMismatch.PackageCatalogID,
			"requested": catalogMismatch.RequestedCatalogID,
		})

	case errors.As(err, &invalidTarget):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
