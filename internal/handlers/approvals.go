package handlers

import (
	"net/http"
	"strconv"

	"atoforge/internal/database"
	"atoforge/internal/middleware"
	"atoforge/internal/models"
	"atoforge/internal/workflow"

	"github.com/gin-gonic/gin"
)

func CreateApproval(c *gin.Context) {
	var form struct {
		EntityKind string `json:"entity_kind"`
		EntityID   uint   `json:"entity_id"`
		ApproverID uint   `json:"approver_id"` // optional, defaults to the caller
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	approverID := form.ApproverID
	if approverID == 0 {
		if user, ok := middleware.CurrentUser(c); ok {
			approverID = user.ID
		}
	}
	if approverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approver_id is required"})
		return
	}

	target := workflow.TargetRef{
		Kind: models.EntityKind(form.EntityKind),
		ID:   form.EntityID,
	}
	approval, err := workflow.CreateApproval(database.DB, target, approverID)
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "approval", approval.ID, "create",
			form.EntityKind)
	}
	c.JSON(http.StatusCreated, approval)
}

func DecideApproval(c *gin.Context) {
	approvalID := c.Param("id")

	var form struct {
		Status   string `json:"status"`
		Comments string `json:"comments"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	approval, err := workflow.RecordDecision(database.DB, approvalID,
		models.ApprovalStatus(form.Status), form.Comments)
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "approval", approval.ID, "decision", form.Status)
	}
	c.JSON(http.StatusOK, approval)
}

func ListApprovals(c *gin.Context) {
	kind := c.Query("entity_kind")
	idStr := c.Query("entity_id")

	if kind == "" || idStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity_kind and entity_id are required"})
		return
	}

	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
		return
	}

	approvals, err := workflow.ApprovalsFor(database.DB, workflow.TargetRef{
		Kind: models.EntityKind(kind),
		ID:   uint(id),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, approvals)
}
