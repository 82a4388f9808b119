package handlers

import (
	"net/http"
	"strconv"
	"time"

	"atoforge/internal/database"
	"atoforge/internal/middleware"
	"atoforge/internal/models"
	"atoforge/internal/workflow"

	"github.com/gin-gonic/gin"
)

func UpdateAssessmentStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}

	var form struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	status := models.AssessmentStatus(form.Status)
	switch status {
	case models.AssessmentNotImplemented,
		models.AssessmentPlanned,
		models.AssessmentPartiallyImplemented,
		models.AssessmentImplemented,
		models.AssessmentNotApplicable:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment status"})
		return
	}

	a, err := workflow.SetAssessmentStatus(database.DB, uint(id), status, form.Notes)
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "assessment", c.Param("id"), "status_change", form.Status)
	}
	c.JSON(http.StatusOK, a)
}

func RecordAssessmentTest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}

	var form struct {
		Results  string `json:"results"`
		TestedAt string `json:"tested_at"` // RFC3339, defaults to now
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	testedAt := time.Now().UTC()
	if form.TestedAt != "" {
		ts, err := time.Parse(time.RFC3339, form.TestedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tested_at"})
			return
		}
		testedAt = ts
	}

	if err := workflow.RecordTestResults(database.DB, uint(id), form.Results, testedAt); err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "assessment", c.Param("id"), "tested", "")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
