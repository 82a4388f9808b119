package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"atoforge/internal/database"
	"atoforge/internal/middleware"
	"atoforge/internal/models"
	"atoforge/internal/workflow"

	"github.com/gin-gonic/gin"
)

func validPOAMPriority(p models.POAMPriority) bool {
	switch p {
	case models.POAMLow, models.POAMMedium, models.POAMHigh, models.POAMCritical:
		return true
	}
	return false
}

func CreatePOAM(c *gin.Context) {
	var form struct {
		OrganizationID   uint   `json:"organization_id"`
		Title            string `json:"title"`
		Description      string `json:"description"`
		Priority         string `json:"priority"`
		ResponsibleParty string `json:"responsible_party"`
		MitigationPlan   string `json:"mitigation_plan"`
		ResidualRisk     string `json:"residual_risk"`
		TargetDate       string `json:"target_date"` // RFC3339
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	form.Title = strings.TrimSpace(form.Title)
	if len(form.Title) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title too short"})
		return
	}

	priority := models.POAMPriority(form.Priority)
	if !validPOAMPriority(priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	var org models.Organization
	if err := database.DB.First(&org, form.OrganizationID).Error; err != nil {
		writeError(c, err)
		return
	}

	poam := models.POAM{
		OrganizationID:   org.ID,
		Title:            form.Title,
		Description:      form.Description,
		Priority:         priority,
		Status:           models.POAMOpen,
		ResponsibleParty: form.ResponsibleParty,
		MitigationPlan:   form.MitigationPlan,
		ResidualRisk:     form.ResidualRisk,
	}
	if form.TargetDate != "" {
		ts, err := time.Parse(time.RFC3339, form.TargetDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target_date"})
			return
		}
		poam.TargetDate = &ts
	}

	if err := database.DB.Create(&poam).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save poam"})
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "poam", strconv.Itoa(int(poam.ID)), "create", poam.Title)
	}
	c.JSON(http.StatusCreated, poam)
}

// CreatePOAMFromAssessment opens a remediation item copying context from a
// failing control assessment.
func CreatePOAMFromAssessment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment id"})
		return
	}

	var form struct {
		Priority         string `json:"priority"`
		ResponsibleParty string `json:"responsible_party"`
		TargetDate       string `json:"target_date"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	priority := models.POAMPriority(form.Priority)
	if !validPOAMPriority(priority) {
		priority = models.POAMMedium
	}

	var targetDate *time.Time
	if form.TargetDate != "" {
		ts, err := time.Parse(time.RFC3339, form.TargetDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target_date"})
			return
		}
		targetDate = &ts
	}

	poam, err := workflow.CreatePOAMFromAssessment(database.DB, uint(id), priority,
		form.ResponsibleParty, targetDate)
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "poam", strconv.Itoa(int(poam.ID)), "create", poam.Source)
	}
	c.JSON(http.StatusCreated, poam)
}

func ListPOAMs(c *gin.Context) {
	orgIDStr := c.Query("organization_id")
	status := c.Query("status")

	dbq := database.DB.Order("created_at desc")
	if orgIDStr != "" {
		if oid, err := strconv.Atoi(orgIDStr); err == nil && oid > 0 {
			dbq = dbq.Where("organization_id = ?", oid)
		}
	}
	if status != "" {
		dbq = dbq.Where("status = ?", status)
	}

	var poams []models.POAM
	if err := dbq.Find(&poams).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load poams"})
		return
	}
	c.JSON(http.StatusOK, poams)
}

func AdvancePOAM(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid poam id"})
		return
	}

	var form struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	poam, err := workflow.AdvancePOAM(database.DB, uint(id), models.POAMStatus(form.Status))
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "poam", c.Param("id"), "status_change", form.Status)
	}
	c.JSON(http.StatusOK, poam)
}
