package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"atoforge/internal/database"
	"atoforge/internal/middleware"
	"atoforge/internal/models"

	"github.com/gin-gonic/gin"
)

func ListOrganizations(c *gin.Context) {
	var orgs []models.Organization
	database.DB.Order("name asc").Find(&orgs)
	c.JSON(http.StatusOK, orgs)
}

func CreateOrganization(c *gin.Context) {
	var form struct {
		Name         string `json:"name"`
		OrgType      string `json:"org_type"`
		ContactName  string `json:"contact_name"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
		Notes        string `json:"notes"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	form.Name = strings.TrimSpace(form.Name)
	if len(form.Name) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization name too short"})
		return
	}

	org := models.Organization{
		Name:         form.Name,
		OrgType:      form.OrgType,
		ContactName:  form.ContactName,
		ContactEmail: form.ContactEmail,
		ContactPhone: form.ContactPhone,
		Notes:        form.Notes,
	}
	if err := database.DB.Create(&org).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save organization"})
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "organization", fmt.Sprint(org.ID), "create", org.Name)
	}
	c.JSON(http.StatusCreated, org)
}

func ShowOrganization(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
		return
	}

	var org models.Organization
	if err := database.DB.Preload("Systems").First(&org, id).Error; err != nil {
		writeError(c, err)
		return
	}

	var poamCounts []struct {
		Status models.POAMStatus
		N      int64
	}
	database.DB.Model(&models.POAM{}).
		Select("status, count(*) as n").
		Where("organization_id = ?", org.ID).
		Group("status").
		Scan(&poamCounts)

	risk := gin.H{}
	for _, pc := range poamCounts {
		risk[string(pc.Status)] = pc.N
	}

	c.JSON(http.StatusOK, gin.H{"organization": org, "poam_summary": risk})
}

func CreateSystem(c *gin.Context) {
	orgID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orgID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
		return
	}

	var org models.Organization
	if err := database.DB.First(&org, orgID).Error; err != nil {
		writeError(c, err)
		return
	}

	var form struct {
		Name        string `json:"name"`
		SystemType  string `json:"system_type"`
		ImpactLevel string `json:"impact_level"`
		Boundary    string `json:"boundary"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	form.Name = strings.TrimSpace(form.Name)
	if len(form.Name) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "system name too short"})
		return
	}

	stype := models.SystemType(form.SystemType)
	switch stype {
	case models.SystemGeneralSupport, models.SystemMajorApp, models.SystemMinorApp:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid system type"})
		return
	}

	switch form.ImpactLevel {
	case "", "low", "moderate", "high":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid impact level"})
		return
	}

	system := models.System{
		OrganizationID: org.ID,
		Name:           form.Name,
		SystemType:     stype,
		ImpactLevel:    form.ImpactLevel,
		Boundary:       form.Boundary,
	}
	if err := database.DB.Create(&system).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save system"})
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "system", fmt.Sprint(system.ID), "create", system.Name)
	}
	c.JSON(http.StatusCreated, system)
}

func ListSystems(c *gin.Context) {
	orgIDStr := c.Query("organization_id")

	dbq := database.DB.Preload("Organization").Order("name asc")
	if orgIDStr != "" {
		if oid, err := strconv.Atoi(orgIDStr); err == nil && oid > 0 {
			dbq = dbq.Where("organization_id = ?", oid)
		}
	}

	var systems []models.System
	if err := dbq.Find(&systems).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load systems"})
		return
	}
	c.JSON(http.StatusOK, systems)
}
