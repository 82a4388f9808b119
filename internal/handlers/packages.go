package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"atoforge/internal/database"
	"atoforge/internal/middleware"
	"atoforge/internal/models"
	"atoforge/internal/workflow"

	"github.com/gin-gonic/gin"
)

func CreatePackage(c *gin.Context) {
	var form struct {
		SystemID uint   `json:"system_id"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	form.Name = strings.TrimSpace(form.Name)
	if len(form.Name) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "package name too short"})
		return
	}

	var system models.System
	if err := database.DB.First(&system, form.SystemID).Error; err != nil {
		writeError(c, err)
		return
	}

	pkg := models.ATOPackage{
		SystemID: system.ID,
		Name:     form.Name,
		Status:   models.PackageDraft,
		Phase:    models.PhasePreparation,
	}
	if err := database.DB.Create(&pkg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save package"})
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "package", fmt.Sprint(pkg.ID), "create", pkg.Name)
	}
	c.JSON(http.StatusCreated, pkg)
}

func ListPackages(c *gin.Context) {
	systemIDStr := c.Query("system_id")

	dbq := database.DB.Preload("System").Order("created_at desc")
	if systemIDStr != "" {
		if sid, err := strconv.Atoi(systemIDStr); err == nil && sid > 0 {
			dbq = dbq.Where("system_id = ?", sid)
		}
	}

	var packages []models.ATOPackage
	if err := dbq.Find(&packages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load packages"})
		return
	}
	c.JSON(http.StatusOK, packages)
}

func ShowPackage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid package id"})
		return
	}

	// read path applies the automatic authorization -> monitoring move
	pkg, err := workflow.RefreshPhase(database.DB, uint(id))
	if err != nil {
		writeError(c, err)
		return
	}

	var assessments []models.ControlAssessment
	database.DB.Preload("Control").
		Where("package_id = ?", pkg.ID).
		Find(&assessments)

	c.JSON(http.StatusOK, gin.H{"package": pkg, "assessments": assessments})
}

// ScopePackage selects the baseline: one assessment per in-scope control.
func ScopePackage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid package id"})
		return
	}

	var form struct {
		CatalogID  string   `json:"catalog_id"`
		ControlIDs []string `json:"control_ids"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.CatalogID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "catalog_id is required"})
		return
	}

	created, err := workflow.ScopePackage(database.DB, uint(id), form.CatalogID, form.ControlIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "package", c.Param("id"), "scope",
			fmt.Sprintf("%d assessments created", created))
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func AdvancePackagePhase(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid package id"})
		return
	}

	var form struct {
		Phase string `json:"phase"` // optional explicit target, must be the next phase
	}
	_ = c.ShouldBind(&form)

	var pkg *models.ATOPackage
	if form.Phase != "" {
		pkg, err = workflow.TransitionTo(database.DB, uint(id), models.PackagePhase(form.Phase))
	} else {
		pkg, err = workflow.AdvancePhase(database.DB, uint(id))
	}
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "package", c.Param("id"), "phase_change", string(pkg.Phase))
	}
	c.JSON(http.StatusOK, pkg)
}

func ShowPackageCoverage(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid package id"})
		return
	}

	report, err := workflow.PackageCoverage(database.DB, uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
