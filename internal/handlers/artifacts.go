package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"atoforge/internal/database"
	"atoforge/internal/middleware"
	"atoforge/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func CreateArtifact(c *gin.Context) {
	var form struct {
		OrganizationID uint   `json:"organization_id"`
		Name           string `json:"name"`
		ArtifactType   string `json:"artifact_type"`
		FileRef        string `json:"file_ref"` // opaque reference from the storage collaborator
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	form.Name = strings.TrimSpace(form.Name)
	if len(form.Name) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "artifact name too short"})
		return
	}

	var org models.Organization
	if err := database.DB.First(&org, form.OrganizationID).Error; err != nil {
		writeError(c, err)
		return
	}

	var createdBy uint
	if user, ok := middleware.CurrentUser(c); ok {
		createdBy = user.ID
	}

	artifact := models.Artifact{
		OrganizationID: org.ID,
		Name:           form.Name,
		ArtifactType:   form.ArtifactType,
		Status:         models.ArtifactDraft,
		FileRef:        form.FileRef,
		Version:        1,
		CreatedBy:      createdBy,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&artifact).Error; err != nil {
			return err
		}
		rev := models.ArtifactRevision{
			ArtifactID: artifact.ID,
			Version:    1,
			FileRef:    form.FileRef,
			CreatedBy:  createdBy,
		}
		return tx.Create(&rev).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save artifact"})
		return
	}

	database.CreateAuditLog(createdBy, "artifact", strconv.Itoa(int(artifact.ID)), "create", artifact.Name)
	c.JSON(http.StatusCreated, artifact)
}

// ReviseArtifact records a new file revision and bumps the version.
func ReviseArtifact(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artifact id"})
		return
	}

	var form struct {
		FileRef string `json:"file_ref"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBind(&form); err != nil || form.FileRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_ref is required"})
		return
	}

	var createdBy uint
	if user, ok := middleware.CurrentUser(c); ok {
		createdBy = user.ID
	}

	var artifact models.Artifact
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&artifact, id).Error; err != nil {
			return err
		}
		rev := models.ArtifactRevision{
			ArtifactID: artifact.ID,
			Version:    artifact.Version + 1,
			FileRef:    form.FileRef,
			Notes:      form.Notes,
			CreatedBy:  createdBy,
		}
		if err := tx.Create(&rev).Error; err != nil {
			return err
		}
		return tx.Model(&artifact).Updates(map[string]any{
			"version":  artifact.Version + 1,
			"file_ref": form.FileRef,
			"status":   models.ArtifactDraft,
		}).Error
	})
	if err != nil {
		writeError(c, err)
		return
	}

	database.CreateAuditLog(createdBy, "artifact", c.Param("id"), "revise", form.Notes)
	c.JSON(http.StatusOK, gin.H{"ok": true, "version": artifact.Version + 1})
}

// AttachArtifactToControl links evidence to a catalog control, rejecting
// duplicate pairs.
func AttachArtifactToControl(c *gin.Context) {
	var form struct {
		ControlID       string `json:"control_id"`
		ArtifactID      uint   `json:"artifact_id"`
		AssociationType string `json:"association_type"`
		Notes           string `json:"notes"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	var ctl models.Control
	if err := database.DB.First(&ctl, "id = ?", form.ControlID).Error; err != nil {
		writeError(c, err)
		return
	}
	var artifact models.Artifact
	if err := database.DB.First(&artifact, form.ArtifactID).Error; err != nil {
		writeError(c, err)
		return
	}

	var count int64
	database.DB.Model(&models.ControlArtifact{}).
		Where("control_id = ? AND artifact_id = ?", ctl.ID, artifact.ID).
		Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "artifact already attached to control"})
		return
	}

	link := models.ControlArtifact{
		ControlID:       ctl.ID,
		ArtifactID:      artifact.ID,
		AssociationType: form.AssociationType,
		Notes:           form.Notes,
	}
	if err := database.DB.Create(&link).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to attach artifact"})
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "control_artifact", strconv.Itoa(int(link.ID)), "create", ctl.Code)
	}
	c.JSON(http.StatusCreated, link)
}

func CreateDocument(c *gin.Context) {
	var form struct {
		PackageID    uint   `json:"package_id"`
		Title        string `json:"title"`
		DocumentType string `json:"document_type"`
		FileRef      string `json:"file_ref"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	form.Title = strings.TrimSpace(form.Title)
	if len(form.Title) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document title too short"})
		return
	}

	var pkg models.ATOPackage
	if err := database.DB.First(&pkg, form.PackageID).Error; err != nil {
		writeError(c, err)
		return
	}

	var createdBy uint
	if user, ok := middleware.CurrentUser(c); ok {
		createdBy = user.ID
	}

	doc := models.Document{
		PackageID:    pkg.ID,
		Title:        form.Title,
		DocumentType: form.DocumentType,
		Status:       models.DocumentPending,
		FileRef:      form.FileRef,
		CreatedBy:    createdBy,
	}
	if err := database.DB.Create(&doc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save document"})
		return
	}

	database.CreateAuditLog(createdBy, "document", strconv.Itoa(int(doc.ID)), "create", doc.Title)
	c.JSON(http.StatusCreated, doc)
}

func CreateContinuityPlan(c *gin.Context) {
	var form struct {
		SystemID uint   `json:"system_id"`
		Title    string `json:"title"`
		FileRef  string `json:"file_ref"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	form.Title = strings.TrimSpace(form.Title)
	if len(form.Title) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan title too short"})
		return
	}

	var system models.System
	if err := database.DB.First(&system, form.SystemID).Error; err != nil {
		writeError(c, err)
		return
	}

	var createdBy uint
	if user, ok := middleware.CurrentUser(c); ok {
		createdBy = user.ID
	}

	plan := models.ContinuityPlan{
		SystemID:  system.ID,
		Title:     form.Title,
		FileRef:   form.FileRef,
		CreatedBy: createdBy,
	}
	if err := database.DB.Create(&plan).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save continuity plan"})
		return
	}

	database.CreateAuditLog(createdBy, "continuity_plan", strconv.Itoa(int(plan.ID)), "create", plan.Title)
	c.JSON(http.StatusCreated, plan)
}
