package handlers

import (
	"io"
	"net/http"

	"atoforge/internal/catalog"
	"atoforge/internal/database"
	"atoforge/internal/middleware"
	"atoforge/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ImportCatalog accepts an OSCAL-style JSON document in the request body.
func ImportCatalog(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 32<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	cat, err := catalog.Import(database.DB, raw)
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "catalog", cat.ID, "import", cat.Title+" "+cat.Version)
	}
	c.JSON(http.StatusCreated, cat)
}

func ListCatalogs(c *gin.Context) {
	var catalogs []models.Catalog
	database.DB.Order("created_at desc").Find(&catalogs)
	c.JSON(http.StatusOK, catalogs)
}

func ShowCatalog(c *gin.Context) {
	id := c.Param("id")

	var cat models.Catalog
	if err := database.DB.
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") }).
		Preload("Groups.Controls", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") }).
		First(&cat, "id = ?", id).Error; err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// ShowEnhancements returns every enhancement grouped under its base control,
// in display order.
func ShowEnhancements(c *gin.Context) {
	id := c.Param("id")

	var cat models.Catalog
	if err := database.DB.First(&cat, "id = ?", id).Error; err != nil {
		writeError(c, err)
		return
	}

	groups, err := catalog.ResolveEnhancements(database.DB, cat.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// ShowControlParts returns the part tree flattened depth-first, pre-order.
func ShowControlParts(c *gin.Context) {
	controlID := c.Param("control_id")

	var ctl models.Control
	if err := database.DB.Preload("Params").First(&ctl, "id = ?", controlID).Error; err != nil {
		writeError(c, err)
		return
	}

	parts, err := catalog.WalkParts(database.DB, ctl.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"control": ctl, "parts": parts})
}

func CreateControlLink(c *gin.Context) {
	var form struct {
		SourceControlID string `json:"source_control_id"`
		TargetControlID string `json:"target_control_id"`
		Rel             string `json:"rel"`
		Href            string `json:"href"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	if form.SourceControlID == "" || form.TargetControlID == "" || form.Rel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source, target and rel are required"})
		return
	}

	link, err := catalog.CreateLink(database.DB, form.SourceControlID, form.TargetControlID, form.Rel, form.Href)
	if err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "control_link", link.ID, "create", form.Rel)
	}
	c.JSON(http.StatusCreated, link)
}

func ListControlLinks(c *gin.Context) {
	controlID := c.Param("control_id")
	rel := c.Query("rel")

	var ctl models.Control
	if err := database.DB.First(&ctl, "id = ?", controlID).Error; err != nil {
		writeError(c, err)
		return
	}

	links, err := catalog.LinksFor(database.DB, ctl.ID, rel)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

func DeleteControl(c *gin.Context) {
	controlID := c.Param("control_id")

	if err := catalog.DeleteControl(database.DB, controlID); err != nil {
		writeError(c, err)
		return
	}

	if user, ok := middleware.CurrentUser(c); ok {
		database.CreateAuditLog(user.ID, "control", controlID, "delete", "")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
