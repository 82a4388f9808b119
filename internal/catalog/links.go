package catalog

import (
	"atoforge/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateLink adds a directed edge between two existing controls. Self-loops
// and parallel edges with different rels are allowed; an exact
// (source, target, rel) duplicate is rejected.
func CreateLink(db *gorm.DB, sourceID, targetID, rel, href string) (*models.ControlLink, error) {
	var ctl models.Control
	if err := db.First(&ctl, "id = ?", sourceID).Error; err != nil {
		return nil, err
	}
	if err := db.First(&ctl, "id = ?", targetID).Error; err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&models.ControlLink{}).
		Where("source_control_id = ? AND target_control_id = ? AND rel = ?", sourceID, targetID, rel).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateLink
	}

	link := models.ControlLink{
		ID:              uuid.NewString(),
		SourceControlID: sourceID,
		TargetControlID: targetID,
		Rel:             rel,
		Href:            href,
	}
	if err := db.Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// LinksFor returns the control's outgoing and incoming links, optionally
// filtered by relationship type.
func LinksFor(db *gorm.DB, controlID, rel string) ([]models.ControlLink, error) {
	q := db.Where("source_control_id = ? OR target_control_id = ?", controlID, controlID)
	if rel != "" {
		q = q.Where("rel = ?", rel)
	}
	var links []models.ControlLink
	if err := q.Order("created_at asc").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// DeleteControl removes a control together with its parts, parameters and
// links in both directions. Deletes are explicit rather than left to FK
// constraints so behavior does not depend on the database's cascade support.
func DeleteControl(db *gorm.DB, controlID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var ctl models.Control
		if err := tx.First(&ctl, "id = ?", controlID).Error; err != nil {
			return err
		}
		if err := tx.Where("control_id = ?", controlID).Delete(&models.Part{}).Error; err != nil {
			return err
		}
		if err := tx.Where("control_id = ?", controlID).Delete(&models.Parameter{}).Error; err != nil {
			return err
		}
		if err := tx.Where("source_control_id = ? OR target_control_id = ?", controlID, controlID).
			Delete(&models.ControlLink{}).Error; err != nil {
			return err
		}
		// orphan any enhancements of this control rather than deleting them
		if err := tx.Model(&models.Control{}).
			Where("base_control_id = ?", controlID).
			Update("base_control_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Control{}, "id = ?", controlID).Error
	})
}
