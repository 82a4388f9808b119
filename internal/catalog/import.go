package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"atoforge/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Raw OSCAL-style catalog document shape. Only the fields the domain model
// needs are decoded; everything else in the document is ignored.
type rawDocument struct {
	Catalog *rawCatalog `json:"catalog"`
}

type rawCatalog struct {
	ID       string `json:"id"`
	Metadata struct {
		Title        string `json:"title"`
		Version      string `json:"version"`
		LastModified string `json:"last-modified"`
	} `json:"metadata"`
	Groups []rawGroup `json:"groups"`
}

type rawGroup struct {
	ID       string       `json:"id"`
	Class    string       `json:"class"`
	Title    string       `json:"title"`
	Controls []rawControl `json:"controls"`
}

type rawControl struct {
	ID       string       `json:"id"`
	Class    string       `json:"class"`
	Title    string       `json:"title"`
	Params   []rawParam   `json:"params"`
	Parts    []rawPart    `json:"parts"`
	Links    []rawLink    `json:"links"`
	Controls []rawControl `json:"controls"` // enhancements, one level only
}

type rawParam struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type rawPart struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Prose string    `json:"prose"`
	Parts []rawPart `json:"parts"`
}

type rawLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// Import parses an OSCAL-style JSON catalog and persists it as one immutable
// Catalog row set. The whole import runs in a single transaction: a
// MalformedCatalogError leaves nothing behind.
func Import(db *gorm.DB, raw []byte) (*models.Catalog, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &MalformedCatalogError{Reason: "invalid JSON: " + err.Error()}
	}
	if doc.Catalog == nil {
		return nil, &MalformedCatalogError{Reason: "missing top-level catalog object"}
	}
	if doc.Catalog.Metadata.Title == "" {
		return nil, &MalformedCatalogError{Reason: "catalog has no title"}
	}

	lastModified := time.Now().UTC()
	if doc.Catalog.Metadata.LastModified != "" {
		if ts, err := time.Parse(time.RFC3339, doc.Catalog.Metadata.LastModified); err == nil {
			lastModified = ts
		}
	}

	cat := &models.Catalog{
		ID:           uuid.NewString(),
		Title:        doc.Catalog.Metadata.Title,
		Version:      doc.Catalog.Metadata.Version,
		LastModified: lastModified,
	}

	b := &importBatch{
		cat:     cat,
		byCode:  map[string]int{},
		pending: map[string][]rawLink{},
	}

	for gi, rg := range doc.Catalog.Groups {
		if rg.ID == "" {
			return nil, &MalformedCatalogError{Reason: "group without id"}
		}
		group := models.ControlGroup{
			ID:        uuid.NewString(),
			CatalogID: cat.ID,
			Code:      rg.ID,
			Title:     rg.Title,
			Class:     rg.Class,
			Seq:       gi,
		}
		b.groups = append(b.groups, group)

		for _, rc := range rg.Controls {
			if err := b.addControl(group.ID, rc, nil); err != nil {
				return nil, err
			}
		}
	}

	// Bases and intra-catalog links resolve against the full batch, so
	// unresolved enhancement bases surface before anything is written.
	if err := b.resolveBases(); err != nil {
		return nil, err
	}
	if err := b.resolveLinks(); err != nil {
		return nil, err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cat).Error; err != nil {
			return err
		}
		if len(b.groups) > 0 {
			if err := tx.Create(&b.groups).Error; err != nil {
				return err
			}
		}
		if len(b.controls) > 0 {
			if err := tx.Create(&b.controls).Error; err != nil {
				return err
			}
		}
		if len(b.params) > 0 {
			if err := tx.Create(&b.params).Error; err != nil {
				return err
			}
		}
		if len(b.parts) > 0 {
			if err := tx.Create(&b.parts).Error; err != nil {
				return err
			}
		}
		if len(b.links) > 0 {
			if err := tx.Create(&b.links).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

type importBatch struct {
	cat      *models.Catalog
	groups   []models.ControlGroup
	controls []models.Control
	params   []models.Parameter
	parts    []models.Part
	links    []models.ControlLink

	byCode  map[string]int
	pending map[string][]rawLink // control id -> raw links to resolve later
}

func (b *importBatch) addControl(groupID string, rc rawControl, baseID *string) error {
	if rc.ID == "" {
		return &MalformedCatalogError{Reason: "control without id"}
	}
	code := normalizeCode(rc.ID)
	if _, exists := b.byCode[strings.ToLower(code)]; exists {
		return &MalformedCatalogError{ControlCode: code, Reason: "duplicate control id"}
	}

	ctl := models.Control{
		ID:            uuid.NewString(),
		CatalogID:     b.cat.ID,
		GroupID:       groupID,
		Code:          code,
		Title:         rc.Title,
		Class:         rc.Class,
		Seq:           len(b.controls),
		BaseControlID: baseID,
	}
	b.controls = append(b.controls, ctl)
	b.byCode[strings.ToLower(code)] = len(b.controls) - 1

	for _, rp := range rc.Params {
		if rp.ID == "" {
			return &MalformedCatalogError{ControlCode: code, Reason: "parameter without id"}
		}
		b.params = append(b.params, models.Parameter{
			ID:        uuid.NewString(),
			ControlID: ctl.ID,
			Code:      rp.ID,
			Label:     rp.Label,
		})
	}

	for pi, part := range rc.Parts {
		if err := b.addPart(ctl.ID, part, nil, pi); err != nil {
			return err
		}
	}

	if len(rc.Links) > 0 {
		b.pending[ctl.ID] = rc.Links
	}

	for _, enh := range rc.Controls {
		if baseID != nil {
			return &MalformedCatalogError{
				ControlCode: normalizeCode(enh.ID),
				Reason:      "enhancement nested under enhancement " + code,
			}
		}
		if err := b.addControl(groupID, enh, &ctl.ID); err != nil {
			return err
		}
	}
	return nil
}

func (b *importBatch) addPart(controlID string, rp rawPart, parentID *string, seq int) error {
	if rp.Name == "" {
		return &MalformedCatalogError{Reason: "part without name in control"}
	}
	p := models.Part{
		ID:        uuid.NewString(),
		ControlID: controlID,
		ParentID:  parentID,
		Code:      rp.ID,
		Name:      rp.Name,
		Prose:     rp.Prose,
		Seq:       seq,
	}
	b.parts = append(b.parts, p)

	for ci, child := range rp.Parts {
		if err := b.addPart(controlID, child, &p.ID, ci); err != nil {
			return err
		}
	}
	return nil
}

// resolveBases links flat-form enhancements (a group-level control with a
// dotted code such as "AC-2.1") to their base control. Resolution runs in two
// passes so the one-level-deep invariant does not depend on document order:
// first every base reference is resolved, then no resolved base may itself be
// an enhancement.
func (b *importBatch) resolveBases() error {
	for i := range b.controls {
		ctl := &b.controls[i]
		if ctl.BaseControlID != nil {
			continue
		}
		dot := strings.LastIndex(ctl.Code, ".")
		if dot <= 0 {
			continue
		}
		baseIdx, ok := b.byCode[strings.ToLower(ctl.Code[:dot])]
		if !ok {
			return &MalformedCatalogError{
				ControlCode: ctl.Code,
				Reason:      "enhancement base " + ctl.Code[:dot] + " not found in catalog",
			}
		}
		ctl.BaseControlID = &b.controls[baseIdx].ID
	}

	byID := make(map[string]*models.Control, len(b.controls))
	for i := range b.controls {
		byID[b.controls[i].ID] = &b.controls[i]
	}
	for i := range b.controls {
		ctl := &b.controls[i]
		if ctl.BaseControlID == nil {
			continue
		}
		base, ok := byID[*ctl.BaseControlID]
		if ok && base.BaseControlID != nil {
			return &MalformedCatalogError{
				ControlCode: ctl.Code,
				Reason:      "enhancement base " + base.Code + " is itself an enhancement",
			}
		}
	}
	return nil
}

// resolveLinks turns "#control-id" hrefs into ControlLink rows. Links to
// targets outside the batch are dropped; they refer to other documents.
func (b *importBatch) resolveLinks() error {
	for sourceID, raws := range b.pending {
		for _, rl := range raws {
			if !strings.HasPrefix(rl.Href, "#") {
				continue
			}
			targetIdx, ok := b.byCode[strings.ToLower(normalizeCode(strings.TrimPrefix(rl.Href, "#")))]
			if !ok {
				continue
			}
			target := b.controls[targetIdx]
			rel := rl.Rel
			if rel == "" {
				rel = "related"
			}
			b.links = append(b.links, models.ControlLink{
				ID:              uuid.NewString(),
				SourceControlID: sourceID,
				TargetControlID: target.ID,
				Rel:             rel,
				Href:            rl.Href,
			})
		}
	}
	return nil
}

// normalizeCode maps OSCAL ids like "ac-2.1" or "AC-2(1)" onto the canonical
// "AC-2.1" display form.
func normalizeCode(id string) string {
	code := strings.ToUpper(strings.TrimSpace(id))
	code = strings.ReplaceAll(code, "(", ".")
	code = strings.ReplaceAll(code, ")", "")
	return code
}
