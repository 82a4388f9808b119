package catalog

import (
	"sort"

	"atoforge/internal/models"

	"gorm.io/gorm"
)

// WalkParts returns the control's part tree flattened depth-first, pre-order:
// each part before its children, siblings in import order. Used to render and
// export implementation statements.
func WalkParts(db *gorm.DB, controlID string) ([]models.Part, error) {
	var parts []models.Part
	if err := db.Where("control_id = ?", controlID).Find(&parts).Error; err != nil {
		return nil, err
	}

	children := map[string][]models.Part{}
	var roots []models.Part
	for _, p := range parts {
		if p.ParentID == nil {
			roots = append(roots, p)
		} else {
			children[*p.ParentID] = append(children[*p.ParentID], p)
		}
	}
	sortParts(roots)
	for k := range children {
		sortParts(children[k])
	}

	out := make([]models.Part, 0, len(parts))
	var walk func(p models.Part)
	walk = func(p models.Part) {
		out = append(out, p)
		for _, child := range children[p.ID] {
			walk(child)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out, nil
}

func sortParts(ps []models.Part) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Seq < ps[j].Seq })
}
