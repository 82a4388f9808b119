package catalog

import (
	"sort"
	"strconv"
	"strings"

	"atoforge/internal/models"

	"gorm.io/gorm"
)

// ResolveEnhancements groups every enhancement control in the catalog under
// its base control's code. Within each group enhancements sort by the numeric
// suffix of their code ascending ("AC-2.2" before "AC-2.10"); non-numeric
// suffixes sort lexicographically after all numeric ones. This ordering is
// what displays and the coverage check rely on.
func ResolveEnhancements(db *gorm.DB, catalogID string) (map[string][]models.Control, error) {
	var controls []models.Control
	if err := db.Where("catalog_id = ?", catalogID).Order("seq asc").Find(&controls).Error; err != nil {
		return nil, err
	}

	codeByID := make(map[string]string, len(controls))
	for _, c := range controls {
		codeByID[c.ID] = c.Code
	}

	out := map[string][]models.Control{}
	for _, c := range controls {
		if c.BaseControlID == nil {
			continue
		}
		baseCode, ok := codeByID[*c.BaseControlID]
		if !ok {
			continue // dangling base, cannot happen for an imported catalog
		}
		out[baseCode] = append(out[baseCode], c)
	}

	for baseCode, enhs := range out {
		sortEnhancements(baseCode, enhs)
	}
	return out, nil
}

func sortEnhancements(baseCode string, enhs []models.Control) {
	sort.SliceStable(enhs, func(i, j int) bool {
		si, iNum := enhancementSuffix(baseCode, enhs[i].Code)
		sj, jNum := enhancementSuffix(baseCode, enhs[j].Code)
		if iNum != jNum {
			return iNum // numeric before non-numeric
		}
		if iNum {
			ni, _ := strconv.Atoi(si)
			nj, _ := strconv.Atoi(sj)
			if ni != nj {
				return ni < nj
			}
		}
		return si < sj
	})
}

// enhancementSuffix extracts the part of an enhancement code after the base
// code, e.g. ("AC-2", "AC-2.10") -> ("10", true).
func enhancementSuffix(baseCode, code string) (string, bool) {
	suffix := strings.TrimPrefix(code, baseCode)
	suffix = strings.TrimLeft(suffix, ".-(")
	suffix = strings.TrimRight(suffix, ")")
	if suffix == "" {
		return code, false
	}
	_, err := strconv.Atoi(suffix)
	return suffix, err == nil
}
