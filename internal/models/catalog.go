package models

import "time"

// Catalog is the root of one imported control catalog. A catalog is never
// mutated after import; a new version is a new Catalog row set.
type Catalog struct {
	ID           string `gorm:"primaryKey;size:36"`
	Title        string `gorm:"size:255;not null"`
	Version      string `gorm:"size:64"`
	LastModified time.Time
	CreatedAt    time.Time

	Groups []ControlGroup `gorm:"constraint:OnDelete:CASCADE"`
}

type ControlGroup struct {
	ID        string `gorm:"primaryKey;size:36"`
	CatalogID string `gorm:"size:36;index;not null"`

	Code  string `gorm:"size:32"` // e.g. "ac"
	Title string `gorm:"size:255;not null"`
	Class string `gorm:"size:64"`
	Seq   int    // insertion order within the catalog, display only

	Controls []Control `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// Control is one security requirement. BaseControlID, when set, marks this
// control as an enhancement of another control in the same catalog;
// enhancements are exactly one level deep.
type Control struct {
	ID        string `gorm:"primaryKey;size:36"`
	CatalogID string `gorm:"size:36;index;not null"`
	GroupID   string `gorm:"size:36;index;not null"`

	Code  string `gorm:"size:32;not null"` // catalog-assigned id, e.g. "AC-2.1"
	Title string `gorm:"size:255;not null"`
	Class string `gorm:"size:64"`
	Seq   int

	BaseControlID *string `gorm:"size:36;index"`

	Params []Parameter `gorm:"foreignKey:ControlID;constraint:OnDelete:CASCADE"`
	Parts  []Part      `gorm:"foreignKey:ControlID;constraint:OnDelete:CASCADE"`
}

// Parameter is a fill-in value referenced by the control prose.
type Parameter struct {
	ID        string `gorm:"primaryKey;size:36"`
	ControlID string `gorm:"size:36;index;not null"`

	Code  string `gorm:"size:64;not null"` // e.g. "ac-2_prm_1"
	Label string `gorm:"size:255"`
}

// Part is one node of a control's statement/guidance tree. ParentID forms a
// tree within a single control; children cascade on parent delete.
type Part struct {
	ID        string  `gorm:"primaryKey;size:36"`
	ControlID string  `gorm:"size:36;index;not null"`
	ParentID  *string `gorm:"size:36;index"`

	Code  string `gorm:"size:64"`          // e.g. "ac-2_smt.a"
	Name  string `gorm:"size:64;not null"` // role: "statement", "guidance"
	Prose string `gorm:"type:text"`
	Seq   int
}

// ControlLink is a directed, typed edge between two controls.
type ControlLink struct {
	ID              string `gorm:"primaryKey;size:36"`
	SourceControlID string `gorm:"size:36;index;not null"`
	TargetControlID string `gorm:"size:36;index;not null"`

	Rel  string `gorm:"size:64;not null"` // "related", "incorporated-into", ...
	Href string `gorm:"size:512"`

	CreatedAt time.Time
}
