package catalog

import (
	"errors"
	"fmt"
)

// ErrDuplicateLink rejects a (source, target, rel) triple that already exists.
var ErrDuplicateLink = errors.New("duplicate control link")

// MalformedCatalogError reports a structural violation in an imported
// catalog document. ControlCode is empty for catalog-level problems.
type MalformedCatalogError struct {
	ControlCode string
	Reason      string
}

func (e *MalformedCatalogError) Error() string {
	if e.ControlCode == "" {
		return fmt.Sprintf("malformed catalog: %s", e.Reason)
	}
	return fmt.Sprintf("malformed catalog: control %s: %s", e.ControlCode, e.Reason)
}
