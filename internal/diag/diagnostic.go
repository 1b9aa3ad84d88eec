package diag

import (
	"github.com/colelawrence/derive-codegen/internal/source"
)

type Note struct {
	Location source.LocationID
	Msg      string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.LocationID
	Subject  string
	Notes    []Note
}
