package diag

import (
	"fmt"
	"strings"

	"github.com/colelawrence/derive-codegen/internal/source"
)

// FormatShort renders one line per diagnostic:
//
//	error CNV1001 src/lib.rs:3:4 message
//
// Newlines inside messages are folded to spaces. Items are rendered in the
// order given; call Bag.Sort first for stable output.
func FormatShort(items []Diagnostic, includeNotes bool) string {
	var b strings.Builder
	for i, d := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeShort(&b, severityLabel(d.Severity), d.Code, d.Primary, d.Subject, d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			b.WriteByte('\n')
			writeShort(&b, "note", d.Code, n.Location, "", n.Msg)
		}
	}
	return b.String()
}

func writeShort(b *strings.Builder, label string, code Code, loc source.LocationID, subject, msg string) {
	fmt.Fprintf(b, "%s %s %s", label, code.ID(), shortLocation(loc))
	if subject != "" {
		fmt.Fprintf(b, " [%s]", subject)
	}
	b.WriteByte(' ')
	b.WriteString(strings.Join(strings.Fields(msg), " "))
}

func shortLocation(loc source.LocationID) string {
	pos, ok := source.ParseLocation(loc)
	if !ok {
		if loc == "" {
			return "-"
		}
		return string(loc)
	}
	if pos.HasCol {
		return fmt.Sprintf("%s:%d:%d", pos.File, pos.Line, pos.Col)
	}
	return fmt.Sprintf("%s:%d", pos.File, pos.Line)
}

func severityLabel(s Severity) string {
	return strings.ToLower(s.String())
}
