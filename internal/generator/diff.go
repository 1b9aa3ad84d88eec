package generator

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/colelawrence/derive-codegen/internal/diag"
)

const diffContext = 3

// unifiedDiff renders a line diff from have to want. Long unchanged runs are
// cut down to diffContext lines on each side.
func unifiedDiff(path, have, want string) string {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(have, want)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	sb.WriteString("--- " + path + "\n")
	sb.WriteString("+++ " + path + " (generated)\n")
	for i, d := range diffs {
		body := splitLines(d.Text)
		switch d.Type {
		case diffpatch.DiffInsert:
			writeLines(&sb, "+", body)
		case diffpatch.DiffDelete:
			writeLines(&sb, "-", body)
		case diffpatch.DiffEqual:
			first, last := i == 0, i == len(diffs)-1
			switch {
			case first && last:
			case first:
				writeLines(&sb, " ", tail(body, diffContext))
			case last:
				writeLines(&sb, " ", head(body, diffContext))
			case len(body) > 2*diffContext:
				writeLines(&sb, " ", head(body, diffContext))
				sb.WriteString("@@\n")
				writeLines(&sb, " ", tail(body, diffContext))
			default:
				writeLines(&sb, " ", body)
			}
		}
	}
	return sb.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\n")
	}
	return parts
}

func writeLines(sb *strings.Builder, prefix string, lines []string) {
	for _, l := range lines {
		sb.WriteString(prefix)
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
}

func head(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

func tail(lines []string, n int) []string {
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}

// ReportTo emits one warning per drifted file.
func (c *CheckReport) ReportTo(r diag.Reporter, generator string) {
	for _, d := range c.Drifted {
		msg := d.Path + " is out of date"
		if d.Missing {
			msg = d.Path + " has not been generated"
		}
		diag.ReportWarning(r, diag.GenOutOfDate, "", msg).WithSubject(generator).Emit()
	}
}
