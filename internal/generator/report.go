package generator

import (
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

// Report forwards the errors and warnings a generator returned. They never
// abort the run. The first label becomes the primary location and every label
// is kept as a note.
func Report(r diag.Reporter, generator string, out *schema.Output) {
	if r == nil || out == nil {
		return
	}
	for _, m := range out.Errors {
		reportMessage(r, diag.SevError, diag.GenReportedError, generator, m)
	}
	for _, m := range out.Warnings {
		reportMessage(r, diag.SevWarning, diag.GenReportedWarn, generator, m)
	}
	if len(out.Files) == 0 && len(out.Errors) == 0 {
		diag.ReportInfo(r, diag.GenNoFiles, "", "generator returned no files").WithSubject(generator).Emit()
	}
}

func reportMessage(r diag.Reporter, sev diag.Severity, code diag.Code, generator string, m schema.OutputMessage) {
	var primary source.LocationID
	if len(m.Labels) > 0 {
		primary = m.Labels[0].Location
	}
	b := diag.NewReportBuilder(r, sev, code, primary, m.Message).WithSubject(generator)
	for _, l := range m.Labels {
		b.WithNote(l.Location, l.Text)
	}
	b.Emit()
}
