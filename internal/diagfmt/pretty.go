package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/source"
)

type palette struct {
	sev    map[diag.Severity]*color.Color
	code   *color.Color
	path   *color.Color
	gutter *color.Color
	caret  *color.Color
	note   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		code:   color.New(color.Faint),
		path:   color.New(color.FgBlue),
		gutter: color.New(color.FgBlue, color.Bold),
		caret:  color.New(color.FgRed, color.Bold),
		note:   color.New(color.FgGreen),
	}
	all := []*color.Color{p.code, p.path, p.gutter, p.caret, p.note}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty renders diagnostics for humans. It walks bag.Items() in order
// (call bag.Sort() first). For each diagnostic it prints
//
//	<SEV> <CODE> [subject]: <message>
//	  --> <path>:<line>:<col>
//
// followed by the source line with the span underlined when the file is in
// fs, then notes when enabled.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		sev := p.sev[d.Severity]
		if sev == nil {
			sev = p.sev[diag.SevInfo]
		}
		header := sev.Sprint(d.Severity.String()) + " " + p.code.Sprint(d.Code.ID())
		if d.Subject != "" {
			header += " [" + d.Subject + "]"
		}
		fmt.Fprintf(w, "%s: %s\n", header, d.Message)
		if d.Primary != "" {
			fmt.Fprintf(w, "  --> %s\n", p.path.Sprint(displayLocation(d.Primary, fs, opts.PathMode)))
			writeExcerpt(w, p, d.Primary, fs, opts.Context)
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if n.Location == "" {
				fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
				continue
			}
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), displayLocation(n.Location, fs, opts.PathMode), n.Msg)
		}
	}
}

func displayLocation(loc source.LocationID, fs *source.FileSet, mode PathMode) string {
	pos, ok := source.ParseLocation(loc)
	if !ok {
		return string(loc)
	}
	path := formatPath(pos.File, fs, mode)
	if pos.HasCol {
		return fmt.Sprintf("%s:%d:%d", path, pos.Line, pos.Col)
	}
	return fmt.Sprintf("%s:%d", path, pos.Line)
}

// writeExcerpt prints the indexed line of the span start. Override lines
// are not trusted for the excerpt; the byte span is.
func writeExcerpt(w io.Writer, p palette, loc source.LocationID, fs *source.FileSet, context int8) {
	if fs == nil {
		return
	}
	pos, ok := source.ParseLocation(loc)
	if !ok {
		return
	}
	f, ok := fs.Get(pos.File)
	if !ok || f.Missing() || pos.Span.Start > f.Size {
		return
	}
	lc := f.Lines.LineCol(pos.Span.Start)
	first := lc.Line
	if context > 0 && uint32(context) < first {
		first -= uint32(context)
	} else if context > 0 {
		first = 1
	}
	last := lc.Line
	if context > 0 {
		last += uint32(context)
	}
	width := len(fmt.Sprint(last))
	blank := strings.Repeat(" ", width)
	fmt.Fprintf(w, " %s %s\n", blank, p.gutter.Sprint("|"))
	for line := first; line <= last; line++ {
		text, ok := f.LineText(line)
		if !ok {
			break
		}
		fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprintf("%*d", width, line), p.gutter.Sprint("|"), text)
		if line != lc.Line {
			continue
		}
		n := pos.Span.End - pos.Span.Start
		if rest := uint32(len(text)) - min(lc.Col, uint32(len(text))); n > rest {
			n = rest
		}
		n = max(n, 1)
		fmt.Fprintf(w, " %s %s %s%s\n", blank, p.gutter.Sprint("|"), strings.Repeat(" ", int(lc.Col)), p.caret.Sprint(strings.Repeat("^", int(n))))
	}
}
