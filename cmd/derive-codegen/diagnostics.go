package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/diagfmt"
	"github.com/colelawrence/derive-codegen/internal/source"
	"github.com/colelawrence/derive-codegen/internal/version"
)

type diagOptions struct {
	format   string
	notes    bool
	fullPath bool
	quiet    bool
	max      int
}

func addDiagFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json|sarif)")
	cmd.Flags().Bool("with-notes", true, "include diagnostic notes")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in diagnostics")
}

func readDiagOptions(cmd *cobra.Command) (diagOptions, error) {
	var opts diagOptions
	var err error
	if opts.format, err = cmd.Flags().GetString("format"); err != nil {
		return opts, err
	}
	opts.format = strings.ToLower(opts.format)
	switch opts.format {
	case "pretty", "short", "json", "sarif":
	default:
		return opts, usageErrorf("unknown --format %q (expected pretty|short|json|sarif)", opts.format)
	}
	if opts.notes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return opts, err
	}
	if opts.fullPath, err = cmd.Flags().GetBool("fullpath"); err != nil {
		return opts, err
	}
	if opts.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return opts, err
	}
	if opts.max, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err != nil {
		return opts, err
	}
	return opts, nil
}

// printDiagnostics renders bag to stderr. Machine formats always print,
// even an empty bag, so tools get a parseable document.
func printDiagnostics(bag *diag.Bag, fs *source.FileSet, opts diagOptions) error {
	if bag == nil {
		bag = diag.NewBag(1)
	}
	bag.Dedup()
	bag.Sort()
	pathMode := diagfmt.PathModeAuto
	if opts.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	var w io.Writer = os.Stderr
	switch opts.format {
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			Max:              opts.max,
			IncludeNotes:     opts.notes,
		})
	case "sarif":
		return diagfmt.Sarif(w, bag, fs, diagfmt.SarifRunMeta{
			ToolName:       "derive-codegen",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		})
	}
	if bag.Len() == 0 {
		return nil
	}
	if opts.quiet && !bag.HasErrors() {
		return nil
	}
	if opts.format == "short" {
		_, err := fmt.Fprintln(w, diag.FormatShort(bag.Items(), opts.notes))
		return err
	}
	diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
		Color:     colorEnabled(),
		Context:   1,
		PathMode:  pathMode,
		ShowNotes: opts.notes,
	})
	return nil
}
