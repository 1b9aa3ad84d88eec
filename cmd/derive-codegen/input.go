package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/colelawrence/derive-codegen/internal/config"
	"github.com/colelawrence/derive-codegen/internal/pipeline"
	"github.com/colelawrence/derive-codegen/internal/selector"
)

var inputCmd = &cobra.Command{
	Use:   "input [flags] [declarations...]",
	Short: "Print the generator Input as JSON",
	Long: `Convert declaration documents and print the Input a generator would receive.
Without arguments the [input] section of codegen.toml is used. --generator
applies that generator's tags and filter.`,
	RunE: runInput,
}

func init() {
	inputCmd.Flags().StringP("manifest", "m", "", "path to codegen.toml (default: search upwards)")
	inputCmd.Flags().String("traced", "", "traced registry to merge")
	inputCmd.Flags().String("source-root", "", "directory declaration files are relative to")
	inputCmd.Flags().Bool("require-complete", false, "fail when a type stays Incomplete")
	inputCmd.Flags().Bool("strict", false, "fail on any extraction error")
	inputCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	inputCmd.Flags().String("generator", "", "select declarations the way this generator would")
	inputCmd.Flags().StringSlice("tags", nil, "only include declarations with these tags")
	inputCmd.Flags().String("filter", "", "expression declarations must satisfy")
	inputCmd.Flags().Bool("compact", false, "print JSON on one line")
	addDiagFlags(inputCmd)
}

func runInput(cmd *cobra.Command, args []string) error {
	opts, err := readDiagOptions(cmd)
	if err != nil {
		return err
	}
	req, sel, err := inputRequest(cmd, args)
	if err != nil {
		return err
	}
	if opts.max > 0 && req.Convert.MaxDiagnostics == 0 {
		req.Convert.MaxDiagnostics = opts.max
	}

	prepared, err := pipeline.Prepare(cmd.Context(), &req)
	if prepared != nil {
		if perr := printDiagnostics(prepared.Bag, prepared.Files, opts); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return err
	}
	if req.Convert.Strict && prepared.Bag.HasErrors() {
		return fmt.Errorf("errors reported in strict mode")
	}
	input, err := sel.Apply(prepared.Input, prepared.Synthesized)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(input)
}

// inputRequest starts from the manifest when no documents are given and
// lets flags override it.
func inputRequest(cmd *cobra.Command, args []string) (pipeline.PrepareRequest, *selector.Selection, error) {
	flags := cmd.Flags()
	var req pipeline.PrepareRequest
	var m *config.Manifest
	if len(args) == 0 || flags.Changed("manifest") || flags.Changed("generator") {
		var err error
		if m, err = loadManifest(cmd); err != nil {
			return req, nil, err
		}
		req = pipeline.PrepareFromManifest(m)
	}
	if len(args) > 0 {
		req.Declarations = args
		if req.Convert.SourceRoot == "" {
			if wd, err := os.Getwd(); err == nil {
				req.Convert.SourceRoot = wd
			}
		}
	}
	if v, _ := flags.GetString("traced"); flags.Changed("traced") {
		req.Traced = v
	}
	if v, _ := flags.GetString("source-root"); flags.Changed("source-root") {
		req.Convert.SourceRoot = v
	}
	if v, _ := flags.GetBool("require-complete"); flags.Changed("require-complete") {
		req.RequireComplete = v
	}
	if v, _ := flags.GetBool("strict"); flags.Changed("strict") {
		req.Convert.Strict = v
	}
	if v, _ := flags.GetInt("jobs"); flags.Changed("jobs") {
		req.Convert.Jobs = v
	}

	tags, _ := flags.GetStringSlice("tags")
	filter, _ := flags.GetString("filter")
	if name, _ := flags.GetString("generator"); name != "" {
		g, err := m.Generator(name)
		if err != nil {
			return req, nil, &exitError{code: exitUsage, err: err}
		}
		if !flags.Changed("tags") {
			tags = g.Tags
		}
		if !flags.Changed("filter") {
			filter = g.Filter
		}
	}
	sel, err := selector.New(tags, filter)
	if err != nil {
		return req, nil, usageErrorf("%v", err)
	}
	return req, sel, nil
}
