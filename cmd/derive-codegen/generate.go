package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colelawrence/derive-codegen/internal/config"
	"github.com/colelawrence/derive-codegen/internal/dcache"
	"github.com/colelawrence/derive-codegen/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate [flags] [generator...]",
	Short: "Run generators and write their files",
	Long: `Run every [[generator]] of codegen.toml, or only the named ones, and write
the files they return under each generator's output directory.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringP("manifest", "m", "", "path to codegen.toml (default: search upwards)")
	generateCmd.Flags().String("dest", "write", "where files go (write|print|check)")
	generateCmd.Flags().Bool("print", false, "print files to stdout instead of writing them")
	generateCmd.Flags().Bool("no-cache", false, "always run generators")
	generateCmd.Flags().Bool("drop-cache", false, "clear the output cache before running")
	generateCmd.Flags().Bool("generator-stderr", true, "mirror generator stderr while it runs")
	generateCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	addDiagFlags(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	destValue, err := cmd.Flags().GetString("dest")
	if err != nil {
		return err
	}
	printFlag, err := cmd.Flags().GetBool("print")
	if err != nil {
		return err
	}
	if printFlag {
		if cmd.Flags().Changed("dest") && destValue != "print" {
			return usageErrorf("--print conflicts with --dest=%s", destValue)
		}
		destValue = "print"
	}
	dest, err := pipeline.ParseDestination(destValue)
	if err != nil {
		return usageErrorf("%v", err)
	}
	return runTargets(cmd, args, dest)
}

// runTargets is shared by generate and check.
func runTargets(cmd *cobra.Command, names []string, dest pipeline.Destination) error {
	opts, err := readDiagOptions(cmd)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	m, err := loadManifest(cmd)
	if err != nil {
		return err
	}
	targets, err := pipeline.TargetsFromManifest(m, names, dest)
	if err != nil {
		if errors.Is(err, config.ErrUnknownGenerator) {
			return &exitError{code: exitUsage, err: err}
		}
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no generators to run")
	}

	req := &pipeline.Request{
		PrepareRequest: pipeline.PrepareFromManifest(m),
		Targets:        targets,
		Destination:    dest,
		Stdout:         cmd.OutOrStdout(),
	}
	if opts.max > 0 && req.Convert.MaxDiagnostics == 0 {
		req.Convert.MaxDiagnostics = opts.max
	}
	if mirror, _ := cmd.Flags().GetBool("generator-stderr"); mirror {
		req.GeneratorStderr = os.Stderr
	}
	if req.Cache, err = openCache(cmd, m, targets); err != nil {
		return err
	}

	var res *pipeline.Result
	if shouldUseTUI(mode, dest == pipeline.DestPrint) {
		// the progress view owns the terminal; stderr lines would tear it
		req.GeneratorStderr = nil
		res, err = runWithUI(cmd.Context(), cmd.CommandPath(), req)
	} else {
		res, err = pipeline.Run(cmd.Context(), req)
	}

	if res != nil && res.Prepared != nil {
		if perr := printDiagnostics(res.Bag, res.Files, opts); perr != nil && err == nil {
			err = perr
		}
		if showTimings {
			printStageTimings(os.Stderr, res.Timings, res.Timer)
		}
	}
	if err != nil {
		return err
	}
	if !opts.quiet {
		printTargetSummary(cmd, m, res, dest)
	}
	if res.Bag.HasErrors() && m.Input.Strict {
		return fmt.Errorf("errors reported in strict mode")
	}
	if dest == pipeline.DestCheck && res.Drifted() {
		return &exitError{code: exitDrift, err: fmt.Errorf("generated files are out of date; run derive-codegen generate")}
	}
	return nil
}

func loadManifest(cmd *cobra.Command) (*config.Manifest, error) {
	path, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return nil, err
	}
	var m *config.Manifest
	if path != "" {
		m, err = config.Load(path)
	} else {
		m, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}
	if err := m.ApplyEnv(); err != nil {
		return nil, err
	}
	return m, nil
}

func openCache(cmd *cobra.Command, m *config.Manifest, targets []pipeline.Target) (*dcache.Cache, error) {
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	drop, err := cmd.Flags().GetBool("drop-cache")
	if err != nil {
		return nil, err
	}
	wanted := false
	for _, t := range targets {
		wanted = wanted || t.Cache
	}
	if noCache || (!wanted && !drop) {
		return nil, nil
	}
	var cache *dcache.Cache
	if m.Cache.Dir != "" {
		cache, err = dcache.Open(m.Cache.Dir)
	} else {
		cache, err = dcache.OpenDefault("derive-codegen")
	}
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if drop {
		if err := cache.DropAll(); err != nil {
			return nil, fmt.Errorf("drop cache: %w", err)
		}
	}
	return cache, nil
}

func printTargetSummary(cmd *cobra.Command, m *config.Manifest, res *pipeline.Result, dest pipeline.Destination) {
	if dest == pipeline.DestPrint {
		return
	}
	out := cmd.ErrOrStderr()
	for _, t := range res.Targets {
		suffix := ""
		if t.Cached {
			suffix = " (cached)"
		}
		switch {
		case t.Written != nil:
			fmt.Fprintf(out, "%s: wrote %d files, %d bytes to %s%s\n",
				t.Name, len(t.Written.Files), t.Written.Bytes(), relativeTo(m.Dir, t.Written.Root), suffix)
		case t.Check != nil && t.Check.Clean():
			fmt.Fprintf(out, "%s: %d files up to date%s\n", t.Name, t.Check.Checked, suffix)
		case t.Check != nil:
			fmt.Fprintf(out, "%s: %d of %d files out of date%s\n", t.Name, len(t.Check.Drifted), t.Check.Checked, suffix)
		}
	}
}

func relativeTo(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
