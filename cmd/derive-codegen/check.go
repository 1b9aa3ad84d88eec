package main

import (
	"github.com/spf13/cobra"

	"github.com/colelawrence/derive-codegen/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [generator...]",
	Short: "Verify generated files are up to date",
	Long: `Run generators without writing anything and compare their output with the
files on disk. Exits with status 3 when any file is missing or differs.
Generators with check = false are skipped unless named.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTargets(cmd, args, pipeline.DestCheck)
	},
}

func init() {
	checkCmd.Flags().StringP("manifest", "m", "", "path to codegen.toml (default: search upwards)")
	checkCmd.Flags().Bool("no-cache", false, "always run generators")
	checkCmd.Flags().Bool("drop-cache", false, "clear the output cache before running")
	checkCmd.Flags().Bool("generator-stderr", true, "mirror generator stderr while it runs")
	checkCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	addDiagFlags(checkCmd)
}
