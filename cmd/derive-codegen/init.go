package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/colelawrence/derive-codegen/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter codegen.toml",
	Long: `Create codegen.toml in [path], or the current directory, with an [input]
section and one example [[generator]]. The directory is created if needed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		path, err := config.Init(dir)
		if err != nil {
			return err
		}
		shown := path
		if wd, err := os.Getwd(); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				shown = relativeTo(wd, abs)
			}
		}
		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", shown)
		}
		return nil
	},
}
