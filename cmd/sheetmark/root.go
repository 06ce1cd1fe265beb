package main

import (
	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sheetmark",
	Short: "Grading rubric editor for spreadsheet assignments",
	Long: `Sheetmark is a rubric editor and grading front end for spreadsheet
assignments. It serves a browser-based editor for building grading
rubrics and brokers grading runs to the grading service.

Features:
  - Rubric document editing with per-sheet checks and section ordering
  - Whole-class grading against an answer key workbook
  - Rubric drafting from a key workbook or hand-picked cell ranges
  - A local library of saved rubrics`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.sheetmark/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "sheetmark home directory (default: ~/.sheetmark)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
