package main

import (
	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Sheetmark server via HTTP.

These commands require a running server (sheetmark serve).
Use --server to specify a custom server URL.

Examples:
  sheetmark api health                  # Check server health
  sheetmark api sessions create         # Start an editing session
  sheetmark api library list            # List saved rubrics`,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Editing session commands",
}

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Rubric editing commands",
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Saved rubric library commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:4477", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Sessions as subcommand group
	sessionsCmd.AddCommand((&endpoints.CreateSessionEndpoint{}).Command(getServerURL))
	sessionsCmd.AddCommand((&endpoints.GetSessionEndpoint{}).Command(getServerURL))
	sessionsCmd.AddCommand((&endpoints.DeleteSessionEndpoint{}).Command(getServerURL))
	sessionsCmd.AddCommand((&endpoints.ExportRubricEndpoint{}).Command(getServerURL))
	sessionsCmd.AddCommand((&endpoints.ImportRubricEndpoint{}).Command(getServerURL))

	// Rubric editing as subcommand group
	rubricCmd.AddCommand((&endpoints.AddSheetEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.DeleteSheetEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.RenameSheetEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.AddRuleEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.PatchRuleEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.DeleteRuleEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.DuplicateRuleEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.ListRulesEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.ListSectionsEndpoint{}).Command(getServerURL))
	rubricCmd.AddCommand((&endpoints.BulkMoveEndpoint{}).Command(getServerURL))

	// Grading and generation at top level of api
	apiCmd.AddCommand((&endpoints.GradeEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ResultsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.AutoRubricEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.FromRangesEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.KeySheetsEndpoint{}).Command(getServerURL))

	// Library as subcommand group
	libraryCmd.AddCommand((&endpoints.ListLibraryEndpoint{}).Command(getServerURL))
	libraryCmd.AddCommand((&endpoints.SaveRubricEndpoint{}).Command(getServerURL))
	libraryCmd.AddCommand((&endpoints.LoadRubricEndpoint{}).Command(getServerURL))
	libraryCmd.AddCommand((&endpoints.DeleteLibraryEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(sessionsCmd)
	apiCmd.AddCommand(rubricCmd)
	apiCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(apiCmd)
}
