package endpoints

import (
	"github.com/sheetmark/sheetmark/internal/api"
	"github.com/sheetmark/sheetmark/internal/grader"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	GraderManager *grader.DockerManager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{GraderManager: cfg.GraderManager},

		// Session endpoints
		&CreateSessionEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},

		// Document import/export
		&ExportRubricEndpoint{},
		&ImportRubricEndpoint{},

		// Sheet endpoints
		&AddSheetEndpoint{},
		&DeleteSheetEndpoint{},
		&RenameSheetEndpoint{},

		// Rule endpoints
		&AddRuleEndpoint{},
		&PatchRuleEndpoint{},
		&DeleteRuleEndpoint{},
		&DuplicateRuleEndpoint{},
		&PasteRowsEndpoint{},

		// Section ordering endpoints
		&ListSectionsEndpoint{},
		&SetSectionOrderEndpoint{},
		&MoveSectionEndpoint{},
		&BulkMoveEndpoint{},

		// View state endpoints
		&ListRulesEndpoint{},
		&SetViewEndpoint{},
		&FoldEndpoint{},
		&SelectEndpoint{},

		// Grading endpoints
		&GradeEndpoint{},
		&ResultsEndpoint{},
		&ReportEndpoint{},

		// Rubric generation endpoints
		&AutoRubricEndpoint{},
		&FromRangesEndpoint{},
		&KeySheetsEndpoint{},

		// Library endpoints
		&ListLibraryEndpoint{},
		&SaveRubricEndpoint{},
		&LoadRubricEndpoint{},
		&DeleteLibraryEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
}

