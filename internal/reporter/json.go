package reporter

import "github.com/stackgen-cli/compose-pilot/internal/models"

// JSONPlan is the stable JSON output format for a reconciliation plan.
type JSONPlan struct {
	SchemaVersion string             `json:"schema_version"`
	Manifest      string             `json:"manifest,omitempty"`
	Summary       models.PlanSummary `json:"summary"`
	Entries       []models.PlanEntry `json:"entries"`
}

// ToJSON wraps a plan in the versioned JSON envelope.
func ToJSON(plan *models.Plan, manifest string) *JSONPlan {
	return &JSONPlan{
		SchemaVersion: "1.0",
		Manifest:      manifest,
		Summary:       plan.Summary,
		Entries:       plan.Entries,
	}
}
