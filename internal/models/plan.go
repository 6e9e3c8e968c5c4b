package models

// Action is what a reconciliation pass decided to do for one container.
type Action string

const (
	ActionNone     Action = "none"
	ActionCreate   Action = "create"
	ActionStart    Action = "start"
	ActionRecreate Action = "recreate"
	ActionSkip     Action = "skip"
	ActionError    Action = "error"
)

// PlanEntry is the decision for a single owned container, including the
// canonical field paths that drove a recreate decision.
type PlanEntry struct {
	Name   string   `json:"name" yaml:"name"`
	Image  string   `json:"image" yaml:"image"`
	Action Action   `json:"action" yaml:"action"`
	Diff   []string `json:"diff,omitempty" yaml:"diff,omitempty"`
	Reason string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// PlanSummary aggregates a plan's entry counts.
type PlanSummary struct {
	Total    int `json:"total" yaml:"total"`
	Create   int `json:"create" yaml:"create"`
	Recreate int `json:"recreate" yaml:"recreate"`
	Start    int `json:"start" yaml:"start"`
	UpToDate int `json:"up_to_date" yaml:"up_to_date"`
	Skipped  int `json:"skipped" yaml:"skipped"`
	Errored  int `json:"errored" yaml:"errored"`
}

// Plan is the full dry-run result of a reconciliation pass.
type Plan struct {
	Summary PlanSummary `json:"summary" yaml:"summary"`
	Entries []PlanEntry `json:"entries" yaml:"entries"`
}

// NewPlan creates an empty plan.
func NewPlan() *Plan {
	return &Plan{Entries: make([]PlanEntry, 0)}
}

// Add appends an entry and updates the summary counters.
func (p *Plan) Add(e PlanEntry) {
	p.Entries = append(p.Entries, e)
	p.Summary.Total++
	switch e.Action {
	case ActionCreate:
		p.Summary.Create++
	case ActionRecreate:
		p.Summary.Recreate++
	case ActionStart:
		p.Summary.Start++
	case ActionNone:
		p.Summary.UpToDate++
	case ActionSkip:
		p.Summary.Skipped++
	case ActionError:
		p.Summary.Errored++
	}
}

// Dirty reports whether applying the plan would mutate the runtime.
func (p *Plan) Dirty() bool {
	return p.Summary.Create+p.Summary.Recreate+p.Summary.Start > 0
}
