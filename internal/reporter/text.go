package reporter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docker/go-units"
	"github.com/fatih/color"

	"github.com/stackgen-cli/compose-pilot/internal/controller"
	"github.com/stackgen-cli/compose-pilot/internal/models"
)

// PlanText generates a human-readable rendering of a reconciliation plan.
func PlanText(plan *models.Plan, manifest string) string {
	var sb strings.Builder

	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	sb.WriteString(cyan("compose-pilot\n\n"))
	if manifest != "" {
		sb.WriteString(fmt.Sprintf("Manifest: %s\n\n", manifest))
	}

	s := plan.Summary
	sb.WriteString(fmt.Sprintf("Summary: %d containers, %d create, %d recreate, %d start\n",
		s.Total, s.Create, s.Recreate, s.Start))
	sb.WriteString(fmt.Sprintf("         %d up to date, %d skipped, %d errored\n\n",
		s.UpToDate, s.Skipped, s.Errored))

	if !plan.Dirty() && s.Errored == 0 {
		sb.WriteString(green("Nothing to do.\n"))
		return sb.String()
	}

	sb.WriteString(strings.Repeat("━", 50) + "\n\n")

	for _, e := range plan.Entries {
		sb.WriteString(fmt.Sprintf("Container: %s\n", cyan(e.Name)))
		sb.WriteString(fmt.Sprintf("  %s %s", actionIcon(e.Action), actionLabel(e.Action)))
		if e.Image != "" {
			sb.WriteString(fmt.Sprintf("  image=%s", e.Image))
		}
		sb.WriteString("\n")
		if e.Reason != "" {
			sb.WriteString(fmt.Sprintf("    reason: %s\n", e.Reason))
		}
		for _, path := range e.Diff {
			sb.WriteString(fmt.Sprintf("    ~ %s\n", path))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// StatsText renders the monitor's per-container status snapshot as a small
// table, with memory figures in human-readable units.
func StatsText(stats map[string]controller.Status) string {
	var sb strings.Builder
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := stats[name]
		sb.WriteString(fmt.Sprintf("%s  %s", cyan(name), st.Status))
		if st.MemMax > 0 {
			sb.WriteString(fmt.Sprintf("  cpu=%.1f%%  mem=%s/%s",
				st.CPUPercent,
				units.BytesSize(float64(st.MemUsed)),
				units.BytesSize(float64(st.MemMax))))
		}
		if st.LastError != "" {
			sb.WriteString("  " + red(st.LastError))
		}
		sb.WriteString("\n")
	}
	if len(names) == 0 {
		sb.WriteString("No containers.\n")
	}
	return sb.String()
}

func actionIcon(a models.Action) string {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	switch a {
	case models.ActionCreate:
		return green("➕")
	case models.ActionRecreate:
		return yellow("⚡")
	case models.ActionStart:
		return green("▶")
	case models.ActionSkip:
		return "⏭"
	case models.ActionError:
		return red("✖")
	}
	return "•"
}

func actionLabel(a models.Action) string {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	switch a {
	case models.ActionCreate:
		return "CREATE  "
	case models.ActionRecreate:
		return yellow("RECREATE")
	case models.ActionStart:
		return "START   "
	case models.ActionSkip:
		return "SKIP    "
	case models.ActionError:
		return red("ERROR   ")
	default:
		return "OK      "
	}
}
