// Package report renders engine results for terminals and machine readers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sqlsentry/sqlsentry/internal/engine"
	"github.com/sqlsentry/sqlsentry/internal/risk"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Renderer writes engine results to an output stream.
type Renderer struct {
	out     io.Writer
	format  Format
	verbose bool
}

// NewRenderer builds a Renderer. Verbose mode adds the full step SQL and
// validation queries to text output.
func NewRenderer(out io.Writer, format Format, verbose bool) *Renderer {
	return &Renderer{out: out, format: format, verbose: verbose}
}

// Render writes one result.
func (r *Renderer) Render(res *engine.Result) error {
	if r.format == FormatJSON {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	r.renderText(res)
	return nil
}

// RenderAll writes a batch of results. JSON output is a single array.
func (r *Renderer) RenderAll(results []*engine.Result) error {
	if r.format == FormatJSON {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(r.out)
		}
		r.renderText(res)
	}
	return nil
}

func (r *Renderer) renderText(res *engine.Result) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	bold.Fprintf(r.out, "Migration: %s\n", res.Migration.Name)
	fmt.Fprintf(r.out, "  Risk: %s (score %.1f)\n", severityColor(res.Assessment.Level).Sprint(string(res.Assessment.Level)), res.Assessment.Score)

	for _, cat := range res.Assessment.Categories {
		fmt.Fprintf(r.out, "  [%s] %s %s\n",
			cat.Type,
			severityColor(cat.Severity).Sprint(string(cat.Severity)),
			cat.Description)
	}

	if len(res.Assessment.Blockers) > 0 {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintln(r.out, "  Blockers:")
		for _, b := range res.Assessment.Blockers {
			fmt.Fprintf(r.out, "    - %s\n", b)
		}
	}
	for _, w := range res.Assessment.Warnings {
		color.New(color.FgYellow).Fprintf(r.out, "  Warning: %s\n", w)
	}

	strat := res.Strategy
	if len(strat.EnhancedSteps) > 0 {
		cyan.Fprintf(r.out, "  Plan: %d step(s), est. %.0fs\n", len(strat.EnhancedSteps), strat.EstimatedSeconds)
		for _, step := range strat.EnhancedSteps {
			fmt.Fprintf(r.out, "    %d. %s [%s, ~%.0fs]\n",
				step.StepNumber, step.Description, step.RiskLevel, step.EstimatedSeconds)
			if r.verbose {
				for _, line := range strings.Split(strings.TrimSpace(step.SQL), "\n") {
					fmt.Fprintf(r.out, "       %s\n", line)
				}
			}
		}
	}

	if strat.Rollback.CanRollback {
		fmt.Fprintf(r.out, "  Rollback: %s (%d step(s))\n", strat.Rollback.Complexity, len(strat.Rollback.RollbackSteps))
	} else {
		color.New(color.FgRed).Fprintln(r.out, "  Rollback: IMPOSSIBLE")
	}

	if strat.MaintenanceWindow.Recommended {
		fmt.Fprintf(r.out, "  Maintenance window: %.0fs minimum, %.0fs optimal\n",
			strat.MaintenanceWindow.MinimumDurationSeconds,
			strat.MaintenanceWindow.OptimalDurationSeconds)
	}

	if len(res.Applicable) > 0 {
		fmt.Fprintln(r.out, "  Available enhancements:")
		for _, meta := range res.Applicable {
			confirm := ""
			if meta.RequiresConfirmation {
				confirm = " (requires confirmation)"
			}
			fmt.Fprintf(r.out, "    - %s [%s]%s: %s\n", meta.ID, meta.Category, confirm, meta.Description)
		}
	}

	for _, w := range res.Warnings {
		color.New(color.FgYellow).Fprintf(r.out, "  Warning: %s\n", w)
	}
}

// severityColor maps a severity to its terminal color.
func severityColor(s risk.Severity) *color.Color {
	switch s {
	case risk.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case risk.SeverityHigh:
		return color.New(color.FgRed)
	case risk.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
