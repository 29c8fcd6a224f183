package cmd

import (
	"log"
	"strings"

	"github.com/sqlsentry/sqlsentry/internal/engine"
	"github.com/sqlsentry/sqlsentry/internal/risk"
)

// severityRank orders severities for --fail-on comparisons.
var severityRank = map[risk.Severity]int{
	risk.SeverityLow:      0,
	risk.SeverityMedium:   1,
	risk.SeverityHigh:     2,
	risk.SeverityCritical: 3,
}

// anyAtOrAbove reports whether any result's risk level meets the threshold.
func anyAtOrAbove(results []*engine.Result, threshold string) bool {
	want, ok := severityRank[risk.Severity(strings.ToUpper(threshold))]
	if !ok {
		log.Fatalf("Unknown risk level %q (expected LOW, MEDIUM, HIGH, or CRITICAL)", threshold)
	}
	for _, res := range results {
		if severityRank[res.Assessment.Level] >= want {
			return true
		}
	}
	return false
}
