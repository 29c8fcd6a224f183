package risk

// ScoringPolicy is the canonical risk-scoring table. The weights and
// thresholds below are the single source of truth for the score; there is
// deliberately exactly one policy value (DefaultPolicy) used by every call
// path.
type ScoringPolicy struct {
	SeverityWeights map[Severity]float64
	TypeMultipliers map[CategoryType]float64

	// Level thresholds applied to the final [0,100] score.
	CriticalAt float64
	HighAt     float64
	MediumAt   float64
}

// DefaultPolicy is the canonical scoring table.
var DefaultPolicy = ScoringPolicy{
	SeverityWeights: map[Severity]float64{
		SeverityLow:      10,
		SeverityMedium:   25,
		SeverityHigh:     50,
		SeverityCritical: 100,
	},
	TypeMultipliers: map[CategoryType]float64{
		CategoryDestructive: 1.5,
		CategoryDowntime:    1.3,
		CategoryBlocking:    1.2,
		CategoryConstraint:  1.0,
		CategoryPerformance: 0.8,
	},
	CriticalAt: 80,
	HighAt:     60,
	MediumAt:   30,
}

// Score computes the aggregate risk score for a set of categories:
// 60% weight on the mean per-category score, 40% on the worst one, clamped
// to [0,100]. The result is a pure function of its input.
func (p ScoringPolicy) Score(categories []Category) float64 {
	if len(categories) == 0 {
		return 0
	}

	var sum, max float64
	for _, c := range categories {
		s := p.SeverityWeights[c.Severity] * p.TypeMultipliers[c.Type]
		sum += s
		if s > max {
			max = s
		}
	}

	score := 0.6*(sum/float64(len(categories))) + 0.4*max
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Level maps a score to the assessment's overall severity.
func (p ScoringPolicy) Level(score float64) Severity {
	switch {
	case score >= p.CriticalAt:
		return SeverityCritical
	case score >= p.HighAt:
		return SeverityHigh
	case score >= p.MediumAt:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
