// Package risk turns a list of findings into a normalized 0-100 score, a
// summary line, ordered recommendations and findings annotated with a
// weakness class and a severity-derived CVSS value.
package risk

import (
	"fmt"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/patterns"
)

const (
	MaxScore = 100
	MinScore = 0

	// scoreMultiplier scales the summed severity weights.
	scoreMultiplier = 2

	// Summary tier lower bounds.
	ExcellentThreshold = 80
	GoodThreshold      = 50
)

const (
	cleanSummary        = "No vulnerabilities detected. Good job!"
	cleanRecommendation = "Maintain current security practices."
	keepRecommendation  = "Good job! Keep maintaining your security posture."
)

// Report is the outcome of a risk assessment.
type Report struct {
	RiskScore       int                       `json:"risk_score"`
	Summary         string                    `json:"summary"`
	Recommendations []string                  `json:"recommendations"`
	EnrichedResults []finding.EnrichedFinding `json:"enriched_results"`
}

// Assessor scores and enriches findings. The zero value uses the default
// classification table and severity weights.
type Assessor struct {
	Rules   []patterns.ClassificationRule
	Weights map[finding.Severity]int
}

// NewAssessor returns an Assessor using the default tables.
func NewAssessor() *Assessor {
	return &Assessor{
		Rules:   patterns.ClassificationRules,
		Weights: patterns.RiskWeights,
	}
}

// Analyze assesses findings with a default Assessor.
func Analyze(findings []finding.Finding) Report {
	return NewAssessor().Analyze(findings)
}

// Analyze builds the report. The input slice is not modified.
func (a *Assessor) Analyze(findings []finding.Finding) Report {
	if len(findings) == 0 {
		return Report{
			RiskScore:       MaxScore,
			Summary:         cleanSummary,
			Recommendations: []string{cleanRecommendation},
			EnrichedResults: []finding.EnrichedFinding{},
		}
	}

	score := a.Score(findings)
	return Report{
		RiskScore:       score,
		Summary:         Summarize(score, len(findings)),
		Recommendations: a.Recommend(findings),
		EnrichedResults: a.EnrichAll(findings),
	}
}

// Score returns 100 - 2*sum(weight) clamped to [0, 100]. Severities without
// a weight contribute nothing.
func (a *Assessor) Score(findings []finding.Finding) int {
	weights := a.weights()
	total := 0
	for _, f := range findings {
		total += weights[f.Severity]
	}
	score := MaxScore - total*scoreMultiplier
	switch {
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	}
	return score
}

// Classify returns the classification of the first matching rule.
func (a *Assessor) Classify(name string) patterns.Classification {
	for _, rule := range a.rules() {
		if rule.Matches(name) {
			return rule.Classification
		}
	}
	return patterns.DefaultClassification
}

// Enrich annotates a single finding.
func (a *Assessor) Enrich(f finding.Finding) finding.EnrichedFinding {
	c := a.Classify(f.Vulnerability)
	return finding.EnrichedFinding{
		Finding:   f,
		CWEID:     c.CWEID,
		RiskType:  c.RiskType,
		CVSSScore: patterns.CVSSScore(f.Severity),
	}
}

// EnrichAll annotates every finding that has a name. Nameless findings are
// scored but never enriched.
func (a *Assessor) EnrichAll(findings []finding.Finding) []finding.EnrichedFinding {
	enriched := make([]finding.EnrichedFinding, 0, len(findings))
	for _, f := range findings {
		if f.Vulnerability == "" {
			continue
		}
		enriched = append(enriched, a.Enrich(f))
	}
	return enriched
}

// Summarize renders the tiered summary line.
func Summarize(score, count int) string {
	switch {
	case score >= ExcellentThreshold:
		return fmt.Sprintf("Excellent security posture with a score of %d. Found %d issues.", score, count)
	case score >= GoodThreshold:
		return fmt.Sprintf("Good security posture with a score of %d. Found %d issues. Some improvements recommended.", score, count)
	default:
		return fmt.Sprintf("Critical security concerns with a score of %d. Found %d issues. Immediate action required.", score, count)
	}
}

// Recommend lists the High and Medium totals followed by one line per High
// or Medium finding, in input order.
func (a *Assessor) Recommend(findings []finding.Finding) []string {
	counts := finding.CountBySeverity(findings)

	var recs []string
	if n := counts[finding.SeverityHigh]; n > 0 {
		recs = append(recs, fmt.Sprintf("Address %d high-severity vulnerabilities immediately.", n))
	}
	if n := counts[finding.SeverityMedium]; n > 0 {
		recs = append(recs, fmt.Sprintf("Prioritize fixing %d medium-severity vulnerabilities.", n))
	}

	for _, f := range findings {
		if f.Severity != finding.SeverityHigh && f.Severity != finding.SeverityMedium {
			continue
		}
		cwe := patterns.DefaultClassification.CWEID
		if f.Vulnerability != "" {
			cwe = a.Classify(f.Vulnerability).CWEID
		}
		recs = append(recs, fmt.Sprintf("Fix %s (CWE: %s) to improve score.", f.Vulnerability, cwe))
	}

	if len(recs) == 0 {
		recs = append(recs, keepRecommendation)
	}
	return recs
}

func (a *Assessor) rules() []patterns.ClassificationRule {
	if a.Rules == nil {
		return patterns.ClassificationRules
	}
	return a.Rules
}

func (a *Assessor) weights() map[finding.Severity]int {
	if a.Weights == nil {
		return patterns.RiskWeights
	}
	return a.Weights
}
