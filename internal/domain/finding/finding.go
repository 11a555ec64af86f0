package finding

import (
	"encoding/json"
	"fmt"
)

// Severity is the fixed severity scale shared by every detector.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
	SeverityError    Severity = "Error"
)

// Severities lists the scale from least to most severe, with Error last.
var Severities = []Severity{
	SeverityInfo,
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
	SeverityError,
}

// Valid reports whether s is one of the fixed severity values.
func (s Severity) Valid() bool {
	for _, known := range Severities {
		if s == known {
			return true
		}
	}
	return false
}

func (s Severity) String() string {
	return string(s)
}

// RedactedMarker replaces sample values that must never be echoed back.
const RedactedMarker = "REDACTED"

// Sample is evidence attached to a finding: either a short list of matched
// values or the redaction marker.
type Sample struct {
	Values   []string
	Redacted bool
}

// Samples builds a sample from matched values.
func Samples(values ...string) *Sample {
	return &Sample{Values: append([]string(nil), values...)}
}

// Redacted builds a sample that only carries the redaction marker.
func Redacted() *Sample {
	return &Sample{Redacted: true}
}

// MarshalJSON encodes a redacted sample as the marker string and any other
// sample as an array of strings.
func (s Sample) MarshalJSON() ([]byte, error) {
	if s.Redacted {
		return json.Marshal(RedactedMarker)
	}
	values := s.Values
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var marker string
	if err := json.Unmarshal(data, &marker); err == nil {
		if marker == RedactedMarker {
			*s = Sample{Redacted: true}
			return nil
		}
		*s = Sample{Values: []string{marker}}
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode sample: %w", err)
	}
	*s = Sample{Values: values}
	return nil
}

// String renders the sample for terminal and report output.
func (s *Sample) String() string {
	if s == nil {
		return ""
	}
	if s.Redacted {
		return RedactedMarker
	}
	return fmt.Sprintf("%v", s.Values)
}

// Finding is a single observation produced by a detector.
type Finding struct {
	Check         string   `json:"check"`
	Vulnerability string   `json:"vulnerability"`
	Severity      Severity `json:"severity"`
	Description   string   `json:"description"`
	Sample        *Sample  `json:"sample,omitempty"`
}

// EnrichedFinding is a finding annotated with its weakness class and a
// severity-derived CVSS value.
type EnrichedFinding struct {
	Finding
	CWEID     string  `json:"cwe_id"`
	RiskType  string  `json:"risk_type"`
	CVSSScore float64 `json:"cvss_score"`
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
