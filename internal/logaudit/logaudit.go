// Package logaudit parses Common Log Format access logs and flags request
// paths that carry injection, scripting or traversal payloads.
package logaudit

import (
	"sort"

	"github.com/cybershield/shieldscan/internal/patterns"
	"github.com/cybershield/shieldscan/internal/shared/text"
)

// ErrNoValidLines is reported when not a single line matches the log layout.
const ErrNoValidLines = "No valid log lines found. Ensure format is Apache/Nginx CLF."

// TopIPLimit bounds the number of addresses reported in Analysis.TopIPs.
const TopIPLimit = 5

// Entry is one parsed access-log line.
type Entry struct {
	IP        string
	Timestamp string
	Method    string
	Path      string
	Status    string
	Size      string
}

// Threat is a suspicious request found in the log.
type Threat struct {
	IP        string `json:"ip"`
	Type      string `json:"type"`
	Payload   string `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// IPCount is a client address with its request count.
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// Analysis aggregates parsed entries.
type Analysis struct {
	TopIPs      []IPCount      `json:"top_ips"`
	StatusCodes map[string]int `json:"status_codes"`
	Threats     []Threat       `json:"threats"`
	ThreatCount int            `json:"threat_count"`
}

// ThreatsByType tallies threats per label.
func (a *Analysis) ThreatsByType() map[string]int {
	counts := make(map[string]int)
	if a == nil {
		return counts
	}
	for _, t := range a.Threats {
		counts[t.Type]++
	}
	return counts
}

// Report is the outcome of parsing one log upload. When Valid is false only
// Error is set.
type Report struct {
	Valid       bool      `json:"valid"`
	TotalLines  int       `json:"total_lines,omitempty"`
	ParsedLines int       `json:"parsed_lines,omitempty"`
	Analysis    *Analysis `json:"analysis,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Parse decodes content permissively and analyzes every line that matches
// the access-log layout. It never fails; malformed input yields an invalid
// report.
func Parse(content []byte) Report {
	lines := text.SplitLines(text.Decode(content))

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if entry, ok := ParseLine(line); ok {
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return Report{Valid: false, Error: ErrNoValidLines}
	}

	return Report{
		Valid:       true,
		TotalLines:  len(lines),
		ParsedLines: len(entries),
		Analysis:    Analyze(entries),
	}
}

// ParseLine matches a single line against the access-log layout.
func ParseLine(line string) (Entry, bool) {
	m := patterns.CLFPattern.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	names := patterns.CLFPattern.SubexpNames()
	var e Entry
	for i, name := range names {
		switch name {
		case "ip":
			e.IP = m[i]
		case "timestamp":
			e.Timestamp = m[i]
		case "method":
			e.Method = m[i]
		case "path":
			e.Path = m[i]
		case "status":
			e.Status = m[i]
		case "size":
			e.Size = m[i]
		}
	}
	return e, true
}

// Analyze computes traffic statistics and classifies each entry. An entry
// yields at most one threat: the first rule in patterns.LogThreatRules that
// matches its path.
func Analyze(entries []Entry) *Analysis {
	analysis := &Analysis{
		TopIPs:      topIPs(entries, TopIPLimit),
		StatusCodes: make(map[string]int),
		Threats:     []Threat{},
	}

	for _, e := range entries {
		analysis.StatusCodes[e.Status]++

		if kind, ok := ClassifyPath(e.Path); ok {
			analysis.Threats = append(analysis.Threats, Threat{
				IP:        e.IP,
				Type:      kind,
				Payload:   e.Path,
				Timestamp: e.Timestamp,
			})
		}
	}
	analysis.ThreatCount = len(analysis.Threats)
	return analysis
}

// ClassifyPath returns the threat label for a request path, if any.
func ClassifyPath(path string) (string, bool) {
	for _, rule := range patterns.LogThreatRules {
		if rule.Matches(path) {
			return rule.Type, true
		}
	}
	return "", false
}

// topIPs orders addresses by count, breaking ties by first appearance.
func topIPs(entries []Entry, limit int) []IPCount {
	index := make(map[string]int)
	counts := make([]IPCount, 0)
	for _, e := range entries {
		if i, ok := index[e.IP]; ok {
			counts[i].Count++
			continue
		}
		index[e.IP] = len(counts)
		counts = append(counts, IPCount{IP: e.IP, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
