// Package patterns holds the declarative detection tables used by every
// detector: which headers to expect, which ports to probe, which keywords
// classify a log line or a finding, and the regular expressions behind the
// content scanner.
//
// Detectors evaluate these tables in slice order, so the position of an entry
// is its priority. Keeping the data here lets each rule be tested on its own.
package patterns

import (
	"regexp"
	"strings"

	"github.com/cybershield/shieldscan/internal/domain/finding"
)

// HeaderRule describes a response header the probe suite expects.
type HeaderRule struct {
	Name            string
	MissingSeverity finding.Severity
}

// SecurityHeaders is the header allowlist, in reporting order.
var SecurityHeaders = []HeaderRule{
	{Name: "Content-Security-Policy", MissingSeverity: finding.SeverityMedium},
	{Name: "X-Frame-Options", MissingSeverity: finding.SeverityMedium},
	{Name: "X-Content-Type-Options", MissingSeverity: finding.SeverityMedium},
	{Name: "Strict-Transport-Security", MissingSeverity: finding.SeverityMedium},
	{Name: "Referrer-Policy", MissingSeverity: finding.SeverityLow},
}

// PortRule describes a TCP port the probe suite attempts to connect to.
type PortRule struct {
	Port     int
	Service  string
	Severity finding.Severity
}

// CommonPorts is the non-aggressive port table, in reporting order.
var CommonPorts = []PortRule{
	{Port: 21, Service: "FTP", Severity: finding.SeverityMedium},
	{Port: 22, Service: "SSH", Severity: finding.SeverityMedium},
	{Port: 80, Service: "HTTP", Severity: finding.SeverityInfo},
	{Port: 443, Service: "HTTPS", Severity: finding.SeverityInfo},
	{Port: 3306, Service: "MySQL", Severity: finding.SeverityMedium},
	{Port: 8080, Service: "HTTP-Proxy", Severity: finding.SeverityInfo},
}

// Threat labels attached to suspicious access-log lines.
const (
	ThreatSQLInjection       = "SQL Injection Attempt"
	ThreatXSS                = "XSS Attempt"
	ThreatDirectoryTraversal = "Directory Traversal"
)

// LogThreatRule classifies a request path. Normalize is applied to the path
// before substring matching; Markers are stored already normalized.
type LogThreatRule struct {
	Type      string
	Normalize func(string) string
	Markers   []string
}

// Matches reports whether any marker occurs in the normalized path.
func (r LogThreatRule) Matches(path string) bool {
	if r.Normalize != nil {
		path = r.Normalize(path)
	}
	for _, marker := range r.Markers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

func identity(s string) string { return s }

// LogThreatRules is evaluated first match wins.
var LogThreatRules = []LogThreatRule{
	{
		Type:      ThreatSQLInjection,
		Normalize: strings.ToUpper,
		Markers:   []string{"UNION", "SELECT", "OR 1=1", "--", "WAITFOR DELAY"},
	},
	{
		Type:      ThreatXSS,
		Normalize: strings.ToLower,
		Markers:   []string{"<script>", "javascript:", "onload=", "alert("},
	},
	{
		Type:      ThreatDirectoryTraversal,
		Normalize: identity,
		Markers:   []string{"../", "etc/passwd", "boot.ini"},
	},
}

// CLFPattern matches one Common Log Format line. Groups: ip, timestamp,
// method, path, status, size.
var CLFPattern = regexp.MustCompile(
	`^(?P<ip>[\d.]+) - - \[(?P<timestamp>.*?)\] "(?P<method>\w+) (?P<path>.*?) HTTP/1.[01]" (?P<status>\d{3}) (?P<size>\d+|-)`,
)

// EmailPattern detects email addresses (PII).
var EmailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// SecretRule pairs a keyword with the assignment pattern that exposes it.
type SecretRule struct {
	Keyword string
	Pattern *regexp.Regexp
}

// SecretKeywords are searched case-insensitively, in this order.
var SecretKeywords = []string{"api_key", "secret", "password", "token", "private_key"}

// SecretRules holds one compiled assignment pattern per secret keyword. A
// value must be at least 8 characters of [A-Za-z0-9_-].
var SecretRules = compileSecretRules(SecretKeywords)

func compileSecretRules(keywords []string) []SecretRule {
	rules := make([]SecretRule, 0, len(keywords))
	for _, kw := range keywords {
		rules = append(rules, SecretRule{
			Keyword: kw,
			Pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw) + `["']?\s*[:=]\s*["']?([a-zA-Z0-9\-_]{8,})`),
		})
	}
	return rules
}

// PasswordAssignment captures the value assigned to a password field.
var PasswordAssignment = regexp.MustCompile(`(?i)password["']?\s*[:=]\s*["']?([^"'\s,]+)`)

// PlainCredential matches values that look like an unhashed password.
var PlainCredential = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// PlainCredentialMaxLen is the exclusive upper bound for a value to be
// considered plaintext rather than a hash.
const PlainCredentialMaxLen = 32

// Classification is the weakness class assigned to a finding.
type Classification struct {
	CWEID    string
	RiskType string
}

// ClassificationRule maps finding-name keywords to a classification.
type ClassificationRule struct {
	Keywords []string
	Classification
}

// Matches reports whether any keyword occurs in the lower-cased name.
func (r ClassificationRule) Matches(name string) bool {
	lowered := strings.ToLower(name)
	for _, kw := range r.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// DefaultClassification applies when no rule matches.
var DefaultClassification = Classification{CWEID: "CWE-200", RiskType: "Information Exposure"}

// ClassificationRules is evaluated first match wins.
var ClassificationRules = []ClassificationRule{
	{Keywords: []string{"xss"}, Classification: Classification{CWEID: "CWE-79", RiskType: "Cross-Site Scripting (XSS)"}},
	{Keywords: []string{"sql"}, Classification: Classification{CWEID: "CWE-89", RiskType: "SQL Injection (SQLi)"}},
	{Keywords: []string{"ssl", "tls", "transport"}, Classification: Classification{CWEID: "CWE-319", RiskType: "Cryptographic Issue"}},
	{Keywords: []string{"port"}, Classification: Classification{CWEID: "CWE-284", RiskType: "Network Exposure / Brute Force Risk"}},
	{Keywords: []string{"directory"}, Classification: Classification{CWEID: "CWE-548", RiskType: "Sensitive Data Exposure"}},
	{Keywords: []string{"header"}, Classification: Classification{CWEID: DefaultClassification.CWEID, RiskType: "Security Misconfiguration"}},
}

// Classify returns the classification of the first matching rule.
func Classify(name string) Classification {
	for _, rule := range ClassificationRules {
		if rule.Matches(name) {
			return rule.Classification
		}
	}
	return DefaultClassification
}

// RiskWeights feed the probe risk score. Critical and Error carry no weight.
var RiskWeights = map[finding.Severity]int{
	finding.SeverityHigh:   10,
	finding.SeverityMedium: 5,
	finding.SeverityLow:    2,
	finding.SeverityInfo:   0,
}

// CVSSScore returns the simulated CVSS value for a severity.
func CVSSScore(s finding.Severity) float64 {
	switch s {
	case finding.SeverityHigh:
		return 7.5
	case finding.SeverityMedium:
		return 5.0
	default:
		return 2.5
	}
}

// FileDeductions feed the uploaded-file security score.
var FileDeductions = map[finding.Severity]int{
	finding.SeverityCritical: 25,
	finding.SeverityHigh:     15,
	finding.SeverityMedium:   10,
	finding.SeverityLow:      5,
}

// DefaultFileDeduction applies to severities missing from FileDeductions.
const DefaultFileDeduction = 5

// StructurePenalty is deducted when a recognized file fails to parse.
const StructurePenalty = 10
