// Package content scans uploaded file bodies for exposed personal data,
// hardcoded secrets and plaintext credentials.
package content

import (
	"fmt"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/patterns"
	"github.com/cybershield/shieldscan/internal/shared/text"
)

// CheckName labels every finding produced by this package.
const CheckName = "Content Scan"

// Vulnerability names.
const (
	VulnPIIExposure        = "PII Exposure"
	VulnSecretExposure     = "Secret Exposure"
	VulnWeakAuthentication = "Weak Authentication"
)

// maxEmailSamples bounds the addresses echoed back in a PII finding.
const maxEmailSamples = 3

// Detector inspects decoded text and returns zero or more findings.
type Detector func(text string) []finding.Finding

// Detectors run in this order and their findings are concatenated.
var Detectors = []Detector{
	DetectPII,
	DetectSecrets,
	DetectWeakCredentials,
}

// Scan decodes content permissively and runs every detector over it.
func Scan(content []byte) []finding.Finding {
	decoded := text.Decode(content)
	findings := []finding.Finding{}
	for _, detect := range Detectors {
		findings = append(findings, detect(decoded)...)
	}
	return findings
}

// DetectPII reports email addresses found in the text as a single finding.
func DetectPII(s string) []finding.Finding {
	emails := patterns.EmailPattern.FindAllString(s, -1)
	if len(emails) == 0 {
		return nil
	}
	samples := emails
	if len(samples) > maxEmailSamples {
		samples = samples[:maxEmailSamples]
	}
	return []finding.Finding{{
		Check:         CheckName,
		Vulnerability: VulnPIIExposure,
		Severity:      finding.SeverityHigh,
		Description:   fmt.Sprintf("Found %d email addresses (Potential User Data Leak).", len(emails)),
		Sample:        finding.Samples(samples...),
	}}
}

// DetectSecrets reports at most one finding per secret keyword whose value
// is assigned in the text. Values are never echoed.
func DetectSecrets(s string) []finding.Finding {
	var findings []finding.Finding
	for _, rule := range patterns.SecretRules {
		if !rule.Pattern.MatchString(s) {
			continue
		}
		findings = append(findings, finding.Finding{
			Check:         CheckName,
			Vulnerability: VulnSecretExposure,
			Severity:      finding.SeverityCritical,
			Description:   fmt.Sprintf("Found potential hardcoded %s.", rule.Keyword),
			Sample:        finding.Redacted(),
		})
	}
	return findings
}

// DetectWeakCredentials reports the first password value that looks like
// plaintext rather than a hash.
func DetectWeakCredentials(s string) []finding.Finding {
	for _, m := range patterns.PasswordAssignment.FindAllStringSubmatch(s, -1) {
		pwd := m[1]
		if len(pwd) >= patterns.PlainCredentialMaxLen || !patterns.PlainCredential.MatchString(pwd) {
			continue
		}
		return []finding.Finding{{
			Check:         CheckName,
			Vulnerability: VulnWeakAuthentication,
			Severity:      finding.SeverityHigh,
			Description:   "Detected potential plaintext passwords.",
			Sample:        finding.Samples(MaskCredential(pwd)),
		}}
	}
	return nil
}

// MaskCredential keeps the first two characters of a credential.
func MaskCredential(pwd string) string {
	prefix := pwd
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return prefix + "****"
}
