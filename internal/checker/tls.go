package checker

import (
	"context"

	"github.com/cybershield/shieldscan/internal/domain/finding"
)

// TLSCheckName labels transport findings.
const TLSCheckName = "SSL/TLS"

// TLSCheck reports whether the target uses https. Certificates are not
// inspected.
type TLSCheck struct{}

func (c *TLSCheck) Name() string { return TLSCheckName }

func (c *TLSCheck) Run(_ context.Context, target string) []finding.Finding {
	if !IsHTTPS(target) {
		return []finding.Finding{{
			Check:         TLSCheckName,
			Vulnerability: "Not using HTTPS",
			Severity:      finding.SeverityHigh,
			Description:   "Communication is not encrypted.",
		}}
	}
	return []finding.Finding{{
		Check:         TLSCheckName,
		Vulnerability: "Using HTTPS",
		Severity:      finding.SeverityInfo,
		Description:   "Communication is encrypted.",
	}}
}
