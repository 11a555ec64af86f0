package checker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/patterns"
	"github.com/cybershield/shieldscan/internal/shared/constants"
)

// HeaderCheckName labels security header findings.
const HeaderCheckName = "Security Headers"

// HeaderCheck fetches the target once and reports each expected security
// header as present or missing.
type HeaderCheck struct {
	Fetcher Fetcher
	Timeout time.Duration
	Rules   []patterns.HeaderRule
}

// Name implements Check.
func (h *HeaderCheck) Name() string {
	return HeaderCheckName
}

// Run implements Check. A failed fetch yields a single Error finding.
func (h *HeaderCheck) Run(ctx context.Context, target string) []finding.Finding {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = constants.HTTPFetchTimeout
	}
	fetcher := h.Fetcher
	if fetcher == nil {
		fetcher = &HTTPFetcher{}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	headers, err := fetcher.Fetch(fetchCtx, ParseTarget(target).FullURL)
	if err != nil {
		return []finding.Finding{{
			Check:         HeaderCheckName,
			Vulnerability: "Scan Failed",
			Severity:      finding.SeverityError,
			Description:   err.Error(),
		}}
	}
	return EvaluateHeaders(headers, h.rules())
}

func (h *HeaderCheck) rules() []patterns.HeaderRule {
	if h.Rules == nil {
		return patterns.SecurityHeaders
	}
	return h.Rules
}

// EvaluateHeaders emits one finding per rule, in rule order.
func EvaluateHeaders(headers http.Header, rules []patterns.HeaderRule) []finding.Finding {
	findings := make([]finding.Finding, 0, len(rules))
	for _, rule := range rules {
		if len(headers.Values(rule.Name)) == 0 {
			findings = append(findings, finding.Finding{
				Check:         HeaderCheckName,
				Vulnerability: fmt.Sprintf("Missing %s", rule.Name),
				Severity:      rule.MissingSeverity,
				Description:   fmt.Sprintf("The %s header is missing, which reduces security against specific attacks.", rule.Name),
			})
			continue
		}
		findings = append(findings, finding.Finding{
			Check:         HeaderCheckName,
			Vulnerability: fmt.Sprintf("Present %s", rule.Name),
			Severity:      finding.SeverityInfo,
			Description:   fmt.Sprintf("The %s header is present.", rule.Name),
		})
	}
	return findings
}
