package checker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/shared/constants"
)

// Check is one sub-check of the probe suite.
type Check interface {
	// Run returns findings for the target. Network failures are reported
	// as findings or swallowed, never returned.
	Run(ctx context.Context, target string) []finding.Finding

	// Name returns the label placed in Finding.Check
	Name() string
}

// Options configures the default probe suite. Zero values fall back to the
// defaults in internal/shared/constants.
type Options struct {
	HTTPTimeout  time.Duration
	PortTimeout  time.Duration
	PortWorkers  int
	Connectivity Connectivity
}

// Suite runs its checks sequentially, in slice order.
type Suite struct {
	Checks []Check
}

// NewSuite returns the standard suite: headers, TLS presence, open
// directories and common ports.
func NewSuite(opts Options) *Suite {
	conn := opts.Connectivity
	defaults := DefaultConnectivity()
	if conn.Fetcher == nil {
		conn.Fetcher = defaults.Fetcher
	}
	if conn.Dialer == nil {
		conn.Dialer = defaults.Dialer
	}

	return &Suite{Checks: []Check{
		&HeaderCheck{Fetcher: conn.Fetcher, Timeout: opts.HTTPTimeout},
		&TLSCheck{},
		&DirectoryCheck{},
		&PortCheck{Dialer: conn.Dialer, Timeout: opts.PortTimeout, Workers: opts.PortWorkers},
	}}
}

// Run executes every check and concatenates the findings.
func (s *Suite) Run(ctx context.Context, target string) []finding.Finding {
	findings := []finding.Finding{}
	for _, c := range s.Checks {
		findings = append(findings, c.Run(ctx, target)...)
	}
	return findings
}

// TargetResult is the outcome of probing one target through the Runner.
type TargetResult struct {
	Target   string            `json:"target"`
	Findings []finding.Finding `json:"findings"`
	Duration time.Duration     `json:"duration"`
}

// AuditFunc is invoked after each target completes.
type AuditFunc func(target string, findings []finding.Finding, duration time.Duration) error

// Runner probes many targets with bounded concurrency and a global rate
// limit.
type Runner struct {
	Concurrency int           // maximum concurrent targets
	RateLimit   int           // targets started per second
	Timeout     time.Duration // per-target bound; zero means none
}

// Run probes every target with suite and returns results in input order.
func (r *Runner) Run(ctx context.Context, targets []string, suite *Suite, auditFn AuditFunc) []TargetResult {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultPortWorkers
	}
	limit := rate.Inf
	burst := 1
	if r.RateLimit > 0 {
		limit = rate.Limit(r.RateLimit)
		burst = r.RateLimit
	}
	limiter := rate.NewLimiter(limit, burst)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]TargetResult, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			_ = limiter.Wait(ctx)

			start := time.Now()
			runCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}

			findings := suite.Run(runCtx, t)
			duration := time.Since(start)

			if auditFn != nil {
				_ = auditFn(t, findings, duration)
			}

			results[i] = TargetResult{Target: t, Findings: findings, Duration: duration}
		}(i, target)
	}

	wg.Wait()
	return results
}
