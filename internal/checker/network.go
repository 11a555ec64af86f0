package checker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/patterns"
	"github.com/cybershield/shieldscan/internal/shared/constants"
)

// PortCheckName labels open port findings.
const PortCheckName = "Port Scan"

// PortCheck attempts a TCP connection to each port of a small table.
type PortCheck struct {
	Dialer  Dialer
	Timeout time.Duration // per port
	Workers int
	Ports   []patterns.PortRule
}

// Name implements Check.
func (p *PortCheck) Name() string {
	return PortCheckName
}

// Run implements Check. Ports are probed concurrently; findings follow the
// order of the port table. Targets without a hostname produce nothing.
func (p *PortCheck) Run(ctx context.Context, target string) []finding.Finding {
	host := ExtractHost(target)
	if host == "" {
		return nil
	}

	ports := p.Ports
	if ports == nil {
		ports = patterns.CommonPorts
	}
	workers := p.Workers
	if workers <= 0 {
		workers = constants.DefaultPortWorkers
	}

	open := make([]bool, len(ports))
	jobs := make(chan int, len(ports))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				open[idx] = p.isOpen(ctx, host, ports[idx].Port)
			}
		}()
	}

	for idx := range ports {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	var findings []finding.Finding
	for idx, rule := range ports {
		if !open[idx] {
			continue
		}
		findings = append(findings, finding.Finding{
			Check:         PortCheckName,
			Vulnerability: fmt.Sprintf("Open Port %d (%s)", rule.Port, rule.Service),
			Severity:      rule.Severity,
			Description:   fmt.Sprintf("Port %d is open. Ensure strictly necessary services are exposed.", rule.Port),
		})
	}
	return findings
}

// isOpen treats every dial error, including timeouts, as closed.
func (p *PortCheck) isOpen(ctx context.Context, host string, port int) bool {
	if ctx.Err() != nil {
		return false
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = constants.PortDialTimeout
	}
	dialer := p.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
