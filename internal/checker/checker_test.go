package checker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/patterns"
)

type fakeFetcher struct {
	headers http.Header
	err     error
	gotURL  string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (http.Header, error) {
	f.gotURL = url
	return f.headers, f.err
}

// fakeDialer reports the listed ports as open and refuses everything else.
type fakeDialer struct {
	mu     sync.Mutex
	open   map[int]bool
	dialed []string
}

func (d *fakeDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	d.mu.Lock()
	d.dialed = append(d.dialed, address)
	d.mu.Unlock()

	_, portStr, _ := net.SplitHostPort(address)
	port, _ := strconv.Atoi(portStr)
	if d.open[port] {
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}
	return nil, errors.New("connection refused")
}

func TestSuiteOrderAndFindings(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Frame-Options", "DENY")
	headers.Set("Referrer-Policy", "no-referrer")

	fetcher := &fakeFetcher{headers: headers}
	dialer := &fakeDialer{open: map[int]bool{8080: true, 22: true}}
	suite := NewSuite(Options{Connectivity: Connectivity{Fetcher: fetcher, Dialer: dialer}})

	findings := suite.Run(context.Background(), "example.com")

	want := []struct {
		check, vuln string
		sev         finding.Severity
	}{
		{HeaderCheckName, "Missing Content-Security-Policy", finding.SeverityMedium},
		{HeaderCheckName, "Present X-Frame-Options", finding.SeverityInfo},
		{HeaderCheckName, "Missing X-Content-Type-Options", finding.SeverityMedium},
		{HeaderCheckName, "Missing Strict-Transport-Security", finding.SeverityMedium},
		{HeaderCheckName, "Present Referrer-Policy", finding.SeverityInfo},
		{TLSCheckName, "Not using HTTPS", finding.SeverityHigh},
		{PortCheckName, "Open Port 22 (SSH)", finding.SeverityMedium},
		{PortCheckName, "Open Port 8080 (HTTP-Proxy)", finding.SeverityInfo},
	}
	if len(findings) != len(want) {
		t.Fatalf("expected %d findings, got %d: %+v", len(want), len(findings), findings)
	}
	for i, w := range want {
		f := findings[i]
		if f.Check != w.check || f.Vulnerability != w.vuln || f.Severity != w.sev {
			t.Errorf("finding %d = {%s %s %s}, want {%s %s %s}", i, f.Check, f.Vulnerability, f.Severity, w.check, w.vuln, w.sev)
		}
		if !f.Severity.Valid() {
			t.Errorf("finding %d has invalid severity %q", i, f.Severity)
		}
	}

	if fetcher.gotURL != "http://example.com" {
		t.Errorf("fetched %q, want http://example.com", fetcher.gotURL)
	}
	if len(dialer.dialed) != len(patterns.CommonPorts) {
		t.Errorf("dialed %d ports, want %d", len(dialer.dialed), len(patterns.CommonPorts))
	}
	for _, addr := range dialer.dialed {
		if !strings.HasPrefix(addr, "example.com:") {
			t.Errorf("unexpected dial address %q", addr)
		}
	}
}

func TestHeaderCheckFetchFailure(t *testing.T) {
	check := &HeaderCheck{Fetcher: &fakeFetcher{err: errors.New("dial tcp: no such host")}}
	findings := check.Run(context.Background(), "https://unreachable.invalid")

	if len(findings) != 1 {
		t.Fatalf("expected single failure finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Vulnerability != "Scan Failed" || f.Severity != finding.SeverityError {
		t.Errorf("unexpected finding: %+v", f)
	}
	if !strings.Contains(f.Description, "no such host") {
		t.Errorf("expected error message in description, got %q", f.Description)
	}
}

func TestHeaderCheckAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000")
		w.Header().Set("Referrer-Policy", "same-origin")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	check := &HeaderCheck{Fetcher: &HTTPFetcher{Client: srv.Client()}, Timeout: 2 * time.Second}
	findings := check.Run(context.Background(), srv.URL)
	if len(findings) != len(patterns.SecurityHeaders) {
		t.Fatalf("expected %d findings, got %d", len(patterns.SecurityHeaders), len(findings))
	}
	for _, f := range findings {
		if !strings.HasPrefix(f.Vulnerability, "Present ") || f.Severity != finding.SeverityInfo {
			t.Errorf("expected present header finding, got %+v", f)
		}
	}
}

func TestTLSCheck(t *testing.T) {
	tests := []struct {
		target string
		want   string
		sev    finding.Severity
	}{
		{"https://example.com", "Using HTTPS", finding.SeverityInfo},
		{"http://example.com", "Not using HTTPS", finding.SeverityHigh},
		{"example.com", "Not using HTTPS", finding.SeverityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			findings := (&TLSCheck{}).Run(context.Background(), tt.target)
			if len(findings) != 1 || findings[0].Vulnerability != tt.want || findings[0].Severity != tt.sev {
				t.Errorf("unexpected findings: %+v", findings)
			}
		})
	}
}

func TestDirectoryCheckIsEmpty(t *testing.T) {
	if got := (&DirectoryCheck{}).Run(context.Background(), "http://example.com"); len(got) != 0 {
		t.Errorf("expected no findings, got %+v", got)
	}
}

func TestPortCheckNoHost(t *testing.T) {
	dialer := &fakeDialer{open: map[int]bool{80: true}}
	check := &PortCheck{Dialer: dialer}
	if got := check.Run(context.Background(), ""); got != nil {
		t.Errorf("expected nil findings, got %+v", got)
	}
	if len(dialer.dialed) != 0 {
		t.Errorf("expected no dials, got %v", dialer.dialed)
	}
}

func TestPortCheckAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	check := &PortCheck{
		Timeout: 500 * time.Millisecond,
		Ports: []patterns.PortRule{
			{Port: port, Service: "Test", Severity: finding.SeverityMedium},
		},
	}
	findings := check.Run(context.Background(), "http://127.0.0.1")
	if len(findings) != 1 {
		t.Fatalf("expected one open port, got %+v", findings)
	}
	if !strings.Contains(findings[0].Vulnerability, strconv.Itoa(port)) {
		t.Errorf("unexpected vulnerability %q", findings[0].Vulnerability)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		host    string
		port    string
		fullURL string
	}{
		{"example.com", "example.com", "", "http://example.com"},
		{"https://example.com:8443/path", "example.com", "8443", "https://example.com:8443/path"},
		{"example.com:8080", "example.com", "8080", "http://example.com:8080"},
		{"localhost:3000", "localhost", "3000", "http://localhost:3000"},
		{"127.0.0.1:9000", "127.0.0.1", "9000", "http://127.0.0.1:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			info := ParseTarget(tt.in)
			if info.Host != tt.host || info.Port != tt.port || info.FullURL != tt.fullURL {
				t.Errorf("ParseTarget(%q) = %+v", tt.in, info)
			}
		})
	}
}

func TestValidateTarget(t *testing.T) {
	if err := ValidateTarget("   "); err == nil {
		t.Error("expected error for blank target")
	}
	if err := ValidateTarget("example.com"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunnerPreservesOrder(t *testing.T) {
	suite := &Suite{Checks: []Check{&TLSCheck{}}}
	runner := &Runner{Concurrency: 2, RateLimit: 100}

	var audited int32
	targets := []string{"https://a.example", "http://b.example", "https://c.example"}
	results := runner.Run(context.Background(), targets, suite, func(string, []finding.Finding, time.Duration) error {
		atomic.AddInt32(&audited, 1)
		return nil
	})

	if len(results) != len(targets) {
		t.Fatalf("expected %d results, got %d", len(targets), len(results))
	}
	for i, r := range results {
		if r.Target != targets[i] {
			t.Errorf("result %d target = %s, want %s", i, r.Target, targets[i])
		}
	}
	if results[1].Findings[0].Vulnerability != "Not using HTTPS" {
		t.Errorf("unexpected findings for %s: %+v", targets[1], results[1].Findings)
	}
	if atomic.LoadInt32(&audited) != int32(len(targets)) {
		t.Errorf("audit callback invoked %d times", audited)
	}
}
