package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cybershield/shieldscan/internal/domain/finding"
)

// progressPrinter redraws a single status line while targets complete.
type progressPrinter struct {
	out      io.Writer
	total    int
	name     string
	mu       sync.Mutex
	ok       int
	fail     int
	duration time.Duration
	updates  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newProgressPrinter(out io.Writer, total int, name string) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{
		out:     out,
		total:   total,
		name:    name,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop()
	}()
}

// Observe matches checker.AuditFunc. A target counts as failed when any
// check reported an Error finding.
func (p *progressPrinter) Observe(_ string, findings []finding.Finding, d time.Duration) error {
	p.Increment(finding.CountBySeverity(findings)[finding.SeverityError] == 0, d)
	return nil
}

func (p *progressPrinter) Increment(success bool, d time.Duration) {
	p.mu.Lock()
	if success {
		p.ok++
	} else {
		p.fail++
	}
	p.duration += d
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r%s\r%s\n", strings.Repeat(" ", 80), p.lineLocked())
}

func (p *progressPrinter) loop() {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r%s", p.lineLocked())
}

func (p *progressPrinter) lineLocked() string {
	completed := p.ok + p.fail
	total := p.total
	if completed > total {
		total = completed
	}

	percent := float64(completed) / float64(total) * 100
	var avg time.Duration
	if completed > 0 {
		avg = p.duration / time.Duration(completed)
	}
	return fmt.Sprintf("[%s] Progress: %d/%d (%.1f%%) OK:%d Fail:%d Avg:%.2fs",
		p.name, completed, total, percent, p.ok, p.fail, avg.Seconds())
}
