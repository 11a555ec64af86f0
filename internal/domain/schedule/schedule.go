// Package schedule models recurring probe scans of a single target.
package schedule

import (
	"fmt"
	"strings"
	"time"

	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

// Frequency is how often a schedule fires.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Frequencies lists the accepted values.
var Frequencies = []Frequency{Daily, Weekly, Monthly}

// ParseFrequency normalizes case and surrounding space.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case Daily, Weekly, Monthly:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", sharedErrors.ErrInvalidFrequency, s)
}

// Interval returns the period between runs. A month is a flat 30 days.
func (f Frequency) Interval() time.Duration {
	switch f {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// Schedule is a recurring scan of TargetURL.
type Schedule struct {
	ID         int        `json:"id"`
	TargetURL  string     `json:"target_url"`
	Frequency  Frequency  `json:"frequency"`
	NextRun    time.Time  `json:"next_run"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastScanID int        `json:"last_scan_id,omitempty"`
}

// New builds an active, unsaved schedule whose first run is one interval
// after now.
func New(target string, f Frequency, now time.Time) *Schedule {
	now = now.UTC()
	return &Schedule{
		TargetURL: target,
		Frequency: f,
		NextRun:   now.Add(f.Interval()),
		Active:    true,
		CreatedAt: now,
	}
}

// Due reports whether an active schedule should run at now.
func (s *Schedule) Due(now time.Time) bool {
	return s.Active && !now.Before(s.NextRun)
}

// Advance records a run at now and moves NextRun to the first slot after
// now, skipping any slots missed while nothing was running.
func (s *Schedule) Advance(now time.Time) {
	now = now.UTC()
	s.LastRun = &now
	next := s.NextRun
	step := s.Frequency.Interval()
	if next.IsZero() {
		next = now
	}
	for !next.After(now) {
		next = next.Add(step)
	}
	s.NextRun = next
}
