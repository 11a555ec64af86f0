package schedule

import (
	"errors"
	"testing"
	"time"

	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in      string
		want    Frequency
		wantErr bool
	}{
		{"daily", Daily, false},
		{" Weekly ", Weekly, false},
		{"MONTHLY", Monthly, false},
		{"hourly", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFrequency(tt.in)
			if tt.wantErr {
				if !errors.Is(err, sharedErrors.ErrInvalidFrequency) {
					t.Fatalf("expected ErrInvalidFrequency, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFrequency(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestNewSetsFirstRun(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := map[Frequency]time.Time{
		Daily:   now.Add(24 * time.Hour),
		Weekly:  now.Add(7 * 24 * time.Hour),
		Monthly: now.Add(30 * 24 * time.Hour),
	}
	for f, want := range tests {
		s := New("https://example.com", f, now)
		if !s.NextRun.Equal(want) {
			t.Errorf("%s: NextRun = %v, want %v", f, s.NextRun, want)
		}
		if !s.Active || !s.CreatedAt.Equal(now) || s.LastRun != nil {
			t.Errorf("%s: unexpected schedule %+v", f, s)
		}
	}
}

func TestDueAndAdvance(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New("https://example.com", Daily, now)

	if s.Due(now) {
		t.Fatal("new schedule should not be due immediately")
	}
	later := now.Add(24 * time.Hour)
	if !s.Due(later) {
		t.Fatal("expected schedule to be due after one interval")
	}

	// three missed days collapse into one run
	catchUp := now.Add(4*24*time.Hour + time.Minute)
	s.Advance(catchUp)
	if want := now.Add(5 * 24 * time.Hour); !s.NextRun.Equal(want) {
		t.Errorf("NextRun = %v, want %v", s.NextRun, want)
	}
	if s.LastRun == nil || !s.LastRun.Equal(catchUp) {
		t.Errorf("LastRun = %v, want %v", s.LastRun, catchUp)
	}

	s.Active = false
	if s.Due(s.NextRun) {
		t.Error("inactive schedule should never be due")
	}
}
