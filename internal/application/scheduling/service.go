// Package scheduling manages recurring probe scans.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cybershield/shieldscan/internal/application/assessment"
	"github.com/cybershield/shieldscan/internal/checker"
	"github.com/cybershield/shieldscan/internal/domain/schedule"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

// Prober runs and records one probe scan. *assessment.Service satisfies it.
type Prober interface {
	Probe(ctx context.Context, target string) (*assessment.ProbeResult, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Schedules schedule.Repository
	Prober    Prober
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Service creates, lists, deletes and runs schedules.
type Service struct {
	schedules schedule.Repository
	prober    Prober
	clock     func() time.Time
	logger    *zap.Logger
}

// RunResult is the outcome of one due schedule.
type RunResult struct {
	ScheduleID int    `json:"schedule_id"`
	Target     string `json:"target_url"`
	ScanID     int    `json:"scan_id,omitempty"`
	RiskScore  int    `json:"risk_score"`
	Error      string `json:"error,omitempty"`
}

func NewService(deps Deps) *Service {
	s := &Service{
		schedules: deps.Schedules,
		prober:    deps.Prober,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Create validates target and frequency and stores a new active schedule.
func (s *Service) Create(ctx context.Context, target, frequency string) (*schedule.Schedule, error) {
	if err := checker.ValidateTarget(target); err != nil {
		return nil, err
	}
	f, err := schedule.ParseFrequency(frequency)
	if err != nil {
		return nil, err
	}

	sc := schedule.New(target, f, s.clock())
	if err := s.schedules.Save(ctx, sc); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}
	s.logger.Info("schedule created",
		zap.Int("schedule_id", sc.ID),
		zap.String("target", target),
		zap.String("frequency", string(f)),
		zap.Time("next_run", sc.NextRun),
	)
	return sc, nil
}

// List returns every schedule in creation order.
func (s *Service) List(ctx context.Context) ([]*schedule.Schedule, error) {
	return s.schedules.FindAll(ctx)
}

// Delete removes the schedule with id.
func (s *Service) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return sharedErrors.ErrInvalidScheduleID
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("schedule deleted", zap.Int("schedule_id", id))
	return nil
}

// RunDue probes every schedule that is due. A failed probe is reported in
// its RunResult and the schedule still moves to its next slot.
func (s *Service) RunDue(ctx context.Context) ([]RunResult, error) {
	if s.prober == nil {
		return nil, fmt.Errorf("%w: no prober configured", sharedErrors.ErrInvalidInput)
	}
	all, err := s.schedules.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	var results []RunResult
	for _, sc := range all {
		if !sc.Due(now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := RunResult{ScheduleID: sc.ID, Target: sc.TargetURL}
		probe, err := s.prober.Probe(ctx, sc.TargetURL)
		if err != nil {
			res.Error = err.Error()
			s.logger.Warn("scheduled scan failed",
				zap.Int("schedule_id", sc.ID),
				zap.String("target", sc.TargetURL),
				zap.Error(err),
			)
		} else {
			res.ScanID = probe.ScanID
			res.RiskScore = probe.Analysis.RiskScore
			sc.LastScanID = probe.ScanID
		}

		sc.Advance(now)
		if err := s.schedules.Save(ctx, sc); err != nil {
			return results, fmt.Errorf("save schedule %d: %w", sc.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}
