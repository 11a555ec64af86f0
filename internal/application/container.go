package application

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cybershield/shieldscan/internal/application/assessment"
	"github.com/cybershield/shieldscan/internal/application/scheduling"
	"github.com/cybershield/shieldscan/internal/checker"
	"github.com/cybershield/shieldscan/internal/domain/scan"
	"github.com/cybershield/shieldscan/internal/domain/schedule"
	"github.com/cybershield/shieldscan/internal/infrastructure/persistence/json"
	"github.com/cybershield/shieldscan/internal/inspector"
	"github.com/cybershield/shieldscan/internal/notify"
	"github.com/cybershield/shieldscan/internal/risk"
)

// Options configures the services built by NewContainer.
type Options struct {
	HTTPTimeout time.Duration
	PortTimeout time.Duration
	PortWorkers int
	WebhookURL  string
	TempDir     string
	Logger      *zap.Logger
}

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	ScanRepo     scan.Repository
	ScheduleRepo schedule.Repository

	// Services
	Suite      *checker.Suite
	Notifier   *notify.Dispatcher
	Assessment *assessment.Service
	Scheduling *scheduling.Service
}

// NewContainer creates a new application service container
func NewContainer(dataDir string, opts Options) (*Container, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scanRepo, err := json.NewScanRepository(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan repository: %w", err)
	}
	scheduleRepo, err := json.NewScheduleRepository(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule repository: %w", err)
	}

	suite := checker.NewSuite(checker.Options{
		HTTPTimeout: opts.HTTPTimeout,
		PortTimeout: opts.PortTimeout,
		PortWorkers: opts.PortWorkers,
	})
	notifier := notify.NewDispatcher(opts.WebhookURL, logger)

	service := assessment.NewService(assessment.Deps{
		Prober:    suite,
		Assessor:  risk.NewAssessor(),
		Inspector: &inspector.Inspector{TempDir: opts.TempDir},
		Scans:     scanRepo,
		Notifier:  notifier,
		Logger:    logger,
	})

	scheduler := scheduling.NewService(scheduling.Deps{
		Schedules: scheduleRepo,
		Prober:    service,
		Logger:    logger,
	})

	return &Container{
		ScanRepo:     scanRepo,
		ScheduleRepo: scheduleRepo,
		Suite:        suite,
		Notifier:     notifier,
		Assessment:   service,
		Scheduling:   scheduler,
	}, nil
}
