package assessment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cybershield/shieldscan/internal/assistant"
	"github.com/cybershield/shieldscan/internal/checker"
	"github.com/cybershield/shieldscan/internal/content"
	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/domain/scan"
	"github.com/cybershield/shieldscan/internal/inspector"
	"github.com/cybershield/shieldscan/internal/logaudit"
	"github.com/cybershield/shieldscan/internal/notify"
	"github.com/cybershield/shieldscan/internal/patterns"
	"github.com/cybershield/shieldscan/internal/risk"
	"github.com/cybershield/shieldscan/internal/shared/constants"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

// Prober runs the live-target checks. *checker.Suite satisfies it.
type Prober interface {
	Run(ctx context.Context, target string) []finding.Finding
}

// ProbeResult is the outcome of a probe scan.
type ProbeResult struct {
	ScanID   int               `json:"scan_id,omitempty"`
	URL      string            `json:"url"`
	Findings []finding.Finding `json:"scan_details"`
	Analysis risk.Report       `json:"ai_analysis"`
}

// FileResult is the outcome of a file audit.
type FileResult struct {
	Filename        string                    `json:"filename"`
	FileType        inspector.FileType        `json:"file_type"`
	SizeBytes       int                       `json:"size_bytes"`
	SecurityScore   int                       `json:"security_score"`
	Vulnerabilities []finding.Finding         `json:"vulnerabilities"`
	Structure       inspector.StructureReport `json:"structure"`
}

// Deps are the collaborators of a Service. Only Prober is required for
// probe scans; a nil Scans repository disables history.
type Deps struct {
	Prober    Prober
	Assessor  *risk.Assessor
	Inspector *inspector.Inspector
	Scans     scan.Repository
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

// Service wires the detectors to persistence and notification.
type Service struct {
	prober    Prober
	assessor  *risk.Assessor
	inspector *inspector.Inspector
	scans     scan.Repository
	notifier  notify.Notifier
	logger    *zap.Logger
}

// NewService fills unset dependencies with defaults.
func NewService(deps Deps) *Service {
	s := &Service{
		prober:    deps.Prober,
		assessor:  deps.Assessor,
		inspector: deps.Inspector,
		scans:     deps.Scans,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
	}
	if s.prober == nil {
		s.prober = checker.NewSuite(checker.Options{})
	}
	if s.assessor == nil {
		s.assessor = risk.NewAssessor()
	}
	if s.inspector == nil {
		s.inspector = &inspector.Inspector{}
	}
	if s.notifier == nil {
		s.notifier = notify.NopNotifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Probe runs the probe suite against target, assesses the findings, stores
// the scan and sends a notification. Notification failures are logged only.
func (s *Service) Probe(ctx context.Context, target string) (*ProbeResult, error) {
	if err := checker.ValidateTarget(target); err != nil {
		return nil, err
	}

	start := time.Now()
	findings := s.prober.Run(ctx, target)
	return s.record(ctx, target, findings, time.Since(start))
}

// ProbeMany probes several targets through runner and records each one.
// onDone, when set, is called as each target finishes. Results follow the
// order of targets.
func (s *Service) ProbeMany(ctx context.Context, targets []string, runner *checker.Runner, onDone checker.AuditFunc) ([]*ProbeResult, error) {
	for _, t := range targets {
		if err := checker.ValidateTarget(t); err != nil {
			return nil, err
		}
	}
	suite, ok := s.prober.(*checker.Suite)
	if !ok {
		suite = &checker.Suite{Checks: []checker.Check{proberCheck{s.prober}}}
	}

	outcomes := runner.Run(ctx, targets, suite, onDone)
	results := make([]*ProbeResult, 0, len(outcomes))
	for _, o := range outcomes {
		res, err := s.record(ctx, o.Target, o.Findings, o.Duration)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) record(ctx context.Context, target string, findings []finding.Finding, elapsed time.Duration) (*ProbeResult, error) {
	analysis := s.assessor.Analyze(findings)
	result := &ProbeResult{URL: target, Findings: findings, Analysis: analysis}

	s.logger.Info("probe completed",
		zap.String("target", target),
		zap.Int("findings", len(findings)),
		zap.Int("risk_score", analysis.RiskScore),
		zap.Duration("duration", elapsed),
	)

	if s.scans != nil {
		rec := scan.NewRecord(target, findings, analysis)
		if err := s.scans.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to save scan: %w", err)
		}
		result.ScanID = rec.ID
	}

	payload := notify.Payload{
		RiskScore:    analysis.RiskScore,
		Summary:      analysis.Summary,
		FindingCount: len(findings),
	}
	if err := s.notifier.Notify(ctx, target, payload); err != nil {
		s.logger.Warn("notification failed", zap.String("target", target), zap.Error(err))
	}

	return result, nil
}

// AuditFile classifies, scans and inspects an uploaded file.
func (s *Service) AuditFile(ctx context.Context, name string, data []byte) *FileResult {
	fileType := inspector.DetectFileType(name, data)
	vulns := content.Scan(data)
	structure := s.inspector.AnalyzeStructure(ctx, data, fileType)
	score := FileSecurityScore(vulns, fileType, structure)

	s.logger.Info("file audited",
		zap.String("filename", name),
		zap.String("file_type", string(fileType)),
		zap.Int("size_bytes", len(data)),
		zap.Int("findings", len(vulns)),
		zap.Int("security_score", score),
	)

	return &FileResult{
		Filename:        name,
		FileType:        fileType,
		SizeBytes:       len(data),
		SecurityScore:   score,
		Vulnerabilities: vulns,
		Structure:       structure,
	}
}

// AuditLogs parses an access log upload.
func (s *Service) AuditLogs(data []byte) logaudit.Report {
	report := logaudit.Parse(data)
	fields := []zap.Field{zap.Bool("valid", report.Valid), zap.Int("size_bytes", len(data))}
	if report.Analysis != nil {
		fields = append(fields, zap.Int("threats", report.Analysis.ThreatCount))
	}
	s.logger.Info("log audited", fields...)
	return report
}

// FileSecurityScore starts at 100 and deducts per finding severity, plus a
// penalty when a recognized file failed structural parsing.
func FileSecurityScore(vulns []finding.Finding, fileType inspector.FileType, structure inspector.StructureReport) int {
	score := risk.MaxScore
	for _, v := range vulns {
		d, ok := patterns.FileDeductions[v.Severity]
		if !ok {
			d = patterns.DefaultFileDeduction
		}
		score -= d
	}
	if !structure.Valid && fileType.Recognized() {
		score -= patterns.StructurePenalty
	}
	if score < risk.MinScore {
		return risk.MinScore
	}
	return score
}

// History lists stored scans newest first.
func (s *Service) History(ctx context.Context, offset, limit int) ([]*scan.Record, error) {
	if s.scans == nil {
		return []*scan.Record{}, nil
	}
	return s.scans.List(ctx, offset, limit)
}

// Scan returns one stored scan.
func (s *Service) Scan(ctx context.Context, id int) (*scan.Record, error) {
	if s.scans == nil {
		return nil, fmt.Errorf("scan %d: %w", id, sharedErrors.ErrScanNotFound)
	}
	return s.scans.FindByID(ctx, id)
}

// DeleteScans removes stored scans and reports how many were deleted.
func (s *Service) DeleteScans(ctx context.Context, ids []int) (int, error) {
	if s.scans == nil {
		return 0, nil
	}
	n, err := s.scans.Delete(ctx, ids...)
	if err != nil {
		return 0, err
	}
	s.logger.Info("scans deleted", zap.Ints("ids", ids), zap.Int("deleted", n))
	return n, nil
}

// Analytics aggregates the stored history.
func (s *Service) Analytics(ctx context.Context) (scan.Analytics, error) {
	if s.scans == nil {
		return scan.BuildAnalytics(nil, constants.AnalyticsTrendPoints), nil
	}
	records, err := s.scans.FindAll(ctx)
	if err != nil {
		return scan.Analytics{}, err
	}
	return scan.BuildAnalytics(records, constants.AnalyticsTrendPoints), nil
}

// ChatContext derives the assistant context from a stored scan.
func (s *Service) ChatContext(ctx context.Context, id int) (assistant.Context, error) {
	rec, err := s.Scan(ctx, id)
	if err != nil {
		return assistant.Context{}, err
	}
	return assistant.Context{RiskScore: rec.RiskScore, FindingCount: len(rec.Findings)}, nil
}

// proberCheck adapts a Prober to checker.Check for use with a Runner.
type proberCheck struct {
	p Prober
}

func (c proberCheck) Name() string { return "Probe" }

func (c proberCheck) Run(ctx context.Context, target string) []finding.Finding {
	return c.p.Run(ctx, target)
}
