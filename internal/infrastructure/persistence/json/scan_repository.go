package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/domain/scan"
	"github.com/cybershield/shieldscan/internal/risk"
	"github.com/cybershield/shieldscan/internal/shared/constants"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
	"github.com/cybershield/shieldscan/internal/shared/security"
)

// scanDTO is the data transfer object for JSON serialization
type scanDTO struct {
	ID        int               `json:"id"`
	URL       string            `json:"url"`
	ScanDate  string            `json:"scan_date"`
	RiskScore int               `json:"risk_score"`
	Findings  []finding.Finding `json:"scan_details"`
	Analysis  risk.Report       `json:"ai_analysis"`
}

// ScanRepository implements the scan.Repository interface using JSON file storage
type ScanRepository struct {
	filePath string
	mu       sync.RWMutex
}

// NewScanRepository creates a JSON-backed scan history under dataDir
func NewScanRepository(dataDir string) (*ScanRepository, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath, err := security.ResolveWithin(dataDir, constants.ScansFileName)
	if err != nil {
		return nil, fmt.Errorf("invalid scans path: %w", err)
	}

	repo := &ScanRepository{filePath: filePath}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := repo.saveToFile([]scanDTO{}); err != nil {
			return nil, fmt.Errorf("failed to initialize scans file: %w", err)
		}
	}

	return repo, nil
}

// Path returns the backing file location
func (r *ScanRepository) Path() string {
	return r.filePath
}

// Save persists a record. Records without an ID receive the next free one.
func (r *ScanRepository) Save(ctx context.Context, record *scan.Record) error {
	if record == nil {
		return sharedErrors.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	scans, err := r.loadFromFile()
	if err != nil {
		return fmt.Errorf("failed to load scans: %w", err)
	}

	if record.ID == 0 {
		record.ID = nextID(scans)
	}
	if record.ScanDate.IsZero() {
		record.ScanDate = time.Now().UTC()
	}

	dto := toScanDTO(record)
	found := false
	for i, s := range scans {
		if s.ID == dto.ID {
			scans[i] = dto
			found = true
			break
		}
	}
	if !found {
		scans = append(scans, dto)
	}

	if err := r.saveToFile(scans); err != nil {
		return fmt.Errorf("failed to save scans: %w", err)
	}
	return nil
}

// FindByID retrieves a record by its ID
func (r *ScanRepository) FindByID(ctx context.Context, id int) (*scan.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scans, err := r.loadFromFile()
	if err != nil {
		return nil, fmt.Errorf("failed to load scans: %w", err)
	}

	for _, dto := range scans {
		if dto.ID == id {
			return fromScanDTO(dto)
		}
	}
	return nil, sharedErrors.ErrScanNotFound
}

// FindAll retrieves every record in storage order
func (r *ScanRepository) FindAll(ctx context.Context) ([]*scan.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scans, err := r.loadFromFile()
	if err != nil {
		return nil, fmt.Errorf("failed to load scans: %w", err)
	}
	return fromScanDTOs(scans)
}

// List returns records newest first
func (r *ScanRepository) List(ctx context.Context, offset, limit int) ([]*scan.Record, error) {
	records, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ScanDate.After(records[j].ScanDate)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []*scan.Record{}, nil
	}
	records = records[offset:]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Delete removes the given IDs. Unknown IDs are ignored.
func (r *ScanRepository) Delete(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, sharedErrors.ErrNoScansSelected
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	scans, err := r.loadFromFile()
	if err != nil {
		return 0, fmt.Errorf("failed to load scans: %w", err)
	}

	remove := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}

	kept := scans[:0]
	deleted := 0
	for _, s := range scans {
		if _, ok := remove[s.ID]; ok {
			deleted++
			continue
		}
		kept = append(kept, s)
	}

	if deleted == 0 {
		return 0, nil
	}
	if err := r.saveToFile(kept); err != nil {
		return 0, fmt.Errorf("failed to save scans: %w", err)
	}
	return deleted, nil
}

// Helper methods

func (r *ScanRepository) loadFromFile() ([]scanDTO, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []scanDTO{}, nil
		}
		return nil, err
	}

	var scans []scanDTO
	if err := json.Unmarshal(data, &scans); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	return scans, nil
}

func (r *ScanRepository) saveToFile(scans []scanDTO) error {
	data, err := json.MarshalIndent(scans, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	return os.WriteFile(r.filePath, data, constants.DefaultFilePerm)
}

func nextID(scans []scanDTO) int {
	highest := 0
	for _, s := range scans {
		if s.ID > highest {
			highest = s.ID
		}
	}
	return highest + 1
}

func toScanDTO(rec *scan.Record) scanDTO {
	return scanDTO{
		ID:        rec.ID,
		URL:       rec.URL,
		ScanDate:  rec.ScanDate.UTC().Format(time.RFC3339Nano),
		RiskScore: rec.RiskScore,
		Findings:  rec.Findings,
		Analysis:  rec.Analysis,
	}
}

func fromScanDTO(dto scanDTO) (*scan.Record, error) {
	var scanDate time.Time
	if dto.ScanDate != "" {
		parsed, err := time.Parse(time.RFC3339Nano, dto.ScanDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan date: %w", err)
		}
		scanDate = parsed
	}

	findings := dto.Findings
	if findings == nil {
		findings = []finding.Finding{}
	}

	return &scan.Record{
		ID:        dto.ID,
		URL:       dto.URL,
		ScanDate:  scanDate,
		RiskScore: dto.RiskScore,
		Findings:  findings,
		Analysis:  dto.Analysis,
	}, nil
}

func fromScanDTOs(scans []scanDTO) ([]*scan.Record, error) {
	result := make([]*scan.Record, 0, len(scans))
	for _, dto := range scans {
		rec, err := fromScanDTO(dto)
		if err != nil {
			return nil, fmt.Errorf("failed to convert scan %d: %w", dto.ID, err)
		}
		result = append(result, rec)
	}
	return result, nil
}
