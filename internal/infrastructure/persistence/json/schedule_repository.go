package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cybershield/shieldscan/internal/domain/schedule"
	"github.com/cybershield/shieldscan/internal/shared/constants"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
	"github.com/cybershield/shieldscan/internal/shared/security"
)

// scheduleDTO is the data transfer object for JSON serialization
type scheduleDTO struct {
	ID         int    `json:"id"`
	TargetURL  string `json:"target_url"`
	Frequency  string `json:"frequency"`
	NextRun    string `json:"next_run"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at"`
	LastRun    string `json:"last_run,omitempty"`
	LastScanID int    `json:"last_scan_id,omitempty"`
}

// ScheduleRepository implements the schedule.Repository interface using JSON file storage
type ScheduleRepository struct {
	filePath string
	mu       sync.RWMutex
}

// NewScheduleRepository creates a JSON-backed schedule store under dataDir
func NewScheduleRepository(dataDir string) (*ScheduleRepository, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath, err := security.ResolveWithin(dataDir, constants.SchedulesFileName)
	if err != nil {
		return nil, fmt.Errorf("invalid schedules path: %w", err)
	}

	repo := &ScheduleRepository{filePath: filePath}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := repo.saveToFile([]scheduleDTO{}); err != nil {
			return nil, fmt.Errorf("failed to initialize schedules file: %w", err)
		}
	}

	return repo, nil
}

// Path returns the backing file location
func (r *ScheduleRepository) Path() string {
	return r.filePath
}

// Save inserts or replaces a schedule. New schedules receive the next free ID.
func (r *ScheduleRepository) Save(ctx context.Context, s *schedule.Schedule) error {
	if s == nil {
		return sharedErrors.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	schedules, err := r.loadFromFile()
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	if s.ID == 0 {
		highest := 0
		for _, dto := range schedules {
			if dto.ID > highest {
				highest = dto.ID
			}
		}
		s.ID = highest + 1
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	dto := toScheduleDTO(s)
	found := false
	for i := range schedules {
		if schedules[i].ID == dto.ID {
			schedules[i] = dto
			found = true
			break
		}
	}
	if !found {
		schedules = append(schedules, dto)
	}

	if err := r.saveToFile(schedules); err != nil {
		return fmt.Errorf("failed to save schedules: %w", err)
	}
	return nil
}

// FindByID retrieves a schedule by its ID
func (r *ScheduleRepository) FindByID(ctx context.Context, id int) (*schedule.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schedules, err := r.loadFromFile()
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	for _, dto := range schedules {
		if dto.ID == id {
			return fromScheduleDTO(dto)
		}
	}
	return nil, sharedErrors.ErrScheduleNotFound
}

// FindAll retrieves every schedule in storage order
func (r *ScheduleRepository) FindAll(ctx context.Context) ([]*schedule.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schedules, err := r.loadFromFile()
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	result := make([]*schedule.Schedule, 0, len(schedules))
	for _, dto := range schedules {
		s, err := fromScheduleDTO(dto)
		if err != nil {
			return nil, fmt.Errorf("failed to convert schedule %d: %w", dto.ID, err)
		}
		result = append(result, s)
	}
	return result, nil
}

// Delete removes a schedule by ID
func (r *ScheduleRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schedules, err := r.loadFromFile()
	if err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	for i, dto := range schedules {
		if dto.ID == id {
			schedules = append(schedules[:i], schedules[i+1:]...)
			if err := r.saveToFile(schedules); err != nil {
				return fmt.Errorf("failed to save schedules: %w", err)
			}
			return nil
		}
	}
	return sharedErrors.ErrScheduleNotFound
}

// Helper methods

func (r *ScheduleRepository) loadFromFile() ([]scheduleDTO, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []scheduleDTO{}, nil
		}
		return nil, err
	}

	var schedules []scheduleDTO
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	return schedules, nil
}

func (r *ScheduleRepository) saveToFile(schedules []scheduleDTO) error {
	data, err := json.MarshalIndent(schedules, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	return os.WriteFile(r.filePath, data, constants.DefaultFilePerm)
}

func toScheduleDTO(s *schedule.Schedule) scheduleDTO {
	dto := scheduleDTO{
		ID:         s.ID,
		TargetURL:  s.TargetURL,
		Frequency:  string(s.Frequency),
		NextRun:    s.NextRun.UTC().Format(time.RFC3339Nano),
		Active:     s.Active,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastScanID: s.LastScanID,
	}
	if s.LastRun != nil {
		dto.LastRun = s.LastRun.UTC().Format(time.RFC3339Nano)
	}
	return dto
}

func fromScheduleDTO(dto scheduleDTO) (*schedule.Schedule, error) {
	nextRun, err := time.Parse(time.RFC3339Nano, dto.NextRun)
	if err != nil {
		return nil, fmt.Errorf("failed to parse next run: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, dto.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created at: %w", err)
	}

	s := &schedule.Schedule{
		ID:         dto.ID,
		TargetURL:  dto.TargetURL,
		Frequency:  schedule.Frequency(dto.Frequency),
		NextRun:    nextRun,
		Active:     dto.Active,
		CreatedAt:  createdAt,
		LastScanID: dto.LastScanID,
	}
	if dto.LastRun != "" {
		lastRun, err := time.Parse(time.RFC3339Nano, dto.LastRun)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last run: %w", err)
		}
		s.LastRun = &lastRun
	}
	return s, nil
}
