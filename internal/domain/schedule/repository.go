package schedule

import "context"

// Repository defines the interface for schedule persistence
type Repository interface {
	// Save persists a schedule, assigning an ID when it has none
	Save(ctx context.Context, s *Schedule) error

	// FindByID retrieves a schedule by its ID
	FindByID(ctx context.Context, id int) (*Schedule, error)

	// FindAll retrieves every schedule in creation order
	FindAll(ctx context.Context) ([]*Schedule, error)

	// Delete removes a schedule, returning ErrScheduleNotFound when absent
	Delete(ctx context.Context, id int) error
}
