package scan

import "context"

// Repository defines the interface for scan history persistence
type Repository interface {
	// Save persists a record, assigning an ID when it has none
	Save(ctx context.Context, record *Record) error

	// FindByID retrieves a record by its ID
	FindByID(ctx context.Context, id int) (*Record, error)

	// List returns records newest first, skipping offset and returning at
	// most limit (limit <= 0 means all)
	List(ctx context.Context, offset, limit int) ([]*Record, error)

	// FindAll retrieves every record in storage order
	FindAll(ctx context.Context) ([]*Record, error)

	// Delete removes the given IDs and reports how many existed
	Delete(ctx context.Context, ids ...int) (int, error)
}
