package cmd

import "fmt"

// ScanNotFoundError indicates a scan history lookup failure.
type ScanNotFoundError struct {
	ID int
}

func (e *ScanNotFoundError) Error() string {
	return fmt.Sprintf("scan %d not found", e.ID)
}

// InvalidFormatError signals an unsupported --format value.
type InvalidFormatError struct {
	Format  string
	Allowed []string
}

func (e *InvalidFormatError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid format: %s", e.Format)
	}
	return fmt.Sprintf("invalid format: %s (must be one of %v)", e.Format, e.Allowed)
}
