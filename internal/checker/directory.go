package checker

import (
	"context"

	"github.com/cybershield/shieldscan/internal/domain/finding"
)

// DirectoryCheckName labels open directory findings.
const DirectoryCheckName = "Open Directory"

// DirectoryCheck is the slot for directory-listing detection. It currently
// produces no findings.
type DirectoryCheck struct{}

func (c *DirectoryCheck) Name() string { return DirectoryCheckName }

func (c *DirectoryCheck) Run(context.Context, string) []finding.Finding {
	return nil
}
