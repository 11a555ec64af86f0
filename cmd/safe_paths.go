package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	consts "github.com/cybershield/shieldscan/internal/shared/constants"
	"github.com/cybershield/shieldscan/internal/shared/security"
)

const reportsDirName = "reports"

// resolveReportPath places a scan export under <results-dir>/reports and
// refuses paths that would leave the results directory.
func resolveReportPath(resultsDir string, scanID int, format string) (string, error) {
	if scanID <= 0 {
		return "", fmt.Errorf("invalid scan ID %d", scanID)
	}
	if !safeExtension(format) {
		return "", &InvalidFormatError{Format: format, Allowed: reportFormats}
	}
	return security.ResolveWithin(resultsDir, reportsDirName, fmt.Sprintf("scan-%d.%s", scanID, format))
}

// safeExtension accepts a single path element with no separators or dot runs.
func safeExtension(ext string) bool {
	if ext == "" || strings.Contains(ext, "..") || strings.ContainsAny(ext, `/\`) {
		return false
	}
	return filepath.Base(ext) == ext
}

// ensureParentDir creates the directory that will hold path.
func ensureParentDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	return nil
}
