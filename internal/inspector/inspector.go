// Package inspector classifies uploaded data files and summarizes their
// structure: tables, column counts, primary keys, row counts and a short
// preview of the first table.
package inspector

import (
	"context"
)

// PreviewLimit bounds the number of rows returned in a preview.
const PreviewLimit = 20

// TableSummary describes one table found in a file.
type TableSummary struct {
	Name          string `json:"name"`
	Columns       int    `json:"columns"`
	HasPrimaryKey bool   `json:"has_primary_key"`
	Rows          int    `json:"rows"`
}

// Preview holds column headers and up to PreviewLimit rows.
type Preview struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// StructureReport is the outcome of a structural inspection. Failures are
// recorded in Error with Valid set to false.
type StructureReport struct {
	Valid   bool           `json:"valid"`
	Tables  []TableSummary `json:"tables"`
	Preview Preview        `json:"preview"`
	Error   string         `json:"error,omitempty"`
}

func emptyReport() StructureReport {
	return StructureReport{
		Tables:  []TableSummary{},
		Preview: Preview{Headers: []string{}, Rows: [][]any{}},
	}
}

// Inspector analyzes file structure. The zero value is ready to use.
type Inspector struct {
	// TempDir is where database uploads are materialized. Empty means the
	// system temporary directory.
	TempDir string
}

// AnalyzeStructure dispatches on the detected file type. It never returns an
// error; unsupported types yield an invalid, empty report.
func (i *Inspector) AnalyzeStructure(ctx context.Context, content []byte, fileType FileType) StructureReport {
	switch fileType {
	case FileTypeSQLite:
		return i.analyzeSQLite(ctx, content)
	case FileTypeCSV:
		return analyzeCSV(content)
	default:
		return emptyReport()
	}
}

// AnalyzeStructure inspects content with a default Inspector.
func AnalyzeStructure(ctx context.Context, content []byte, fileType FileType) StructureReport {
	var i Inspector
	return i.AnalyzeStructure(ctx, content, fileType)
}
