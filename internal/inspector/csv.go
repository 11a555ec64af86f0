package inspector

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/cybershield/shieldscan/internal/shared/text"
)

// CSVTableName is the single table reported for a CSV upload.
const CSVTableName = "CSV Data"

// analyzeCSV reads the header plus PreviewLimit rows. Rows in the table
// summary count every line after the header. A blank line yields an empty
// row. Undecodable or malformed input leaves the report invalid without an
// error message.
func analyzeCSV(content []byte) StructureReport {
	report := emptyReport()
	if !utf8.Valid(content) {
		return report
	}

	lines := text.SplitLines(string(content))
	if len(lines) == 0 {
		return report
	}

	head := lines
	if len(head) > PreviewLimit+1 {
		head = head[:PreviewLimit+1]
	}

	records := make([][]string, 0, len(head))
	for _, line := range head {
		rec, err := parseCSVLine(line)
		if err != nil {
			return report
		}
		records = append(records, rec)
	}

	headers := records[0]
	rows := make([][]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		rows = append(rows, row)
	}

	report.Valid = true
	report.Tables = append(report.Tables, TableSummary{
		Name:    CSVTableName,
		Columns: len(headers),
		Rows:    len(lines) - 1,
	})
	report.Preview = Preview{Headers: headers, Rows: rows}
	return report
}

// parseCSVLine parses one physical line. encoding/csv skips empty input, so
// a blank line is mapped to an empty record here.
func parseCSVLine(line string) ([]string, error) {
	if line == "" {
		return []string{}, nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rec, err := r.Read()
	if err == io.EOF {
		return []string{}, nil
	}
	return rec, err
}
