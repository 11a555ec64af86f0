package inspector

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// FileType is the classification of an uploaded file.
type FileType string

const (
	FileTypeSQLite  FileType = "SQLite Database"
	FileTypeJSON    FileType = "JSON Data"
	FileTypeCSV     FileType = "CSV Dataset"
	FileTypeSQLDump FileType = "SQL Dump"
	FileTypeUnknown FileType = "Unknown Binary/Text"
)

// Recognized reports whether the type is anything other than unknown.
func (t FileType) Recognized() bool {
	return t != FileTypeUnknown && t != ""
}

// sqliteMagic must appear within the first sqliteHeaderLen bytes.
var sqliteMagic = []byte("SQLite format 3")

const sqliteHeaderLen = 16

// DetectFileType classifies by extension, then confirms database and JSON
// files by content. Extensions are matched case-insensitively.
func DetectFileType(filename string, content []byte) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".db", ".sqlite":
		header := content
		if len(header) > sqliteHeaderLen {
			header = header[:sqliteHeaderLen]
		}
		if bytes.Contains(header, sqliteMagic) {
			return FileTypeSQLite
		}
	case ".json":
		if utf8.Valid(content) && json.Valid(content) {
			return FileTypeJSON
		}
	case ".csv":
		return FileTypeCSV
	case ".sql":
		return FileTypeSQLDump
	}
	return FileTypeUnknown
}
