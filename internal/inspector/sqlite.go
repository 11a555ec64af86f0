package inspector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

func (i *Inspector) analyzeSQLite(ctx context.Context, content []byte) StructureReport {
	report := emptyReport()

	scoped, err := NewScopedFile(i.TempDir, "upload.db", content)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer scoped.Release()

	if err := inspectDatabase(ctx, scoped.Path(), &report); err != nil {
		report.Valid = false
		report.Error = err.Error()
		return report
	}
	report.Valid = true
	return report
}

// inspectDatabase fills report with every table it can read. Tables gathered
// before a failure are kept.
func inspectDatabase(ctx context.Context, path string, report *StructureReport) error {
	db, err := sql.Open(sqliteDriver, "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	names, err := listTables(ctx, db)
	if err != nil {
		return err
	}

	for idx, name := range names {
		columns, hasPK, err := tableColumns(ctx, db, name)
		if err != nil {
			return err
		}
		report.Tables = append(report.Tables, TableSummary{
			Name:          name,
			Columns:       len(columns),
			HasPrimaryKey: hasPK,
			Rows:          countRows(ctx, db, name),
		})

		if idx == 0 {
			rows, err := previewRows(ctx, db, name)
			if err != nil {
				return err
			}
			report.Preview = Preview{Headers: columns, Rows: rows}
		}
	}
	return nil
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// tableColumns returns column names in declaration order and whether any
// column is part of the primary key.
func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, bool, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var (
		columns []string
		hasPK   bool
	)
	for rows.Next() {
		var (
			cid      int
			name     string
			colType  string
			notNull  int
			defValue any
			pk       int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defValue, &pk); err != nil {
			return nil, false, fmt.Errorf("scan column of %s: %w", table, err)
		}
		columns = append(columns, name)
		if pk > 0 {
			hasPK = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("table info %s: %w", table, err)
	}
	return columns, hasPK, nil
}

// countRows returns 0 when the table cannot be counted.
func countRows(ctx context.Context, db *sql.DB, table string) int {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		return 0
	}
	return n
}

func previewRows(ctx context.Context, db *sql.DB, table string) ([][]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table), PreviewLimit)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", table, err)
	}

	out := [][]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan preview row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("preview %s: %w", table, err)
	}
	return out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
