package assistant

import (
	"fmt"
	"strings"
)

// DataContext is the table an analyst question refers to.
type DataContext struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

// maxMatchSamples bounds the rows quoted back by a search.
const maxMatchSamples = 3

var searchStopWords = map[string]bool{
	"find": true, "show": true, "search": true, "me": true, "all": true,
	"rows": true, "records": true, "with": true, "where": true,
}

// DataAnalyst answers counting, searching and summarizing questions about a
// small table.
type DataAnalyst struct{}

// Answer responds to query against data.
func (DataAnalyst) Answer(query string, data DataContext) string {
	q := strings.ToLower(query)

	if len(data.Rows) == 0 {
		return "I don't see any data in this table to analyze."
	}

	switch {
	case containsAny(q, "count", "how many"):
		return fmt.Sprintf("This dataset contains %d rows of data.", len(data.Rows))
	case containsAny(q, "find", "show", "search"):
		return search(q, data.Rows)
	case containsAny(q, "column", "header", "structure"):
		return fmt.Sprintf("The table has %d columns: %s.", len(data.Headers), strings.Join(data.Headers, ", "))
	case containsAny(q, "summarize", "summary"):
		return fmt.Sprintf("This is a %d-row dataset with columns: %s. It looks like a %s file.",
			len(data.Rows), strings.Join(data.Headers, ", "), GuessContentType(data.Headers))
	}
	return "I'm not sure how to answer that yet. Try asking 'How many rows?', 'Show me [keyword]', or 'Summarize'."
}

func search(q string, rows [][]any) string {
	var keyword string
	for _, w := range strings.Fields(q) {
		if !searchStopWords[w] {
			keyword = w
			break
		}
	}
	if keyword == "" {
		return "What would you like me to find? Try 'Find admin' or 'Show error'."
	}

	matches := 0
	var samples []string
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ToLower(fmt.Sprint(c))
		}
		if !strings.Contains(strings.Join(cells, " "), keyword) {
			continue
		}
		matches++
		if len(samples) < maxMatchSamples {
			samples = append(samples, fmt.Sprint(row))
		}
	}

	if matches == 0 {
		return fmt.Sprintf("I couldn't find any rows containing '%s'.", keyword)
	}
	return fmt.Sprintf("I found %d rows containing '%s'.\nHere are a few: %s", matches, keyword, strings.Join(samples, ", "))
}

// GuessContentType labels a table from its header names.
func GuessContentType(headers []string) string {
	joined := strings.ToLower(strings.Join(headers, " "))
	switch {
	case containsAny(joined, "email", "user"):
		return "User Directory"
	case containsAny(joined, "log", "ip"):
		return "Server Log"
	case containsAny(joined, "product", "price"):
		return "Inventory"
	default:
		return "General Data"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
