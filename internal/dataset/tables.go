package dataset

import (
	"regexp"
	"strings"

	"github.com/sells-group/qagen-cli/internal/model"
)

// tablePattern matches a GitHub-style markdown table: a header row, a
// separator row of dashes/colons, and one or more data rows.
var tablePattern = regexp.MustCompile(`(?m)^\|(.+)\|\s*\n\|[\s\-:|]+\|\s*\n((?:\|.*\|\s*\n?)+)`)

// ExtractTables pulls markdown tables out of free text. Rows whose
// column count does not match the header are dropped; a table with no
// surviving rows is omitted entirely.
func ExtractTables(text string) []model.Table {
	if !strings.Contains(text, "|") {
		return nil
	}

	var tables []model.Table
	for _, match := range tablePattern.FindAllStringSubmatch(text, -1) {
		headers := splitRow(match[1])
		if len(headers) == 0 {
			continue
		}

		var rows []map[string]any
		for _, line := range strings.Split(match[2], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			cols := splitRow(strings.Trim(line, "|"))
			if len(cols) != len(headers) {
				continue
			}
			row := make(map[string]any, len(headers))
			for i, h := range headers {
				row[h] = cols[i]
			}
			rows = append(rows, row)
		}

		if len(rows) > 0 {
			tables = append(tables, model.Table{Headers: headers, Rows: rows})
		}
	}
	return tables
}

func splitRow(row string) []string {
	var cells []string
	for _, c := range strings.Split(row, "|") {
		c = strings.TrimSpace(c)
		if c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}
