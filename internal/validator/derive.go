package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"

	"github.com/sells-group/qagen-cli/internal/model"
)

const sqlSystem = "You are a SQL expert translating natural-language questions into SQLite queries. Respond with exactly two queries in the requested format and nothing else."

const sqlPromptTemplate = `Generate two distinct SQLite queries against the table described below: one retrieving the **answer** to the question, one retrieving the **evidence** rows supporting that answer.

Instructions:
1. Quote any column name containing special characters or reserved words in double quotes.
2. The SQL_ANSWER query must yield the answer directly, as a single scalar in the first column of the first row.
3. The SQL_EVIDENCE query must return the rows serving as direct evidence, selecting an identifying column alongside the relevant evidence columns.
4. Target SQLite3; parenthesize all mathematical and logical expressions.

Table Information:

%s

Question:

%s

Output Format (no additional text):

SQL_ANSWER:
SELECT ... FROM unified_data WHERE ...;

SQL_EVIDENCE:
SELECT ... FROM unified_data WHERE ...;`

var (
	answerQueryPattern   = regexp.MustCompile(`(?is)SQL_ANSWER:\s*(.*?)(?:SQL_EVIDENCE:|$)`)
	evidenceQueryPattern = regexp.MustCompile(`(?is)SQL_EVIDENCE:\s*(.*)`)
	codeFencePattern     = regexp.MustCompile("(?s)^\\s*```(?:sql)?\\s*|\\s*```\\s*$")
)

// buildSQLPrompt describes the unified relation (columns plus one sample
// row per source table) and asks for the double query.
func buildSQLPrompt(question string, columns []string, tables []model.Table) string {
	var b strings.Builder
	b.WriteString("Table unified_data (Columns: " + strings.Join(columns, ", ") + ")\n")
	for i, table := range tables {
		if len(table.Rows) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("Sample row from source table %d: ", i))
		parts := make([]string, 0, len(table.Headers))
		for _, h := range table.Headers {
			if v, ok := table.Rows[0][h]; ok {
				parts = append(parts, h+": "+cast.ToString(v))
			}
		}
		b.WriteString(strings.Join(parts, ", ") + "\n")
	}
	return fmt.Sprintf(sqlPromptTemplate, b.String(), question)
}

// parseDoubleQuery extracts the SQL_ANSWER and SQL_EVIDENCE statements
// from model output. Missing either marker, or an empty statement after
// cleaning, is a hard failure for the item.
func parseDoubleQuery(text string) (answerSQL, evidenceSQL string, err error) {
	if m := answerQueryPattern.FindStringSubmatch(text); m != nil {
		answerSQL = cleanSQL(m[1])
	}
	if m := evidenceQueryPattern.FindStringSubmatch(text); m != nil {
		evidenceSQL = cleanSQL(m[1])
	}
	if answerSQL == "" || evidenceSQL == "" {
		return "", "", eris.Errorf("validator: response missing SQL_ANSWER or SQL_EVIDENCE markers: %.200s", text)
	}
	return answerSQL, evidenceSQL, nil
}

// cleanSQL strips code fences and keeps only the first statement when
// several are separated by semicolons.
func cleanSQL(s string) string {
	s = codeFencePattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	for _, stmt := range strings.Split(s, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			return stmt
		}
	}
	return ""
}
