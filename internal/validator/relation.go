package validator

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	_ "modernc.org/sqlite"

	"github.com/sells-group/qagen-cli/internal/model"
)

// columnSpec maps one unified-relation column onto the source row keys
// that may carry it.
type columnSpec struct {
	Name    string
	Aliases []string
	Numeric bool
}

// domainSchemas defines the unified relation per corpus domain. Every
// domain collapses to five columns: identifier-ish columns, value,
// metric.
var domainSchemas = map[string][]columnSpec{
	"financial": {
		{Name: "code", Aliases: []string{"code", "股票代码"}},
		{Name: "sname", Aliases: []string{"sname", "股票简称", "name"}},
		{Name: "tdate", Aliases: []string{"tdate", "date", "时间"}},
		{Name: "value", Aliases: []string{"value"}, Numeric: true},
		{Name: "metric", Aliases: []string{"metric", "指标"}},
	},
	"medical": {
		{Name: "patient_id", Aliases: []string{"patient_id", "PatientID"}},
		{Name: "timestamp", Aliases: []string{"timestamp", "time_event", "time"}},
		{Name: "variable_name", Aliases: []string{"variable_name"}},
		{Name: "value", Aliases: []string{"value"}, Numeric: true},
		{Name: "table_type", Aliases: []string{"table_type", "type"}},
	},
}

// Relation is the ephemeral in-memory table a single validation call
// executes derived queries against. Always Close it; nothing survives
// between items.
type Relation struct {
	db     *sql.DB
	schema []columnSpec
}

// Materialize builds a fresh in-memory sqlite relation named
// unified_data from the given tables, using the domain's column schema.
func Materialize(domain string, tables []model.Table) (*Relation, error) {
	schema, ok := domainSchemas[domain]
	if !ok {
		return nil, eris.Errorf("validator: unsupported domain %q", domain)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, eris.Wrap(err, "validator: open in-memory sqlite")
	}
	// The relation is ephemeral and single-connection by design; a
	// second connection would see a different empty :memory: database.
	db.SetMaxOpenConns(1)

	ddl := "CREATE TABLE unified_data ("
	placeholders := ""
	for i, col := range schema {
		if i > 0 {
			ddl += ", "
			placeholders += ", "
		}
		if col.Numeric {
			ddl += col.Name + " REAL"
		} else {
			ddl += col.Name + " TEXT"
		}
		placeholders += "?"
	}
	ddl += ")"

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "validator: create unified_data")
	}

	insert := "INSERT INTO unified_data VALUES (" + placeholders + ")"
	for _, table := range tables {
		for _, row := range table.Rows {
			args := make([]any, len(schema))
			for i, col := range schema {
				args[i] = lookupColumn(row, col)
			}
			if _, err := db.Exec(insert, args...); err != nil {
				db.Close()
				return nil, eris.Wrap(err, "validator: insert row")
			}
		}
	}

	return &Relation{db: db, schema: schema}, nil
}

func lookupColumn(row map[string]any, col columnSpec) any {
	for _, alias := range col.Aliases {
		v, ok := row[alias]
		if !ok {
			continue
		}
		if col.Numeric {
			if f, ok := NormalizeValue(v); ok {
				return f
			}
			return 0.0
		}
		return cast.ToString(v)
	}
	if col.Numeric {
		return 0.0
	}
	return ""
}

// Execute runs one derived query and returns its column names in
// SELECT order alongside the rows as column→value mappings. The column
// order matters: the answer query's scalar is defined as the first
// column of the first row.
func (r *Relation) Execute(ctx context.Context, query string) ([]string, []map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "validator: execute %q", query)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, eris.Wrap(err, "validator: read columns")
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, eris.Wrap(err, "validator: scan row")
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return cols, out, eris.Wrap(rows.Err(), "validator: iterate rows")
}

// Close tears the relation down.
func (r *Relation) Close() error {
	return r.db.Close()
}

// SchemaColumns returns the unified relation's column names in order.
func (r *Relation) SchemaColumns() []string {
	names := make([]string, len(r.schema))
	for i, c := range r.schema {
		names[i] = c.Name
	}
	return names
}
