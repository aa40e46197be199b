package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/qagen-cli/internal/model"
)

func financialTable() model.Table {
	return model.Table{
		Headers: []string{"code", "sname", "tdate", "value", "metric"},
		Rows: []map[string]any{
			{"code": "600519", "sname": "贵州茅台", "tdate": "2023-03-31", "value": 100000000.0, "metric": "营业收入"},
			{"code": "600519", "sname": "贵州茅台", "tdate": "2023-06-30", "value": 90000000.0, "metric": "营业收入"},
			{"code": "600519", "sname": "贵州茅台", "tdate": "2023-09-30", "value": 73435420.0, "metric": "营业收入"},
		},
	}
}

func TestMaterialize_UnsupportedDomain(t *testing.T) {
	_, err := Materialize("astrology", []model.Table{financialTable()})
	require.Error(t, err)
}

func TestMaterialize_EmptyTables(t *testing.T) {
	r, err := Materialize("financial", nil)
	require.NoError(t, err)
	defer r.Close()

	_, rows, err := r.Execute(context.Background(), "SELECT * FROM unified_data")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecute_SelectAll(t *testing.T) {
	r, err := Materialize("financial", []model.Table{financialTable()})
	require.NoError(t, err)
	defer r.Close()

	cols, rows, err := r.Execute(context.Background(), "SELECT * FROM unified_data ORDER BY tdate")
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "sname", "tdate", "value", "metric"}, cols)
	require.Len(t, rows, 3)
	assert.Equal(t, "600519", rows[0]["code"])
	assert.Equal(t, 100000000.0, rows[0]["value"])
}

func TestExecute_Aggregate(t *testing.T) {
	r, err := Materialize("financial", []model.Table{financialTable()})
	require.NoError(t, err)
	defer r.Close()

	cols, rows, err := r.Execute(context.Background(), "SELECT (SUM(value)) AS total FROM unified_data WHERE metric = '营业收入'")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 263435420.0, rows[0][cols[0]])
}

func TestExecute_InvalidSQL(t *testing.T) {
	r, err := Materialize("financial", []model.Table{financialTable()})
	require.NoError(t, err)
	defer r.Close()

	_, _, err = r.Execute(context.Background(), "SELECT value FROM no_such_table")
	require.Error(t, err)
}

func TestMaterialize_SourceAliasColumns(t *testing.T) {
	table := model.Table{
		Headers: []string{"股票代码", "股票简称", "时间", "value", "指标"},
		Rows: []map[string]any{
			{"股票代码": "000858", "股票简称": "五粮液", "时间": "2023-03-31", "value": "1.5万", "指标": "净利润"},
		},
	}

	r, err := Materialize("financial", []model.Table{table})
	require.NoError(t, err)
	defer r.Close()

	_, rows, err := r.Execute(context.Background(), "SELECT code, value FROM unified_data")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "000858", rows[0]["code"])
	// Suffixed string values are normalized to numbers at insert time.
	assert.Equal(t, 15000.0, rows[0]["value"])
}

func TestMaterialize_MedicalSchema(t *testing.T) {
	table := model.Table{
		Headers: []string{"patient_id", "timestamp", "variable_name", "value", "table_type"},
		Rows: []map[string]any{
			{"patient_id": "P-102", "timestamp": "2021-07-04 08:00", "variable_name": "heart_rate", "value": 88, "table_type": "vitals"},
		},
	}

	r, err := Materialize("medical", []model.Table{table})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"patient_id", "timestamp", "variable_name", "value", "table_type"}, r.SchemaColumns())

	_, rows, err := r.Execute(context.Background(), "SELECT value FROM unified_data WHERE variable_name = 'heart_rate'")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 88.0, rows[0]["value"])
}
