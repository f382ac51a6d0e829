package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagebrowser/internal/shared/testutil"
	"wagebrowser/pkg/contracts/domain"
)

func wageTable() *domain.Table {
	return &domain.Table{
		RowCount: 3,
		Columns:  []string{"AREA_TITLE", "OCC_TITLE", "A_MEAN", "H_MEDIAN"},
		Cells: [][]domain.Cell{
			{domain.TextCell("Alabama"), domain.TextCell("All Occupations"), domain.NumberCell(55000), domain.NumberCell(21.5)},
			{domain.TextCell("Alaska"), domain.TextCell("Chief Executives, All"), domain.Missing, domain.TextCell("*")},
			{domain.TextCell("Arizona"), domain.TextCell("Dentists"), domain.NumberCell(1.25e5), domain.Missing},
		},
	}
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name: "basic write with headers",
			options: WriteOptions{
				Headers: []string{"Name", "Wage"},
				Records: [][]string{{"Alabama", "55000"}, {"Alaska", ""}},
			},
			want: "Name,Wage\nAlabama,55000\nAlaska,\n",
		},
		{
			name: "write without headers",
			options: WriteOptions{
				Records: [][]string{{"a", "b"}},
			},
			want: "a,b\n",
		},
		{
			name: "quotes fields with separators",
			options: WriteOptions{
				Headers: []string{"OCC_TITLE"},
				Records: [][]string{{"Chief Executives, All"}},
			},
			want: "OCC_TITLE\n\"Chief Executives, All\"\n",
		},
		{
			name: "write with BOM prefix",
			options: WriteOptions{
				Headers:   []string{"A"},
				BOMPrefix: true,
			},
			want: "\xEF\xBB\xBFA\n",
		},
	}

	writer := NewCSVWriter(testutil.DiscardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writer.WriteCSV(&buf, tt.options))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, wageTable(), TableOptions{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "AREA_TITLE,OCC_TITLE,A_MEAN,H_MEDIAN", lines[0])
	assert.Equal(t, "Alabama,All Occupations,55000,21.5", lines[1])
	assert.Equal(t, `Alaska,"Chief Executives, All",,*`, lines[2])
	assert.Equal(t, "Arizona,Dentists,125000,", lines[3])
}

func TestWriteTable_Limit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, wageTable(), TableOptions{Limit: 1, BOMPrefix: true}))

	content := buf.Bytes()
	assert.True(t, bytes.HasPrefix(content, utf8BOM))
	lines := strings.Split(strings.TrimSpace(string(content[len(utf8BOM):])), "\n")
	assert.Len(t, lines, 2, "header and one row")
}

func TestWriteTable_Nil(t *testing.T) {
	assert.Error(t, WriteTable(&bytes.Buffer{}, nil, TableOptions{}))
}

func TestCSVWriter_ExportTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "state.csv")
	logger, logs := testutil.NewTestLogger(t)

	require.NoError(t, NewCSVWriter(logger).ExportTable(path, wageTable(), TableOptions{Limit: 2}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Len(t, lines, 3)
	testutil.AssertLogAttr(t, logs, "record_count", int64(2))
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", formatCell(domain.Missing))
	assert.Equal(t, "0.1", formatCell(domain.NumberCell(0.1)))
	assert.Equal(t, "1234567.89", formatCell(domain.NumberCell(1234567.89)))
	assert.Equal(t, "**", formatCell(domain.TextCell("**")))
}
