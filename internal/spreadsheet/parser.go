package spreadsheet

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"wagebrowser/pkg/contracts/domain"
)

// Format identifies a workbook container
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatXLS     Format = "xls"
	FormatUnknown Format = "unknown"
)

var (
	zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}
	oleMagic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
)

// suppressionTokens mark values the survey withholds
var suppressionTokens = map[string]struct{}{
	"*":  {},
	"**": {},
}

// Detect identifies the container format from the leading bytes
func Detect(b []byte) Format {
	switch {
	case bytes.HasPrefix(b, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(b, oleMagic):
		return FormatXLS
	default:
		return FormatUnknown
	}
}

// Parse decodes the primary sheet of a workbook. Failures are *ParseError.
func Parse(b []byte) (*domain.Table, error) {
	switch format := Detect(b); format {
	case FormatXLSX:
		return parseXLSX(b)
	case FormatXLS:
		return parseXLS(b)
	default:
		return nil, &ParseError{Format: format, Reason: "unrecognised file signature"}
	}
}

// textTyped reports whether the workbook stores the cell at (row, col) as a string
type textTyped func(row, col int) bool

func parseXLSX(b []byte) (table *domain.Table, err error) {
	defer recoverParse(FormatXLSX, &err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Reason: "open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Format: FormatXLSX, Reason: "workbook has no sheets"}
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Reason: fmt.Sprintf("read sheet %q", sheet), Err: err}
	}

	// Without the type scan every cell is classified by content, as for xls
	var isText textTyped
	if cells, err := scanTextCells(b); err == nil {
		isText = cells.has
	}

	return buildTable(rows, isText), nil
}

func parseXLS(b []byte) (table *domain.Table, err error) {
	// The BIFF reader panics on truncated or corrupt streams
	defer recoverParse(FormatXLS, &err)

	wb, err := xls.OpenReader(bytes.NewReader(b), "utf-8")
	if err != nil {
		return nil, &ParseError{Format: FormatXLS, Reason: "open workbook", Err: err}
	}
	if wb.NumSheets() == 0 {
		return nil, &ParseError{Format: FormatXLS, Reason: "workbook has no sheets"}
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, &ParseError{Format: FormatXLS, Reason: "primary sheet unreadable"}
	}

	var (
		rows  [][]string
		width int
	)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// Rows written without a ROW record report no columns, so read at
		// least as wide as the rows seen so far
		last := row.LastCol()
		if last > width {
			width = last
		}
		values := make([]string, width)
		for j := row.FirstCol(); j < width; j++ {
			values[j] = row.Col(j)
		}
		rows = append(rows, values)
	}

	return buildTable(rows, nil), nil
}

// xlsRow returns nil for a row index that has no records. WorkSheet.Row
// dereferences the missing row and panics.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func recoverParse(format Format, err *error) {
	if r := recover(); r != nil {
		*err = &ParseError{Format: format, Reason: "corrupt workbook", Err: fmt.Errorf("%v", r)}
	}
}

// buildTable turns raw sheet rows into a rectangular table. The first row is
// the header. Rows with no non-blank value are dropped.
func buildTable(rows [][]string, isText textTyped) *domain.Table {
	if len(rows) == 0 {
		return &domain.Table{Columns: []string{}, Cells: [][]domain.Cell{}}
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := headerNames(rows[0], width)

	cells := make([][]domain.Cell, 0, len(rows)-1)
	for r := 1; r < len(rows); r++ {
		raw := rows[r]
		if isBlankRow(raw) {
			continue
		}
		row := make([]domain.Cell, width)
		for c := 0; c < width; c++ {
			if c >= len(raw) {
				row[c] = domain.Missing
				continue
			}
			row[c] = Classify(raw[c], isText != nil && isText(r, c))
		}
		cells = append(cells, row)
	}

	return &domain.Table{
		RowCount: len(cells),
		Columns:  columns,
		Cells:    cells,
	}
}

// headerNames names every column. Blank names become "Unnamed: <i>" and
// repeats get ".1", ".2" suffixes in order of appearance.
func headerNames(header []string, width int) []string {
	columns := make([]string, width)
	seen := make(map[string]int, width)

	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		base := name
		for {
			n, dup := seen[name]
			if !dup {
				break
			}
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", base, n+1)
		}
		seen[name] = 0
		columns[i] = name
	}
	return columns
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Classify converts one raw cell value. storedAsText is true when the workbook
// itself types the cell as a string, which keeps numeric-looking text intact.
func Classify(raw string, storedAsText bool) domain.Cell {
	v := strings.TrimSpace(raw)
	if v == "" {
		return domain.Missing
	}
	if _, suppressed := suppressionTokens[v]; suppressed {
		return domain.Missing
	}
	if storedAsText {
		return domain.TextCell(raw)
	}
	if n, ok := parseNumber(v); ok {
		return domain.NumberCell(n)
	}
	return domain.TextCell(raw)
}

func parseNumber(v string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
