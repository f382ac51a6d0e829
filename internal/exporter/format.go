package exporter

import (
	"strconv"

	"wagebrowser/pkg/contracts/domain"
)

// formatFloat renders the shortest decimal that round-trips to f
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatCell renders one table cell as a CSV field
func formatCell(c domain.Cell) string {
	switch c.Kind {
	case domain.CellNumber:
		return formatFloat(c.Number)
	case domain.CellText:
		return c.Text
	default:
		return ""
	}
}

// formatRow renders a table row
func formatRow(row []domain.Cell) []string {
	record := make([]string, len(row))
	for i, c := range row {
		record[i] = formatCell(c)
	}
	return record
}
