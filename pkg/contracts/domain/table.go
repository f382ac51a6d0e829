package domain

import (
	"encoding/json"
	"strconv"
)

// CellKind classifies a table cell
type CellKind uint8

const (
	// CellMissing marks a blank or suppressed source value
	CellMissing CellKind = iota
	CellNumber
	CellText
)

// String returns the kind name
func (k CellKind) String() string {
	switch k {
	case CellNumber:
		return "number"
	case CellText:
		return "text"
	default:
		return "missing"
	}
}

// Cell is a heterogeneous scalar value of a parsed spreadsheet.
// The zero value is the missing marker.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// Missing is the explicit missing marker. Suppressed values are never coerced to zero.
var Missing = Cell{Kind: CellMissing}

// NumberCell creates a numeric cell
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// TextCell creates a text cell
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// IsMissing reports whether the cell carries the missing marker
func (c Cell) IsMissing() bool {
	return c.Kind == CellMissing
}

// String renders the cell for plain-text output. Missing renders empty.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// MarshalJSON encodes missing as null, numbers as JSON numbers and text as strings
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellNumber:
		return json.Marshal(c.Number)
	case CellText:
		return json.Marshal(c.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*c = Missing
	case float64:
		*c = NumberCell(val)
	case string:
		*c = TextCell(val)
	default:
		*c = TextCell(string(data))
	}
	return nil
}

// Table is the rectangular result of parsing one spreadsheet. Every row in
// Cells has exactly len(Columns) cells.
type Table struct {
	RowCount int      `json:"row_count"`
	Columns  []string `json:"columns"`
	Cells    [][]Cell `json:"cells"`
}

// Head returns a copy of the table limited to the first n rows.
// A non-positive n returns the table unchanged.
func (t *Table) Head(n int) *Table {
	if t == nil || n <= 0 || n >= len(t.Cells) {
		return t
	}
	return &Table{
		RowCount: n,
		Columns:  t.Columns,
		Cells:    t.Cells[:n],
	}
}

// LoadedFile is the composed result of fetching and parsing one descriptor
type LoadedFile struct {
	Descriptor FileDescriptor `json:"descriptor"`
	Table      *Table         `json:"table"`
	Raw        []byte         `json:"-"`
}
