package spreadsheet

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	workbookPart     = "xl/workbook.xml"
	workbookRelsPart = "xl/_rels/workbook.xml.rels"
)

// stringCellTypes are the worksheet "t" attributes that hold text: shared,
// inline and formula string results
var stringCellTypes = map[string]bool{"s": true, "inlineStr": true, "str": true}

// textCells marks string typed cells by zero based row and column
type textCells [][]bool

func (t textCells) has(row, col int) bool {
	return row < len(t) && col < len(t[row]) && t[row][col]
}

func (t *textCells) set(row, col int) {
	for len(*t) <= row {
		*t = append(*t, nil)
	}
	r := (*t)[row]
	for len(r) <= col {
		r = append(r, false)
	}
	r[col] = true
	(*t)[row] = r
}

// scanTextCells streams the first worksheet of an xlsx package once and
// records which cells the workbook stores as strings. excelize exposes cell
// types only per cell through the full worksheet model.
func scanTextCells(b []byte) (textCells, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, err
	}

	sheetPath, err := firstSheetPath(zr)
	if err != nil {
		return nil, err
	}
	rc, err := openPart(zr, sheetPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		cells    textCells
		row, col int
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return cells, nil
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", sheetPath, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "row":
			row++
			if n, err := strconv.Atoi(attr(start, "r")); err == nil {
				row = n
			}
			col = 0
		case "c":
			col++
			if ref := attr(start, "r"); ref != "" {
				if c, r, err := excelize.CellNameToCoordinates(ref); err == nil {
					col, row = c, r
				}
			}
			if stringCellTypes[attr(start, "t")] && row > 0 {
				cells.set(row-1, col-1)
			}
		}
	}
}

// firstSheetPath resolves the part name of the first sheet listed in the workbook
func firstSheetPath(zr *zip.Reader) (string, error) {
	rc, err := openPart(zr, workbookPart)
	if err != nil {
		return "", err
	}
	var rid string
	dec := xml.NewDecoder(rc)
	for rid == "" {
		tok, err := dec.Token()
		if err != nil {
			rc.Close()
			return "", fmt.Errorf("scan %s: no sheets", workbookPart)
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "sheet" {
			rid = relID(start)
		}
	}
	rc.Close()

	rels, err := openPart(zr, workbookRelsPart)
	if err != nil {
		return "", err
	}
	defer rels.Close()

	dec = xml.NewDecoder(rels)
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("scan %s: relationship %q not found", workbookRelsPart, rid)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Relationship" || attr(start, "Id") != rid {
			continue
		}
		target := attr(start, "Target")
		if strings.HasPrefix(target, "/") {
			return strings.TrimPrefix(target, "/"), nil
		}
		return path.Join(path.Dir(workbookPart), target), nil
	}
}

func openPart(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("part %s not found", name)
}

func attr(start xml.StartElement, local string) string {
	for _, a := range start.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// relID returns the namespaced r:id attribute of a sheet element
func relID(start xml.StartElement) string {
	for _, a := range start.Attr {
		if a.Name.Space != "" && a.Name.Local == "id" {
			return a.Value
		}
	}
	return ""
}
