// Package spreadsheet decodes OEWS workbooks into rectangular tables.
//
// Two container formats are recognised by their leading bytes: zip based XML
// workbooks (.xlsx) and legacy BIFF workbooks inside an OLE2 compound file
// (.xls). Only the first sheet is read. Its first row names the columns and
// every following row becomes a data row.
//
// Cell values are classified as follows:
//
//	blank, "*", "**"          missing
//	stored as a string        text, as written
//	numeric, commas allowed   number
//	anything else             text (including the "#" top-code marker)
//
// Legacy workbooks carry no usable cell type, so their cells are classified by
// content alone.
package spreadsheet
