// Package exporter writes parsed OEWS tables as CSV.
//
// CSVWriter is the low level writer with optional UTF-8 BOM for Excel
// compatibility. WriteTable renders a domain.Table with its header row;
// missing cells become empty fields.
//
// Example usage:
//
//	// Stream a table to an HTTP response
//	err := exporter.WriteTable(w, loaded.Table, exporter.TableOptions{BOMPrefix: true})
//
//	// Save a table next to the current directory
//	err = exporter.NewCSVWriter(logger).ExportTable("state_M2023_dl.csv", loaded.Table, exporter.TableOptions{})
package exporter
