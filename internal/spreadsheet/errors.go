package spreadsheet

import "fmt"

// ParseError reports bytes that could not be decoded as a supported workbook
type ParseError struct {
	Format Format
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s workbook: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s workbook: %s", e.Format, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
