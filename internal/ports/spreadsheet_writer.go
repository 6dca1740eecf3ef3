package ports

import "io"

// Contract for serializing one tabular sheet as a workbook.
type SpreadsheetWriter interface {
	WriteWorkbook(w io.Writer, sheet string, header []string, rows [][]string) error
}
