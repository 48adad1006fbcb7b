package models

// ExportFormat enumerates supported roster export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// RosterFile is a rendered course roster.
type RosterFile struct {
	FileName    string
	ContentType string
	Body        []byte
}
