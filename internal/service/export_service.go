package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/crud"
	"github.com/noah-isme/academy-admin/pkg/export"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

// Supported export formats.
const (
	ExportCSV = "csv"
	ExportPDF = "pdf"
)

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders filtered entity listings as CSV or PDF downloads.
type ExportService struct {
	renderers map[string]tableRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(csv *export.CSVExporter, pdf *export.PDFExporter, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		renderers: map[string]tableRenderer{ExportCSV: csv, ExportPDF: pdf},
		logger:    logger,
		now:       time.Now,
	}
}

// BuildTable projects rows through the screen's export columns.
func BuildTable[T crud.Record](title string, columns []crud.Column[T], rows []crud.Row[T]) export.Table {
	table := export.Table{Title: title, Headers: make([]string, len(columns)), Rows: make([][]string, 0, len(rows))}
	for i, col := range columns {
		table.Headers[i] = col.Header
	}
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = col.Value(row)
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

// Render encodes table in format. The file name is derived from key and the current date.
func (s *ExportService) Render(key, format string, table export.Table) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("Unsupported export format %q", format))
	}
	data, err := renderer.Render(table)
	if err != nil {
		s.logger.Error("export render failed", zap.String("entity", key), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", key, s.now().UTC().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}
