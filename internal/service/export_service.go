package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/special-ed-api/internal/models"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
	"github.com/noah-isme/special-ed-api/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type rowLister interface {
	List(ctx context.Context, name string) ([]models.Row, error)
}

type renderer interface {
	ContentType() string
	Extension() string
	Render(w io.Writer, data export.Dataset) error
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders an entity's current rows as a downloadable file.
type ExportService struct {
	entities  entityResolver
	rows      rowLister
	renderers map[string]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(entities entityResolver, rows rowLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		entities: entities,
		rows:     rows,
		renderers: map[string]renderer{
			FormatCSV: export.NewCSVExporter(),
			FormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Export renders the rows of entity name in format; an empty format means CSV.
func (s *ExportService) Export(ctx context.Context, name, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	entity, err := s.entities.Lookup(name)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows.List(ctx, name)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		records[i] = row
	}
	title := fmt.Sprintf("%s%s records (%s)", strings.ToUpper(entity.Name[:1]), entity.Name[1:], entity.Locator)
	dataset := export.FromRecords(title, entity.Columns, records)

	var buf bytes.Buffer
	if err := r.Render(&buf, dataset); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, fmt.Sprintf("failed to render %s export", format))
	}

	s.logger.Info("rows exported", zap.String("entity", entity.Name), zap.String("format", format), zap.Int("rows", len(rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", entity.Name, s.now().UTC().Format("20060102_150405"), r.Extension()),
		ContentType: r.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
