package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/special-ed-api/internal/models"
	"github.com/noah-isme/special-ed-api/internal/registry"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
)

type stubRowLister struct {
	rows []models.Row
	name string
}

func (s *stubRowLister) List(ctx context.Context, name string) ([]models.Row, error) {
	s.name = name
	return s.rows, nil
}

func newExportFixture(rows []models.Row) (*ExportService, *stubRowLister) {
	lister := &stubRowLister{rows: rows}
	svc := NewExportService(registry.New(nil), lister, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC) }
	return svc, lister
}

func TestExportServiceCSV(t *testing.T) {
	svc, lister := newExportFixture([]models.Row{
		{"class_id": "C001", "class_name": "Sunflowers", "grade_level": "3", "room_number": "12"},
	})

	file, err := svc.Export(context.Background(), registry.Class, "")
	require.NoError(t, err)
	assert.Equal(t, registry.Class, lister.name)
	assert.Equal(t, "class_20240901_083000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "class_id,class_name,grade_level,teacher_id,room_number,schedule", lines[0])
	assert.Equal(t, "C001,Sunflowers,3,,12,", lines[1])
}

func TestExportServicePDF(t *testing.T) {
	svc, _ := newExportFixture([]models.Row{{"student_id": "S001", "first_name": "Ana"}})

	file, err := svc.Export(context.Background(), registry.Student, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportFixture(nil)

	_, err := svc.Export(context.Background(), registry.Student, "xml")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestExportServiceUnknownEntity(t *testing.T) {
	svc, _ := newExportFixture(nil)

	_, err := svc.Export(context.Background(), "guardian", "csv")
	assert.ErrorIs(t, err, appErrors.ErrUnknownEntity)
}
