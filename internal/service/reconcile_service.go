package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/special-ed-api/internal/models"
	"github.com/noah-isme/special-ed-api/internal/registry"
	"github.com/noah-isme/special-ed-api/internal/repository"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
	"github.com/noah-isme/special-ed-api/pkg/tabular"
)

const stagingDropTimeout = 30 * time.Second

type warehouseRepository interface {
	Columns(ctx context.Context, loc registry.Locator) ([]string, error)
	CreateStaging(ctx context.Context, target registry.Locator) (registry.Locator, error)
	LoadRows(ctx context.Context, loc registry.Locator, columns []string, rows [][]interface{}) error
	Merge(ctx context.Context, target, staging registry.Locator, keyColumn string, columns []string) (int64, error)
	DropTable(ctx context.Context, loc registry.Locator) error
}

type entityResolver interface {
	Lookup(name string) (registry.Entity, error)
}

// UploadResult summarises one reconciled upload.
type UploadResult struct {
	Entity         string   `json:"entity"`
	Table          string   `json:"table"`
	RowsRead       int      `json:"rows_read"`
	RowsStaged     int      `json:"rows_staged"`
	RowsSkipped    int      `json:"rows_skipped"`
	RowsAffected   int64    `json:"rows_affected"`
	InvalidDates   int      `json:"invalid_dates"`
	DroppedColumns []string `json:"dropped_columns"`
}

// ReconcileService merges uploaded spreadsheets into warehouse tables.
type ReconcileService struct {
	entities  entityResolver
	warehouse warehouseRepository
	cache     *RowCache
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewReconcileService constructs the uploader.
func NewReconcileService(entities entityResolver, warehouse warehouseRepository, cache *RowCache, metrics *MetricsService, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{entities: entities, warehouse: warehouse, cache: cache, metrics: metrics, logger: logger}
}

// Upload parses the file named filename and reconciles it into the entity's table.
func (s *ReconcileService) Upload(ctx context.Context, entityName, filename string, file io.Reader) (UploadResult, error) {
	entity, err := s.entities.Lookup(entityName)
	if err != nil {
		return UploadResult{}, err
	}

	format, err := tabular.FormatFromFilename(filename)
	if err != nil {
		return UploadResult{}, appErrors.ErrUnsupportedFileType
	}

	table, err := tabular.Parse(file, format)
	if err != nil {
		if errors.Is(err, tabular.ErrUnsupportedFormat) {
			return UploadResult{}, appErrors.ErrUnsupportedFileType
		}
		return UploadResult{}, appErrors.WrapAs(appErrors.ErrValidation, err, fmt.Sprintf("could not read %s", filename))
	}

	return s.Reconcile(ctx, table, entity)
}

// Reconcile upserts table into the entity's warehouse table by key. Rows
// whose key matches an existing row overwrite the uploaded columns, new keys
// are inserted, and columns absent from the upload are left untouched. The
// staging table used on the way is dropped on every exit path.
func (s *ReconcileService) Reconcile(ctx context.Context, table *tabular.Table, entity registry.Entity) (result UploadResult, err error) {
	result = UploadResult{
		Entity:         entity.Name,
		Table:          entity.Locator.String(),
		RowsRead:       len(table.Rows),
		DroppedColumns: []string{},
	}
	defer func() {
		s.metrics.ObserveUpload(entity.Name, result, err)
	}()

	if len(table.Rows) == 0 {
		s.logger.Info("upload contained no rows", zap.String("entity", entity.Name))
		return result, nil
	}

	start := time.Now()
	targetColumns, err := s.warehouse.Columns(ctx, entity.Locator)
	s.metrics.ObserveWarehouse("columns", entity.Name, time.Since(start))
	if err != nil {
		return result, warehouseError(appErrors.ErrSchemaLookupFailed, err, fmt.Sprintf("schema lookup failed for %s", entity.Locator))
	}

	plan := projectColumns(table.Columns, targetColumns)
	result.DroppedColumns = plan.dropped
	keyIndex := plan.indexOf(entity.KeyColumn)
	if keyIndex < 0 {
		return result, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file is missing key column %s", entity.KeyColumn))
	}

	norm := newNormalizer(entity)
	rows := make([][]interface{}, 0, len(table.Rows))
	for _, cells := range table.Rows {
		if strings.TrimSpace(cells[plan.sources[keyIndex]]) == "" {
			result.RowsSkipped++
			continue
		}
		values := make([]interface{}, len(plan.columns))
		for i, column := range plan.columns {
			values[i] = norm.value(column, cells[plan.sources[i]])
		}
		rows = append(rows, values)
	}
	result.InvalidDates = norm.invalidDates
	if result.RowsSkipped > 0 {
		s.logger.Warn("skipped upload rows without key",
			zap.String("entity", entity.Name), zap.Int("rows", result.RowsSkipped))
	}
	if len(rows) == 0 {
		return result, nil
	}

	start = time.Now()
	staging, err := s.warehouse.CreateStaging(ctx, entity.Locator)
	s.metrics.ObserveWarehouse("create_staging", entity.Name, time.Since(start))
	if err != nil {
		return result, warehouseError(appErrors.ErrStagingWriteFailed, err, fmt.Sprintf("could not create staging table for %s", entity.Locator))
	}
	defer s.dropStaging(ctx, entity, staging)

	start = time.Now()
	err = s.warehouse.LoadRows(ctx, staging, plan.columns, rows)
	s.metrics.ObserveWarehouse("load_staging", entity.Name, time.Since(start))
	if err != nil {
		return result, warehouseError(appErrors.ErrStagingWriteFailed, err, fmt.Sprintf("could not load rows into staging table for %s", entity.Locator))
	}
	result.RowsStaged = len(rows)

	start = time.Now()
	affected, err := s.warehouse.Merge(ctx, entity.Locator, staging, entity.KeyColumn, plan.columns)
	s.metrics.ObserveWarehouse("merge", entity.Name, time.Since(start))
	if err != nil {
		return result, warehouseError(appErrors.ErrMergeExecutionFailed, err, fmt.Sprintf("merge into %s failed", entity.Locator))
	}
	result.RowsAffected = affected

	s.cache.Invalidate(ctx, entity)
	s.logger.Info("upload merged",
		zap.String("entity", entity.Name),
		zap.String("table", entity.Locator.String()),
		zap.Int("rows_read", result.RowsRead),
		zap.Int("rows_staged", result.RowsStaged),
		zap.Int("rows_skipped", result.RowsSkipped),
		zap.Int64("rows_affected", result.RowsAffected),
		zap.Strings("dropped_columns", result.DroppedColumns),
	)
	return result, nil
}

func (s *ReconcileService) dropStaging(ctx context.Context, entity registry.Entity, staging registry.Locator) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stagingDropTimeout)
	defer cancel()

	start := time.Now()
	err := s.warehouse.DropTable(ctx, staging)
	s.metrics.ObserveWarehouse("drop_staging", entity.Name, time.Since(start))
	if err != nil {
		s.logger.Error("failed to drop staging table", zap.String("table", staging.String()), zap.Error(err))
	}
}

// columnPlan maps target columns to their source index in the upload.
type columnPlan struct {
	columns []string
	sources []int
	dropped []string
}

func (p columnPlan) indexOf(column string) int {
	for i, c := range p.columns {
		if c == column {
			return i
		}
	}
	return -1
}

// projectColumns matches upload headers to target columns ignoring case and
// surrounding whitespace. Unmatched and repeated headers are dropped.
func projectColumns(headers, target []string) columnPlan {
	byName := make(map[string]string, len(target))
	for _, column := range target {
		byName[strings.ToLower(strings.TrimSpace(column))] = column
	}

	plan := columnPlan{dropped: []string{}}
	used := make(map[string]bool, len(headers))
	for i, header := range headers {
		column, ok := byName[strings.ToLower(strings.TrimSpace(header))]
		if !ok || used[column] {
			if strings.TrimSpace(header) != "" {
				plan.dropped = append(plan.dropped, header)
			}
			continue
		}
		used[column] = true
		plan.columns = append(plan.columns, column)
		plan.sources = append(plan.sources, i)
	}
	return plan
}

type normalizer struct {
	dates        map[string]bool
	texts        map[string]bool
	invalidDates int
}

func newNormalizer(entity registry.Entity) *normalizer {
	n := &normalizer{
		dates: make(map[string]bool, len(entity.DateColumns)),
		texts: make(map[string]bool, len(entity.TextColumns)),
	}
	for _, c := range entity.DateColumns {
		n.dates[c] = true
	}
	for _, c := range entity.TextColumns {
		n.texts[c] = true
	}
	return n
}

// value converts one cell into the value staged for column. Blank cells and
// unparsable dates become NULL.
func (n *normalizer) value(column, cell string) interface{} {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	switch {
	case n.dates[column]:
		t, ok := models.ParseDate(cell)
		if !ok {
			n.invalidDates++
			return nil
		}
		return t.Format(models.DateLayout)
	case n.texts[column]:
		return models.NumberText(cell)
	default:
		return cell
	}
}

func warehouseError(base *appErrors.Error, err error, message string) *appErrors.Error {
	if repository.IsTransient(err) {
		return appErrors.WrapAs(appErrors.ErrWarehouseUnavailable, err, "")
	}
	return appErrors.WrapAs(base, err, message)
}
