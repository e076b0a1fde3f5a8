package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/special-ed-api/internal/models"
	"github.com/noah-isme/special-ed-api/internal/registry"
	"github.com/noah-isme/special-ed-api/internal/repository"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
)

type recordRepository interface {
	List(ctx context.Context, entity registry.Entity) ([]models.Row, error)
	Insert(ctx context.Context, entity registry.Entity, records []models.Record, assign repository.KeyAssigner) ([]string, error)
	Update(ctx context.Context, entity registry.Entity, records []models.Record) (int64, error)
	Delete(ctx context.Context, entity registry.Entity, key string) (int64, error)
	Save(ctx context.Context, entity registry.Entity, updates, inserts []models.Record, assign repository.KeyAssigner) ([]string, int64, error)
}

// SaveResult reports what a dashboard save batch changed.
type SaveResult struct {
	Added   []string `json:"added"`
	Updated int64    `json:"updated"`
}

// RecordService lists and edits entity rows.
type RecordService struct {
	entities  entityResolver
	repo      recordRepository
	cache     *RowCache
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRecordService constructs the row service.
func NewRecordService(entities entityResolver, repo recordRepository, cache *RowCache, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *RecordService {
	if validate == nil {
		validate = validator.New()
		models.RegisterValidators(validate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{entities: entities, repo: repo, cache: cache, validator: validate, metrics: metrics, logger: logger}
}

// Decode parses one JSON object into the entity's typed record.
func (s *RecordService) Decode(name string, raw json.RawMessage) (models.Record, error) {
	entity, err := s.entities.Lookup(name)
	if err != nil {
		return nil, err
	}
	record := entity.NewRecord()
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, fmt.Sprintf("invalid %s payload", name))
	}
	return record, nil
}

// List returns every row of the entity, from the row cache when possible.
func (s *RecordService) List(ctx context.Context, name string) ([]models.Row, error) {
	entity, err := s.entities.Lookup(name)
	if err != nil {
		return nil, err
	}
	if rows, ok := s.cache.Rows(ctx, entity); ok {
		return rows, nil
	}

	start := time.Now()
	rows, err := s.repo.List(ctx, entity)
	s.metrics.ObserveWarehouse("list", entity.Name, time.Since(start))
	if err != nil {
		return nil, warehouseError(appErrors.ErrInternal, err, fmt.Sprintf("failed to list %s rows", name))
	}
	s.cache.Store(ctx, entity, rows)
	return rows, nil
}

// InsertMany stores records under newly assigned sequential keys, ignoring
// any key they carry, and returns the keys in input order.
func (s *RecordService) InsertMany(ctx context.Context, name string, records []models.Record) ([]string, error) {
	entity, err := s.entities.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := s.validateNew(entity, records); err != nil {
		return nil, err
	}
	return s.insert(ctx, entity, records)
}

// UpdateMany overwrites existing rows by key as one all-or-nothing batch.
// Keys that match no row are ignored.
func (s *RecordService) UpdateMany(ctx context.Context, name string, records []models.Record) (int64, error) {
	entity, err := s.entities.Lookup(name)
	if err != nil {
		return 0, err
	}
	if err := s.validateExisting(entity, records); err != nil {
		return 0, err
	}
	return s.update(ctx, entity, records)
}

// Delete removes the row with key. Deleting a missing key succeeds.
func (s *RecordService) Delete(ctx context.Context, name, key string) error {
	entity, err := s.entities.Lookup(name)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", entity.KeyColumn))
	}

	start := time.Now()
	deleted, err := s.repo.Delete(ctx, entity, key)
	s.metrics.ObserveWarehouse("delete", entity.Name, time.Since(start))
	if err != nil {
		return warehouseError(appErrors.ErrInternal, err, fmt.Sprintf("failed to delete %s %s", name, key))
	}
	s.cache.Invalidate(ctx, entity)
	if deleted == 0 {
		s.logger.Info("delete matched no row", zap.String("entity", name), zap.String("key", key))
	}
	return nil
}

// Save applies a dashboard batch: existing records are updated, then new
// records are inserted, all in one transaction. Every record is validated
// before anything is written.
func (s *RecordService) Save(ctx context.Context, name string, changes []models.RecordChange) (SaveResult, error) {
	result := SaveResult{Added: []string{}}
	entity, err := s.entities.Lookup(name)
	if err != nil {
		return result, err
	}

	var created, edited []models.Record
	for i, change := range changes {
		if change.Record == nil {
			return result, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d has no record", i))
		}
		switch change.Kind {
		case models.ChangeNew:
			created = append(created, change.Record)
		case models.ChangeExisting:
			edited = append(edited, change.Record)
		default:
			return result, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d has unknown kind %q", i, change.Kind))
		}
	}
	if err := s.validateExisting(entity, edited); err != nil {
		return result, err
	}
	if err := s.validateNew(entity, created); err != nil {
		return result, err
	}

	if len(edited) == 0 && len(created) == 0 {
		return result, nil
	}

	start := time.Now()
	added, updated, err := s.repo.Save(ctx, entity, edited, created, sequentialAssigner(entity.IDPrefix))
	s.metrics.ObserveWarehouse("save", entity.Name, time.Since(start))
	if err != nil {
		return result, warehouseError(appErrors.ErrInternal, err, fmt.Sprintf("failed to save %s changes", entity.Name))
	}
	s.cache.Invalidate(ctx, entity)
	s.logger.Info("changes saved", zap.String("entity", entity.Name), zap.Strings("added", added), zap.Int64("updated", updated))
	result.Added = added
	result.Updated = updated
	return result, nil
}

func (s *RecordService) insert(ctx context.Context, entity registry.Entity, records []models.Record) ([]string, error) {
	start := time.Now()
	keys, err := s.repo.Insert(ctx, entity, records, sequentialAssigner(entity.IDPrefix))
	s.metrics.ObserveWarehouse("insert", entity.Name, time.Since(start))
	if err != nil {
		return nil, warehouseError(appErrors.ErrInternal, err, fmt.Sprintf("failed to add %s rows", entity.Name))
	}
	s.cache.Invalidate(ctx, entity)
	s.logger.Info("rows added", zap.String("entity", entity.Name), zap.Strings("keys", keys))
	return keys, nil
}

func (s *RecordService) update(ctx context.Context, entity registry.Entity, records []models.Record) (int64, error) {
	start := time.Now()
	updated, err := s.repo.Update(ctx, entity, records)
	s.metrics.ObserveWarehouse("update", entity.Name, time.Since(start))
	if err != nil {
		return 0, warehouseError(appErrors.ErrInternal, err, fmt.Sprintf("failed to update %s rows", entity.Name))
	}
	s.cache.Invalidate(ctx, entity)
	s.logger.Info("rows updated", zap.String("entity", entity.Name), zap.Int("records", len(records)), zap.Int64("matched", updated))
	return updated, nil
}

func (s *RecordService) validateNew(entity registry.Entity, records []models.Record) error {
	for i, record := range records {
		if err := s.validator.Struct(record); err != nil {
			return appErrors.WrapAs(appErrors.ErrValidation, err, fmt.Sprintf("invalid %s at index %d", entity.Name, i))
		}
	}
	return nil
}

func (s *RecordService) validateExisting(entity registry.Entity, records []models.Record) error {
	for i, record := range records {
		key := strings.TrimSpace(record.Key())
		if key == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s at index %d is missing %s", entity.Name, i, entity.KeyColumn))
		}
		record.SetKey(key)
		if err := s.validator.Struct(record); err != nil {
			return appErrors.WrapAs(appErrors.ErrValidation, err, fmt.Sprintf("invalid %s at index %d", entity.Name, i))
		}
	}
	return nil
}
