package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/special-ed-api/internal/models"
	"github.com/noah-isme/special-ed-api/internal/registry"
	"github.com/noah-isme/special-ed-api/internal/repository"
	appErrors "github.com/noah-isme/special-ed-api/pkg/errors"
)

type mockRecordRepo struct {
	rows      map[string]map[string]models.Record
	listCalls int
	saveCalls int
	err       error
	insertErr error
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{rows: map[string]map[string]models.Record{}}
}

func (m *mockRecordRepo) table(entity registry.Entity) map[string]models.Record {
	if m.rows[entity.Name] == nil {
		m.rows[entity.Name] = map[string]models.Record{}
	}
	return m.rows[entity.Name]
}

func (m *mockRecordRepo) List(ctx context.Context, entity registry.Entity) ([]models.Row, error) {
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	keys := make([]string, 0)
	for key := range m.table(entity) {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([]models.Row, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, models.Row{entity.KeyColumn: key})
	}
	return rows, nil
}

func (m *mockRecordRepo) Insert(ctx context.Context, entity registry.Entity, records []models.Record, assign repository.KeyAssigner) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	latest := ""
	for key := range m.table(entity) {
		if len(key) > len(latest) || (len(key) == len(latest) && key > latest) {
			latest = key
		}
	}
	keys := make([]string, 0, len(records))
	for _, record := range records {
		latest = assign(latest)
		record.SetKey(latest)
		m.table(entity)[latest] = record
		keys = append(keys, latest)
	}
	return keys, nil
}

func (m *mockRecordRepo) Update(ctx context.Context, entity registry.Entity, records []models.Record) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var updated int64
	for _, record := range records {
		if _, ok := m.table(entity)[record.Key()]; ok {
			m.table(entity)[record.Key()] = record
			updated++
		}
	}
	return updated, nil
}

func (m *mockRecordRepo) Delete(ctx context.Context, entity registry.Entity, key string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if _, ok := m.table(entity)[key]; !ok {
		return 0, nil
	}
	delete(m.table(entity), key)
	return 1, nil
}

// Save stages changes on copies so a failed insert leaves the table as it was.
func (m *mockRecordRepo) Save(ctx context.Context, entity registry.Entity, updates, inserts []models.Record, assign repository.KeyAssigner) ([]string, int64, error) {
	m.saveCalls++
	if m.err != nil {
		return nil, 0, m.err
	}
	before := make(map[string]models.Record, len(m.table(entity)))
	for key, record := range m.table(entity) {
		before[key] = record
	}
	updated, _ := m.Update(ctx, entity, updates)
	if m.insertErr != nil {
		m.rows[entity.Name] = before
		return nil, 0, m.insertErr
	}
	keys, _ := m.Insert(ctx, entity, inserts, assign)
	return keys, updated, nil
}

type memoryCache struct {
	values  map[string][]byte
	deletes int
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.values, key)
	}
	c.deletes++
	return nil
}

func newRecordFixture(cached bool) (*RecordService, *mockRecordRepo, *memoryCache) {
	repo := newMockRecordRepo()
	store := &memoryCache{values: map[string][]byte{}}
	cache := NewRowCache(store, nil, time.Minute, zap.NewNop(), cached)
	svc := NewRecordService(registry.New(nil), repo, cache, nil, NewMetricsService(), zap.NewNop())
	return svc, repo, store
}

func TestRecordServiceInsertManyAssignsKeys(t *testing.T) {
	svc, repo, _ := newRecordFixture(false)
	repo.table(studentEntity(t))["S001"] = &models.Student{StudentID: "S001"}
	repo.table(studentEntity(t))["S002"] = &models.Student{StudentID: "S002"}
	repo.table(studentEntity(t))["S009"] = &models.Student{StudentID: "S009"}

	keys, err := svc.InsertMany(context.Background(), registry.Student, []models.Record{
		&models.Student{StudentID: "ignored", FirstName: models.NewText("Ana")},
		&models.Student{FirstName: models.NewText("Ben")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"S010", "S011"}, keys)
	assert.Contains(t, repo.table(studentEntity(t)), "S010")
}

func TestRecordServiceInsertManyEmptyTableStartsAtOne(t *testing.T) {
	svc, _, _ := newRecordFixture(false)

	keys, err := svc.InsertMany(context.Background(), registry.Teacher, []models.Record{&models.Teacher{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"T001"}, keys)
}

func TestRecordServiceInsertManyValidates(t *testing.T) {
	svc, repo, _ := newRecordFixture(false)

	_, err := svc.InsertMany(context.Background(), registry.Parent, []models.Record{
		&models.Parent{Email: models.NewText("not-an-email")},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.rows[registry.Parent])
}

func TestRecordServiceUpdateManyRequiresKey(t *testing.T) {
	svc, _, _ := newRecordFixture(false)

	_, err := svc.UpdateMany(context.Background(), registry.Student, []models.Record{&models.Student{StudentID: "  "}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRecordServiceUpdateManyIgnoresUnknownKeys(t *testing.T) {
	svc, repo, _ := newRecordFixture(false)
	repo.table(studentEntity(t))["S001"] = &models.Student{StudentID: "S001"}

	updated, err := svc.UpdateMany(context.Background(), registry.Student, []models.Record{
		&models.Student{StudentID: "S001", FirstName: models.NewText("Ana")},
		&models.Student{StudentID: "S404"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)
	assert.NotContains(t, repo.table(studentEntity(t)), "S404")
}

func TestRecordServiceDeleteMissingKeySucceeds(t *testing.T) {
	svc, _, _ := newRecordFixture(false)
	assert.NoError(t, svc.Delete(context.Background(), registry.Class, "C999"))
}

func TestRecordServiceDeleteRequiresKey(t *testing.T) {
	svc, _, _ := newRecordFixture(false)
	assert.ErrorIs(t, svc.Delete(context.Background(), registry.Class, " "), appErrors.ErrValidation)
}

func TestRecordServiceUnknownEntity(t *testing.T) {
	svc, _, _ := newRecordFixture(false)

	_, err := svc.List(context.Background(), "guardian")
	assert.ErrorIs(t, err, appErrors.ErrUnknownEntity)
	_, err = svc.Decode("guardian", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, appErrors.ErrUnknownEntity)
}

func TestRecordServiceListUsesCacheUntilWrite(t *testing.T) {
	svc, repo, store := newRecordFixture(true)
	repo.table(studentEntity(t))["S001"] = &models.Student{StudentID: "S001"}

	first, err := svc.List(context.Background(), registry.Student)
	require.NoError(t, err)
	second, err := svc.List(context.Background(), registry.Student)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, first, second)

	_, err = svc.InsertMany(context.Background(), registry.Student, []models.Record{&models.Student{}})
	require.NoError(t, err)
	assert.Equal(t, 1, store.deletes)

	rows, err := svc.List(context.Background(), registry.Student)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
	assert.Len(t, rows, 2)
}

func TestRecordServiceListFailure(t *testing.T) {
	svc, repo, _ := newRecordFixture(false)
	repo.err = errors.New("connection refused")

	_, err := svc.List(context.Background(), registry.Student)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestRecordServiceDecode(t *testing.T) {
	svc, _, _ := newRecordFixture(false)

	record, err := svc.Decode(registry.Assessment, json.RawMessage(`{"student_id":"S001","assessment_score":"88.5","assessment_date":"2024-05-01"}`))
	require.NoError(t, err)
	assessment, ok := record.(*models.Assessment)
	require.True(t, ok)
	assert.Equal(t, 88.5, assessment.AssessmentScore.Float64)
	assert.Equal(t, "2024-05-01", assessment.AssessmentDate.String())

	_, err = svc.Decode(registry.Assessment, json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRecordServiceSave(t *testing.T) {
	svc, repo, _ := newRecordFixture(false)
	repo.table(studentEntity(t))["S001"] = &models.Student{StudentID: "S001"}

	result, err := svc.Save(context.Background(), registry.Student, []models.RecordChange{
		{Kind: models.ChangeExisting, Record: &models.Student{StudentID: "S001", FirstName: models.NewText("Ana")}},
		{Kind: models.ChangeNew, Record: &models.Student{FirstName: models.NewText("Ben")}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Updated)
	assert.Equal(t, []string{"S002"}, result.Added)
	saved := repo.table(studentEntity(t))["S001"].(*models.Student)
	assert.Equal(t, "Ana", saved.FirstName.String)
}

func TestRecordServiceSaveIsOneBatch(t *testing.T) {
	svc, repo, _ := newRecordFixture(false)
	repo.table(studentEntity(t))["S001"] = &models.Student{StudentID: "S001", FirstName: models.NewText("Ana")}
	repo.insertErr = errors.New("constraint violated")

	_, err := svc.Save(context.Background(), registry.Student, []models.RecordChange{
		{Kind: models.ChangeExisting, Record: &models.Student{StudentID: "S001", FirstName: models.NewText("Zoe")}},
		{Kind: models.ChangeNew, Record: &models.Student{FirstName: models.NewText("Ben")}},
	})
	require.Error(t, err)
	assert.Equal(t, 1, repo.saveCalls)
	saved := repo.table(studentEntity(t))["S001"].(*models.Student)
	assert.Equal(t, "Ana", saved.FirstName.String)
	assert.Len(t, repo.rows[registry.Student], 1)
}

func TestRecordServiceSaveValidatesBeforeWriting(t *testing.T) {
	svc, repo, _ := newRecordFixture(false)

	_, err := svc.Save(context.Background(), registry.Student, []models.RecordChange{
		{Kind: models.ChangeNew, Record: &models.Student{FirstName: models.NewText("Ana")}},
		{Kind: models.ChangeExisting, Record: &models.Student{}},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.rows[registry.Student])
	assert.Zero(t, repo.saveCalls)

	_, err = svc.Save(context.Background(), registry.Student, []models.RecordChange{{Kind: "moved", Record: &models.Student{}}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
