package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/special-ed-api/internal/models"
	"github.com/noah-isme/special-ed-api/internal/registry"
)

// KeyAssigner derives the next key from the latest one; latest is "" when
// the table has no key with the entity prefix.
type KeyAssigner func(latest string) string

// RecordRepository reads and writes entity rows by key.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs a RecordRepository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// List returns every row of the entity's table ordered by key.
func (r *RecordRepository) List(ctx context.Context, entity registry.Entity) ([]models.Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		quoteTable(entity.Locator.Namespace, entity.Locator.Table), pq.QuoteIdentifier(entity.KeyColumn))
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entity.Locator, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("list %s columns: %w", entity.Locator, err)
	}
	numeric := make(map[string]bool, len(types))
	for _, ct := range types {
		numeric[ct.Name()] = ct.DatabaseTypeName() == "NUMERIC"
	}

	result := make([]models.Row, 0)
	for rows.Next() {
		raw := make(map[string]interface{}, len(types))
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", entity.Locator, err)
		}
		row := make(models.Row, len(raw))
		for column, value := range raw {
			row[column] = presentValue(value, numeric[column])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", entity.Locator, err)
	}
	return result, nil
}

func presentValue(value interface{}, numeric bool) interface{} {
	switch v := value.(type) {
	case []byte:
		if numeric {
			if f, err := strconv.ParseFloat(string(v), 64); err == nil {
				return f
			}
		}
		return string(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(models.DateLayout)
		}
		return v
	default:
		return v
	}
}

// Insert stores records under freshly assigned sequential keys and returns
// them in input order. The whole batch runs in one transaction holding an
// advisory lock on the table, so concurrent inserts cannot hand out the
// same key.
func (r *RecordRepository) Insert(ctx context.Context, entity registry.Entity, records []models.Record, assign KeyAssigner) (keys []string, err error) {
	if len(records) == 0 {
		return []string{}, nil
	}
	err = r.withTx(ctx, entity, "insert into", func(tx *sqlx.Tx) error {
		keys, err = insertRecords(ctx, tx, entity, records, assign)
		return err
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Update overwrites every column of each record, matched by key, in one
// transaction. Records whose key does not exist change nothing. It returns
// the number of rows updated.
func (r *RecordRepository) Update(ctx context.Context, entity registry.Entity, records []models.Record) (updated int64, err error) {
	if len(records) == 0 {
		return 0, nil
	}
	err = r.withTx(ctx, entity, "update of", func(tx *sqlx.Tx) error {
		updated, err = updateRecords(ctx, tx, entity, records)
		return err
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Save applies updates and then inserts in a single transaction, so a failed
// insert also discards the updates.
func (r *RecordRepository) Save(ctx context.Context, entity registry.Entity, updates, inserts []models.Record, assign KeyAssigner) (keys []string, updated int64, err error) {
	keys = []string{}
	if len(updates) == 0 && len(inserts) == 0 {
		return keys, 0, nil
	}
	err = r.withTx(ctx, entity, "save of", func(tx *sqlx.Tx) error {
		if updated, err = updateRecords(ctx, tx, entity, updates); err != nil {
			return err
		}
		if len(inserts) == 0 {
			return nil
		}
		keys, err = insertRecords(ctx, tx, entity, inserts, assign)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return keys, updated, nil
}

func (r *RecordRepository) withTx(ctx context.Context, entity registry.Entity, action string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s %s: %w", action, entity.Locator, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s %s: %w", action, entity.Locator, err)
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sqlx.Tx, entity registry.Entity, records []models.Record, assign KeyAssigner) ([]string, error) {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", entity.Locator.String()); err != nil {
		return nil, fmt.Errorf("lock %s: %w", entity.Locator, err)
	}

	latest, err := latestKey(ctx, tx, entity)
	if err != nil {
		return nil, err
	}

	query := insertStatement(entity)
	keys := make([]string, 0, len(records))
	for _, record := range records {
		key := assign(latest)
		record.SetKey(key)
		if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
			return nil, fmt.Errorf("insert %s %s: %w", entity.Name, key, err)
		}
		keys = append(keys, key)
		latest = key
	}
	return keys, nil
}

// latestKey returns the highest well-formed key: the prefix followed by at
// least three digits, compared numerically. Keys of any other shape are
// ignored.
func latestKey(ctx context.Context, tx *sqlx.Tx, entity registry.Entity) (string, error) {
	key := pq.QuoteIdentifier(entity.KeyColumn)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ~ $1 ORDER BY CAST(SUBSTRING(%s FROM $2::int) AS NUMERIC) DESC, %s DESC LIMIT 1",
		key, quoteTable(entity.Locator.Namespace, entity.Locator.Table), key, key, key)

	var latest string
	if err := tx.GetContext(ctx, &latest, query, keyPattern(entity.IDPrefix), len(entity.IDPrefix)+1); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("latest key of %s: %w", entity.Locator, err)
	}
	return latest, nil
}

func keyPattern(prefix string) string {
	return "^" + regexp.QuoteMeta(prefix) + "[0-9]{3,}$"
}

func updateRecords(ctx context.Context, tx *sqlx.Tx, entity registry.Entity, records []models.Record) (int64, error) {
	query := updateStatement(entity)
	var updated int64
	for _, record := range records {
		res, err := tx.NamedExecContext(ctx, query, record)
		if err != nil {
			return 0, fmt.Errorf("update %s %s: %w", entity.Name, record.Key(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("update %s %s: %w", entity.Name, record.Key(), err)
		}
		updated += n
	}
	return updated, nil
}

// Delete removes the row with the given key and reports how many rows went.
func (r *RecordRepository) Delete(ctx context.Context, entity registry.Entity, key string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		quoteTable(entity.Locator.Namespace, entity.Locator.Table), pq.QuoteIdentifier(entity.KeyColumn))
	res, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return 0, fmt.Errorf("delete %s %s: %w", entity.Name, key, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s %s: %w", entity.Name, key, err)
	}
	return deleted, nil
}

func insertStatement(entity registry.Entity) string {
	columns := make([]string, len(entity.Columns))
	params := make([]string, len(entity.Columns))
	for i, column := range entity.Columns {
		columns[i] = pq.QuoteIdentifier(column)
		params[i] = ":" + column
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTable(entity.Locator.Namespace, entity.Locator.Table), strings.Join(columns, ", "), strings.Join(params, ", "))
}

func updateStatement(entity registry.Entity) string {
	sets := make([]string, 0, len(entity.Columns))
	for _, column := range entity.Columns {
		if column == entity.KeyColumn {
			continue
		}
		sets = append(sets, pq.QuoteIdentifier(column)+" = :"+column)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s",
		quoteTable(entity.Locator.Namespace, entity.Locator.Table), strings.Join(sets, ", "),
		pq.QuoteIdentifier(entity.KeyColumn), entity.KeyColumn)
}
