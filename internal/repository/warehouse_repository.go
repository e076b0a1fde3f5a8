package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/special-ed-api/internal/registry"
)

// WarehouseRepository issues schema, staging and merge statements against the warehouse.
type WarehouseRepository struct {
	db *sqlx.DB
}

// NewWarehouseRepository constructs a WarehouseRepository.
func NewWarehouseRepository(db *sqlx.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

// Ping checks that the warehouse answers.
func (r *WarehouseRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Columns returns the target table's column names in ordinal order.
func (r *WarehouseRepository) Columns(ctx context.Context, loc registry.Locator) ([]string, error) {
	const query = `SELECT column_name FROM information_schema.columns
        WHERE table_schema = $1 AND table_name = $2
        ORDER BY ordinal_position`
	var columns []string
	if err := r.db.SelectContext(ctx, &columns, query, loc.Namespace, loc.Table); err != nil {
		return nil, fmt.Errorf("lookup columns of %s: %w", loc, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("lookup columns of %s: %w", loc, ErrTableNotFound)
	}
	return columns, nil
}

// CreateStaging creates an empty, uniquely named table shaped like target in
// the target's namespace. The caller owns the table and must drop it.
func (r *WarehouseRepository) CreateStaging(ctx context.Context, target registry.Locator) (registry.Locator, error) {
	staging := registry.Locator{
		Namespace: target.Namespace,
		Table:     "tmp_" + target.Table + "_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	query := fmt.Sprintf("CREATE UNLOGGED TABLE %s (LIKE %s INCLUDING DEFAULTS)",
		quoteTable(staging.Namespace, staging.Table), quoteTable(target.Namespace, target.Table))
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return registry.Locator{}, fmt.Errorf("create staging table for %s: %w", target, err)
	}
	return staging, nil
}

// LoadRows bulk-loads rows into table with COPY. Each row holds one value
// per column; nil values are stored as NULL.
func (r *WarehouseRepository) LoadRows(ctx context.Context, loc registry.Locator, columns []string, rows [][]interface{}) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load into %s: %w", loc, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(loc.Namespace, loc.Table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy into %s: %w", loc, err)
	}
	for i, row := range rows {
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy row %d into %s: %w", i+1, loc, err)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy into %s: %w", loc, err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("close copy into %s: %w", loc, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit load into %s: %w", loc, err)
	}
	return nil
}

// Merge upserts staging into target on keyColumn in a single statement and
// returns the number of rows inserted or updated.
func (r *WarehouseRepository) Merge(ctx context.Context, target, staging registry.Locator, keyColumn string, columns []string) (int64, error) {
	query := BuildMergeStatement(target, staging, keyColumn, columns)
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("merge %s into %s: %w", staging, target, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("merge %s into %s: %w", staging, target, err)
	}
	return affected, nil
}

// DropTable removes loc if it exists.
func (r *WarehouseRepository) DropTable(ctx context.Context, loc registry.Locator) error {
	if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteTable(loc.Namespace, loc.Table)); err != nil {
		return fmt.Errorf("drop %s: %w", loc, err)
	}
	return nil
}

// BuildMergeStatement renders the upsert of staging into target. Only the
// given columns are written, so target columns outside the upload keep their
// values. When keyColumn is the only column, matched rows are left alone.
func BuildMergeStatement(target, staging registry.Locator, keyColumn string, columns []string) string {
	key := pq.QuoteIdentifier(keyColumn)

	quoted := make([]string, len(columns))
	sourced := make([]string, len(columns))
	updates := make([]string, 0, len(columns))
	for i, column := range columns {
		ident := pq.QuoteIdentifier(column)
		quoted[i] = ident
		sourced[i] = "s." + ident
		if column != keyColumn {
			updates = append(updates, ident+" = s."+ident)
		}
	}

	matched := "DO NOTHING"
	if len(updates) > 0 {
		matched = "UPDATE SET " + strings.Join(updates, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s AS t\n", quoteTable(target.Namespace, target.Table))
	fmt.Fprintf(&b, "USING %s AS s\n", quoteTable(staging.Namespace, staging.Table))
	fmt.Fprintf(&b, "ON t.%s = s.%s\n", key, key)
	fmt.Fprintf(&b, "WHEN MATCHED THEN %s\n", matched)
	fmt.Fprintf(&b, "WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)", strings.Join(quoted, ", "), strings.Join(sourced, ", "))
	return b.String()
}
