/*
runner.go - Executes compiled queries and materializes results

PURPOSE:
  Runs the (count, data) query pair inside one transaction so the total and
  the page come from a consistent snapshot, then materializes rows as
  header -> typed value maps.

VALUE TYPING:
  Column values are converted per the registry's declared field types:
    text      -> string
    integer   -> int64
    decimal   -> shopspring decimal (exact; invoice totals never become floats)
    timestamp -> string as stored (ISO-8601 in this schema)
    boolean   -> bool
  NULLs stay nil. Unconvertible values fall back to the raw driver value.

FAILURE POLICY:
  Store-level errors never leak SQL or parameters to the caller. The real
  cause is logged under a correlation id and an ExecutionError carrying only
  that id is returned. The runner does not retry and does not cache.

SEE ALSO:
  - compiler.go: Produces the CompiledQuery input
  - errors.go: ExecutionError
*/
package reporting

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Runner executes compiled queries against a SQL store.
type Runner struct {
	db       *sql.DB
	registry *Registry
}

// NewRunner builds a runner over the given database handle.
func NewRunner(db *sql.DB, registry *Registry) *Runner {
	return &Runner{db: db, registry: registry}
}

// Run executes the count query then the data query with the shared parameter
// vector and returns the result envelope. The clamped pagination values the
// query was compiled with are echoed into the envelope.
func (r *Runner) Run(ctx context.Context, cfg ReportConfiguration, q CompiledQuery) (*ReportResults, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, r.fail(ctx, cfg, "begin", err)
	}
	// The transaction exists only for snapshot consistency between the two
	// reads; it is always rolled back.
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx, q.CountSQL, q.Params...).Scan(&total); err != nil {
		return nil, r.fail(ctx, cfg, "count", err)
	}

	rows, err := tx.QueryContext(ctx, q.DataSQL, q.Params...)
	if err != nil {
		return nil, r.fail(ctx, cfg, "data", err)
	}
	defer rows.Close()

	result := &ReportResults{
		Config:       cfg,
		Headers:      q.Headers,
		Rows:         []map[string]any{},
		TotalRecords: total,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}

	scan := make([]any, len(cfg.Fields))
	holders := make([]any, len(cfg.Fields))
	for i := range holders {
		scan[i] = &holders[i]
	}

	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, r.fail(ctx, cfg, "scan", err)
		}
		row := make(map[string]any, len(cfg.Fields))
		for i, f := range cfg.Fields {
			row[q.Headers[i]] = r.typeValue(cfg.TargetEntity, f.FieldName, holders[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(ctx, cfg, "iterate", err)
	}

	return result, nil
}

// typeValue converts a raw driver value per the field's declared type.
func (r *Runner) typeValue(entity, field string, v any) any {
	if v == nil {
		return nil
	}

	ft, ok := r.registry.FieldType(entity, field)
	if !ok {
		return v
	}

	switch ft {
	case TypeText, TypeTimestamp:
		return asString(v)
	case TypeInteger:
		switch n := v.(type) {
		case int64:
			return n
		case float64:
			return int64(n)
		}
		return v
	case TypeDecimal:
		switch n := v.(type) {
		case float64:
			return decimal.NewFromFloat(n)
		case int64:
			return decimal.NewFromInt(n)
		default:
			if d, err := decimal.NewFromString(asString(v)); err == nil {
				return d
			}
		}
		return v
	case TypeBoolean:
		switch n := v.(type) {
		case bool:
			return n
		case int64:
			return n != 0
		}
		return v
	}
	return v
}

// fail logs the real cause under a fresh correlation id and returns the
// caller-safe ExecutionError.
func (r *Runner) fail(ctx context.Context, cfg ReportConfiguration, phase string, cause error) error {
	ref := uuid.NewString()
	log.FromContext(ctx).WithFields(log.Fields{
		"ref":       ref,
		"report_id": string(cfg.ID),
		"entity":    cfg.TargetEntity,
		"phase":     phase,
	}).WithError(cause).Error("report execution failed")
	return NewExecutionError(ref, cause)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprintf("%v", v)
}
