/*
compiler.go - Compiles a report configuration into parameterized SQL

PURPOSE:
  Turns a fully loaded ReportConfiguration plus pagination into a
  CompiledQuery: a data query, a count query sharing the same WHERE clause,
  the parameter vector, and the column headers.

SAFETY MODEL:
  - Identifiers (table, columns) pass through the registry AND the
    [A-Za-z0-9_] hardening check before being quoted into SQL
  - Every user-supplied value is bound as a '?' parameter, appended at the
    point its placeholder is emitted so ordering is trivially correct
  - LIMIT/OFFSET are inlined as integers after clamping; they never pass
    through as strings

WHERE SEMANTICS:
  Filters combine left-to-right in stored order. The first predicate is
  emitted bare; each subsequent predicate is prefixed by its own row's
  logical group (AND/OR). There is no parenthesization - mixed AND/OR reads
  strictly left to right. Preserved deliberately; the persisted model has no
  grouping concept.

ORDER BY:
  Fields with SortOrder > 0, ascending by SortOrder, each with its own
  direction (default ASC). Fields with SortOrder 0 never appear.

SEE ALSO:
  - registry.go: Identifier whitelists
  - runner.go: Executes the compiled pair
*/
package reporting

import (
	"sort"
	"strconv"
	"strings"
)

// Pagination defaults, overridable via NewCompiler.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Compiler produces CompiledQuery values from report configurations.
type Compiler struct {
	registry    *Registry
	defaultSize int
	maxSize     int
}

// NewCompiler builds a compiler over the given registry. Non-positive sizes
// fall back to the package defaults.
func NewCompiler(registry *Registry, defaultSize, maxSize int) *Compiler {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	return &Compiler{registry: registry, defaultSize: defaultSize, maxSize: maxSize}
}

// Compile validates the configuration against the registry and emits the
// query pair. limit <= 0 selects the default page size; offset < 0 is
// clamped to 0. Compilation is deterministic: identical inputs produce
// byte-identical SQL and identical parameter vectors.
func (c *Compiler) Compile(cfg ReportConfiguration, limit, offset int) (CompiledQuery, error) {
	table, err := c.registry.ResolveEntity(cfg.TargetEntity)
	if err != nil {
		return CompiledQuery{}, err
	}

	if len(cfg.Fields) == 0 {
		return CompiledQuery{}, ErrEmptyProjection
	}

	// SELECT list and headers, in stored field order.
	columns := make([]string, 0, len(cfg.Fields))
	headers := make([]string, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if err := c.registry.CheckField(cfg.TargetEntity, f.FieldName); err != nil {
			return CompiledQuery{}, err
		}
		columns = append(columns, quoteIdent(f.FieldName))
		headers = append(headers, f.Header())
	}

	where, params, err := c.compileWhere(cfg)
	if err != nil {
		return CompiledQuery{}, err
	}

	orderBy := compileOrderBy(cfg.Fields)

	limit, offset = c.clampPage(limit, offset)

	var data strings.Builder
	data.WriteString("SELECT ")
	data.WriteString(strings.Join(columns, ", "))
	data.WriteString(" FROM ")
	data.WriteString(quoteIdent(table))
	if where != "" {
		data.WriteString(" WHERE ")
		data.WriteString(where)
	}
	if orderBy != "" {
		data.WriteString(" ORDER BY ")
		data.WriteString(orderBy)
	}
	data.WriteString(" LIMIT ")
	data.WriteString(strconv.Itoa(limit))
	data.WriteString(" OFFSET ")
	data.WriteString(strconv.Itoa(offset))

	var count strings.Builder
	count.WriteString("SELECT COUNT(*) FROM ")
	count.WriteString(quoteIdent(table))
	if where != "" {
		count.WriteString(" WHERE ")
		count.WriteString(where)
	}

	return CompiledQuery{
		DataSQL:  data.String(),
		CountSQL: count.String(),
		Params:   params,
		Headers:  headers,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// compileWhere emits the flat left-to-right predicate chain. Parameters are
// appended exactly when their placeholder is written.
func (c *Compiler) compileWhere(cfg ReportConfiguration) (string, []any, error) {
	if len(cfg.Filters) == 0 {
		return "", nil, nil
	}

	var sb strings.Builder
	params := make([]any, 0, len(cfg.Filters))

	for i, f := range cfg.Filters {
		if err := c.registry.CheckField(cfg.TargetEntity, f.FieldName); err != nil {
			return "", nil, err
		}
		if !OperatorAllowed(f.Operator) {
			return "", nil, &UnsupportedOperatorError{Operator: string(f.Operator)}
		}

		cond, condParams, err := compileCondition(f)
		if err != nil {
			return "", nil, err
		}

		if i > 0 {
			group := f.LogicalGroup
			if group == "" {
				group = GroupAnd
			}
			sb.WriteString(" ")
			sb.WriteString(string(group))
			sb.WriteString(" ")
		}
		sb.WriteString(cond)
		params = append(params, condParams...)
	}

	return sb.String(), params, nil
}

// compileCondition emits one predicate and its bound values.
func compileCondition(f ReportFilter) (string, []any, error) {
	col := quoteIdent(f.FieldName)

	switch f.Operator {
	case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe, OpLike, OpNotLike:
		if f.Value1 == "" {
			return "", nil, &MissingFilterValueError{Field: f.FieldName, Operator: f.Operator, Which: "value1"}
		}
		return col + " " + string(f.Operator) + " ?", []any{f.Value1}, nil

	case OpIn, OpNotIn:
		items := splitList(f.Value1)
		if len(items) == 0 {
			return "", nil, &MissingFilterValueError{Field: f.FieldName, Operator: f.Operator, Which: "value1"}
		}
		placeholders := strings.Repeat("?,", len(items))
		placeholders = placeholders[:len(placeholders)-1]
		params := make([]any, len(items))
		for i, item := range items {
			params[i] = item
		}
		return col + " " + string(f.Operator) + " (" + placeholders + ")", params, nil

	case OpBetween:
		if f.Value1 == "" {
			return "", nil, &MissingFilterValueError{Field: f.FieldName, Operator: f.Operator, Which: "value1"}
		}
		if f.Value2 == "" {
			return "", nil, &MissingFilterValueError{Field: f.FieldName, Operator: f.Operator, Which: "value2"}
		}
		return col + " BETWEEN ? AND ?", []any{f.Value1, f.Value2}, nil

	case OpIsNull, OpIsNotNull:
		return col + " " + string(f.Operator), nil, nil
	}

	return "", nil, &UnsupportedOperatorError{Operator: string(f.Operator)}
}

// compileOrderBy emits the ORDER BY list from fields with sort participation.
// Returns "" when no field qualifies.
func compileOrderBy(fields []ReportField) string {
	sorted := make([]ReportField, 0, len(fields))
	for _, f := range fields {
		if f.SortOrder > 0 {
			sorted = append(sorted, f)
		}
	}
	if len(sorted) == 0 {
		return ""
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})

	parts := make([]string, len(sorted))
	for i, f := range sorted {
		dir := f.SortDirection
		if dir != SortDesc {
			dir = SortAsc
		}
		parts[i] = quoteIdent(f.FieldName) + " " + string(dir)
	}
	return strings.Join(parts, ", ")
}

// clampPage applies defaults and bounds to the pagination values.
func (c *Compiler) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = c.defaultSize
	}
	if limit > c.maxSize {
		limit = c.maxSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// splitList splits a comma-separated value list, trimming whitespace and
// dropping empty items.
func splitList(s string) []string {
	raw := strings.Split(s, ",")
	items := make([]string, 0, len(raw))
	for _, r := range raw {
		if t := strings.TrimSpace(r); t != "" {
			items = append(items, t)
		}
	}
	return items
}

// quoteIdent wraps an already-validated identifier in double quotes. Callers
// must have passed the identifier through the registry first.
func quoteIdent(ident string) string {
	return `"` + ident + `"`
}
