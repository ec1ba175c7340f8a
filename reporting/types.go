/*
Package reporting provides the report configuration and execution engine.

PURPOSE:
  This package contains the domain model and algorithms for user-defined
  reports over whitelisted business entities. A report configuration selects
  fields, filters, sort orders, and an output format; the engine persists
  those definitions, compiles them into parameterized SQL, and executes them
  against the embedded store.

KEY CONCEPTS IN THIS FILE (types.go):
  - ReportConfiguration: A saved report definition with child fields/filters
  - ReportField: A column to include, with optional sort participation
  - ReportFilter: A predicate contribution combined left-to-right
  - CompiledQuery: The (data SQL, count SQL, params) triple produced by Compile
  - ReportResults: The paginated, typed result envelope

DESIGN PRINCIPLES:
  1. Closed vocabulary: entities, fields, and operators come from a fixed
     registry; nothing user-authored is ever interpolated as an identifier
  2. Determinism: child rows have a contractual ordering and compilation
     is byte-stable for identical inputs
  3. Ownership: configurations belong to a user or are immutable system
     reports visible to everyone

SEE ALSO:
  - registry.go: Entity/field/operator whitelists
  - compiler.go: SQL compilation
  - store.go: Persistence interface
  - runner.go: Execution against the store
*/
package reporting

import (
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ConfigID identifies a report configuration. Opaque and stable.
type ConfigID string

// ChildID identifies a field or filter row within its table. Child ids are
// allocated by the store in insertion order; ascending id equals the order
// the client supplied the rows in.
type ChildID int64

// =============================================================================
// ENUMERATED VALUES
// =============================================================================

// OutputFormat tags how a caller intends to render results. The engine only
// stores and surfaces the tag; rendering belongs to the caller.
type OutputFormat string

const (
	FormatJSON       OutputFormat = "JSON"
	FormatCSV        OutputFormat = "CSV"
	FormatCSVSummary OutputFormat = "CSV_SUMMARY"
	FormatPDF        OutputFormat = "PDF"
	FormatPDFDetail  OutputFormat = "PDF_DETAIL"
)

// ParseOutputFormat normalizes case-insensitive input to a recognized format.
func ParseOutputFormat(s string) (OutputFormat, bool) {
	f := OutputFormat(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FormatJSON, FormatCSV, FormatCSVSummary, FormatPDF, FormatPDFDetail:
		return f, true
	}
	return "", false
}

// SortDirection is the ORDER BY direction for a field with sort participation.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// ParseSortDirection normalizes case-insensitive input. Empty input defaults
// to ascending.
func ParseSortDirection(s string) (SortDirection, bool) {
	d := SortDirection(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case "":
		return SortAsc, true
	case SortAsc, SortDesc:
		return d, true
	}
	return "", false
}

// LogicalGroup controls how a filter combines with the previous one.
type LogicalGroup string

const (
	GroupAnd LogicalGroup = "AND"
	GroupOr  LogicalGroup = "OR"
)

// ParseLogicalGroup normalizes case-insensitive input. Empty defaults to AND.
func ParseLogicalGroup(s string) (LogicalGroup, bool) {
	g := LogicalGroup(strings.ToUpper(strings.TrimSpace(s)))
	switch g {
	case "":
		return GroupAnd, true
	case GroupAnd, GroupOr:
		return g, true
	}
	return "", false
}

// =============================================================================
// REPORT CONFIGURATION - The persisted definition
// =============================================================================

// ReportConfiguration is a saved report definition together with its child
// field and filter rows.
type ReportConfiguration struct {
	ID           ConfigID
	Name         string // unique across all configurations
	Description  string
	TargetEntity string // registry tag, e.g. "CompanyAssets"
	OutputFormat OutputFormat
	CreatedBy    string // principal id; empty for system reports
	IsSystem     bool   // system reports are immutable via the normal paths
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Children. Fields are ordered by (sort_order ASC, id ASC), filters by
	// id ASC; the store guarantees these orderings on load and the compiler
	// relies on them.
	Fields  []ReportField
	Filters []ReportFilter
}

// ReportField is one column of the report.
type ReportField struct {
	ID          ChildID
	FieldName   string // must be a legal field of the target entity
	DisplayName string // column header override; falls back to FieldName
	// SortOrder 0 means no sort participation; positive values define the
	// sort key priority, ascending.
	SortOrder     int
	SortDirection SortDirection // meaningful only when SortOrder > 0
	// GroupByPriority is persisted and surfaced but currently inert:
	// aggregation is not compiled.
	GroupByPriority int
}

// Header returns the column header for this field.
func (f ReportField) Header() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.FieldName
}

// ReportFilter is one predicate of the WHERE clause. Filters combine
// left-to-right in stored order; each row's LogicalGroup prefixes its own
// predicate (the first row's group is ignored). There is no grouping or
// parenthesization.
type ReportFilter struct {
	ID        ChildID
	FieldName string
	Operator  Operator
	// Value1/Value2 are operator-dependent. Empty string means absent:
	// Value1 is required for every operator except IS NULL / IS NOT NULL,
	// Value2 only for BETWEEN. For IN / NOT IN, Value1 is a non-empty
	// comma-separated list.
	Value1       string
	Value2       string
	LogicalGroup LogicalGroup
}

// ConfigSummary is the child-free projection returned by List.
type ConfigSummary struct {
	ID           ConfigID
	Name         string
	Description  string
	TargetEntity string
	OutputFormat OutputFormat
	CreatedBy    string
	IsSystem     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// PRINCIPAL - Authenticated caller identity
// =============================================================================

// Principal is the authenticated caller, supplied by the auth collaborator.
// The engine only needs a stable user id; roles are carried for future
// elevation rules but unused by the default contract.
type Principal struct {
	UserID string
	Roles  []string
}

// =============================================================================
// RUNTIME VALUES - Produced by compilation and execution
// =============================================================================

// CompiledQuery is the safe, parameterized query pair produced by the
// compiler. DataSQL and CountSQL share the same WHERE clause and therefore
// the same parameter vector.
type CompiledQuery struct {
	DataSQL  string
	CountSQL string
	Params   []any
	Headers  []string // column headers aligned with the SELECT list
	Limit    int      // clamped values the LIMIT/OFFSET literals were emitted from
	Offset   int
}

// ReportResults is the paginated result envelope returned by execution.
type ReportResults struct {
	Config       ReportConfiguration
	Headers      []string
	Rows         []map[string]any
	TotalRecords int64
	Limit        int
	Offset       int
}
