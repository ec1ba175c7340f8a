/*
registry.go - Entity, field, and operator whitelists

PURPOSE:
  The registry is the security boundary for dynamic SQL. Table and column
  names cannot be bound as query parameters, so the only defense against
  identifier injection is a closed, process-wide mapping from entity tag to
  (physical table, allowed fields). The registry is built once at startup
  and never extended at runtime.

HARDENING:
  Beyond membership checks, every identifier is additionally rejected if it
  contains anything outside [A-Za-z0-9_]. A misconfigured registry entry
  therefore still cannot smuggle SQL into a query.

FIELD TYPES:
  Each allowed field declares a value type (text, integer, decimal,
  timestamp, boolean). The execution runner uses these to type result rows;
  decimal columns round-trip through shopspring/decimal instead of floats.

REGISTERED ENTITIES:
  Clients, Invoices, Products, CompanyAssets, Candidates - the business
  tables the desktop application exposes to reporting. Extension requires a
  code change here plus a migration for the backing table.

SEE ALSO:
  - compiler.go: Consults the registry on every identifier it emits
  - runner.go: Uses field types to materialize rows
*/
package reporting

import "sort"

// =============================================================================
// OPERATOR WHITELIST
// =============================================================================

// Operator is a whitelisted filter operator. Anything outside the fixed set
// is rejected at validation and again at compile time.
type Operator string

const (
	OpEq        Operator = "="
	OpNe        Operator = "!="
	OpGt        Operator = ">"
	OpLt        Operator = "<"
	OpGe        Operator = ">="
	OpLe        Operator = "<="
	OpLike      Operator = "LIKE"
	OpNotLike   Operator = "NOT LIKE"
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpBetween   Operator = "BETWEEN"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

var operators = map[Operator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpLt: true, OpGe: true, OpLe: true,
	OpLike: true, OpNotLike: true, OpIn: true, OpNotIn: true,
	OpBetween: true, OpIsNull: true, OpIsNotNull: true,
}

// OperatorAllowed reports whether op is in the whitelist.
func OperatorAllowed(op Operator) bool {
	return operators[op]
}

// =============================================================================
// FIELD TYPES
// =============================================================================

// FieldType declares how a column's values are materialized in results.
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeInteger   FieldType = "integer"
	TypeDecimal   FieldType = "decimal"
	TypeTimestamp FieldType = "timestamp"
	TypeBoolean   FieldType = "boolean"
)

// =============================================================================
// REGISTRY
// =============================================================================

// EntityDef describes one reportable entity.
type EntityDef struct {
	Table  string
	Fields map[string]FieldType
}

// Registry is the immutable entity/field whitelist. Safe for concurrent use
// without locking: it is never mutated after construction.
type Registry struct {
	entities map[string]EntityDef
}

// NewRegistry builds the registry for the business entities exposed to
// reporting.
func NewRegistry() *Registry {
	return &Registry{entities: map[string]EntityDef{
		"Clients": {Table: "clients", Fields: map[string]FieldType{
			"client_name":   TypeText,
			"contact_email": TypeText,
			"phone":         TypeText,
			"city":          TypeText,
			"status":        TypeText,
			"created_at":    TypeTimestamp,
		}},
		"Invoices": {Table: "invoices", Fields: map[string]FieldType{
			"invoice_number": TypeText,
			"client_name":    TypeText,
			"status":         TypeText,
			"total_amount":   TypeDecimal,
			"issued_at":      TypeTimestamp,
			"due_at":         TypeTimestamp,
			"paid":           TypeBoolean,
		}},
		"Products": {Table: "products", Fields: map[string]FieldType{
			"product_name": TypeText,
			"sku":          TypeText,
			"unit_price":   TypeDecimal,
			"stock_qty":    TypeInteger,
			"active":       TypeBoolean,
		}},
		"CompanyAssets": {Table: "company_assets", Fields: map[string]FieldType{
			"asset_name":     TypeText,
			"asset_tag":      TypeText,
			"category":       TypeText,
			"purchase_price": TypeDecimal,
			"purchased_at":   TypeTimestamp,
			"status":         TypeText,
		}},
		"Candidates": {Table: "candidates", Fields: map[string]FieldType{
			"candidate_name": TypeText,
			"email":          TypeText,
			"position":       TypeText,
			"stage":          TypeText,
			"applied_at":     TypeTimestamp,
		}},
	}}
}

// ResolveEntity maps an entity tag to its physical table name.
func (r *Registry) ResolveEntity(tag string) (string, error) {
	def, ok := r.entities[tag]
	if !ok {
		return "", &UnknownEntityError{Entity: tag}
	}
	if !safeIdentifier(def.Table) {
		return "", &UnknownEntityError{Entity: tag}
	}
	return def.Table, nil
}

// CheckField verifies that field is a legal, hardened identifier for the
// entity. Used by validation on write and by compilation on execute.
func (r *Registry) CheckField(tag, field string) error {
	def, ok := r.entities[tag]
	if !ok {
		return &UnknownEntityError{Entity: tag}
	}
	if _, ok := def.Fields[field]; !ok {
		return &InvalidFieldError{Entity: tag, Field: field}
	}
	if !safeIdentifier(field) {
		return &InvalidFieldError{Entity: tag, Field: field}
	}
	return nil
}

// FieldType returns the declared value type of an allowed field.
func (r *Registry) FieldType(tag, field string) (FieldType, bool) {
	def, ok := r.entities[tag]
	if !ok {
		return "", false
	}
	t, ok := def.Fields[field]
	return t, ok
}

// Entities lists the registered entity tags, sorted for stable output.
func (r *Registry) Entities() []string {
	tags := make([]string, 0, len(r.entities))
	for tag := range r.entities {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// FieldsOf lists the allowed fields of an entity, sorted.
func (r *Registry) FieldsOf(tag string) ([]string, error) {
	def, ok := r.entities[tag]
	if !ok {
		return nil, &UnknownEntityError{Entity: tag}
	}
	fields := make([]string, 0, len(def.Fields))
	for f := range def.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields, nil
}

// safeIdentifier reports whether s is non-empty and contains only
// [A-Za-z0-9_]. Identifiers failing this never reach emitted SQL.
func safeIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
