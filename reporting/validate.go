/*
validate.go - Payload validation for create and update

PURPOSE:
  Validates a configuration against the registry and the operator whitelist
  before anything is written. Validation errors are local and actionable;
  nothing is persisted when any part of the payload is rejected.
*/
package reporting

import "fmt"

// ValidateConfiguration checks a fully assembled configuration prior to Add.
// The projection must be non-empty and every field and filter must resolve
// against the registry.
func ValidateConfiguration(reg *Registry, cfg ReportConfiguration) error {
	if cfg.Name == "" {
		return &ValidationError{Field: "report_name", Message: "required"}
	}
	if _, err := reg.ResolveEntity(cfg.TargetEntity); err != nil {
		return err
	}
	if cfg.OutputFormat != "" {
		if _, ok := ParseOutputFormat(string(cfg.OutputFormat)); !ok {
			return &ValidationError{Field: "output_format", Message: fmt.Sprintf("unrecognized format %q", cfg.OutputFormat)}
		}
	}
	if len(cfg.Fields) == 0 {
		return ErrEmptyProjection
	}
	if err := ValidateFields(reg, cfg.TargetEntity, cfg.Fields); err != nil {
		return err
	}
	return ValidateFilters(reg, cfg.TargetEntity, cfg.Filters)
}

// ValidateFields checks a replacement field set against the registry.
func ValidateFields(reg *Registry, entity string, fields []ReportField) error {
	for i, f := range fields {
		if f.FieldName == "" {
			return &ValidationError{Field: fmt.Sprintf("fields[%d].field_name", i), Message: "required"}
		}
		if err := reg.CheckField(entity, f.FieldName); err != nil {
			return err
		}
		if f.SortOrder < 0 {
			return &ValidationError{Field: fmt.Sprintf("fields[%d].sort_order", i), Message: "must be >= 0"}
		}
		switch f.SortDirection {
		case "", SortAsc, SortDesc:
		default:
			return &ValidationError{Field: fmt.Sprintf("fields[%d].sort_direction", i), Message: "must be ASC or DESC"}
		}
	}
	return nil
}

// ValidateFilters checks a replacement filter set: registry membership,
// operator whitelist, and operator-specific value presence.
func ValidateFilters(reg *Registry, entity string, filters []ReportFilter) error {
	for i, f := range filters {
		if f.FieldName == "" {
			return &ValidationError{Field: fmt.Sprintf("filters[%d].field_name", i), Message: "required"}
		}
		if err := reg.CheckField(entity, f.FieldName); err != nil {
			return err
		}
		if !OperatorAllowed(f.Operator) {
			return &UnsupportedOperatorError{Operator: string(f.Operator)}
		}
		switch f.LogicalGroup {
		case "", GroupAnd, GroupOr:
		default:
			return &ValidationError{Field: fmt.Sprintf("filters[%d].logical_group", i), Message: "must be AND or OR"}
		}
		// Same value-presence rules the compiler enforces; rejecting here
		// keeps unexecutable filters out of the store.
		if _, _, err := compileCondition(f); err != nil {
			return err
		}
	}
	return nil
}
