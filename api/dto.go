/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - Case-insensitive enum input, normalized upper-case output
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

NORMALIZATION:
  output_format, sort_direction, and logical_group accept any case on input
  and are always rendered upper-case. Unknown values are rejected during
  payload conversion, before anything reaches the store.

SEE ALSO:
  - handlers.go: Uses these types
  - reporting/types.go: Domain model
*/
package api

import (
	"fmt"
	"time"

	"github.com/warp/report-engine/reporting"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ReportConfigDTO is a full configuration with children.
type ReportConfigDTO struct {
	ID           string            `json:"report_config_id"`
	Name         string            `json:"report_name"`
	Description  string            `json:"description,omitempty"`
	TargetEntity string            `json:"target_entity"`
	OutputFormat string            `json:"output_format"`
	CreatedBy    string            `json:"created_by_user_id,omitempty"`
	IsSystem     bool              `json:"is_system_report"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
	Fields       []ReportFieldDTO  `json:"fields"`
	Filters      []ReportFilterDTO `json:"filters"`
}

// ReportFieldDTO is one column of a configuration.
type ReportFieldDTO struct {
	ID              int64  `json:"report_config_field_id"`
	FieldName       string `json:"field_name"`
	DisplayName     string `json:"display_name,omitempty"`
	SortOrder       int    `json:"sort_order"`
	SortDirection   string `json:"sort_direction,omitempty"`
	GroupByPriority int    `json:"group_by_priority,omitempty"`
}

// ReportFilterDTO is one predicate of a configuration.
type ReportFilterDTO struct {
	ID           int64  `json:"report_config_filter_id"`
	FieldName    string `json:"field_name"`
	Operator     string `json:"operator"`
	Value1       string `json:"filter_value_1,omitempty"`
	Value2       string `json:"filter_value_2,omitempty"`
	LogicalGroup string `json:"logical_group"`
}

// ReportSummaryDTO is the child-free list row.
type ReportSummaryDTO struct {
	ID           string `json:"report_config_id"`
	Name         string `json:"report_name"`
	Description  string `json:"description,omitempty"`
	TargetEntity string `json:"target_entity"`
	OutputFormat string `json:"output_format"`
	CreatedBy    string `json:"created_by_user_id,omitempty"`
	IsSystem     bool   `json:"is_system_report"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// ReportResultsDTO is the execution envelope.
type ReportResultsDTO struct {
	Report       ReportConfigDTO  `json:"report"`
	Headers      []string         `json:"headers"`
	Rows         []map[string]any `json:"rows"`
	TotalRecords int64            `json:"total_records"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
}

// EntityDTO describes one reportable entity for UI report builders.
type EntityDTO struct {
	Entity string           `json:"entity"`
	Fields []EntityFieldDTO `json:"fields"`
}

type EntityFieldDTO struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// FieldPayload is a client-supplied column definition.
type FieldPayload struct {
	FieldName       string `json:"field_name"`
	DisplayName     string `json:"display_name"`
	SortOrder       int    `json:"sort_order"`
	SortDirection   string `json:"sort_direction"`
	GroupByPriority int    `json:"group_by_priority"`
}

// FilterPayload is a client-supplied predicate definition.
type FilterPayload struct {
	FieldName    string `json:"field_name"`
	Operator     string `json:"operator"`
	Value1       string `json:"filter_value_1"`
	Value2       string `json:"filter_value_2"`
	LogicalGroup string `json:"logical_group"`
}

// CreateReportRequest creates a configuration with its children.
type CreateReportRequest struct {
	Name         string          `json:"report_name"`
	Description  string          `json:"description"`
	TargetEntity string          `json:"target_entity"`
	OutputFormat string          `json:"output_format"`
	Fields       []FieldPayload  `json:"fields"`
	Filters      []FilterPayload `json:"filters"`
}

// UpdateReportRequest is a partial patch. Absent keys leave values
// untouched; a supplied fields or filters array (even empty) replaces the
// whole child set.
type UpdateReportRequest struct {
	Name         *string          `json:"report_name"`
	Description  *string          `json:"description"`
	TargetEntity *string          `json:"target_entity"`
	OutputFormat *string          `json:"output_format"`
	Fields       *[]FieldPayload  `json:"fields"`
	Filters      *[]FilterPayload `json:"filters"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toConfigDTO(cfg reporting.ReportConfiguration) ReportConfigDTO {
	dto := ReportConfigDTO{
		ID:           string(cfg.ID),
		Name:         cfg.Name,
		Description:  cfg.Description,
		TargetEntity: cfg.TargetEntity,
		OutputFormat: string(cfg.OutputFormat),
		CreatedBy:    cfg.CreatedBy,
		IsSystem:     cfg.IsSystem,
		CreatedAt:    cfg.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    cfg.UpdatedAt.Format(time.RFC3339),
		Fields:       make([]ReportFieldDTO, len(cfg.Fields)),
		Filters:      make([]ReportFilterDTO, len(cfg.Filters)),
	}
	for i, f := range cfg.Fields {
		dto.Fields[i] = ReportFieldDTO{
			ID:              int64(f.ID),
			FieldName:       f.FieldName,
			DisplayName:     f.DisplayName,
			SortOrder:       f.SortOrder,
			SortDirection:   string(f.SortDirection),
			GroupByPriority: f.GroupByPriority,
		}
	}
	for i, f := range cfg.Filters {
		dto.Filters[i] = ReportFilterDTO{
			ID:           int64(f.ID),
			FieldName:    f.FieldName,
			Operator:     string(f.Operator),
			Value1:       f.Value1,
			Value2:       f.Value2,
			LogicalGroup: string(f.LogicalGroup),
		}
	}
	return dto
}

func toSummaryDTO(sum reporting.ConfigSummary) ReportSummaryDTO {
	return ReportSummaryDTO{
		ID:           string(sum.ID),
		Name:         sum.Name,
		Description:  sum.Description,
		TargetEntity: sum.TargetEntity,
		OutputFormat: string(sum.OutputFormat),
		CreatedBy:    sum.CreatedBy,
		IsSystem:     sum.IsSystem,
		CreatedAt:    sum.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    sum.UpdatedAt.Format(time.RFC3339),
	}
}

// fieldsFromPayload normalizes client field rows into domain rows.
func fieldsFromPayload(payload []FieldPayload) ([]reporting.ReportField, error) {
	fields := make([]reporting.ReportField, len(payload))
	for i, p := range payload {
		dir, ok := reporting.ParseSortDirection(p.SortDirection)
		if !ok {
			return nil, &reporting.ValidationError{
				Field:   fmt.Sprintf("fields[%d].sort_direction", i),
				Message: fmt.Sprintf("unrecognized direction %q", p.SortDirection),
			}
		}
		fields[i] = reporting.ReportField{
			FieldName:       p.FieldName,
			DisplayName:     p.DisplayName,
			SortOrder:       p.SortOrder,
			SortDirection:   dir,
			GroupByPriority: p.GroupByPriority,
		}
	}
	return fields, nil
}

// filtersFromPayload normalizes client filter rows into domain rows.
func filtersFromPayload(payload []FilterPayload) ([]reporting.ReportFilter, error) {
	filters := make([]reporting.ReportFilter, len(payload))
	for i, p := range payload {
		group, ok := reporting.ParseLogicalGroup(p.LogicalGroup)
		if !ok {
			return nil, &reporting.ValidationError{
				Field:   fmt.Sprintf("filters[%d].logical_group", i),
				Message: fmt.Sprintf("unrecognized group %q", p.LogicalGroup),
			}
		}
		filters[i] = reporting.ReportFilter{
			FieldName:    p.FieldName,
			Operator:     reporting.Operator(normalizeOperator(p.Operator)),
			Value1:       p.Value1,
			Value2:       p.Value2,
			LogicalGroup: group,
		}
	}
	return filters, nil
}
