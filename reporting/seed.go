/*
seed.go - Built-in system reports

PURPOSE:
  Defines the system reports installed at first startup. System reports are
  readable and executable by every user and mutable by none; they give a
  fresh installation useful output before anyone has authored a report.

IDEMPOTENCY:
  InstallSystemReports skips definitions whose name already exists, so
  repeated startups (and upgrades that add new definitions) are safe.
*/
package reporting

import "context"

// SystemReports returns the built-in definitions. CreatedBy is empty and
// IsSystem is set; the store assigns ids and timestamps.
func SystemReports() []ReportConfiguration {
	return []ReportConfiguration{
		{
			Name:         "Client Directory",
			Description:  "All clients with contact details, alphabetical.",
			TargetEntity: "Clients",
			OutputFormat: FormatJSON,
			IsSystem:     true,
			Fields: []ReportField{
				{FieldName: "client_name", DisplayName: "Client", SortOrder: 1, SortDirection: SortAsc},
				{FieldName: "contact_email", DisplayName: "Email"},
				{FieldName: "phone", DisplayName: "Phone"},
				{FieldName: "city", DisplayName: "City"},
			},
		},
		{
			Name:         "Open Invoices",
			Description:  "Unpaid invoices, largest first.",
			TargetEntity: "Invoices",
			OutputFormat: FormatPDF,
			IsSystem:     true,
			Fields: []ReportField{
				{FieldName: "invoice_number", DisplayName: "Invoice #"},
				{FieldName: "client_name", DisplayName: "Client"},
				{FieldName: "total_amount", DisplayName: "Total", SortOrder: 1, SortDirection: SortDesc},
				{FieldName: "due_at", DisplayName: "Due"},
			},
			Filters: []ReportFilter{
				{FieldName: "status", Operator: OpNe, Value1: "Paid", LogicalGroup: GroupAnd},
			},
		},
		{
			Name:         "Asset Register",
			Description:  "Company assets by category.",
			TargetEntity: "CompanyAssets",
			OutputFormat: FormatCSV,
			IsSystem:     true,
			Fields: []ReportField{
				{FieldName: "category", DisplayName: "Category", SortOrder: 1, SortDirection: SortAsc},
				{FieldName: "asset_name", DisplayName: "Asset", SortOrder: 2, SortDirection: SortAsc},
				{FieldName: "asset_tag", DisplayName: "Tag"},
				{FieldName: "purchase_price", DisplayName: "Purchase Price"},
			},
		},
	}
}

// InstallSystemReports writes any missing system reports. Existing names are
// left untouched.
func InstallSystemReports(ctx context.Context, store ConfigStore, reg *Registry) error {
	existing, err := store.List(ctx, Principal{}, true)
	if err != nil {
		return err
	}
	names := make(map[string]bool, len(existing))
	for _, s := range existing {
		names[s.Name] = true
	}

	for _, cfg := range SystemReports() {
		if names[cfg.Name] {
			continue
		}
		if err := ValidateConfiguration(reg, cfg); err != nil {
			return err
		}
		if _, err := store.Add(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}
