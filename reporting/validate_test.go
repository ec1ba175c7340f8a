package reporting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/report-engine/reporting"
)

func validConfig() reporting.ReportConfiguration {
	return reporting.ReportConfiguration{
		Name:         "Asset Overview",
		TargetEntity: "CompanyAssets",
		OutputFormat: reporting.FormatJSON,
		Fields: []reporting.ReportField{
			{FieldName: "asset_name", SortOrder: 1, SortDirection: reporting.SortAsc},
			{FieldName: "purchase_price"},
		},
		Filters: []reporting.ReportFilter{
			{FieldName: "status", Operator: reporting.OpEq, Value1: "InUse"},
		},
	}
}

func TestValidateConfiguration_Valid(t *testing.T) {
	reg := reporting.NewRegistry()
	assert.NoError(t, reporting.ValidateConfiguration(reg, validConfig()))
}

func TestValidateConfiguration_Rejections(t *testing.T) {
	reg := reporting.NewRegistry()

	tests := []struct {
		name    string
		mutate  func(*reporting.ReportConfiguration)
		wantErr error
	}{
		{
			"missing name",
			func(c *reporting.ReportConfiguration) { c.Name = "" },
			reporting.ErrValidation,
		},
		{
			"unknown entity",
			func(c *reporting.ReportConfiguration) { c.TargetEntity = "Ledger" },
			reporting.ErrUnknownEntity,
		},
		{
			"unrecognized output format",
			func(c *reporting.ReportConfiguration) { c.OutputFormat = "XLSX" },
			reporting.ErrValidation,
		},
		{
			"empty projection",
			func(c *reporting.ReportConfiguration) { c.Fields = nil },
			reporting.ErrEmptyProjection,
		},
		{
			"field from another entity",
			func(c *reporting.ReportConfiguration) { c.Fields[0].FieldName = "invoice_number" },
			reporting.ErrInvalidField,
		},
		{
			"negative sort order",
			func(c *reporting.ReportConfiguration) { c.Fields[0].SortOrder = -1 },
			reporting.ErrValidation,
		},
		{
			"bad sort direction",
			func(c *reporting.ReportConfiguration) { c.Fields[0].SortDirection = "SIDEWAYS" },
			reporting.ErrValidation,
		},
		{
			"operator outside whitelist",
			func(c *reporting.ReportConfiguration) { c.Filters[0].Operator = "MATCHES" },
			reporting.ErrUnsupportedOperator,
		},
		{
			"bad logical group",
			func(c *reporting.ReportConfiguration) { c.Filters[0].LogicalGroup = "XOR" },
			reporting.ErrValidation,
		},
		{
			"equality filter without value",
			func(c *reporting.ReportConfiguration) { c.Filters[0].Value1 = "" },
			reporting.ErrMissingFilterValue,
		},
		{
			"between without second bound",
			func(c *reporting.ReportConfiguration) {
				c.Filters[0] = reporting.ReportFilter{
					FieldName: "purchased_at", Operator: reporting.OpBetween, Value1: "2026-01-01",
				}
			},
			reporting.ErrMissingFilterValue,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := reporting.ValidateConfiguration(reg, cfg)

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValidateConfiguration_EmptyFormatAccepted(t *testing.T) {
	// Format is defaulted by the facade; an unset format is not a validation
	// failure at this layer.
	reg := reporting.NewRegistry()
	cfg := validConfig()
	cfg.OutputFormat = ""

	assert.NoError(t, reporting.ValidateConfiguration(reg, cfg))
}

func TestParseHelpers(t *testing.T) {
	f, ok := reporting.ParseOutputFormat("csv_summary")
	require.True(t, ok)
	assert.Equal(t, reporting.FormatCSVSummary, f)

	_, ok = reporting.ParseOutputFormat("docx")
	assert.False(t, ok)

	d, ok := reporting.ParseSortDirection("")
	require.True(t, ok)
	assert.Equal(t, reporting.SortAsc, d)

	d, ok = reporting.ParseSortDirection("desc")
	require.True(t, ok)
	assert.Equal(t, reporting.SortDesc, d)

	g, ok := reporting.ParseLogicalGroup(" or ")
	require.True(t, ok)
	assert.Equal(t, reporting.GroupOr, g)

	_, ok = reporting.ParseLogicalGroup("nand")
	assert.False(t, ok)
}
