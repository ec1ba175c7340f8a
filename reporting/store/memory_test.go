package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/report-engine/reporting"
	"github.com/warp/report-engine/reporting/store"
)

func clientReport(name, owner string) reporting.ReportConfiguration {
	return reporting.ReportConfiguration{
		Name:         name,
		TargetEntity: "Clients",
		OutputFormat: reporting.FormatJSON,
		CreatedBy:    owner,
		Fields: []reporting.ReportField{
			{FieldName: "client_name", SortOrder: 1},
			{FieldName: "status"},
		},
		Filters: []reporting.ReportFilter{
			{FieldName: "status", Operator: reporting.OpEq, Value1: "Active"},
		},
	}
}

func TestMemory_AddGetRoundTrip(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, clientReport("Client Directory", "alice"))
	require.NoError(t, err)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Client Directory", got.Name)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	require.Len(t, got.Fields, 2)
	assert.NotZero(t, got.Fields[0].ID)

	// The copy returned by Get is detached from the stored configuration.
	got.Fields[0].FieldName = "mutated"
	again, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "client_name", again.Fields[0].FieldName)
}

func TestMemory_Get_MissReturnsNilNil(t *testing.T) {
	m := store.NewMemory()

	got, err := m.Get(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_Add_NameConflict(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	_, err := m.Add(ctx, clientReport("Client Directory", "alice"))
	require.NoError(t, err)

	_, err = m.Add(ctx, clientReport("Client Directory", "bob"))
	assert.ErrorIs(t, err, reporting.ErrNameConflict)
}

func TestMemory_FieldOrderingContract(t *testing.T) {
	// Fields with sort participation come first, by priority; the remainder
	// keep payload order.
	m := store.NewMemory()
	ctx := context.Background()

	cfg := clientReport("Ordering", "alice")
	cfg.Fields = []reporting.ReportField{
		{FieldName: "city", SortOrder: 2},
		{FieldName: "client_name"},
		{FieldName: "status", SortOrder: 1},
	}

	id, err := m.Add(ctx, cfg)
	require.NoError(t, err)

	got, err := m.Get(ctx, id)
	require.NoError(t, err)

	names := make([]string, len(got.Fields))
	for i, f := range got.Fields {
		names[i] = f.FieldName
	}
	assert.Equal(t, []string{"client_name", "status", "city"}, names)
}

func TestMemory_List_VisibilityAndOrdering(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	_, err := m.Add(ctx, clientReport("Zulu", "alice"))
	require.NoError(t, err)
	_, err = m.Add(ctx, clientReport("Alpha", "alice"))
	require.NoError(t, err)
	_, err = m.Add(ctx, clientReport("Private", "bob"))
	require.NoError(t, err)

	system := clientReport("Everyone", "")
	system.IsSystem = true
	_, err = m.Add(ctx, system)
	require.NoError(t, err)

	list, err := m.List(ctx, reporting.Principal{UserID: "alice"}, true)
	require.NoError(t, err)

	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"Alpha", "Everyone", "Zulu"}, names)

	list, err = m.List(ctx, reporting.Principal{UserID: "alice"}, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestMemory_Update_ReplaceAndRename(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, clientReport("Before", "alice"))
	require.NoError(t, err)
	_, err = m.Add(ctx, clientReport("Taken", "alice"))
	require.NoError(t, err)

	// Renaming onto an existing name conflicts.
	taken := "Taken"
	_, err = m.Update(ctx, id, reporting.ConfigPatch{Name: &taken})
	assert.ErrorIs(t, err, reporting.ErrNameConflict)

	// A fresh name frees the old one.
	after := "After"
	got, err := m.Update(ctx, id, reporting.ConfigPatch{Name: &after})
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)

	before := "Before"
	_, err = m.Add(ctx, clientReport(before, "carol"))
	assert.NoError(t, err, "old name is reusable after rename")

	// Child replacement, including clearing.
	filters := []reporting.ReportFilter{}
	got, err = m.Update(ctx, id, reporting.ConfigPatch{Filters: &filters})
	require.NoError(t, err)
	assert.Empty(t, got.Filters)
	assert.Len(t, got.Fields, 2, "fields untouched when not supplied")
}

func TestMemory_Update_MissReturnsNilNil(t *testing.T) {
	m := store.NewMemory()

	name := "x"
	got, err := m.Update(context.Background(), "missing", reporting.ConfigPatch{Name: &name})

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_Delete(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	id, err := m.Add(ctx, clientReport("Client Directory", "alice"))
	require.NoError(t, err)

	deleted, err := m.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = m.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	// The name is released with the configuration.
	_, err = m.Add(ctx, clientReport("Client Directory", "bob"))
	assert.NoError(t, err)
}
