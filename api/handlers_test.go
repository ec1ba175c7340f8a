package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/report-engine/api"
	"github.com/warp/report-engine/reporting"
	"github.com/warp/report-engine/store/sqlite"
)

const testSecret = "test-secret"

// =============================================================================
// TEST HARNESS
// =============================================================================

type testAPI struct {
	router  http.Handler
	store   *sqlite.Store
	handler *api.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := reporting.NewRegistry()
	handler := api.NewHandler(
		store,
		registry,
		reporting.NewCompiler(registry, 0, 0),
		reporting.NewRunner(store.DB(), registry),
	)
	router := api.NewRouter(handler, api.RouterOptions{JWTSecret: testSecret})

	return &testAPI{router: router, store: store, handler: handler}
}

func token(t *testing.T, userID string) string {
	tok, err := api.IssueToken(testSecret, reporting.Principal{UserID: userID})
	require.NoError(t, err)
	return tok
}

// request performs an authenticated JSON request against the router.
func (a *testAPI) request(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out), rec.Body.String())
}

func assetPayload(name string) api.CreateReportRequest {
	return api.CreateReportRequest{
		Name:         name,
		Description:  "asset listing",
		TargetEntity: "CompanyAssets",
		OutputFormat: "JSON",
		Fields: []api.FieldPayload{
			{FieldName: "asset_name", DisplayName: "Asset Name", SortOrder: 1, SortDirection: "ASC"},
			{FieldName: "status"},
		},
		Filters: []api.FilterPayload{
			{FieldName: "status", Operator: "!=", Value1: "Retired"},
		},
	}
}

// createReport creates a report as the given user and returns its id.
func (a *testAPI) createReport(t *testing.T, user string, payload api.CreateReportRequest) string {
	rec := a.request(t, http.MethodPost, "/api/reports", token(t, user), payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto api.ReportConfigDTO
	decodeInto(t, rec, &dto)
	return dto.ID
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAPI_RequiresToken(t *testing.T) {
	a := newTestAPI(t)

	rec := a.request(t, http.MethodGet, "/api/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/reports", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_WrongSecretRejected(t *testing.T) {
	a := newTestAPI(t)

	forged, err := api.IssueToken("other-secret", reporting.Principal{UserID: "alice"})
	require.NoError(t, err)

	rec := a.request(t, http.MethodGet, "/api/reports", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_HealthIsPublic(t *testing.T) {
	a := newTestAPI(t)

	rec := a.request(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// CREATE
// =============================================================================

func TestAPI_CreateReport(t *testing.T) {
	a := newTestAPI(t)

	rec := a.request(t, http.MethodPost, "/api/reports", token(t, "alice"), assetPayload("Asset Register"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto api.ReportConfigDTO
	decodeInto(t, rec, &dto)

	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, "Asset Register", dto.Name)
	assert.Equal(t, "alice", dto.CreatedBy)
	assert.False(t, dto.IsSystem)
	require.Len(t, dto.Fields, 2)
	assert.NotZero(t, dto.Fields[0].ID)
	require.Len(t, dto.Filters, 1)
	assert.Equal(t, "!=", dto.Filters[0].Operator)
}

func TestAPI_CreateRejections(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name     string
		mutate   func(*api.CreateReportRequest)
		wantCode int
	}{
		{"unknown entity", func(r *api.CreateReportRequest) { r.TargetEntity = "Secrets" }, http.StatusBadRequest},
		{"no fields", func(r *api.CreateReportRequest) { r.Fields = nil }, http.StatusBadRequest},
		{"field not on entity", func(r *api.CreateReportRequest) { r.Fields[0].FieldName = "client_name" }, http.StatusBadRequest},
		{"hostile operator", func(r *api.CreateReportRequest) { r.Filters[0].Operator = "; DROP TABLE" }, http.StatusBadRequest},
		{"missing filter value", func(r *api.CreateReportRequest) { r.Filters[0].Value1 = "" }, http.StatusBadRequest},
		{"bad output format", func(r *api.CreateReportRequest) { r.OutputFormat = "XML" }, http.StatusBadRequest},
		{"blank name", func(r *api.CreateReportRequest) { r.Name = "   " }, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload := assetPayload("Rejected")
			tc.mutate(&payload)

			rec := a.request(t, http.MethodPost, "/api/reports", token(t, "alice"), payload)
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_CreateNameConflict(t *testing.T) {
	a := newTestAPI(t)

	a.createReport(t, "alice", assetPayload("Asset Register"))

	rec := a.request(t, http.MethodPost, "/api/reports", token(t, "bob"), assetPayload("Asset Register"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_CreateNormalizesOperatorCase(t *testing.T) {
	a := newTestAPI(t)

	payload := assetPayload("Case Insensitive")
	payload.Filters = []api.FilterPayload{
		{FieldName: "category", Operator: "not   like", Value1: "%scrap%"},
	}

	rec := a.request(t, http.MethodPost, "/api/reports", token(t, "alice"), payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dto api.ReportConfigDTO
	decodeInto(t, rec, &dto)
	assert.Equal(t, "NOT LIKE", dto.Filters[0].Operator)
}

// =============================================================================
// LIST / GET
// =============================================================================

func TestAPI_ListVisibility(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()

	require.NoError(t, reporting.InstallSystemReports(ctx, a.store, reporting.NewRegistry()))
	a.createReport(t, "alice", assetPayload("Alice Assets"))
	a.createReport(t, "bob", assetPayload("Bob Assets"))

	var list []api.ReportSummaryDTO

	rec := a.request(t, http.MethodGet, "/api/reports", token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &list)
	require.Len(t, list, 1+len(reporting.SystemReports()))
	assert.Equal(t, "Alice Assets", list[0].Name, "name-ordered, Alice's first")

	rec = a.request(t, http.MethodGet, "/api/reports?include_system=false", token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Alice Assets", list[0].Name)
}

func TestAPI_GetReport(t *testing.T) {
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	// Owner reads it.
	rec := a.request(t, http.MethodGet, "/api/reports/"+id, token(t, "alice"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// A stranger is refused.
	rec = a.request(t, http.MethodGet, "/api/reports/"+id, token(t, "bob"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown ids are not found.
	rec = a.request(t, http.MethodGet, "/api/reports/nope", token(t, "alice"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_StrictVisibilityHidesForeignReports(t *testing.T) {
	// With strict visibility on, a forbidden read is indistinguishable from
	// a missing record.
	a := newTestAPI(t)
	a.handler.StrictVisibility = true

	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	rec := a.request(t, http.MethodGet, "/api/reports/"+id, token(t, "bob"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/reports/"+id+"/run", token(t, "bob"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ListEntities(t *testing.T) {
	a := newTestAPI(t)

	rec := a.request(t, http.MethodGet, "/api/reports/meta/entities", token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entities []api.EntityDTO
	decodeInto(t, rec, &entities)
	require.Len(t, entities, 5)
	assert.Equal(t, "Candidates", entities[0].Entity)
	assert.NotEmpty(t, entities[0].Fields)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestAPI_UpdateReport(t *testing.T) {
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	name := "Asset Register v2"
	filters := []api.FilterPayload{}
	rec := a.request(t, http.MethodPut, "/api/reports/"+id, token(t, "alice"),
		api.UpdateReportRequest{Name: &name, Filters: &filters})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto api.ReportConfigDTO
	decodeInto(t, rec, &dto)
	assert.Equal(t, "Asset Register v2", dto.Name)
	assert.Empty(t, dto.Filters, "empty set replaces wholesale")
	assert.Len(t, dto.Fields, 2, "fields untouched when omitted")
}

func TestAPI_UpdateRejectsEmptyProjection(t *testing.T) {
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	fields := []api.FieldPayload{}
	rec := a.request(t, http.MethodPut, "/api/reports/"+id, token(t, "alice"),
		api.UpdateReportRequest{Fields: &fields})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_UpdateValidatesEntityChangeAgainstFields(t *testing.T) {
	// Retargeting to an entity the stored fields are illegal for must fail
	// before anything persists.
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	entity := "Clients"
	rec := a.request(t, http.MethodPut, "/api/reports/"+id, token(t, "alice"),
		api.UpdateReportRequest{TargetEntity: &entity})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The stored configuration is unchanged.
	rec = a.request(t, http.MethodGet, "/api/reports/"+id, token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dto api.ReportConfigDTO
	decodeInto(t, rec, &dto)
	assert.Equal(t, "CompanyAssets", dto.TargetEntity)
}

func TestAPI_UpdateForeignReportForbidden(t *testing.T) {
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	name := "Hijacked"
	rec := a.request(t, http.MethodPut, "/api/reports/"+id, token(t, "bob"),
		api.UpdateReportRequest{Name: &name})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// DELETE
// =============================================================================

func TestAPI_DeleteReport(t *testing.T) {
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	rec := a.request(t, http.MethodDelete, "/api/reports/"+id, token(t, "alice"), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/reports/"+id, token(t, "alice"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_DeleteForeignReportForbidden(t *testing.T) {
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	rec := a.request(t, http.MethodDelete, "/api/reports/"+id, token(t, "bob"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// SYSTEM REPORT IMMUTABILITY
// =============================================================================

func TestAPI_SystemReportsImmutable(t *testing.T) {
	// GIVEN: The built-in system reports
	// WHEN: Any user tries to read, run, modify, or delete one
	// THEN: Read and run succeed; update and delete are forbidden

	a := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, reporting.InstallSystemReports(ctx, a.store, reporting.NewRegistry()))
	require.NoError(t, a.store.SeedDemoData(ctx))

	var list []api.ReportSummaryDTO
	rec := a.request(t, http.MethodGet, "/api/reports", token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &list)
	require.NotEmpty(t, list)
	require.True(t, list[0].IsSystem)
	id := list[0].ID

	rec = a.request(t, http.MethodGet, "/api/reports/"+id, token(t, "alice"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/reports/"+id+"/run", token(t, "alice"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	name := "Renamed"
	rec = a.request(t, http.MethodPut, "/api/reports/"+id, token(t, "alice"),
		api.UpdateReportRequest{Name: &name})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.request(t, http.MethodDelete, "/api/reports/"+id, token(t, "alice"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// EXECUTION
// =============================================================================

func TestAPI_RunReport(t *testing.T) {
	// GIVEN: Seeded demo data and an asset report sorted by name
	// WHEN: Run without pagination parameters
	// THEN: All three assets come back alphabetically under the display header

	a := newTestAPI(t)
	require.NoError(t, a.store.SeedDemoData(context.Background()))
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	rec := a.request(t, http.MethodGet, "/api/reports/"+id+"/run", token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res api.ReportResultsDTO
	decodeInto(t, rec, &res)

	assert.Equal(t, int64(3), res.TotalRecords)
	assert.Equal(t, reporting.DefaultPageSize, res.Limit)
	assert.Equal(t, []string{"Asset Name", "status"}, res.Headers)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "Delivery Van", res.Rows[0]["Asset Name"])
	assert.Equal(t, "Engraving Machine", res.Rows[1]["Asset Name"])
	assert.Equal(t, "Laser Cutter", res.Rows[2]["Asset Name"])
}

func TestAPI_RunReportPagination(t *testing.T) {
	// Pages partition the full result: same total on every page, no row
	// appears twice, and walking the pages reconstitutes the whole set.
	a := newTestAPI(t)
	require.NoError(t, a.store.SeedDemoData(context.Background()))
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	var all []string
	for _, page := range []string{"?limit=2&offset=0", "?limit=2&offset=2"} {
		rec := a.request(t, http.MethodGet, "/api/reports/"+id+"/run"+page, token(t, "alice"), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var res api.ReportResultsDTO
		decodeInto(t, rec, &res)
		assert.Equal(t, int64(3), res.TotalRecords)
		assert.Equal(t, 2, res.Limit)
		for _, row := range res.Rows {
			all = append(all, row["Asset Name"].(string))
		}
	}

	assert.Equal(t, []string{"Delivery Van", "Engraving Machine", "Laser Cutter"}, all)
}

func TestAPI_RunReportBadPagination(t *testing.T) {
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	rec := a.request(t, http.MethodGet, "/api/reports/"+id+"/run?limit=abc", token(t, "alice"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/reports/"+id+"/run?offset=1.5", token(t, "alice"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RunForeignReportForbidden(t *testing.T) {
	a := newTestAPI(t)
	id := a.createReport(t, "alice", assetPayload("Asset Register"))

	rec := a.request(t, http.MethodGet, "/api/reports/"+id+"/run", token(t, "bob"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
