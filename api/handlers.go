/*
handlers.go - HTTP handlers for the report engine

PURPOSE:
  The request-layer facade over the reporting components. Each handler is a
  thin binding: decode -> authorize -> call into the domain -> encode. This
  is the only layer that sees the authenticated principal and translates
  authorization outcomes to user-visible responses.

ENDPOINTS:
  POST   /api/reports            Create a configuration
  GET    /api/reports            List visible configurations
  GET    /api/reports/{id}       Get one configuration with children
  PUT    /api/reports/{id}       Patch scalars / replace child sets
  DELETE /api/reports/{id}       Delete (children cascade)
  GET    /api/reports/{id}/run   Execute with limit/offset
  GET    /api/reports/meta/entities  Registry dump for report builders

ERROR MAPPING:
  400  validation, unknown entity/field/operator, missing filter value
  401  missing/invalid token (middleware)
  403  principal lacks rights on an existing record
  404  id does not exist (or strict visibility hides a forbidden read)
  409  report name conflict
  500  execution failure; response carries only a correlation reference

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
  - reporting/access.go: The capability rules consulted here
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/warp/report-engine/reporting"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    reporting.ConfigStore
	Registry *reporting.Registry
	Compiler *reporting.Compiler
	Runner   *reporting.Runner

	// StrictVisibility hides records the principal cannot read behind 404
	// instead of 403.
	StrictVisibility bool
}

// NewHandler creates a handler over the given components.
func NewHandler(store reporting.ConfigStore, reg *reporting.Registry, compiler *reporting.Compiler, runner *reporting.Runner) *Handler {
	return &Handler{
		Store:    store,
		Registry: reg,
		Compiler: compiler,
		Runner:   runner,
	}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

// =============================================================================
// REPORT CRUD
// =============================================================================

// CreateReport creates a configuration owned by the caller.
// POST /api/reports
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.configFromCreate(req, principal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := h.Store.Add(r.Context(), cfg)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.Store.Get(r.Context(), id)
	if err != nil || created == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load created report", err)
		return
	}
	writeJSON(w, http.StatusCreated, toConfigDTO(*created))
}

// ListReports returns the configurations visible to the caller.
// GET /api/reports?include_system=true|false
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	includeSystem := true
	if v := r.URL.Query().Get("include_system"); v != "" {
		includeSystem = v == "true"
	}

	summaries, err := h.Store.List(r.Context(), principal, includeSystem)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}

	dtos := make([]ReportSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = toSummaryDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReport returns one configuration with children.
// GET /api/reports/{id}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	cfg, principal, done := h.loadAuthorized(w, r)
	if done {
		return
	}
	if !reporting.CapabilitiesFor(principal, *cfg).Read {
		h.writeDenied(w)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(*cfg))
}

// UpdateReport patches scalars and/or replaces child sets.
// PUT /api/reports/{id}
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	cfg, principal, done := h.loadAuthorized(w, r)
	if done {
		return
	}
	caps := reporting.CapabilitiesFor(principal, *cfg)
	if !caps.Read && h.StrictVisibility {
		writeError(w, http.StatusNotFound, "Report not found", nil)
		return
	}
	if !caps.Update {
		writeError(w, http.StatusForbidden, "Report cannot be modified", nil)
		return
	}

	var req UpdateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch, err := h.patchFromUpdate(req, *cfg)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.Store.Update(r.Context(), cfg.ID, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "Report not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toConfigDTO(*updated))
}

// DeleteReport removes a configuration; children cascade.
// DELETE /api/reports/{id}
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	cfg, principal, done := h.loadAuthorized(w, r)
	if done {
		return
	}
	caps := reporting.CapabilitiesFor(principal, *cfg)
	if !caps.Read && h.StrictVisibility {
		writeError(w, http.StatusNotFound, "Report not found", nil)
		return
	}
	if !caps.Delete {
		writeError(w, http.StatusForbidden, "Report cannot be deleted", nil)
		return
	}

	if _, err := h.Store.Delete(r.Context(), cfg.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXECUTION
// =============================================================================

// RunReport compiles and executes a configuration.
// GET /api/reports/{id}/run?limit=&offset=
func (h *Handler) RunReport(w http.ResponseWriter, r *http.Request) {
	cfg, principal, done := h.loadAuthorized(w, r)
	if done {
		return
	}
	if !reporting.CapabilitiesFor(principal, *cfg).Execute {
		h.writeDenied(w)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer", nil)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer", nil)
		return
	}

	query, err := h.Compiler.Compile(*cfg, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	results, err := h.Runner.Run(r.Context(), *cfg, query)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReportResultsDTO{
		Report:       toConfigDTO(results.Config),
		Headers:      results.Headers,
		Rows:         results.Rows,
		TotalRecords: results.TotalRecords,
		Limit:        results.Limit,
		Offset:       results.Offset,
	})
}

// =============================================================================
// METADATA
// =============================================================================

// ListEntities exposes the registry so report builders can offer fields.
// GET /api/reports/meta/entities
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	tags := h.Registry.Entities()
	dtos := make([]EntityDTO, 0, len(tags))
	for _, tag := range tags {
		fields, err := h.Registry.FieldsOf(tag)
		if err != nil {
			continue
		}
		dto := EntityDTO{Entity: tag, Fields: make([]EntityFieldDTO, 0, len(fields))}
		for _, f := range fields {
			ft, _ := h.Registry.FieldType(tag, f)
			dto.Fields = append(dto.Fields, EntityFieldDTO{Name: f, Type: string(ft)})
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// PAYLOAD CONVERSION
// =============================================================================

// configFromCreate assembles and validates a new configuration.
func (h *Handler) configFromCreate(req CreateReportRequest, principal reporting.Principal) (reporting.ReportConfiguration, error) {
	format := reporting.FormatJSON
	if req.OutputFormat != "" {
		f, ok := reporting.ParseOutputFormat(req.OutputFormat)
		if !ok {
			return reporting.ReportConfiguration{}, &reporting.ValidationError{
				Field: "output_format", Message: "unrecognized format " + strconv.Quote(req.OutputFormat),
			}
		}
		format = f
	}

	fields, err := fieldsFromPayload(req.Fields)
	if err != nil {
		return reporting.ReportConfiguration{}, err
	}
	filters, err := filtersFromPayload(req.Filters)
	if err != nil {
		return reporting.ReportConfiguration{}, err
	}

	cfg := reporting.ReportConfiguration{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		TargetEntity: req.TargetEntity,
		OutputFormat: format,
		CreatedBy:    principal.UserID,
		Fields:       fields,
		Filters:      filters,
	}
	if err := reporting.ValidateConfiguration(h.Registry, cfg); err != nil {
		return reporting.ReportConfiguration{}, err
	}
	return cfg, nil
}

// patchFromUpdate converts the wire patch and validates the configuration
// the patch would produce, so an update can never persist an unexecutable
// state (e.g. a new target_entity the existing fields are illegal for).
func (h *Handler) patchFromUpdate(req UpdateReportRequest, current reporting.ReportConfiguration) (reporting.ConfigPatch, error) {
	patch := reporting.ConfigPatch{
		Name:        req.Name,
		Description: req.Description,
	}
	candidate := current

	if req.Name != nil {
		candidate.Name = *req.Name
	}
	if req.TargetEntity != nil {
		patch.TargetEntity = req.TargetEntity
		candidate.TargetEntity = *req.TargetEntity
	}
	if req.OutputFormat != nil {
		f, ok := reporting.ParseOutputFormat(*req.OutputFormat)
		if !ok {
			return reporting.ConfigPatch{}, &reporting.ValidationError{
				Field: "output_format", Message: "unrecognized format " + strconv.Quote(*req.OutputFormat),
			}
		}
		patch.OutputFormat = &f
		candidate.OutputFormat = f
	}
	if req.Fields != nil {
		fields, err := fieldsFromPayload(*req.Fields)
		if err != nil {
			return reporting.ConfigPatch{}, err
		}
		patch.Fields = &fields
		candidate.Fields = fields
	}
	if req.Filters != nil {
		filters, err := filtersFromPayload(*req.Filters)
		if err != nil {
			return reporting.ConfigPatch{}, err
		}
		patch.Filters = &filters
		candidate.Filters = filters
	}

	if err := reporting.ValidateConfiguration(h.Registry, candidate); err != nil {
		return reporting.ConfigPatch{}, err
	}
	return patch, nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadAuthorized resolves the principal and the configuration from the
// request. When it returns done=true a response has already been written.
func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*reporting.ReportConfiguration, reporting.Principal, bool) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return nil, reporting.Principal{}, true
	}

	id := reporting.ConfigID(chi.URLParam(r, "id"))
	cfg, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load report", err)
		return nil, principal, true
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, "Report not found", nil)
		return nil, principal, true
	}
	return cfg, principal, false
}

// writeDenied renders a read/execute denial honoring strict visibility.
func (h *Handler) writeDenied(w http.ResponseWriter) {
	if h.StrictVisibility {
		writeError(w, http.StatusNotFound, "Report not found", nil)
		return
	}
	writeError(w, http.StatusForbidden, "Report is not accessible", nil)
}

// writeDomainError maps reporting errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	var execErr *reporting.ExecutionError
	switch {
	case errors.As(err, &execErr):
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Report execution failed",
			Ref:   execErr.CorrelationID,
		})
	case errors.Is(err, reporting.ErrNameConflict):
		writeError(w, http.StatusConflict, "Report name already exists", nil)
	case errors.Is(err, reporting.ErrNotFound):
		writeError(w, http.StatusNotFound, "Report not found", nil)
	case errors.Is(err, reporting.ErrForbidden):
		writeError(w, http.StatusForbidden, "Operation not permitted", nil)
	case reporting.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid report definition", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// queryInt parses an optional integer query parameter. Absent returns 0,
// which downstream clamping turns into the defaults.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// normalizeOperator upper-cases and collapses interior whitespace so
// "not  like" and "NOT LIKE" compare equal against the whitelist.
func normalizeOperator(op string) string {
	return strings.Join(strings.Fields(strings.ToUpper(op)), " ")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
