/*
handlers.go - HTTP API handlers for the revenue engine

PURPOSE:
  Exposes deal storage, schedule building and revenue aggregation via a
  REST API. Handles HTTP request/response and JSON serialization and
  delegates to the deals package.

ENDPOINTS:
  Deals:
    GET    /api/deals                  List stored deals
    POST   /api/deals                  Create a deal from JSON
    GET    /api/deals/{id}             Get one deal
    DELETE /api/deals/{id}             Delete a deal
    GET    /api/deals/{id}/schedule    Build the deal's revenue schedule

  Computation:
    POST   /api/schedules              Build schedules for posted deals (not stored)
    GET    /api/revenue/aggregate      Total monthly revenue over stored deals
                                       ?from=YYYY-MM&to=YYYY-MM (optional)

  Scenarios:
    GET    /api/scenarios              List demo deal books
    GET    /api/scenarios/current      Currently loaded book, or null
    POST   /api/scenarios/load         Replace stored deals with a demo book
    POST   /api/scenarios/reset        Remove every stored deal

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, malformed contract year
  - 404: Deal not found
  - 409: Duplicate deal ID
  - 500: Internal errors

  In batch computation a malformed deal does not fail the request; it is
  reported in its own result entry and the rest of the batch proceeds.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo deal books
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       deals.Store
	DealFactory *factory.DealFactory
	Builder     *deals.ScheduleBuilder
	Workers     int

	Registry *prometheus.Registry
	Metrics  *deals.Metrics

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler with its own metrics registry.
func NewHandler(store deals.Store, builder *deals.ScheduleBuilder) *Handler {
	reg := prometheus.NewRegistry()
	return &Handler{
		Store:       store,
		DealFactory: factory.NewDealFactory(),
		Builder:     builder,
		Registry:    reg,
		Metrics:     deals.NewMetrics(reg),
	}
}

// =============================================================================
// DEAL HANDLERS
// =============================================================================

// ListDeals returns all stored deals.
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	all, err := h.Store.List(r.Context())
	if err != nil {
		writeDomainError(w, r, "Failed to list deals", err)
		return
	}

	dtos := make([]DealDTO, len(all))
	for i, d := range all {
		dtos[i] = toDealDTO(h.DealFactory, d, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDeal returns a single deal.
func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	id := generic.DealID(chi.URLParam(r, "id"))

	deal, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "Failed to get deal", err)
		return
	}
	writeJSON(w, http.StatusOK, toDealDTO(h.DealFactory, deal, false))
}

// CreateDeal stores a new deal. The schedule is validated first so a deal
// that can never produce a schedule is rejected up front.
func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var req factory.DealJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	deal, err := h.DealFactory.FromJSON(req)
	if err != nil {
		writeDomainError(w, r, "Invalid deal", err)
		return
	}
	if err := h.Builder.Validate(deal); err != nil {
		writeDomainError(w, r, "Invalid deal", err)
		return
	}

	if err := h.Store.Save(r.Context(), deal); err != nil {
		writeDomainError(w, r, "Failed to create deal", err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("deal_id", string(deal.ID)).Msg("deal created")
	writeJSON(w, http.StatusCreated, toDealDTO(h.DealFactory, deal, false))
}

// DeleteDeal removes a deal.
func (h *Handler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	id := generic.DealID(chi.URLParam(r, "id"))

	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, "Failed to delete deal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchedule builds the revenue schedule for a stored deal.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := generic.DealID(chi.URLParam(r, "id"))

	deal, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "Failed to get deal", err)
		return
	}

	batch := deals.Process(r.Context(), []deals.Deal{deal}, h.Builder, deals.Options{Workers: 1, Metrics: h.Metrics})
	result := batch.Results[0]
	if result.Err != nil {
		writeDomainError(w, r, "Failed to build schedule", result.Err)
		return
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{
		Deal:     toDealDTO(h.DealFactory, result.Deal, true),
		Schedule: toScheduleDTO(result.Schedule),
	})
}

// =============================================================================
// COMPUTATION HANDLERS
// =============================================================================

// ComputeSchedules builds schedules and the aggregate for posted deals.
// Nothing is stored.
func (h *Handler) ComputeSchedules(w http.ResponseWriter, r *http.Request) {
	var req ComputeSchedulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	book := make([]deals.Deal, 0, len(req.Deals))
	for _, dj := range req.Deals {
		d, err := h.DealFactory.FromJSON(dj)
		if err != nil {
			writeDomainError(w, r, "Invalid deal", err)
			return
		}
		book = append(book, d)
	}

	batch := deals.Process(r.Context(), book, h.Builder, deals.Options{Workers: h.Workers, Metrics: h.Metrics})
	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

// GetAggregate returns total monthly revenue across stored deals.
func (h *Handler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	period, err := generic.ParsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeDomainError(w, r, "Invalid period", err)
		return
	}

	all, err := h.Store.List(r.Context())
	if err != nil {
		writeDomainError(w, r, "Failed to list deals", err)
		return
	}

	series := deals.Aggregate(all).Within(period)
	if h.Metrics != nil {
		h.Metrics.AggregateRuns.Inc()
	}
	writeJSON(w, http.StatusOK, toAggregateResponse(series))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

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

// writeDomainError maps engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case generic.IsNotFound(err):
		status = http.StatusNotFound
	case generic.IsConflict(err):
		status = http.StatusConflict
	case generic.IsClientError(err):
		status = http.StatusBadRequest
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
	}

	resp := ErrorResponse{Error: message, Code: errorCode(err), Details: err.Error()}
	var mcy *generic.MalformedContractYearError
	if errors.As(err, &mcy) {
		resp.Details = toErrorDTO(err)
	}
	writeJSON(w, status, resp)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, generic.ErrMalformedContractYear):
		return "malformed_contract_year"
	case errors.Is(err, generic.ErrDealNotFound):
		return "deal_not_found"
	case errors.Is(err, generic.ErrDuplicateDeal):
		return "duplicate_deal"
	case errors.Is(err, generic.ErrInvalidDeal):
		return "invalid_deal"
	case errors.Is(err, generic.ErrInvalidPeriod), errors.Is(err, generic.ErrInvalidMonth):
		return "invalid_period"
	case generic.IsClientError(err):
		return "invalid_deal"
	default:
		return "internal"
	}
}
