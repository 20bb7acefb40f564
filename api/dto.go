/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

NUMBERS:
  Money values are decimal strings ("8000", "833.3333333333333333") so
  clients receive the exact figures the engine computed.

TYPES:
  Deal:      DealDTO (wraps factory.DealJSON)
  Schedule:  ScheduleDTO, BreakpointDTO, ScheduleResponse
  Batch:     ComputeSchedulesRequest, BatchResponse, DealResultDTO
  Aggregate: AggregateResponse, SeriesPointDTO
  Scenarios: ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/deal.go: DealJSON type
*/
package api

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/factory"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DealDTO represents a deal in API responses.
type DealDTO struct {
	factory.DealJSON
	FirstYearMonthlyRevenue *decimal.Decimal `json:"first_year_monthly_revenue,omitempty"`
}

// BreakpointDTO is one (date, value) pair of a schedule.
type BreakpointDTO struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// ScheduleDTO is a deal's revenue step function.
type ScheduleDTO struct {
	DealID                  string          `json:"deal_id"`
	FirstYearMonthlyRevenue decimal.Decimal `json:"first_year_monthly_revenue"`
	Breakpoints             []BreakpointDTO `json:"breakpoints"`
}

// ScheduleResponse pairs a schedule with the updated deal.
type ScheduleResponse struct {
	Deal     DealDTO     `json:"deal"`
	Schedule ScheduleDTO `json:"schedule"`
}

// ComputeSchedulesRequest carries deals to compute without storing them.
type ComputeSchedulesRequest struct {
	Deals []factory.DealJSON `json:"deals"`
}

// DealResultDTO is one deal's outcome in a batch.
type DealResultDTO struct {
	DealID   string       `json:"deal_id"`
	Quarter  string       `json:"quarter,omitempty"`
	Schedule *ScheduleDTO `json:"schedule,omitempty"`
	Error    *ErrorDTO    `json:"error,omitempty"`
}

// BatchResponse is the outcome of computing many deals.
type BatchResponse struct {
	Results   []DealResultDTO     `json:"results"`
	Failed    int                 `json:"failed"`
	Aggregate AggregateResponse   `json:"aggregate"`
	Quarters  map[string][]string `json:"quarters"`
}

// SeriesPointDTO is one month of the aggregate series.
type SeriesPointDTO struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// AggregateResponse is the total revenue series.
type AggregateResponse struct {
	Points []SeriesPointDTO `json:"points"`
	Total  decimal.Decimal  `json:"total"`
	Peak   *SeriesPointDTO  `json:"peak,omitempty"`
}

// ScenarioDTO represents a demo deal book.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorDTO describes a per-deal failure.
type ErrorDTO struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	YearIndex *int   `json:"year_index,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toDealDTO(f *factory.DealFactory, d deals.Deal, withFirstYear bool) DealDTO {
	dto := DealDTO{DealJSON: f.ToJSON(d)}
	if withFirstYear {
		v := d.FirstYearMonthlyRevenue
		dto.FirstYearMonthlyRevenue = &v
	}
	return dto
}

func toScheduleDTO(s deals.Schedule) ScheduleDTO {
	bps := make([]BreakpointDTO, len(s.Breakpoints))
	for i, bp := range s.Breakpoints {
		bps[i] = BreakpointDTO{Date: bp.At.String(), Value: bp.Value}
	}
	return ScheduleDTO{
		DealID:                  string(s.DealID),
		FirstYearMonthlyRevenue: s.FirstYearMonthlyRevenue,
		Breakpoints:             bps,
	}
}

func toAggregateResponse(series deals.Series) AggregateResponse {
	points := series.Points()
	resp := AggregateResponse{
		Points: make([]SeriesPointDTO, len(points)),
		Total:  series.Total(),
	}
	for i, p := range points {
		resp.Points[i] = SeriesPointDTO{Month: p.Month.String(), Total: p.Total}
	}
	if peak, ok := series.Peak(); ok {
		resp.Peak = &SeriesPointDTO{Month: peak.Month.String(), Total: peak.Total}
	}
	return resp
}

func toErrorDTO(err error) *ErrorDTO {
	dto := &ErrorDTO{Code: errorCode(err), Message: err.Error()}
	var mcy *generic.MalformedContractYearError
	if errors.As(err, &mcy) {
		idx := mcy.YearIndex
		dto.YearIndex = &idx
	}
	return dto
}

func toBatchResponse(batch deals.Batch) BatchResponse {
	resp := BatchResponse{
		Results:   make([]DealResultDTO, len(batch.Results)),
		Aggregate: toAggregateResponse(batch.Series),
		Quarters:  make(map[string][]string),
	}
	for i, r := range batch.Results {
		dto := DealResultDTO{DealID: string(r.Deal.ID), Quarter: r.Deal.BookingQuarter()}
		if r.Err != nil {
			dto.Error = toErrorDTO(r.Err)
			resp.Failed++
		} else {
			s := toScheduleDTO(r.Schedule)
			dto.Schedule = &s
		}
		resp.Results[i] = dto
	}
	for q, ids := range deals.GroupByQuarter(batch.Deals()) {
		for _, id := range ids {
			resp.Quarters[q] = append(resp.Quarters[q], string(id))
		}
	}
	return resp
}
