/*
scenarios.go - Demo deal books for testing and demonstrations

PURPOSE:
	Provides pre-built deal books that populate the store with data that
	exercises specific engine behaviour: the reference schedules, a
	multi-quarter booking history, and the edge cases (credits, fractional
	durations, deals without contract years, malformed durations).

AVAILABLE SCENARIOS:
	reference-deals:      The worked examples (single year, two years, no years)
	quarterly-book:       Twelve quarters of bookings, 2016Q1 to 2018Q4
	credits-and-partials: Negative values, fractional durations, one malformed deal

HOW SCENARIOS WORK:
 1. Parse the book's JSON via the deal factory
 2. Replace every stored deal with the book

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "quarterly-book"}

NOTE:
	Loading a scenario removes every stored deal. Only use in development
	and demo environments.

SEE ALSO:
  - handlers.go: Handler type
  - factory/deal.go: Deal JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "reference-deals",
		Name:        "Reference Deals",
		Description: "One-year deal, two-year deal with decay, deal without contract years",
	},
	{
		ID:          "quarterly-book",
		Name:        "Quarterly Book",
		Description: "Three deals booked every quarter from 2016Q1 to 2018Q4",
	},
	{
		ID:          "credits-and-partials",
		Name:        "Credits and Partial Months",
		Description: "Credit notes, fractional durations and a malformed contract year",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces stored deals with a predefined book.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		book []deals.Deal
		err  error
	)
	switch req.ScenarioID {
	case "reference-deals":
		book, err = h.referenceDeals()
	case "quarterly-book":
		book, err = h.quarterlyBook()
	case "credits-and-partials":
		book, err = h.creditsAndPartials()
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build scenario", err)
		return
	}

	if err := h.replaceAll(r.Context(), book); err != nil {
		writeDomainError(w, r, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"deals":    len(book),
	})
}

// ResetDeals removes every stored deal.
func (h *Handler) ResetDeals(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeDomainError(w, r, "Failed to reset deals", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// replacer is implemented by stores that can swap the whole book atomically.
type replacer interface {
	ReplaceAll(ctx context.Context, book []deals.Deal) error
}

func (h *Handler) replaceAll(ctx context.Context, book []deals.Deal) error {
	if rp, ok := h.Store.(replacer); ok {
		return rp.ReplaceAll(ctx, book)
	}
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	for _, d := range book {
		if err := h.Store.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO BOOKS
// =============================================================================

const referenceDealsJSON = `[
  {
    "id": "ref-one-year",
    "customer": "Northwind",
    "start_date": "2018-01-01",
    "tcv": 120000,
    "duration_max": 12,
    "years": [[120000, 12]],
    "monthly_revenue": {
      "2018-01": 10000, "2018-02": 10000, "2018-03": 10000, "2018-04": 10000,
      "2018-05": 10000, "2018-06": 10000, "2018-07": 10000, "2018-08": 10000,
      "2018-09": 10000, "2018-10": 10000, "2018-11": 10000, "2018-12": 10000
    }
  },
  {
    "id": "ref-two-years",
    "customer": "Contoso",
    "start_date": "2018-01-01",
    "tcv": 220000,
    "duration_max": 18,
    "years": "[(120000, 6), (100000, 12)]",
    "monthly_revenue": {
      "2018-01": 10000, "2018-02": 10000, "2018-03": 10000,
      "2018-04": 10000, "2018-05": 10000, "2018-06": 10000,
      "2018-07": 8000, "2018-08": 8000, "2018-09": 8000
    }
  },
  {
    "id": "ref-no-years",
    "customer": "Fabrikam",
    "start_date": "2018-03-15",
    "tcv": 0,
    "duration_max": 0,
    "years": 0
  }
]`

func (h *Handler) referenceDeals() ([]deals.Deal, error) {
	return h.DealFactory.ParseDeals([]byte(referenceDealsJSON))
}

// quarterlyBook books three flat-rate deals in the first month of every
// quarter. Monthly revenue columns cover the first year of each deal.
func (h *Handler) quarterlyBook() ([]deals.Deal, error) {
	customers := []string{"Initech", "Globex", "Umbrella"}
	values := []int64{36000, 60000, 90000}

	var book []deals.Deal
	start := generic.NewMonth(2016, 1)
	for q := 0; q < 12; q++ {
		month := start.Add(3 * q)
		for i, customer := range customers {
			monthly := values[i] / 12
			revenue := make(map[string]int64, 12)
			for m := 0; m < 12; m++ {
				revenue[month.Add(m).String()] = monthly
			}
			raw, err := json.Marshal(map[string]any{
				"id":              fmt.Sprintf("%s-%s", month, customer),
				"customer":        customer,
				"start_date":      month.Start().String(),
				"tcv":             values[i] * 2,
				"duration_max":    24,
				"years":           [][2]int64{{values[i], 12}, {values[i], 12}},
				"monthly_revenue": revenue,
			})
			if err != nil {
				return nil, err
			}
			d, err := h.DealFactory.ParseDeal(string(raw))
			if err != nil {
				return nil, err
			}
			book = append(book, d)
		}
	}
	return book, nil
}

const creditsAndPartialsJSON = `[
  {
    "id": "credit-note",
    "customer": "Hooli",
    "start_date": "2018-02-01",
    "tcv": -12000,
    "duration_max": 12,
    "years": [[-12000, 12]],
    "monthly_revenue": {"2018-02": -1000, "2018-03": -1000}
  },
  {
    "id": "partial-month",
    "customer": "Pied Piper",
    "start_date": "2018-01-31",
    "tcv": 46000,
    "duration_max": 17.5,
    "years": [[23000, 5.5], [23000, 12]],
    "monthly_revenue": {"2018-01": 4000, "2018-02": 4000}
  },
  {
    "id": "malformed-duration",
    "customer": "Vandelay",
    "start_date": "2018-04-01",
    "tcv": 50000,
    "duration_max": 12,
    "years": [[50000, 12], [10000, 0]],
    "monthly_revenue": {"2018-04": 4166.67}
  }
]`

func (h *Handler) creditsAndPartials() ([]deals.Deal, error) {
	return h.DealFactory.ParseDeals([]byte(creditsAndPartialsJSON))
}
