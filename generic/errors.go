/*
errors.go - Centralized error types for the revenue engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with deal context.

ERROR CATEGORIES:
  1. Validation errors - Contract data the schedule algorithm cannot use
  2. Input errors - Malformed dates, months, periods, configuration
  3. Store errors - Missing or duplicate deal records

USAGE:
  if errors.Is(err, generic.ErrMalformedContractYear) {
      var mcy *generic.MalformedContractYearError
      errors.As(err, &mcy)
      log.Printf("deal %s year %d", mcy.DealID, mcy.YearIndex)
  }

SEE ALSO:
  - deals/schedule.go: Raises MalformedContractYearError
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedContractYear is returned when a contract year's duration
	// rounds up to less than one whole month or exceeds MaxContractMonths.
	ErrMalformedContractYear = errors.New("malformed contract year")

	// ErrInvalidDecayRate is returned when a decay rate is outside [0, 1).
	ErrInvalidDecayRate = errors.New("invalid decay rate: must be in [0, 1)")

	// ErrInvalidDecayMode is returned for an unknown decay mode name.
	ErrInvalidDecayMode = errors.New("invalid decay mode")

	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidDeal is returned when a deal definition cannot be parsed.
	ErrInvalidDeal = errors.New("invalid deal")

	// ErrDealNotFound is returned when a referenced deal doesn't exist.
	ErrDealNotFound = errors.New("deal not found")

	// ErrDuplicateDeal is returned when creating a deal whose ID is taken.
	ErrDuplicateDeal = errors.New("duplicate deal")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedContractYearError identifies the offending deal and contract year.
type MalformedContractYearError struct {
	DealID    DealID
	YearIndex int
	Duration  decimal.Decimal
}

func (e *MalformedContractYearError) Error() string {
	if e.Duration.Ceil().GreaterThan(maxContractMonths) {
		return fmt.Sprintf("malformed contract year: deal %s year %d has duration %s months (exceeds %d months)",
			e.DealID, e.YearIndex, e.Duration, MaxContractMonths)
	}
	return fmt.Sprintf("malformed contract year: deal %s year %d has duration %s months (needs at least 1 whole month)",
		e.DealID, e.YearIndex, e.Duration)
}

func (e *MalformedContractYearError) Unwrap() error {
	return ErrMalformedContractYear
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMalformedContractYear) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidDeal) ||
		errors.Is(err, ErrInvalidDecayRate) ||
		errors.Is(err, ErrInvalidDecayMode)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDealNotFound)
}

// IsConflict returns true if the error indicates a clash with existing data.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateDeal)
}
