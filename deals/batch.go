/*
batch.go - Schedule building over a collection of deals

PURPOSE:
  Runs the ScheduleBuilder for every deal, in parallel, then aggregates the
  whole collection once. One bad deal never stops the others.

CONCURRENCY:
  Each deal is owned by exactly one goroutine, which writes only its own
  slot in the results slice. errgroup.Wait() is the single barrier between
  the per-deal phase and aggregation. Goroutines never return an error to
  the group; failures are recorded per deal.

RESULTS:
  Results keep the input order. A successful Result carries the updated deal
  copy (FirstYearMonthlyRevenue set) and its schedule. A failed Result carries
  the original deal and the error.

AGGREGATION:
  The aggregator reads MonthlyRevenue, which comes from the data source, not
  from schedules. It therefore runs over every input deal, including those
  whose schedule failed.

SEE ALSO:
  - schedule.go: Per-deal builder
  - aggregate.go: Series computation
*/
package deals

import (
	"context"
	"errors"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/warp/revenue-engine/generic"
)

// Result is one deal's outcome.
type Result struct {
	Deal     Deal
	Schedule Schedule
	Err      error
}

// Batch is the outcome of processing a deal collection.
type Batch struct {
	Results []Result
	Series  Series
}

// Options tunes Process.
type Options struct {
	// Workers bounds concurrent builds. Zero means GOMAXPROCS.
	Workers int
	Metrics *Metrics
}

// Succeeded returns results without errors, in input order.
func (b Batch) Succeeded() []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns results with errors, in input order.
func (b Batch) Failed() []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Deals returns every deal as it stands after processing.
func (b Batch) Deals() []Deal {
	out := make([]Deal, len(b.Results))
	for i, r := range b.Results {
		out[i] = r.Deal
	}
	return out
}

// Process builds every deal's schedule and aggregates the collection.
// If ctx is canceled, deals not yet started fail with ctx.Err().
func Process(ctx context.Context, deals []Deal, builder *ScheduleBuilder, opts Options) Batch {
	logger := zerolog.Ctx(ctx)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(deals))
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i := range deals {
		i := i // per-iteration copy; module builds with go 1.21 loop semantics
		deal := deals[i]
		if err := ctx.Err(); err != nil {
			results[i] = Result{Deal: deal, Err: err}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Deal: deal, Err: err}
				return nil
			}
			sched, err := builder.Build(deal)
			if err != nil {
				results[i] = Result{Deal: deal, Err: err}
			} else {
				results[i] = Result{Deal: deal.WithSchedule(sched), Schedule: sched}
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		opts.Metrics.observe(r)
		if r.Err != nil {
			logger.Warn().Err(r.Err).Str("deal_id", string(r.Deal.ID)).Msg("schedule rejected")
		}
	}

	series := Aggregate(deals)
	opts.Metrics.observeAggregate()

	logger.Debug().
		Int("deals", len(deals)).
		Int("failed", len(Batch{Results: results}.Failed())).
		Int("months", len(series)).
		Msg("batch processed")

	return Batch{Results: results, Series: series}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, generic.ErrMalformedContractYear):
		return "malformed_contract_year"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
