package aggregate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/netbox-inventory/pkg/cache"
	"github.com/Sternrassler/netbox-inventory/pkg/client"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
)

// DefaultPageConcurrency bounds simultaneous fan-out drains.
const DefaultPageConcurrency = 5

// Drainer drains one collection. *pagination.Drainer implements it.
type Drainer interface {
	Drain(ctx context.Context, ref pagination.CollectionRef, limit int) (*pagination.Result, error)
}

// Config holds aggregator configuration.
type Config struct {
	// PageConcurrency is the maximum number of branches drained at once.
	PageConcurrency int
}

// DefaultConfig returns the default aggregator configuration.
func DefaultConfig() Config {
	return Config{PageConcurrency: DefaultPageConcurrency}
}

// Aggregator composes drains.
type Aggregator struct {
	drainer     Drainer
	lookups     *cache.Manager
	concurrency int
	logger      zerolog.Logger
}

// New creates an aggregator. lookups may be nil to disable memoisation of
// Resolve and Lookup.
func New(drainer Drainer, lookups *cache.Manager, cfg Config) *Aggregator {
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = DefaultPageConcurrency
	}
	return &Aggregator{
		drainer:     drainer,
		lookups:     lookups,
		concurrency: cfg.PageConcurrency,
		logger:      log.With().Str("component", "aggregate").Logger(),
	}
}

// Branch is one named collection of a fan-out.
type Branch struct {
	Name string
	Ref  pagination.CollectionRef
}

// BranchResult is the outcome of one branch. Exactly one of Result and Err
// is set.
type BranchResult struct {
	Branch
	Result *pagination.Result
	Err    error
}

// FanOut drains every branch with at most PageConcurrency drains in flight.
// Results are in branch order whatever the completion order. A failing
// branch keeps its error in its BranchResult; an authentication failure or
// cancellation of ctx aborts the fan-out and is returned instead.
func (a *Aggregator) FanOut(ctx context.Context, branches []Branch, limit int) ([]BranchResult, error) {
	start := time.Now()
	results := make([]BranchResult, len(branches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, b := range branches {
		results[i].Branch = b
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i].Err = client.ContextError(gctx)
				return nil
			}
			res, err := a.drainer.Drain(gctx, b.Ref, limit)
			if err != nil {
				results[i].Err = err
				if client.IsAuthFailure(err) {
					return err
				}
				return nil
			}
			results[i].Result = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		fanOutBranchesTotal.WithLabelValues("aborted").Add(float64(len(branches)))
		a.logger.Error().Err(err).Int("branches", len(branches)).Msg("Fan-out aborted")
		return nil, err
	}
	if ctx.Err() != nil {
		fanOutBranchesTotal.WithLabelValues("aborted").Add(float64(len(branches)))
		return nil, client.ContextError(ctx)
	}
	fanOutDuration.Observe(time.Since(start).Seconds())

	degraded := 0
	for _, r := range results {
		if r.Err != nil {
			degraded++
			fanOutBranchesTotal.WithLabelValues("degraded").Inc()
			a.logger.Warn().
				Err(r.Err).
				Str("branch", r.Name).
				Str("collection", r.Ref.String()).
				Msg("Fan-out branch degraded")
			continue
		}
		fanOutBranchesTotal.WithLabelValues("ok").Inc()
	}

	a.logger.Debug().
		Int("branches", len(branches)).
		Int("degraded", degraded).
		Int("concurrency", a.concurrency).
		Dur("duration", time.Since(start)).
		Msg("Fan-out complete")

	return results, nil
}
