package pagination

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/netbox-inventory/pkg/client"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

const (
	// DefaultPageSize is the limit sent with each page request.
	DefaultPageSize = 50

	// DefaultMaxItems is the cap applied when a drain asks for none.
	DefaultMaxItems = 1000

	// DefaultCursorParam carries opaque continuation tokens.
	DefaultCursorParam = "cursor"
)

//go:generate mockgen -destination=mock_requester.go -package=pagination github.com/Sternrassler/netbox-inventory/pkg/pagination Requester

// Requester issues one API request and returns the decoded body.
// *client.Client implements it.
type Requester interface {
	Request(ctx context.Context, method, path string, query url.Values) (record.Value, error)
}

// Config holds drainer configuration.
type Config struct {
	// PageSize is the limit requested per page.
	PageSize int

	// MaxItems is the default cap.
	MaxItems int

	// PageTimeout bounds each page request. Zero leaves timing to the
	// requester.
	PageTimeout time.Duration

	// CursorParam names the query parameter for opaque continuation tokens.
	CursorParam string
}

// DefaultConfig returns the default drainer configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:    DefaultPageSize,
		MaxItems:    DefaultMaxItems,
		CursorParam: DefaultCursorParam,
	}
}

// Result is a drained collection.
type Result struct {
	Records []*record.Record

	// Total is the first page's count hint, or -1 when the server sent none.
	Total int

	// Pages is the number of page requests issued.
	Pages int

	// Truncated is set when the cap stopped the drain before the collection
	// was exhausted.
	Truncated bool
}

// Size is the best known collection size: the count hint when the drain was
// truncated, otherwise the number of records.
func (r *Result) Size() int {
	if r.Truncated && r.Total > len(r.Records) {
		return r.Total
	}
	return len(r.Records)
}

// Drainer follows continuation references until a collection is exhausted
// or the cap is reached.
type Drainer struct {
	requester Requester
	config    Config
	logger    zerolog.Logger
}

// NewDrainer creates a drainer. Zero config fields take their defaults.
func NewDrainer(requester Requester, config Config) *Drainer {
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.MaxItems <= 0 {
		config.MaxItems = DefaultMaxItems
	}
	if config.CursorParam == "" {
		config.CursorParam = DefaultCursorParam
	}
	return &Drainer{
		requester: requester,
		config:    config,
		logger:    log.With().Str("component", "pagination").Logger(),
	}
}

// Cap returns the default cap.
func (d *Drainer) Cap() int {
	return d.config.MaxItems
}

// Drain fetches the collection in server order. A limit <= 0 means the
// configured default cap. At most limit records are returned; reaching it is
// not an error. Any failing page fails the whole drain with a
// *PageFetchError and no partial result.
func (d *Drainer) Drain(ctx context.Context, ref CollectionRef, limit int) (*Result, error) {
	if limit <= 0 {
		limit = d.config.MaxItems
	}
	start := time.Now()

	base := cloneValues(ref.Query)
	if base.Get("limit") == "" {
		base.Set("limit", strconv.Itoa(min(d.config.PageSize, limit)))
	}

	res := &Result{Total: -1}
	query := base
	seen := make(map[string]struct{})
	minPage := 0

	fail := func(err error, outcome string) (*Result, error) {
		drainsTotal.WithLabelValues(outcome).Inc()
		d.logger.Debug().
			Err(err).
			Str("collection", ref.String()).
			Int("page", res.Pages+1).
			Int("offset", len(res.Records)).
			Msg("Drain failed")
		return nil, &PageFetchError{Ref: ref, Page: res.Pages + 1, Offset: len(res.Records), Err: err}
	}

	for {
		if ctx.Err() != nil {
			return fail(client.ContextError(ctx), "cancelled")
		}
		if res.Pages >= iterationBound(limit, minPage) {
			return fail(ErrPaginationCycle, "cycle")
		}

		page, err := d.fetchPage(ctx, ref.Path, query)
		if err != nil {
			outcome := "failed"
			if client.IsCancelled(err) {
				outcome = "cancelled"
			}
			return fail(err, outcome)
		}
		res.Pages++
		pagesFetchedTotal.Inc()

		if res.Pages == 1 && page.HasCount {
			res.Total = page.Count
		}
		if n := len(page.Records); n > 0 && (minPage == 0 || n < minPage) {
			minPage = n
		}

		d.logger.Debug().
			Str("collection", ref.String()).
			Int("page", res.Pages).
			Int("records", len(page.Records)).
			Bool("has_next", page.Next != "").
			Msg("Fetched page")

		remaining := limit - len(res.Records)
		if len(page.Records) >= remaining {
			res.Records = append(res.Records, page.Records[:remaining]...)
			res.Truncated = len(page.Records) > remaining || page.Next != ""
			break
		}
		res.Records = append(res.Records, page.Records...)

		if page.Next == "" {
			break
		}
		if _, dup := seen[page.Next]; dup {
			return fail(ErrPaginationCycle, "cycle")
		}
		seen[page.Next] = struct{}{}
		query = ContinuationQuery(base, page.Next, d.config.CursorParam)
	}

	outcome := "complete"
	if res.Truncated {
		outcome = "truncated"
	}
	drainsTotal.WithLabelValues(outcome).Inc()
	drainRecords.Observe(float64(len(res.Records)))

	d.logger.Debug().
		Str("collection", ref.String()).
		Int("records", len(res.Records)).
		Int("total", res.Total).
		Int("pages", res.Pages).
		Bool("truncated", res.Truncated).
		Dur("duration", time.Since(start)).
		Msg("Drain complete")

	return res, nil
}

// First returns the first record of a collection, or nil when it is empty.
func (d *Drainer) First(ctx context.Context, ref CollectionRef) (*record.Record, error) {
	res, err := d.Drain(ctx, ref, 1)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	return res.Records[0], nil
}

func (d *Drainer) fetchPage(ctx context.Context, path string, query url.Values) (*Page, error) {
	pageCtx := ctx
	if d.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, d.config.PageTimeout)
		defer cancel()
	}

	v, err := d.requester.Request(pageCtx, http.MethodGet, path, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, client.ContextError(ctx)
		}
		if errors.Is(err, context.DeadlineExceeded) && pageCtx.Err() != nil {
			return nil, client.ContextError(pageCtx)
		}
		return nil, err
	}
	return ParsePage(v)
}

// iterationBound is ceil(limit / minPage); before any non-empty page the
// page size is taken as 1.
func iterationBound(limit, minPage int) int {
	if minPage <= 0 {
		minPage = 1
	}
	return (limit + minPage - 1) / minPage
}
